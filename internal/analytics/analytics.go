// Package analytics implements the read-only usage aggregation endpoints
// (spec.md §6: usage count, trends, top endpoints, error-rate health,
// growth) as a read-optimized projection over OpenSearch (SPEC_FULL §11).
// Indexer.IndexBatch is the hook the usage drain task calls after the
// durable Postgres write when it is given a projector; cmd/gateway builds
// its drain with no projector, so the shipped processes do not populate
// the index.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/korberlin/apigateway/internal/usage"
)

// IndexName is the single rolling index usage records are projected into.
// A production deployment would date-roll this (usage-2026.07) behind an
// alias; kept flat here since index lifecycle management is out of scope.
const IndexName = "usage-records"

// usageDoc mirrors internal/usage.Record for indexing.
type usageDoc struct {
	CustomerID     string    `json:"customer_id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Indexer projects drained usage records into OpenSearch.
type Indexer struct {
	client *opensearch.Client
}

// NewIndexer returns an Indexer backed by client.
func NewIndexer(client *opensearch.Client) *Indexer {
	return &Indexer{client: client}
}

// IndexBatch writes records to the rolling index. Indexing failures are
// returned to the caller (the drain task), which logs them and still trims
// the batch, since it is already in the durable store — OpenSearch is a
// projection, never the write path of record.
func (ix *Indexer) IndexBatch(ctx context.Context, records []usage.Record) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, r := range records {
		meta, _ := json.Marshal(map[string]any{
			"index": map[string]any{"_index": IndexName},
		})
		doc, err := json.Marshal(usageDoc{
			CustomerID:     r.CustomerID.String(),
			Endpoint:       r.Endpoint,
			Method:         r.Method,
			StatusCode:     r.StatusCode,
			ResponseTimeMs: r.ResponseTimeMs,
			RecordedAt:     r.Timestamp,
		})
		if err != nil {
			return err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{Body: &buf}
	resp, err := req.Do(ctx, ix.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("analytics: bulk index failed: %s", resp.String())
	}
	return nil
}

// TrendPoint is one bucket of a usage-over-time trend.
type TrendPoint struct {
	Bucket time.Time
	Count  int64
}

// EndpointStat is one row of the top-endpoints ranking.
type EndpointStat struct {
	Endpoint string
	Count    int64
}

// ErrorRateHealth summarizes 4xx/5xx proportion over a window.
type ErrorRateHealth struct {
	Total      int64
	Errors     int64
	ErrorRate  float64
}

// GrowthStat compares this calendar week's volume to last week's.
type GrowthStat struct {
	ThisWeek   int64
	LastWeek   int64
	GrowthRate float64 // (thisWeek - lastWeek) / lastWeek; 0 if lastWeek == 0
}

// Analytics answers the read-only usage aggregation queries (spec.md §6).
type Analytics struct {
	client *opensearch.Client
	now    func() time.Time
}

// New returns an Analytics reader backed by client.
func New(client *opensearch.Client) *Analytics {
	return &Analytics{client: client, now: time.Now}
}

// UsageCount returns the total request count for customerID in [start, end).
func (a *Analytics) UsageCount(ctx context.Context, customerID uuid.UUID, start, end time.Time) (int64, error) {
	query := map[string]any{
		"size":  0,
		"query": rangeQuery(customerID, start, end),
	}
	var resp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
		} `json:"hits"`
	}
	if err := a.search(ctx, query, &resp); err != nil {
		return 0, err
	}
	return resp.Hits.Total.Value, nil
}

// Trends buckets request counts by hour or day over [start, end).
func (a *Analytics) Trends(ctx context.Context, customerID uuid.UUID, granularity string, start, end time.Time) ([]TrendPoint, error) {
	interval := "1h"
	if granularity == "day" {
		interval = "1d"
	}

	query := map[string]any{
		"size":  0,
		"query": rangeQuery(customerID, start, end),
		"aggs": map[string]any{
			"by_bucket": map[string]any{
				"date_histogram": map[string]any{
					"field":             "recorded_at",
					"fixed_interval":    interval,
					"min_doc_count":     0,
				},
			},
		},
	}

	var resp struct {
		Aggregations struct {
			ByBucket struct {
				Buckets []struct {
					KeyAsString string `json:"key_as_string"`
					DocCount    int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_bucket"`
		} `json:"aggregations"`
	}
	if err := a.search(ctx, query, &resp); err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(resp.Aggregations.ByBucket.Buckets))
	for _, b := range resp.Aggregations.ByBucket.Buckets {
		t, err := time.Parse(time.RFC3339, b.KeyAsString)
		if err != nil {
			continue
		}
		points = append(points, TrendPoint{Bucket: t, Count: b.DocCount})
	}
	return points, nil
}

// TopEndpoints ranks endpoints by request count within the named window
// ("day", "week", "month", "all").
func (a *Analytics) TopEndpoints(ctx context.Context, customerID uuid.UUID, window string) ([]EndpointStat, error) {
	start := a.windowStart(window)

	query := map[string]any{
		"size":  0,
		"query": rangeQuery(customerID, start, a.now()),
		"aggs": map[string]any{
			"by_endpoint": map[string]any{
				"terms": map[string]any{
					"field": "endpoint.keyword",
					"size":  20,
					"order": map[string]any{"_count": "desc"},
				},
			},
		},
	}

	var resp struct {
		Aggregations struct {
			ByEndpoint struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_endpoint"`
		} `json:"aggregations"`
	}
	if err := a.search(ctx, query, &resp); err != nil {
		return nil, err
	}

	stats := make([]EndpointStat, 0, len(resp.Aggregations.ByEndpoint.Buckets))
	for _, b := range resp.Aggregations.ByEndpoint.Buckets {
		stats = append(stats, EndpointStat{Endpoint: b.Key, Count: b.DocCount})
	}
	return stats, nil
}

// ErrorRateHealth reports the proportion of 4xx/5xx responses within window.
func (a *Analytics) ErrorRateHealth(ctx context.Context, customerID uuid.UUID, window string) (*ErrorRateHealth, error) {
	start := a.windowStart(window)

	total, err := a.UsageCount(ctx, customerID, start, a.now())
	if err != nil {
		return nil, err
	}

	query := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{rangeQuery(customerID, start, a.now())},
				"filter": []any{
					map[string]any{"range": map[string]any{"status_code": map[string]any{"gte": 400}}},
				},
			},
		},
	}
	var resp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
		} `json:"hits"`
	}
	if err := a.search(ctx, query, &resp); err != nil {
		return nil, err
	}

	errs := resp.Hits.Total.Value
	rate := 0.0
	if total > 0 {
		rate = float64(errs) / float64(total)
	}
	return &ErrorRateHealth{Total: total, Errors: errs, ErrorRate: rate}, nil
}

// Growth compares this calendar week's volume to last week's.
func (a *Analytics) Growth(ctx context.Context, customerID uuid.UUID) (*GrowthStat, error) {
	now := a.now()
	weekday := int(now.Weekday())
	startOfThisWeek := now.AddDate(0, 0, -weekday).Truncate(24 * time.Hour)
	startOfLastWeek := startOfThisWeek.AddDate(0, 0, -7)

	thisWeek, err := a.UsageCount(ctx, customerID, startOfThisWeek, now)
	if err != nil {
		return nil, err
	}
	lastWeek, err := a.UsageCount(ctx, customerID, startOfLastWeek, startOfThisWeek)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if lastWeek > 0 {
		rate = float64(thisWeek-lastWeek) / float64(lastWeek)
	}
	return &GrowthStat{ThisWeek: thisWeek, LastWeek: lastWeek, GrowthRate: rate}, nil
}

func (a *Analytics) windowStart(window string) time.Time {
	now := a.now()
	switch window {
	case "day":
		return now.AddDate(0, 0, -1)
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	default: // "all"
		return time.Unix(0, 0).UTC()
	}
}

func rangeQuery(customerID uuid.UUID, start, end time.Time) map[string]any {
	return map[string]any{
		"bool": map[string]any{
			"filter": []any{
				map[string]any{"term": map[string]any{"customer_id": customerID.String()}},
				map[string]any{"range": map[string]any{
					"recorded_at": map[string]any{
						"gte": start.Format(time.RFC3339),
						"lt":  end.Format(time.RFC3339),
					},
				}},
			},
		},
	}
}

func (a *Analytics) search(ctx context.Context, query map[string]any, out any) error {
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{IndexName},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, a.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("analytics: search failed: %s", resp.String())
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
