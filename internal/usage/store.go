package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the durable persistence boundary for usage records.
type Store interface {
	// BulkInsert inserts records, skipping any that collide with an
	// existing primary key (defensive for drain re-runs; spec.md §4.4).
	BulkInsert(ctx context.Context, records []Record) error

	// CountInPeriod counts records for a customer within [start, end).
	CountInPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) (int64, error)
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) BulkInsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(
			`INSERT INTO usage_records (customer_id, api_key_id, endpoint, method, status_code, response_time_ms, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT DO NOTHING`,
			r.CustomerID, r.ApiKeyID, r.Endpoint, r.Method, r.StatusCode, r.ResponseTimeMs, r.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *PGStore) CountInPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM usage_records WHERE customer_id = $1 AND recorded_at >= $2 AND recorded_at < $3`,
		customerID, start, end,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
