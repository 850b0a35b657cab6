package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	globalBufferKey  = "usage:buffer:global"
	globalBufferCap  = 5000
	customerBufferFn = "usage:buffer:customer:%s"
	customerBufferCap = 1000
)

// Buffer is the fast-store side of the write-behind pipeline: one push per
// admitted request, bounded lists capped per spec.md §3/§4.4.
type Buffer struct {
	rdb redis.UniversalClient
}

// NewBuffer returns a Buffer backed by the given Redis client.
func NewBuffer(rdb redis.UniversalClient) *Buffer {
	return &Buffer{rdb: rdb}
}

// Push writes the record to both the global and per-customer bounded lists.
// Errors are the caller's to log-and-ignore: usage tracking is best-effort
// observability, never a reason to fail the proxied request (spec.md §4.4).
func (b *Buffer) Push(ctx context.Context, r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("usage: marshal record: %w", err)
	}

	customerKey := fmt.Sprintf(customerBufferFn, r.CustomerID)

	pipe := b.rdb.TxPipeline()
	pipe.LPush(ctx, customerKey, payload)
	pipe.LTrim(ctx, customerKey, 0, customerBufferCap-1)
	pipe.LPush(ctx, globalBufferKey, payload)
	pipe.LTrim(ctx, globalBufferKey, 0, globalBufferCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentForCustomer returns up to n of the most recent records for a
// customer, newest first, from the fast-store buffer (not the durable
// table) — used for low-latency recent-history queries.
func (b *Buffer) RecentForCustomer(ctx context.Context, customerID string, n int64) ([]Record, error) {
	key := fmt.Sprintf(customerBufferFn, customerID)
	raw, err := b.rdb.LRange(ctx, key, 0, n-1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			continue // malformed entries are skipped, not fatal (spec.md §4.4)
		}
		records = append(records, rec)
	}
	return records, nil
}

// RecentGlobal returns up to n of the most recent records system-wide, for
// the admin usage-logs endpoint (spec.md §6).
func (b *Buffer) RecentGlobal(ctx context.Context, n int64) ([]Record, error) {
	raw, err := b.rdb.LRange(ctx, globalBufferKey, 0, n-1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// drainTail reads the oldest-still-present window of up to n entries from
// the tail of the global buffer — the window the drain task flushes each
// tick (spec.md §4.4 step 1).
func (b *Buffer) drainTail(ctx context.Context, n int64) ([]Record, error) {
	length, err := b.rdb.LLen(ctx, globalBufferKey).Result()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}

	start := length - n
	if start < 0 {
		start = 0
	}

	raw, err := b.rdb.LRange(ctx, globalBufferKey, start, length-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// trimDrained removes the n oldest entries (the tail) once they have been
// durably persisted (spec.md §4.4 step 4).
func (b *Buffer) trimDrained(ctx context.Context, n int64) error {
	length, err := b.rdb.LLen(ctx, globalBufferKey).Result()
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}

	keep := length - n
	if keep <= 0 {
		return b.rdb.Del(ctx, globalBufferKey).Err()
	}
	return b.rdb.LTrim(ctx, globalBufferKey, 0, keep-1).Err()
}
