package usage

import (
	"context"
	"log/slog"
	"time"
)

const drainBatchSize = 100

// Projector mirrors a drained batch into the read-optimized analytics
// projection (SPEC_FULL §11, internal/analytics.Indexer). Best-effort: a
// projection failure never retains the batch the way a durable-store
// failure does, since the durable table remains the source of truth.
type Projector interface {
	IndexBatch(ctx context.Context, records []Record) error
}

// Drain periodically flushes the fast-store global buffer into the durable
// store (spec.md §4.4). It never blocks the request path: it runs on its
// own ticker, independent of admission.
type Drain struct {
	buffer    *Buffer
	store     Store
	projector Projector
	log       *slog.Logger

	interval time.Duration
}

// NewDrain returns a Drain that flushes every interval (spec.md §4.4: 30s).
// projector may be nil if analytics projection is disabled.
func NewDrain(buffer *Buffer, store Store, projector Projector, log *slog.Logger, interval time.Duration) *Drain {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Drain{buffer: buffer, store: store, projector: projector, log: log, interval: interval}
}

// Run blocks, ticking until ctx is cancelled.
func (d *Drain) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick flushes one batch. On durable-store error it leaves the batch in the
// buffer for the next tick (spec.md §4.4 step 5) rather than trimming.
func (d *Drain) tick(ctx context.Context) {
	records, err := d.buffer.drainTail(ctx, drainBatchSize)
	if err != nil {
		d.log.ErrorContext(ctx, "usage drain: read buffer failed", "error", err)
		return
	}
	if len(records) == 0 {
		return
	}

	if err := d.store.BulkInsert(ctx, records); err != nil {
		d.log.ErrorContext(ctx, "usage drain: bulk insert failed, retaining batch", "error", err, "count", len(records))
		return
	}

	if d.projector != nil {
		if err := d.projector.IndexBatch(ctx, records); err != nil {
			d.log.WarnContext(ctx, "usage drain: analytics projection failed", "error", err, "count", len(records))
		}
	}

	if err := d.buffer.trimDrained(ctx, int64(len(records))); err != nil {
		d.log.ErrorContext(ctx, "usage drain: trim failed", "error", err)
	}
}
