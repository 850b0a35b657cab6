package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/korberlin/apigateway/pkg/queue"
)

// job pairs a schedule with the action it triggers (spec.md §4.8). The
// schedule values themselves reuse the teacher's pkg/queue.Schedule
// factories (DailyAt/MonthlyOn) rather than reimplementing cron-like date
// math.
type job struct {
	name     string
	schedule queue.Schedule
	run      func(ctx context.Context) error
}

// Scheduler runs the three periodic billing jobs in-process (spec.md §4.8,
// §5: no distributed coordination).
type Scheduler struct {
	jobs []job
	log  *slog.Logger
	now  func() time.Time
}

// NewScheduler wires the three spec-mandated jobs against engine.
func NewScheduler(engine *Engine, log *slog.Logger) *Scheduler {
	s := &Scheduler{log: log, now: time.Now}
	s.jobs = []job{
		{
			name:     "invoice-close-pass",
			schedule: queue.DailyAt(2, 0),
			run: func(ctx context.Context) error {
				result, err := engine.ClosePass(ctx)
				if err != nil {
					return err
				}
				log.InfoContext(ctx, "invoice close pass complete", "successful", result.Successful, "failed", result.Failed)
				return nil
			},
		},
		{
			name:     "overdue-sweep",
			schedule: queue.DailyAt(3, 0),
			run: func(ctx context.Context) error {
				count, err := engine.MarkOverdueInvoices(ctx)
				if err != nil {
					return err
				}
				log.InfoContext(ctx, "overdue sweep complete", "marked_overdue", count)
				return nil
			},
		},
		{
			name:     "month-anchored-bulk-generation",
			schedule: queue.MonthlyOn(1, 0, 0),
			run: func(ctx context.Context) error {
				result, err := engine.GenerateMonthlyInvoices(ctx, nil)
				if err != nil {
					return err
				}
				log.InfoContext(ctx, "monthly bulk generation complete", "successful", result.Successful, "failed", result.Failed)
				return nil
			},
		},
	}
	return s
}

// Run blocks, firing each job when its schedule is next due, until ctx is
// cancelled. Each job tracks its own next-fire time independently so a slow
// run of one job never delays another's cadence.
func (s *Scheduler) Run(ctx context.Context) {
	next := make([]time.Time, len(s.jobs))
	now := s.now()
	for i, j := range s.jobs {
		next[i] = j.schedule.Next(now)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for i, j := range s.jobs {
				if now.Before(next[i]) {
					continue
				}
				if err := j.run(ctx); err != nil {
					s.log.ErrorContext(ctx, "scheduled billing job failed", "job", j.name, "error", err)
				}
				next[i] = j.schedule.Next(now)
			}
		}
	}
}
