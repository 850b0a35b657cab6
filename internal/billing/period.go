// Package billing implements the billing period calculator, invoice engine
// and sequencer, pricing/usage summary, and scheduled jobs (spec.md
// §4.5–§4.8).
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// maxPeriodIterations bounds the month-by-month advance loop; exceeding it
// is a fatal data-integrity error (spec.md §4.5 step 6).
const maxPeriodIterations = 120

// ErrPeriodIntegrity is returned when period computation can't converge
// within maxPeriodIterations.
var ErrPeriodIntegrity = errors.New("billing: period computation exceeded safety bound")

// Period is the billing window covering some instant.
type Period struct {
	Start        time.Time
	End          time.Time
	DaysRemaining int
	CycleDay     int
}

// InvoiceLookup is the narrow slice of the invoice store the period
// calculator needs: the customer's most recent invoice by periodEnd.
type InvoiceLookup interface {
	MostRecentByPeriodEnd(ctx context.Context, customerID uuid.UUID) (*Invoice, error)
}

// CustomerLookup resolves a customer's creation instant.
type CustomerLookup interface {
	CreatedAt(ctx context.Context, customerID uuid.UUID) (time.Time, error)
}

// PeriodCalculator implements spec.md §4.5.
type PeriodCalculator struct {
	invoices  InvoiceLookup
	customers CustomerLookup
	now       func() time.Time
	log       warnLogger
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// NewPeriodCalculator returns a PeriodCalculator.
func NewPeriodCalculator(invoices InvoiceLookup, customers CustomerLookup, log warnLogger) *PeriodCalculator {
	return &PeriodCalculator{invoices: invoices, customers: customers, now: time.Now, log: log}
}

// CurrentBillingPeriod implements spec.md §4.5's algorithm.
func (c *PeriodCalculator) CurrentBillingPeriod(ctx context.Context, customerID uuid.UUID) (*Period, error) {
	now := c.now()

	createdAt, err := c.customers.CreatedAt(ctx, customerID)
	if err != nil {
		return nil, err
	}

	last, err := c.invoices.MostRecentByPeriodEnd(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if last == nil {
		return c.fromAnchor(createdAt, createdAt.Day(), now)
	}

	if last.PeriodEnd.After(now) {
		// Defensive fallback for seed/test data anomalies (spec.md §4.5
		// step 3, §9 open question): never silently treat a future-dated
		// invoice as authoritative.
		c.log.Warn("billing: most recent invoice periodEnd is in the future, falling back to creation anchor",
			"customer_id", customerID, "invoice_id", last.ID, "period_end", last.PeriodEnd)
		return c.fromAnchor(createdAt, createdAt.Day(), now)
	}

	periodStart := last.PeriodEnd.AddDate(0, 0, 1)
	return c.fromAnchor(periodStart, last.PeriodEnd.Day(), now)
}

// fromAnchor advances periodStart month-by-month until it covers now,
// returning a Period with cycleDay fixed at the given anchor day.
func (c *PeriodCalculator) fromAnchor(periodStart time.Time, cycleDay int, now time.Time) (*Period, error) {
	start := periodStart
	for i := 0; i < maxPeriodIterations; i++ {
		end := addCalendarMonth(start, cycleDay)
		if !start.After(now) && now.Before(end) {
			return &Period{
				Start:         start,
				End:           end,
				DaysRemaining: daysRemaining(end, now),
				CycleDay:      cycleDay,
			}, nil
		}
		start = end
	}
	return nil, fmt.Errorf("%w: customer anchor=%s now=%s", ErrPeriodIntegrity, periodStart, now)
}

// addCalendarMonth adds one calendar month to start, clamping to the last
// day of the target month when it is shorter than cycleDay (spec.md §4.5
// step 5).
func addCalendarMonth(start time.Time, cycleDay int) time.Time {
	year, month := start.Year(), start.Month()
	month++
	if month > time.December {
		month = time.January
		year++
	}

	day := min(cycleDay, daysInMonth(year, month))
	return time.Date(year, month, day, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// daysRemaining is ceil((end - now) / 24h), always >= 0 for a valid period.
func daysRemaining(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	days := d / (24 * time.Hour)
	if d%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}
