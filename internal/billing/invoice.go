package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the invoice lifecycle state (spec.md §3).
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

// Invoice is an immutable billing document whose status advances through
// PENDING → PAID/OVERDUE/CANCELLED, and OVERDUE → PAID (spec.md §3).
type Invoice struct {
	ID                 uuid.UUID
	Number             string
	CustomerID         uuid.UUID
	PeriodStart        time.Time
	PeriodEnd          time.Time
	TotalUsage         int64
	Amount             float64
	Status             Status
	DueDate            time.Time
	PaidAt             *time.Time
	ExternalPaymentRef string
	LineItems          []LineItem
}

// LineItem is one charge or informational entry on an Invoice.
type LineItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    int64
	UnitPrice   float64
	Amount      float64
}

var (
	// ErrDuplicateInvoice is returned when an invoice already exists for
	// (customer, periodStart, periodEnd) — maps to 400 (spec.md §7).
	ErrDuplicateInvoice = errors.New("billing: invoice already exists for this period")
	// ErrCustomerNotFound mirrors the not-found taxonomy entry (spec.md §7).
	ErrCustomerNotFound = errors.New("billing: customer not found")
	// ErrInvoiceNotFound is returned by status-lookup operations.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
)

// Tier is the minimal tier shape the invoice engine needs.
type Tier struct {
	ID    uuid.UUID
	Name  string
	Price float64
}

// CustomerWithTier is the minimal customer+tier join the engine needs.
type CustomerWithTier struct {
	ID     uuid.UUID
	Active bool
	Tier   Tier
}

// Store is the durable persistence boundary for invoices.
type Store interface {
	InvoiceLookup

	// ExistsForPeriod reports whether an invoice already exists for the
	// exact (customerID, periodStart, periodEnd) tuple.
	ExistsForPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) (bool, error)

	// MaxNumberWithPrefix returns the max existing invoice number sharing
	// prefix (format INV-YYYY-MM-), or "" if none exist. Must be called
	// from within WithTx so the advisory lock it takes is held until the
	// matching Insert commits.
	MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error)

	Insert(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id uuid.UUID) (*Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, paidAt *time.Time, externalRef string) error
	MarkOverdueBefore(ctx context.Context, now time.Time) (int, error)

	ActiveCustomersWithTier(ctx context.Context, customerIDs []uuid.UUID) ([]CustomerWithTier, error)
	GetCustomerWithTier(ctx context.Context, customerID uuid.UUID) (*CustomerWithTier, error)

	// List implements the filterable GET /billing/invoices listing
	// (spec.md §6).
	List(ctx context.Context, filter ListFilter) ([]*Invoice, error)

	// Summary aggregates invoice totals for a customer (or all customers,
	// when customerID is nil, for the admin view) for the history/summary
	// endpoints (spec.md §6).
	Summary(ctx context.Context, customerID *uuid.UUID) (*InvoiceSummary, error)

	// WithTx runs fn within a single database transaction, serializing
	// MaxNumberWithPrefix/Insert per month (SPEC_FULL §13 decision).
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ListFilter narrows GET /billing/invoices (spec.md §6). A nil CustomerID
// means "all customers" — only the admin mount leaves it nil.
type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *Status
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// InvoiceSummary aggregates invoice counts/totals for the history and
// invoices/summary endpoints (spec.md §6).
type InvoiceSummary struct {
	TotalInvoices   int
	TotalPaid       float64
	TotalOutstanding float64
	PendingCount    int
	OverdueCount    int
}

// UsageCounter counts usage records in a half-open interval.
type UsageCounter interface {
	CountInPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) (int64, error)
}

// Notifier is told about invoice lifecycle events; implementations deliver
// outbound webhooks and/or customer email (SPEC_FULL §12 supplements).
type Notifier interface {
	InvoiceGenerated(ctx context.Context, inv *Invoice)
	InvoiceOverdue(ctx context.Context, inv *Invoice)
	InvoicePaid(ctx context.Context, inv *Invoice)
}

// Archiver durably snapshots a generated invoice outside the relational
// store (SPEC_FULL §12.6).
type Archiver interface {
	Archive(ctx context.Context, inv *Invoice)
}

// Engine implements spec.md §4.6.
type Engine struct {
	store    Store
	usage    UsageCounter
	notifier Notifier
	archiver Archiver
	periods  *PeriodCalculator
	now      func() time.Time
}

// NewEngine returns an invoice Engine.
func NewEngine(store Store, usage UsageCounter, notifier Notifier, archiver Archiver, periods *PeriodCalculator) *Engine {
	return &Engine{store: store, usage: usage, notifier: notifier, archiver: archiver, periods: periods, now: time.Now}
}

// Generate implements spec.md §4.6's generateInvoice.
func (e *Engine) Generate(ctx context.Context, customerID uuid.UUID, periodStart, periodEnd time.Time) (*Invoice, error) {
	exists, err := e.store.ExistsForPeriod(ctx, customerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateInvoice
	}

	cust, err := e.store.GetCustomerWithTier(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, ErrCustomerNotFound
	}

	count, err := e.usage.CountInPeriod(ctx, customerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	now := e.now()
	inv := &Invoice{
		ID:          uuid.New(),
		CustomerID:  customerID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		TotalUsage:  count,
		Amount:      cust.Tier.Price,
		Status:      StatusPending,
		DueDate:     now.AddDate(0, 0, 7),
	}

	inv.LineItems = []LineItem{
		{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: fmt.Sprintf("%s Plan - %s", cust.Tier.Name, monthYear(periodStart)),
			Quantity:    1,
			UnitPrice:   cust.Tier.Price,
			Amount:      cust.Tier.Price,
		},
		{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: fmt.Sprintf("API Calls: %d requests", count),
			Quantity:    count,
			UnitPrice:   0,
			Amount:      0,
		},
	}

	// nextNumber and Insert run under one advisory-locked transaction so
	// two concurrent Generate calls for the same month never allocate the
	// same sequence number (SPEC_FULL §13 decision).
	if err := e.store.WithTx(ctx, func(ctx context.Context) error {
		number, err := e.nextNumber(ctx, now)
		if err != nil {
			return err
		}
		inv.Number = number
		return e.store.Insert(ctx, inv)
	}); err != nil {
		return nil, err
	}

	if e.notifier != nil {
		e.notifier.InvoiceGenerated(ctx, inv)
	}
	if e.archiver != nil {
		e.archiver.Archive(ctx, inv)
	}

	return inv, nil
}

func monthYear(t time.Time) string {
	return t.Format("January 2006")
}

// nextNumber allocates the next INV-YYYY-MM-NNN for the generation month
// (spec.md §4.6 sequencer). Callers must serialize generation per month
// (SPEC_FULL §13 decision: Postgres advisory lock keyed by month, taken by
// PGStore.MaxNumberWithPrefix inside the generation transaction — see
// pgstore.go).
func (e *Engine) nextNumber(ctx context.Context, generatedAt time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%04d-%02d-", generatedAt.Year(), int(generatedAt.Month()))

	maxNumber, err := e.store.MaxNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if maxNumber != "" {
		var n int
		if _, err := fmt.Sscanf(maxNumber[len(prefix):], "%d", &n); err == nil {
			seq = n + 1
		}
	}

	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// UpdateStatus implements spec.md §4.6's updateStatus: a direct assignment.
func (e *Engine) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, paidAt *time.Time, externalRef string) error {
	return e.store.UpdateStatus(ctx, id, status, paidAt, externalRef)
}

// MarkPaid implements spec.md §4.6's markPaid: updateStatus(id, PAID, now).
// Idempotent: a second call on an already-PAID invoice leaves status and
// paidAt untouched at the HTTP-handler layer, which checks current state
// before calling this (spec.md §8 idempotence law).
func (e *Engine) MarkPaid(ctx context.Context, id uuid.UUID) error {
	now := e.now()
	if err := e.store.UpdateStatus(ctx, id, StatusPaid, &now, ""); err != nil {
		return err
	}
	if e.notifier != nil {
		inv, err := e.store.Get(ctx, id)
		if err == nil {
			e.notifier.InvoicePaid(ctx, inv)
		}
	}
	return nil
}

// MarkOverdueInvoices implements spec.md §4.6's markOverdueInvoices.
func (e *Engine) MarkOverdueInvoices(ctx context.Context) (int, error) {
	count, err := e.store.MarkOverdueBefore(ctx, e.now())
	if err != nil {
		return 0, err
	}
	return count, nil
}

// BulkGenerateResult is the aggregate outcome of generateMonthlyInvoices.
type BulkGenerateResult struct {
	Successful int
	Failed     int
	Errors     []BulkGenerateError
	Invoices   []*Invoice
}

// BulkGenerateError pairs a customer with the error generating its invoice.
type BulkGenerateError struct {
	CustomerID uuid.UUID
	Error      string
}

// ClosePass implements the invoice-close scheduled job (spec.md §4.8): for
// each active customer whose current period closes within a day and who
// has no invoice yet for that period, generate one.
func (e *Engine) ClosePass(ctx context.Context) (*BulkGenerateResult, error) {
	customers, err := e.store.ActiveCustomersWithTier(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := &BulkGenerateResult{}
	for _, cust := range customers {
		period, err := e.periods.CurrentBillingPeriod(ctx, cust.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkGenerateError{CustomerID: cust.ID, Error: err.Error()})
			continue
		}

		if period.DaysRemaining > 1 {
			continue
		}

		exists, err := e.store.ExistsForPeriod(ctx, cust.ID, period.Start, period.End)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkGenerateError{CustomerID: cust.ID, Error: err.Error()})
			continue
		}
		if exists {
			continue
		}

		inv, err := e.Generate(ctx, cust.ID, period.Start, period.End)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkGenerateError{CustomerID: cust.ID, Error: err.Error()})
			continue
		}

		result.Successful++
		result.Invoices = append(result.Invoices, inv)
	}

	return result, nil
}

// GenerateMonthlyInvoices implements spec.md §4.6's bulk monthly generation.
func (e *Engine) GenerateMonthlyInvoices(ctx context.Context, customerIDs []uuid.UUID) (*BulkGenerateResult, error) {
	customers, err := e.store.ActiveCustomersWithTier(ctx, customerIDs)
	if err != nil {
		return nil, err
	}

	result := &BulkGenerateResult{}
	for _, cust := range customers {
		period, err := e.periods.CurrentBillingPeriod(ctx, cust.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkGenerateError{CustomerID: cust.ID, Error: err.Error()})
			continue
		}

		// Only invoice near period close (spec.md §4.6).
		if period.DaysRemaining > 7 {
			continue
		}

		inv, err := e.Generate(ctx, cust.ID, period.Start, period.End)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkGenerateError{CustomerID: cust.ID, Error: err.Error()})
			continue
		}

		result.Successful++
		result.Invoices = append(result.Invoices, inv)
	}

	return result, nil
}
