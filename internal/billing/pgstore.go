package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/korberlin/apigateway/pkg/pg"
)

// advisoryLockNamespace salts the month-keyed advisory lock used by
// PGStore.MaxNumberWithPrefix so it can never collide with an advisory
// lock acquired by an unrelated subsystem sharing the same database.
const advisoryLockNamespace = 0x62696c6c // "bill"

// PGStore is the pgx-backed Store implementation (spec.md §4.6).
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) ExistsForPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE customer_id = $1 AND period_start = $2 AND period_end = $3)`,
		customerID, start, end,
	).Scan(&exists)
	return exists, err
}

// MaxNumberWithPrefix serializes sequence allocation per generation month
// via a transaction-scoped Postgres advisory lock keyed by the numeric hash
// of prefix (SPEC_FULL §13 decision), so two concurrent callers generating
// invoices for the same month never race on the same sequence number. The
// lock is released automatically when the enclosing transaction commits;
// callers must invoke this and the subsequent Insert within the same
// transaction for the serialization to hold — Engine.Generate relies on
// Store being a per-call transactional wrapper (see WithTx below).
func (s *PGStore) MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return "", errTxRequired
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, advisoryLockNamespace, prefix); err != nil {
		return "", err
	}

	var max string
	err := tx.QueryRow(ctx,
		`SELECT number FROM invoices WHERE number LIKE $1 ORDER BY number DESC LIMIT 1`,
		prefix+"%",
	).Scan(&max)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return max, err
}

func (s *PGStore) Insert(ctx context.Context, inv *Invoice) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errTxRequired
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO invoices (id, number, customer_id, period_start, period_end, total_usage, amount, status, due_date, paid_at, external_payment_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID, inv.Number, inv.CustomerID, inv.PeriodStart, inv.PeriodEnd, inv.TotalUsage, inv.Amount, inv.Status, inv.DueDate, inv.PaidAt, inv.ExternalPaymentRef,
	)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, li := range inv.LineItems {
		batch.Queue(
			`INSERT INTO line_items (id, invoice_id, description, quantity, unit_price, amount) VALUES ($1, $2, $3, $4, $5, $6)`,
			li.ID, inv.ID, li.Description, li.Quantity, li.UnitPrice, li.Amount,
		)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range inv.LineItems {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

const getInvoiceQuery = `
SELECT id, number, customer_id, period_start, period_end, total_usage, amount, status, due_date, paid_at, external_payment_ref
FROM invoices WHERE id = $1
`

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	var inv Invoice
	err := s.pool.QueryRow(ctx, getInvoiceQuery, id).Scan(
		&inv.ID, &inv.Number, &inv.CustomerID, &inv.PeriodStart, &inv.PeriodEnd, &inv.TotalUsage, &inv.Amount, &inv.Status, &inv.DueDate, &inv.PaidAt, &inv.ExternalPaymentRef,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT id, invoice_id, description, quantity, unit_price, amount FROM line_items WHERE invoice_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Description, &li.Quantity, &li.UnitPrice, &li.Amount); err != nil {
			return nil, err
		}
		inv.LineItems = append(inv.LineItems, li)
	}
	return &inv, rows.Err()
}

func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, paidAt *time.Time, externalRef string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = $2, paid_at = $3, external_payment_ref = $4 WHERE id = $1`,
		id, status, paidAt, externalRef,
	)
	return err
}

func (s *PGStore) MarkOverdueBefore(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = $1 WHERE status = $2 AND due_date < $3`,
		StatusOverdue, StatusPending, now,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const activeCustomersWithTierQuery = `
SELECT c.id, c.active, t.id, t.name, t.monthly_price
FROM customers c
JOIN tiers t ON t.id = c.tier_id
WHERE c.active = true
`

func (s *PGStore) ActiveCustomersWithTier(ctx context.Context, customerIDs []uuid.UUID) ([]CustomerWithTier, error) {
	query := activeCustomersWithTierQuery
	var args []any
	if len(customerIDs) > 0 {
		query += ` AND c.id = ANY($1)`
		args = append(args, customerIDs)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CustomerWithTier
	for rows.Next() {
		var c CustomerWithTier
		if err := rows.Scan(&c.ID, &c.Active, &c.Tier.ID, &c.Tier.Name, &c.Tier.Price); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) GetCustomerWithTier(ctx context.Context, customerID uuid.UUID) (*CustomerWithTier, error) {
	var c CustomerWithTier
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.active, t.id, t.name, t.monthly_price FROM customers c JOIN tiers t ON t.id = c.tier_id WHERE c.id = $1`,
		customerID,
	).Scan(&c.ID, &c.Active, &c.Tier.ID, &c.Tier.Name, &c.Tier.Price)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// List implements the filterable GET /billing/invoices listing (spec.md §6).
func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	query := `SELECT id, number, customer_id, period_start, period_end, total_usage, amount, status, due_date, paid_at, external_payment_ref FROM invoices WHERE 1=1`
	var args []any

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND period_start >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND period_end <= $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.PeriodStart, &inv.PeriodEnd, &inv.TotalUsage, &inv.Amount, &inv.Status, &inv.DueDate, &inv.PaidAt, &inv.ExternalPaymentRef); err != nil {
			return nil, err
		}
		out = append(out, &inv)
	}
	return out, rows.Err()
}

// Summary implements the history lifetime-paid-total and invoices/summary
// endpoints (spec.md §6). customerID nil aggregates across all customers.
func (s *PGStore) Summary(ctx context.Context, customerID *uuid.UUID) (*InvoiceSummary, error) {
	query := `
		SELECT
			count(*),
			coalesce(sum(amount) FILTER (WHERE status = 'PAID'), 0),
			coalesce(sum(amount) FILTER (WHERE status IN ('PENDING', 'OVERDUE')), 0),
			count(*) FILTER (WHERE status = 'PENDING'),
			count(*) FILTER (WHERE status = 'OVERDUE')
		FROM invoices
	`
	var args []any
	if customerID != nil {
		query += ` WHERE customer_id = $1`
		args = append(args, *customerID)
	}

	var sum InvoiceSummary
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&sum.TotalInvoices, &sum.TotalPaid, &sum.TotalOutstanding, &sum.PendingCount, &sum.OverdueCount,
	)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// MostRecentByPeriodEnd implements PeriodCalculator's InvoiceLookup.
func (s *PGStore) MostRecentByPeriodEnd(ctx context.Context, customerID uuid.UUID) (*Invoice, error) {
	var inv Invoice
	err := s.pool.QueryRow(ctx,
		`SELECT id, number, customer_id, period_start, period_end, total_usage, amount, status, due_date, paid_at, external_payment_ref
		 FROM invoices WHERE customer_id = $1 ORDER BY period_end DESC LIMIT 1`,
		customerID,
	).Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.PeriodStart, &inv.PeriodEnd, &inv.TotalUsage, &inv.Amount, &inv.Status, &inv.DueDate, &inv.PaidAt, &inv.ExternalPaymentRef)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// txKey / txFromContext / WithTx let Generate run MaxNumberWithPrefix and
// Insert under one advisory-locked transaction without threading a
// pgx.Tx through every Store method signature.
type txKey struct{}

var errTxRequired = errors.New("billing: operation requires a transaction from WithTx")

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// WithTx runs fn inside a database transaction, making it available to
// MaxNumberWithPrefix and Insert via the context so the advisory lock
// taken in MaxNumberWithPrefix is held until Insert completes and the
// transaction commits.
func (s *PGStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
