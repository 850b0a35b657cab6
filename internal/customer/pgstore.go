package customer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/korberlin/apigateway/pkg/pg"
)

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const findBySecretQuery = `
SELECT
	k.id, k.secret, k.name, k.active, k.last_used_at, k.expires_at, k.created_at,
	c.id, c.email, c.tier_id, c.developer_id, c.active, c.created_at,
	t.id, t.name, t.monthly_price, t.daily_quota, t.features, t.created_at,
	d.id, d.display_name, d.upstream_base_url, d.created_at
FROM api_keys k
JOIN customers c ON c.id = k.customer_id
JOIN tiers t ON t.id = c.tier_id
JOIN developers d ON d.id = c.developer_id
WHERE k.secret = $1
`

func (s *PGStore) FindBySecret(ctx context.Context, secret string) (*AuthContextRow, error) {
	row := s.pool.QueryRow(ctx, findBySecretQuery, secret)

	var r AuthContextRow
	var features map[string]bool

	err := row.Scan(
		&r.Key.ID, &r.Key.Secret, &r.Key.Name, &r.Key.Active, &r.Key.LastUsedAt, &r.Key.ExpiresAt, &r.Key.CreatedAt,
		&r.Customer.ID, &r.Customer.Email, &r.Customer.TierID, &r.Customer.DeveloperID, &r.Customer.Active, &r.Customer.CreatedAt,
		&r.Tier.ID, &r.Tier.Name, &r.Tier.MonthlyPrice, &r.Tier.DailyQuota, &features, &r.Tier.CreatedAt,
		&r.Developer.ID, &r.Developer.DisplayName, &r.Developer.UpstreamBaseURL, &r.Developer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	r.Key.CustomerID = r.Customer.ID
	r.Tier.Features = features
	return &r, nil
}

func (s *PGStore) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, email, tier_id, developer_id, active, created_at FROM customers WHERE id = $1`, id)

	var c Customer
	if err := row.Scan(&c.ID, &c.Email, &c.TierID, &c.DeveloperID, &c.Active, &c.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *PGStore) TouchKeyLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, keyID, at)
	return err
}

// CreatedAt implements billing.CustomerLookup: the anchor instant the
// billing period calculator advances from for a customer with no invoices
// yet (spec.md §4.5).
func (s *PGStore) CreatedAt(ctx context.Context, customerID uuid.UUID) (time.Time, error) {
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT created_at FROM customers WHERE id = $1`, customerID).Scan(&createdAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return createdAt, nil
}
