package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/korberlin/apigateway/pkg/pg"
)

// Store is the durable persistence boundary for tiers and developers.
// CRUD management of these entities is out of scope (spec.md §1 Non-goals);
// this is read-only, serving the catalog-listing endpoints (spec.md §6).
type Store interface {
	ListTiers(ctx context.Context) ([]Tier, error)
	GetTier(ctx context.Context, id uuid.UUID) (*Tier, error)
	GetDeveloper(ctx context.Context, id uuid.UUID) (*Developer, error)
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) ListTiers(ctx context.Context) ([]Tier, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, monthly_price, daily_quota, features, created_at FROM tiers ORDER BY monthly_price`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tier
	for rows.Next() {
		var t Tier
		var features map[string]bool
		if err := rows.Scan(&t.ID, &t.Name, &t.MonthlyPrice, &t.DailyQuota, &features, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Features = features
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) GetTier(ctx context.Context, id uuid.UUID) (*Tier, error) {
	var t Tier
	var features map[string]bool
	err := s.pool.QueryRow(ctx, `SELECT id, name, monthly_price, daily_quota, features, created_at FROM tiers WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.MonthlyPrice, &t.DailyQuota, &features, &t.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	t.Features = features
	return &t, nil
}

func (s *PGStore) GetDeveloper(ctx context.Context, id uuid.UUID) (*Developer, error) {
	var d Developer
	err := s.pool.QueryRow(ctx, `SELECT id, display_name, upstream_base_url, webhook_url, webhook_secret, created_at FROM developers WHERE id = $1`, id).
		Scan(&d.ID, &d.DisplayName, &d.UpstreamBaseURL, &d.WebhookURL, &d.WebhookSecret, &d.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
