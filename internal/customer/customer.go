// Package customer holds the Customer and ApiKey entities and the durable
// store that backs them.
package customer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/korberlin/apigateway/internal/catalog"
)

var (
	// ErrNotFound is returned when a customer or key lookup misses.
	ErrNotFound = errors.New("customer: not found")
)

// Customer is a tenant of the gateway: the billable unit that owns keys,
// usage, and invoices.
type Customer struct {
	ID          uuid.UUID
	Email       string
	TierID      uuid.UUID
	DeveloperID uuid.UUID
	Active      bool
	CreatedAt   time.Time
}

// ApiKey is an opaque secret presented by API consumers. The zero value of
// ExpiresAt/LastUsedAt means "not set".
type ApiKey struct {
	ID         uuid.UUID
	Secret     string
	Name       string
	CustomerID uuid.UUID
	Active     bool
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}

// Usable reports whether the key itself (not the owning customer) is
// currently usable for admission, per spec.md §3's ApiKey invariant.
func (k ApiKey) Usable(now time.Time) bool {
	if !k.Active {
		return false
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// AuthContextRow is the joined row the durable store returns when resolving
// a secret: ApiKey ⋈ Customer ⋈ Tier, Customer ⋈ Developer (spec.md §4.1).
type AuthContextRow struct {
	Key       ApiKey
	Customer  Customer
	Tier      catalog.Tier
	Developer catalog.Developer
}

// Store is the durable persistence boundary for customers and keys.
type Store interface {
	// FindBySecret resolves the joined auth-context row for a presented
	// secret. Returns ErrNotFound if no ApiKey row matches the secret at
	// all (regardless of active/expiry state — those are evaluated by the
	// caller so that rejections vs. absent-key can be logged distinctly).
	FindBySecret(ctx context.Context, secret string) (*AuthContextRow, error)

	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	TouchKeyLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time) error
}
