// Package keyresolver implements the tiered secret → auth-context lookup
// described in spec.md §4.1: fast-store cache, falling through to the
// durable catalog join, with a 300s staleness budget on hits.
//
// The shape is adapted from the teacher's pkg/tenant middleware (resolve →
// cache hit → provider fallback → cache write), generalized from
// subdomain-keyed tenants to secret-keyed API-gateway auth contexts.
package keyresolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/korberlin/apigateway/internal/customer"
)

// CacheTTL is the staleness budget spec.md §4.1 mandates: tier/activation
// changes take effect within this window.
const CacheTTL = 300 * time.Second

// ErrNoMatch is the typed "no-match" signal: absent, inactive, expired key,
// or inactive owning customer. Rejections are never cached (spec.md §4.1
// step 4).
var ErrNoMatch = errors.New("keyresolver: no matching usable key")

// AuthContext is the resolved (customer, developer, key) triple, the unit
// cached in the fast store (GLOSSARY).
type AuthContext struct {
	Customer struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
		Tier  struct {
			ID         uuid.UUID `json:"id"`
			Name       string    `json:"name"`
			DailyQuota int       `json:"daily_quota"`
		} `json:"tier"`
	} `json:"customer"`
	Developer struct {
		ID              uuid.UUID `json:"id"`
		Name            string    `json:"name"`
		UpstreamBaseURL string    `json:"upstream_base_url"`
	} `json:"developer"`
	Key struct {
		ID        uuid.UUID  `json:"id"`
		Active    bool       `json:"active"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	} `json:"key"`
}

func cacheKey(secret string) string {
	return "key-context:" + secret
}

// Resolver turns a presented secret into an AuthContext.
type Resolver struct {
	rdb   redis.UniversalClient
	store customer.Store
	log   *slog.Logger
	now   func() time.Time
}

// New returns a Resolver.
func New(rdb redis.UniversalClient, store customer.Store, log *slog.Logger) *Resolver {
	return &Resolver{rdb: rdb, store: store, log: log, now: time.Now}
}

// Resolve implements the protocol in spec.md §4.1.
func (r *Resolver) Resolve(ctx context.Context, secret string) (*AuthContext, error) {
	if ac, ok := r.lookupCache(ctx, secret); ok {
		return ac, nil
	}

	row, err := r.store.FindBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, ErrNoMatch
		}
		return nil, err
	}

	now := r.now()
	if !row.Key.Usable(now) || !row.Customer.Active {
		// Rejections are never cached: a key that becomes valid later
		// (activated, renewed) must not wait out a stale negative TTL.
		return nil, ErrNoMatch
	}

	ac := buildAuthContext(row)
	r.storeCache(ctx, secret, ac)
	return ac, nil
}

func (r *Resolver) lookupCache(ctx context.Context, secret string) (*AuthContext, bool) {
	raw, err := r.rdb.Get(ctx, cacheKey(secret)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Fast-store failures are logged and fall through to the
			// durable store; they never mask a valid key (spec.md §4.1 step 6).
			r.log.WarnContext(ctx, "keyresolver: cache read failed, falling through", "error", err)
		}
		return nil, false
	}

	var ac AuthContext
	if err := json.Unmarshal(raw, &ac); err != nil {
		r.log.WarnContext(ctx, "keyresolver: cache payload corrupt, falling through", "error", err)
		return nil, false
	}
	return &ac, true
}

func (r *Resolver) storeCache(ctx context.Context, secret string, ac *AuthContext) {
	payload, err := json.Marshal(ac)
	if err != nil {
		r.log.ErrorContext(ctx, "keyresolver: marshal auth context failed", "error", err)
		return
	}
	if err := r.rdb.Set(ctx, cacheKey(secret), payload, CacheTTL).Err(); err != nil {
		r.log.WarnContext(ctx, "keyresolver: cache write failed", "error", err)
	}
}

func buildAuthContext(row *customer.AuthContextRow) *AuthContext {
	ac := &AuthContext{}
	ac.Customer.ID = row.Customer.ID
	ac.Customer.Email = row.Customer.Email
	ac.Customer.Tier.ID = row.Tier.ID
	ac.Customer.Tier.Name = row.Tier.Name
	ac.Customer.Tier.DailyQuota = row.Tier.DailyQuota
	ac.Developer.ID = row.Developer.ID
	ac.Developer.Name = row.Developer.DisplayName
	ac.Developer.UpstreamBaseURL = row.Developer.UpstreamBaseURL
	ac.Key.ID = row.Key.ID
	ac.Key.Active = row.Key.Active
	ac.Key.ExpiresAt = row.Key.ExpiresAt
	return ac
}
