// Package ratelimit implements the daily per-customer request counter
// described in spec.md §4.2. The public shape (Limiter.CheckAndIncrement
// returning a Result) mirrors the teacher's pkg/ratelimiter token bucket, but the
// semantics are a midnight-reset fixed window rather than a refilling
// bucket, realized with a single atomic Redis script per spec.md §5's
// linearizability requirement.
package ratelimit

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidQuota is returned for a negative quota; 0 means unlimited
// (spec.md §9).
var ErrInvalidQuota = errors.New("ratelimit: quota must be >= 0")

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces the daily quota against the fast store.
type Limiter struct {
	rdb      redis.UniversalClient
	location *time.Location
}

// New returns a Limiter whose daily windows reset at local midnight in loc.
func New(rdb redis.UniversalClient, loc *time.Location) *Limiter {
	if loc == nil {
		loc = time.Local
	}
	return &Limiter{rdb: rdb, location: loc}
}

func rateKey(customerID uuid.UUID) string {
	return "rate:" + customerID.String()
}

//go:embed checkandincrement.lua
var checkAndIncrementScript string

var checkAndIncrement = redis.NewScript(checkAndIncrementScript)

// CheckAndIncrement implements spec.md §4.2's checkAndIncrement operation.
// quota == 0 short-circuits to allowed without touching the fast store
// (unlimited, spec.md §9).
func (l *Limiter) CheckAndIncrement(ctx context.Context, customerID uuid.UUID, quota int) (*Result, error) {
	if quota < 0 {
		return nil, ErrInvalidQuota
	}
	if quota == 0 {
		return &Result{Allowed: true, Remaining: -1, ResetAt: l.nextMidnight(time.Now())}, nil
	}

	now := time.Now()
	candidateResetAt := l.nextMidnight(now)
	res, err := checkAndIncrement.Run(ctx, l.rdb,
		[]string{rateKey(customerID)},
		quota, candidateResetAt.Unix(), now.Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: script failed: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return nil, fmt.Errorf("ratelimit: unexpected script result %T", res)
	}

	allowed := vals[0].(int64) == 1
	remaining := int(vals[1].(int64))
	storedResetAt := vals[2].(int64)

	return &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   time.Unix(storedResetAt, 0),
	}, nil
}

// State is a customer's counter state as currently stored, independent of
// any particular tier quota.
type State struct {
	Count   int
	ResetAt time.Time
}

// Peek reads a customer's current counter state without incrementing it,
// for the admin per-customer rate-limit inspection endpoint (spec.md §6).
// A customer with no counter yet (never admitted today) reads as zero.
func (l *Limiter) Peek(ctx context.Context, customerID uuid.UUID) (*State, error) {
	vals, err := l.rdb.HMGet(ctx, rateKey(customerID), "count", "resetAt").Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: peek failed: %w", err)
	}

	state := &State{ResetAt: l.nextMidnight(time.Now())}
	if vals[0] != nil {
		if s, ok := vals[0].(string); ok {
			fmt.Sscanf(s, "%d", &state.Count)
		}
	}
	if vals[1] != nil {
		if s, ok := vals[1].(string); ok {
			var unix int64
			if _, err := fmt.Sscanf(s, "%d", &unix); err == nil {
				state.ResetAt = time.Unix(unix, 0)
			}
		}
	}

	return state, nil
}

// nextMidnight returns today 24:00 (i.e. tomorrow 00:00) in the limiter's
// deployment timezone (spec.md §4.2).
func (l *Limiter) nextMidnight(from time.Time) time.Time {
	t := from.In(l.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, l.location).AddDate(0, 0, 1)
}
