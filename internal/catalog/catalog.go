// Package catalog holds the administratively-managed entities that outlive
// customers: pricing tiers and the developers that own upstream APIs.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a pricing plan: a daily request quota and a monthly price.
// DailyQuota == 0 denotes unlimited (spec.md §3, unified per §9).
type Tier struct {
	ID           uuid.UUID
	Name         string
	MonthlyPrice float64
	DailyQuota   int
	Features     map[string]bool
	CreatedAt    time.Time
}

// Unlimited reports whether the tier has no daily request ceiling.
func (t Tier) Unlimited() bool {
	return t.DailyQuota == 0
}

// HasFeature reports whether the tier's feature map grants feature.
func (t Tier) HasFeature(feature string) bool {
	return t.Features[feature]
}

// Developer owns one or more Customers and the upstream API their traffic
// is proxied to.
type Developer struct {
	ID              uuid.UUID
	DisplayName     string
	UpstreamBaseURL string
	WebhookURL      string
	WebhookSecret   string
	CreatedAt       time.Time
}
