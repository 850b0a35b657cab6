package billing

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
	"golang.org/x/text/message"

	"github.com/korberlin/apigateway/internal/catalog"
)

// ErrTierNotFound is returned when a tier ID doesn't resolve.
var ErrTierNotFound = errors.New("billing: tier not found")

// UsageSummary is calculateUsageForPeriod's result (spec.md §4.7).
type UsageSummary struct {
	CustomerID uuid.UUID
	Usage      int64
	Period     Period
}

// CostEstimate is estimateMonthlyCost's result.
type CostEstimate struct {
	CurrentTier    Tier
	NewTier        *Tier
	Savings        float64
	AdditionalCost float64
}

// UpgradePreview is previewTierUpgrade's result.
type UpgradePreview struct {
	CurrentTier     Tier
	NewTier         Tier
	ProratedAmount  float64
	IsUpgrade       bool
	FeaturesAdded   []string
	FeaturesRemoved []string
}

// TierSource resolves tier catalog rows, including feature maps. catalog.Tier
// is imported directly — billing and catalog have no cyclic dependency, so
// the pricing/upgrade-preview logic can work against the real entity instead
// of a shadow type.
type TierSource interface {
	GetTier(ctx context.Context, id uuid.UUID) (*catalog.Tier, error)
	CurrentTierForCustomer(ctx context.Context, customerID uuid.UUID) (*catalog.Tier, error)
}

// Pricing implements spec.md §4.7.
type Pricing struct {
	tiers   TierSource
	periods *PeriodCalculator
	usage   UsageCounter
}

// NewPricing returns a Pricing component.
func NewPricing(tiers TierSource, periods *PeriodCalculator, usage UsageCounter) *Pricing {
	return &Pricing{tiers: tiers, periods: periods, usage: usage}
}

// CalculateUsageForPeriod implements spec.md §4.7.
func (p *Pricing) CalculateUsageForPeriod(ctx context.Context, customerID uuid.UUID, period Period) (*UsageSummary, error) {
	count, err := p.usage.CountInPeriod(ctx, customerID, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	return &UsageSummary{CustomerID: customerID, Usage: count, Period: period}, nil
}

// GetTierPricing implements spec.md §4.7.
func (p *Pricing) GetTierPricing(ctx context.Context, tierID uuid.UUID) (*Tier, error) {
	t, err := p.tiers.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTierNotFound
	}
	return &Tier{ID: t.ID, Name: t.Name, Price: t.MonthlyPrice}, nil
}

// EstimateMonthlyCost implements spec.md §4.7.
func (p *Pricing) EstimateMonthlyCost(ctx context.Context, customerID uuid.UUID, targetTierID *uuid.UUID) (*CostEstimate, error) {
	current, err := p.tiers.CurrentTierForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrTierNotFound
	}

	estimate := &CostEstimate{CurrentTier: Tier{ID: current.ID, Name: current.Name, Price: current.MonthlyPrice}}

	if targetTierID == nil || *targetTierID == current.ID {
		return estimate, nil
	}

	target, err := p.tiers.GetTier(ctx, *targetTierID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrTierNotFound
	}

	newTier := Tier{ID: target.ID, Name: target.Name, Price: target.MonthlyPrice}
	estimate.NewTier = &newTier
	estimate.Savings = math.Max(0, current.MonthlyPrice-target.MonthlyPrice)
	estimate.AdditionalCost = math.Max(0, target.MonthlyPrice-current.MonthlyPrice)
	return estimate, nil
}

// PreviewTierUpgrade implements spec.md §4.7.
func (p *Pricing) PreviewTierUpgrade(ctx context.Context, customerID uuid.UUID, newTierID uuid.UUID) (*UpgradePreview, error) {
	current, err := p.tiers.CurrentTierForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrTierNotFound
	}

	target, err := p.tiers.GetTier(ctx, newTierID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrTierNotFound
	}

	period, err := p.periods.CurrentBillingPeriod(ctx, customerID)
	if err != nil {
		return nil, err
	}

	daysInPeriod := int(period.End.Sub(period.Start).Hours() / 24)
	if daysInPeriod == 0 {
		daysInPeriod = 1
	}

	prorated := roundCents((target.MonthlyPrice - current.MonthlyPrice) * float64(period.DaysRemaining) / float64(daysInPeriod))

	added, removed := diffFeatures(current.Features, target.Features)

	return &UpgradePreview{
		CurrentTier:     Tier{ID: current.ID, Name: current.Name, Price: current.MonthlyPrice},
		NewTier:         Tier{ID: target.ID, Name: target.Name, Price: target.MonthlyPrice},
		ProratedAmount:  prorated,
		IsUpgrade:       prorated > 0,
		FeaturesAdded:   added,
		FeaturesRemoved: removed,
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func diffFeatures(current, target map[string]bool) (added, removed []string) {
	for feature, enabled := range target {
		if !enabled {
			continue
		}
		if !current[feature] {
			added = append(added, feature)
		}
	}
	for feature, enabled := range current {
		if !enabled {
			continue
		}
		if !target[feature] {
			removed = append(removed, feature)
		}
	}
	return added, removed
}

// FormatAmount renders an invoice amount in the given ISO 4217 currency
// code, e.g. "USD", using golang.org/x/text for locale-aware formatting of
// invoice line items and totals (SPEC_FULL §11).
func FormatAmount(amount float64, currencyCode string) (string, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return "", err
	}
	p := message.NewPrinter(message.MatchLanguage("en"))
	return p.Sprint(currency.Symbol(unit.Amount(amount))), nil
}
