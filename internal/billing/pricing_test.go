package billing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/korberlin/apigateway/internal/catalog"
)

type fakeTierSource struct {
	tiers       map[uuid.UUID]*catalog.Tier
	currentByID map[uuid.UUID]uuid.UUID // customerID -> tierID
}

func newFakeTierSource() *fakeTierSource {
	return &fakeTierSource{tiers: make(map[uuid.UUID]*catalog.Tier), currentByID: make(map[uuid.UUID]uuid.UUID)}
}

func (f *fakeTierSource) GetTier(ctx context.Context, id uuid.UUID) (*catalog.Tier, error) {
	return f.tiers[id], nil
}

func (f *fakeTierSource) CurrentTierForCustomer(ctx context.Context, customerID uuid.UUID) (*catalog.Tier, error) {
	tierID, ok := f.currentByID[customerID]
	if !ok {
		return nil, nil
	}
	return f.tiers[tierID], nil
}

func newTestPricing(tiers *fakeTierSource, store *fakeInvoiceStore, usage UsageCounter, now time.Time) *Pricing {
	periods := NewPeriodCalculator(store, &fakeCustomerLookupFromStore{store: store}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	periods.now = func() time.Time { return now }
	return NewPricing(tiers, periods, usage)
}

func TestGetTierPricingReturnsBillingTierShape(t *testing.T) {
	tiers := newFakeTierSource()
	tierID := uuid.New()
	tiers.tiers[tierID] = &catalog.Tier{ID: tierID, Name: "Pro", MonthlyPrice: 49}

	p := newTestPricing(tiers, newFakeInvoiceStore(), &fakeUsageCounter{}, time.Now())
	got, err := p.GetTierPricing(context.Background(), tierID)
	require.NoError(t, err)
	require.Equal(t, "Pro", got.Name)
	require.Equal(t, 49.0, got.Price)
}

func TestGetTierPricingUnknownTierIsError(t *testing.T) {
	p := newTestPricing(newFakeTierSource(), newFakeInvoiceStore(), &fakeUsageCounter{}, time.Now())
	_, err := p.GetTierPricing(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrTierNotFound)
}

func TestEstimateMonthlyCostWithNoTargetReturnsOnlyCurrent(t *testing.T) {
	tiers := newFakeTierSource()
	customerID := uuid.New()
	tierID := uuid.New()
	tiers.tiers[tierID] = &catalog.Tier{ID: tierID, Name: "Pro", MonthlyPrice: 49}
	tiers.currentByID[customerID] = tierID

	p := newTestPricing(tiers, newFakeInvoiceStore(), &fakeUsageCounter{}, time.Now())
	est, err := p.EstimateMonthlyCost(context.Background(), customerID, nil)
	require.NoError(t, err)
	require.Equal(t, "Pro", est.CurrentTier.Name)
	require.Nil(t, est.NewTier)
}

func TestEstimateMonthlyCostComputesSavingsAndAdditionalCost(t *testing.T) {
	tiers := newFakeTierSource()
	customerID := uuid.New()
	currentID, targetID := uuid.New(), uuid.New()
	tiers.tiers[currentID] = &catalog.Tier{ID: currentID, Name: "Pro", MonthlyPrice: 49}
	tiers.tiers[targetID] = &catalog.Tier{ID: targetID, Name: "Starter", MonthlyPrice: 19}
	tiers.currentByID[customerID] = currentID

	p := newTestPricing(tiers, newFakeInvoiceStore(), &fakeUsageCounter{}, time.Now())
	est, err := p.EstimateMonthlyCost(context.Background(), customerID, &targetID)
	require.NoError(t, err)
	require.Equal(t, 30.0, est.Savings)
	require.Equal(t, 0.0, est.AdditionalCost)
}

func TestPreviewTierUpgradeProratesByDaysRemaining(t *testing.T) {
	tiers := newFakeTierSource()
	customerID := uuid.New()
	currentID, targetID := uuid.New(), uuid.New()
	tiers.tiers[currentID] = &catalog.Tier{ID: currentID, Name: "Starter", MonthlyPrice: 0, Features: map[string]bool{"basic": true}}
	tiers.tiers[targetID] = &catalog.Tier{ID: targetID, Name: "Pro", MonthlyPrice: 30, Features: map[string]bool{"basic": true, "webhooks": true}}
	tiers.currentByID[customerID] = currentID

	store := newFakeInvoiceStore()
	store.customers[customerID] = CustomerWithTier{ID: customerID, Active: true, Tier: Tier{ID: currentID, Name: "Starter"}}

	// January billing cycle (31 days), 16 days remaining: a bit over half
	// the $30 price difference is prorated.
	now := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
	p := newTestPricing(tiers, store, &fakeUsageCounter{}, now)

	preview, err := p.PreviewTierUpgrade(context.Background(), customerID, targetID)
	require.NoError(t, err)
	require.True(t, preview.IsUpgrade)
	require.Contains(t, preview.FeaturesAdded, "webhooks")
	require.Empty(t, preview.FeaturesRemoved)
	require.InDelta(t, 15.0, preview.ProratedAmount, 1.0)
}

func TestFormatAmountRendersCurrencySymbol(t *testing.T) {
	s, err := FormatAmount(49.99, "USD")
	require.NoError(t, err)
	require.Contains(t, s, "49.99")
}
