package billingapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/korberlin/apigateway/internal/catalog"
	"github.com/korberlin/apigateway/internal/customer"
)

// tierSource adapts catalog.Store + customer.Store to billing.TierSource.
type tierSource struct {
	catalog   catalog.Store
	customers customer.Store
}

// NewTierSource returns a billing.TierSource backed by the catalog and
// customer stores.
func NewTierSource(catalogStore catalog.Store, customerStore customer.Store) *tierSource {
	return &tierSource{catalog: catalogStore, customers: customerStore}
}

func (t *tierSource) GetTier(ctx context.Context, id uuid.UUID) (*catalog.Tier, error) {
	return t.catalog.GetTier(ctx, id)
}

func (t *tierSource) CurrentTierForCustomer(ctx context.Context, customerID uuid.UUID) (*catalog.Tier, error) {
	cust, err := t.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return t.catalog.GetTier(ctx, cust.TierID)
}
