package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/korberlin/apigateway/internal/catalog"
	"github.com/korberlin/apigateway/internal/customer"
)

// DirectoryNotifyTargets resolves WebhookURLResolver and RecipientResolver
// against the catalog/customer stores: the webhook endpoint lives on the
// owning Developer (SPEC_FULL §12.1 — "Developers may register a webhook
// URL"), the billing contact is the Customer's own email address.
type DirectoryNotifyTargets struct {
	Customers customer.Store
	Catalog   catalog.Store
}

// NewDirectoryNotifyTargets returns notify-target resolvers backed by the
// durable catalog and customer stores.
func NewDirectoryNotifyTargets(customers customer.Store, catalog catalog.Store) *DirectoryNotifyTargets {
	return &DirectoryNotifyTargets{Customers: customers, Catalog: catalog}
}

func (d *DirectoryNotifyTargets) WebhookEndpoint(ctx context.Context, customerID string) (url, secret string, err error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		return "", "", fmt.Errorf("directory: invalid customer id: %w", err)
	}
	cust, err := d.Customers.GetCustomer(ctx, id)
	if err != nil {
		return "", "", fmt.Errorf("directory: lookup customer: %w", err)
	}
	dev, err := d.Catalog.GetDeveloper(ctx, cust.DeveloperID)
	if err != nil {
		return "", "", fmt.Errorf("directory: lookup developer: %w", err)
	}
	if dev == nil {
		return "", "", nil
	}
	return dev.WebhookURL, dev.WebhookSecret, nil
}

func (d *DirectoryNotifyTargets) BillingEmail(ctx context.Context, customerID string) (string, error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		return "", fmt.Errorf("directory: invalid customer id: %w", err)
	}
	cust, err := d.Customers.GetCustomer(ctx, id)
	if err != nil {
		return "", fmt.Errorf("directory: lookup customer: %w", err)
	}
	return cust.Email, nil
}
