package billingapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/korberlin/apigateway/internal/httpapi/httpjson"
	"github.com/korberlin/apigateway/pkg/audit"
)

const adminKeyHeader = "x-admin-key"

// requireAdminKey compares the x-admin-key header against the configured
// secret in constant time, mirroring the comparison pattern used for
// recovery codes and signed tokens elsewhere in this codebase.
func requireAdminKey(d Deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(adminKeyHeader)
			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(d.AdminSecret)) != 1 {
				httpjson.InvalidCredential(w, "missing or invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminRouter mounts the operator-only endpoints (spec.md §6): gated by the
// x-admin-key shared secret and, when configured, the trusted-network CIDR
// allowlist.
func adminRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	if d.TrustedNet != nil {
		r.Use(d.TrustedNet.Middleware)
	}
	r.Use(requireAdminKey(d))

	r.Get("/stats", adminStatsHandler(d))
	r.Get("/usage-logs", adminUsageLogsHandler(d))
	r.Get("/customers/{customerId}/usage", adminCustomerUsageHandler(d))
	r.Get("/customers/{customerId}/rate-limit", adminCustomerRateLimitHandler(d))
	r.Get("/customers/{customerId}", adminGetCustomerHandler(d))
	r.Get("/keys/lookup", adminKeyLookupHandler(d))

	r.Get("/invoices", listInvoicesHandler(d, true))
	r.Get("/invoices/summary", invoicesSummaryHandler(d, true))
	r.Get("/invoices/{id}", getInvoiceHandler(d, true))
	r.Put("/invoices/{id}/status", updateInvoiceStatusHandler(d, true))
	r.Put("/invoices/{id}/mark-paid", markInvoicePaidHandler(d, true))

	return r
}

// adminStatsHandler reports system-wide invoice totals (spec.md §6: "all
// stats" admin view), reusing the same aggregate query the customer-facing
// summary endpoint uses, scoped to no customer.
func adminStatsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := d.Store.Summary(r.Context(), nil)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, summary)
	}
}

// adminUsageLogsHandler returns the most recent system-wide usage records
// from the write-behind buffer (spec.md §4.4), ahead of the next drain
// to the durable store.
func adminUsageLogsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int64(100)
		records, err := d.UsageBuf.RecentGlobal(r.Context(), n)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, records)

		if d.AdminAudit != nil {
			_ = d.AdminAudit.Log(r.Context(), "admin.usage_logs_viewed")
		}
	}
}

func adminCustomerUsageHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
		if err != nil {
			httpjson.BadInput(w, "customerId must be a UUID")
			return
		}

		period, err := d.Periods.CurrentBillingPeriod(r.Context(), customerID)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		summary, err := d.Pricing.CalculateUsageForPeriod(r.Context(), customerID, *period)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, summary)
	}
}

func adminCustomerRateLimitHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
		if err != nil {
			httpjson.BadInput(w, "customerId must be a UUID")
			return
		}

		state, err := d.Limiter.Peek(r.Context(), customerID)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, state)
	}
}

// adminKeyLookupHandler resolves a presented secret straight to its owning
// customer/key, for support and incident-response use (spec.md §6: "customer
// lookup by key") — distinct from adminGetCustomerHandler, which looks up by
// customerId once the operator already knows it.
func adminKeyLookupHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.URL.Query().Get("secret")
		if secret == "" {
			httpjson.BadInput(w, "secret query parameter is required")
			return
		}

		row, err := d.Customers.FindBySecret(r.Context(), secret)
		if err != nil {
			httpjson.NotFound(w, "key")
			return
		}

		if d.AdminAudit != nil {
			_ = d.AdminAudit.Log(r.Context(), "admin.key_lookup", audit.WithResource("customer", row.Customer.ID.String()))
		}

		httpjson.WriteData(w, map[string]any{
			"key":      row.Key,
			"customer": row.Customer,
			"tier":     row.Tier,
			"developer": row.Developer,
		})
	}
}

func adminGetCustomerHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
		if err != nil {
			httpjson.BadInput(w, "customerId must be a UUID")
			return
		}

		cust, err := d.Customers.GetCustomer(r.Context(), customerID)
		if err != nil {
			httpjson.NotFound(w, "customer")
			return
		}

		if d.AdminAudit != nil {
			_ = d.AdminAudit.Log(r.Context(), "admin.customer_viewed", audit.WithResource("customer", customerID.String()))
		}

		httpjson.WriteData(w, cust)
	}
}
