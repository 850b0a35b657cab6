// Package billingapi mounts the billing process's HTTP surface: customer
// billing/analytics endpoints (trusted-header authenticated, reached via
// the gateway process's forward), the admin endpoints (x-admin-key plus
// trusted-network gated), and the inbound payment-status webhook
// (spec.md §6).
package billingapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/korberlin/apigateway/internal/analytics"
	"github.com/korberlin/apigateway/internal/billing"
	"github.com/korberlin/apigateway/internal/catalog"
	"github.com/korberlin/apigateway/internal/customer"
	"github.com/korberlin/apigateway/internal/gateway/ratelimit"
	"github.com/korberlin/apigateway/internal/trustednet"
	"github.com/korberlin/apigateway/internal/usage"
	"github.com/korberlin/apigateway/pkg/audit"
	"github.com/korberlin/apigateway/pkg/clientip"
)

// Deps are the components the billing process wires together per request.
type Deps struct {
	Invoices  *billing.Engine
	Periods   *billing.PeriodCalculator
	Pricing   *billing.Pricing
	Store     billing.Store
	Catalog   catalog.Store
	Customers customer.Store
	UsageDB   usage.Store
	UsageBuf  *usage.Buffer
	Limiter   *ratelimit.Limiter
	Analytics *analytics.Analytics

	AdminSecret string
	TrustedNet  *trustednet.Guard
	AdminAudit  audit.Logger // nil disables admin audit trail

	PaymentWebhookSecret string

	Log *slog.Logger
}

// Router builds the billing process's top-level router.
func Router(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(clientip.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})

	r.Mount("/billing", customerRouter(d))
	r.Mount("/analytics", analyticsRouter(d))
	r.Mount("/admin", adminRouter(d))
	r.Post("/webhooks/payment", paymentWebhookHandler(d))

	return r
}
