package billingapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/korberlin/apigateway/internal/httpapi/httpjson"
)

const internalCustomerHeader = "X-Internal-Customer-Id"

// customerIDFromRequest extracts the authenticated customer set by the
// gateway process's forward (spec.md §6: "customerId is overridden by the
// authenticated customer on customer-facing mounts"). A request reaching
// this mount without the header did not come through the gateway.
func customerIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(internalCustomerHeader)
	if raw == "" {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

func customerRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := customerIDFromRequest(r); !ok {
				httpjson.InvalidCredential(w, "missing or invalid internal customer identity")
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/current-period", currentPeriodHandler(d))
	r.Get("/current-usage", currentUsageHandler(d))
	r.Get("/history", historyHandler(d))
	r.Get("/tiers", tiersHandler(d))
	r.Post("/preview-upgrade", previewUpgradeHandler(d))
	r.Get("/invoices", listInvoicesHandler(d, false))
	r.Get("/invoices/summary", invoicesSummaryHandler(d, false))
	r.Get("/invoices/{id}", getInvoiceHandler(d, false))
	r.Put("/invoices/{id}/status", updateInvoiceStatusHandler(d, false))
	r.Put("/invoices/{id}/mark-paid", markInvoicePaidHandler(d, false))

	return r
}

func currentPeriodHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)
		period, err := d.Periods.CurrentBillingPeriod(r.Context(), customerID)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, period)
	}
}

type usageView struct {
	Count      int64   `json:"count"`
	Limit      any     `json:"limit"` // int or "unlimited"
	Percentage float64 `json:"percentage"`
}

type currentUsageResponse struct {
	Period any       `json:"period"`
	Usage  usageView `json:"usage"`
	Tier   tierView  `json:"tier"`
}

type tierView struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func currentUsageHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, _ := customerIDFromRequest(r)

		period, err := d.Periods.CurrentBillingPeriod(ctx, customerID)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}

		summary, err := d.Pricing.CalculateUsageForPeriod(ctx, customerID, *period)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}

		cust, err := d.Customers.GetCustomer(ctx, customerID)
		if err != nil {
			httpjson.NotFound(w, "customer")
			return
		}
		tier, err := d.Catalog.GetTier(ctx, cust.TierID)
		if err != nil || tier == nil {
			httpjson.Internal(w, "tier lookup failed")
			return
		}

		view := usageView{Count: summary.Usage}
		if tier.Unlimited() {
			view.Limit = "unlimited"
			view.Percentage = 0
		} else {
			view.Limit = tier.DailyQuota
			view.Percentage = 100 * float64(summary.Usage) / float64(tier.DailyQuota)
		}

		httpjson.WriteData(w, currentUsageResponse{
			Period: period,
			Usage:  view,
			Tier:   tierView{Name: tier.Name, Price: tier.MonthlyPrice},
		})
	}
}

func tiersHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, _ := customerIDFromRequest(r)

		tiers, err := d.Catalog.ListTiers(ctx)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}

		cust, err := d.Customers.GetCustomer(ctx, customerID)
		if err != nil {
			httpjson.NotFound(w, "customer")
			return
		}

		type tierEntry struct {
			ID           string          `json:"id"`
			Name         string          `json:"name"`
			MonthlyPrice float64         `json:"monthlyPrice"`
			DailyQuota   int             `json:"dailyQuota"`
			Features     map[string]bool `json:"features"`
			IsCurrent    bool            `json:"isCurrent"`
		}

		out := make([]tierEntry, 0, len(tiers))
		for _, t := range tiers {
			out = append(out, tierEntry{
				ID:           t.ID.String(),
				Name:         t.Name,
				MonthlyPrice: t.MonthlyPrice,
				DailyQuota:   t.DailyQuota,
				Features:     t.Features,
				IsCurrent:    t.ID == cust.TierID,
			})
		}
		httpjson.WriteData(w, out)
	}
}

type previewUpgradeRequest struct {
	NewTierID string `json:"newTierId"`
}

func previewUpgradeHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)

		var body previewUpgradeRequest
		if err := decodeJSON(r, &body); err != nil {
			httpjson.BadInput(w, "invalid request body")
			return
		}
		newTierID, err := uuid.Parse(body.NewTierID)
		if err != nil {
			httpjson.BadInput(w, "newTierId must be a UUID")
			return
		}

		preview, err := d.Pricing.PreviewTierUpgrade(r.Context(), customerID, newTierID)
		if err != nil {
			httpjson.NotFound(w, "tier")
			return
		}
		httpjson.WriteData(w, preview)
	}
}

type historyResponse struct {
	Invoices        []*invoiceView `json:"invoices"`
	LifetimePaidTotal float64      `json:"lifetimePaidTotal"`
}
