package billingapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/korberlin/apigateway/binder"
	"github.com/korberlin/apigateway/internal/billing"
	"github.com/korberlin/apigateway/internal/httpapi/httpjson"
	"github.com/korberlin/apigateway/pkg/audit"
)

// decodeJSON strictly binds the request body the same way the teacher's
// saaskit handlers do (binder.BindJSON: rejects unknown fields, requires an
// application/json content type).
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return binder.BindJSON()(r, v)
}

type lineItemView struct {
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"`
}

type invoiceView struct {
	ID                 string         `json:"id"`
	Number             string         `json:"number"`
	CustomerID         string         `json:"customerId"`
	PeriodStart        time.Time      `json:"periodStart"`
	PeriodEnd          time.Time      `json:"periodEnd"`
	TotalUsage         int64          `json:"totalUsage"`
	Amount             float64        `json:"amount"`
	Status             string         `json:"status"`
	DueDate            time.Time      `json:"dueDate"`
	PaidAt             *time.Time     `json:"paidAt,omitempty"`
	ExternalPaymentRef string         `json:"externalPaymentRef,omitempty"`
	LineItems          []lineItemView `json:"lineItems,omitempty"`
}

func toInvoiceView(inv *billing.Invoice) *invoiceView {
	v := &invoiceView{
		ID:                 inv.ID.String(),
		Number:             inv.Number,
		CustomerID:         inv.CustomerID.String(),
		PeriodStart:        inv.PeriodStart,
		PeriodEnd:          inv.PeriodEnd,
		TotalUsage:         inv.TotalUsage,
		Amount:             inv.Amount,
		Status:             string(inv.Status),
		DueDate:            inv.DueDate,
		PaidAt:             inv.PaidAt,
		ExternalPaymentRef: inv.ExternalPaymentRef,
	}
	for _, li := range inv.LineItems {
		v.LineItems = append(v.LineItems, lineItemView{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Amount:      li.Amount,
		})
	}
	return v
}

// parseListFilter builds a billing.ListFilter from query parameters
// (spec.md §6: customerId?, status?, startDate?, endDate?, limit?, offset?).
// forceCustomerID, when non-nil, overrides any customerId query parameter —
// the customer-facing mount's enforcement of "no cross-customer reads".
func parseListFilter(r *http.Request, forceCustomerID *uuid.UUID) (billing.ListFilter, error) {
	q := r.URL.Query()
	filter := billing.ListFilter{Limit: 50}

	if forceCustomerID != nil {
		filter.CustomerID = forceCustomerID
	} else if raw := q.Get("customerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &id
	}

	if raw := q.Get("status"); raw != "" {
		status := billing.Status(raw)
		filter.Status = &status
	}

	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}

	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Limit = n
	}

	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Offset = n
	}

	return filter, nil
}

func listInvoicesHandler(d Deps, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var forced *uuid.UUID
		if !admin {
			customerID, _ := customerIDFromRequest(r)
			forced = &customerID
		}

		filter, err := parseListFilter(r, forced)
		if err != nil {
			httpjson.BadInput(w, "invalid query parameters")
			return
		}

		invoices, err := d.Store.List(r.Context(), filter)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}

		views := make([]*invoiceView, 0, len(invoices))
		for _, inv := range invoices {
			views = append(views, toInvoiceView(inv))
		}
		httpjson.WriteData(w, views)
	}
}

func historyHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)

		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		invoices, err := d.Store.List(r.Context(), billing.ListFilter{CustomerID: &customerID, Limit: limit})
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}

		summary, err := d.Store.Summary(r.Context(), &customerID)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}

		views := make([]*invoiceView, 0, len(invoices))
		for _, inv := range invoices {
			views = append(views, toInvoiceView(inv))
		}
		httpjson.WriteData(w, historyResponse{Invoices: views, LifetimePaidTotal: summary.TotalPaid})
	}
}

func invoicesSummaryHandler(d Deps, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var customerID *uuid.UUID
		if !admin {
			id, _ := customerIDFromRequest(r)
			customerID = &id
		}

		summary, err := d.Store.Summary(r.Context(), customerID)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, summary)
	}
}

func parseInvoiceID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// getInvoiceHandler implements GET /billing/invoices/:id. On the
// customer-facing mount, an invoice belonging to a different customer is
// reported as not-found rather than forbidden, avoiding existence leakage.
func getInvoiceHandler(d Deps, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseInvoiceID(r)
		if !ok {
			httpjson.BadInput(w, "id must be a UUID")
			return
		}

		inv, err := d.Store.Get(r.Context(), id)
		if err != nil {
			httpjson.NotFound(w, "invoice")
			return
		}

		if !admin {
			customerID, _ := customerIDFromRequest(r)
			if inv.CustomerID != customerID {
				httpjson.NotFound(w, "invoice")
				return
			}
		}

		httpjson.WriteData(w, toInvoiceView(inv))
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

var validStatuses = map[billing.Status]bool{
	billing.StatusPending:   true,
	billing.StatusPaid:      true,
	billing.StatusOverdue:   true,
	billing.StatusCancelled: true,
}

func updateInvoiceStatusHandler(d Deps, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseInvoiceID(r)
		if !ok {
			httpjson.BadInput(w, "id must be a UUID")
			return
		}

		var body updateStatusRequest
		if err := decodeJSON(r, &body); err != nil {
			httpjson.BadInput(w, "invalid request body")
			return
		}
		status := billing.Status(body.Status)
		if !validStatuses[status] {
			httpjson.BadInput(w, "status must be one of PENDING, PAID, OVERDUE, CANCELLED")
			return
		}

		inv, err := d.Store.Get(r.Context(), id)
		if err != nil {
			httpjson.NotFound(w, "invoice")
			return
		}
		if !admin {
			customerID, _ := customerIDFromRequest(r)
			if inv.CustomerID != customerID {
				httpjson.NotFound(w, "invoice")
				return
			}
		}

		var paidAt *time.Time
		if status == billing.StatusPaid {
			now := time.Now()
			paidAt = &now
		}
		if err := d.Invoices.UpdateStatus(r.Context(), id, status, paidAt, inv.ExternalPaymentRef); err != nil {
			httpjson.Internal(w, err.Error())
			return
		}

		if admin && d.AdminAudit != nil {
			_ = d.AdminAudit.Log(r.Context(), "invoice.status_updated",
				audit.WithResource("invoice", id.String()),
				audit.WithMetadata("status", string(status)))
		}

		httpjson.WriteData(w, map[string]string{"id": id.String(), "status": string(status)})
	}
}

func markInvoicePaidHandler(d Deps, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseInvoiceID(r)
		if !ok {
			httpjson.BadInput(w, "id must be a UUID")
			return
		}

		inv, err := d.Store.Get(r.Context(), id)
		if err != nil {
			httpjson.NotFound(w, "invoice")
			return
		}
		if !admin {
			customerID, _ := customerIDFromRequest(r)
			if inv.CustomerID != customerID {
				httpjson.NotFound(w, "invoice")
				return
			}
		}

		// Idempotent: a second call on an already-PAID invoice is a no-op
		// success (spec.md §8), so only dispatch the notifier-bearing
		// Engine.MarkPaid path when status actually changes.
		if inv.Status != billing.StatusPaid {
			if err := d.Invoices.MarkPaid(r.Context(), id); err != nil {
				httpjson.Internal(w, err.Error())
				return
			}
		}

		if admin && d.AdminAudit != nil {
			_ = d.AdminAudit.Log(r.Context(), "invoice.marked_paid", audit.WithResource("invoice", id.String()))
		}

		httpjson.WriteData(w, map[string]string{"id": id.String(), "status": string(billing.StatusPaid)})
	}
}
