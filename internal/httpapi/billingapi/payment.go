package billingapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/korberlin/apigateway/internal/billing"
	"github.com/korberlin/apigateway/internal/httpapi/httpjson"
	"github.com/korberlin/apigateway/pkg/audit"
	"github.com/korberlin/apigateway/pkg/webhook"
)

// paymentWebhookMaxAge bounds how stale a signed payment notification can
// be before it's rejected as a possible replay (SPEC_FULL §12.2).
const paymentWebhookMaxAge = 5 * time.Minute

type paymentWebhookRequest struct {
	InvoiceID          string `json:"invoiceId"`
	ExternalPaymentRef string `json:"externalPaymentRef"`
}

// paymentWebhookHandler implements the inbound payment-status webhook
// (SPEC_FULL §12.2): an external payment processor reports settlement of
// an invoice. The request is HMAC-verified the same way pkg/webhook signs
// outbound deliveries, so both directions share one signature scheme.
// Settlement logic itself (capturing the charge) stays external — this
// endpoint only records that it happened.
func paymentWebhookHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		defer r.Body.Close()
		if err != nil {
			httpjson.BadInput(w, "failed to read request body")
			return
		}

		if d.PaymentWebhookSecret != "" {
			headers := map[string]string{
				"X-Webhook-Signature": r.Header.Get("X-Webhook-Signature"),
				"X-Webhook-Timestamp": r.Header.Get("X-Webhook-Timestamp"),
				"X-Webhook-ID":        r.Header.Get("X-Webhook-ID"),
			}
			sig, err := webhook.ExtractSignatureHeaders(headers)
			if err != nil {
				httpjson.InvalidCredential(w, "missing or malformed webhook signature")
				return
			}
			if err := webhook.VerifySignature(d.PaymentWebhookSecret, body, sig, paymentWebhookMaxAge); err != nil {
				httpjson.InvalidCredential(w, "webhook signature verification failed")
				return
			}
		}

		var req paymentWebhookRequest
		if err := json.Unmarshal(body, &req); err != nil {
			httpjson.BadInput(w, "invalid request body")
			return
		}
		invoiceID, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			httpjson.BadInput(w, "invoiceId must be a UUID")
			return
		}

		inv, err := d.Store.Get(r.Context(), invoiceID)
		if err != nil {
			httpjson.NotFound(w, "invoice")
			return
		}

		// Idempotent: a replayed settlement notification for an
		// already-PAID invoice is a no-op success (spec.md §8).
		if inv.Status != billing.StatusPaid {
			now := time.Now()
			if err := d.Invoices.UpdateStatus(r.Context(), invoiceID, billing.StatusPaid, &now, req.ExternalPaymentRef); err != nil {
				httpjson.Internal(w, err.Error())
				return
			}
		}

		if d.AdminAudit != nil {
			_ = d.AdminAudit.Log(r.Context(), "invoice.payment_webhook_received",
				audit.WithResource("invoice", invoiceID.String()),
				audit.WithMetadata("external_payment_ref", req.ExternalPaymentRef))
		}

		httpjson.WriteData(w, map[string]string{"id": invoiceID.String(), "status": string(billing.StatusPaid)})
	}
}
