package billing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/a-h/templ"

	"github.com/korberlin/apigateway/pkg/email"
	"github.com/korberlin/apigateway/pkg/email/templates"
	"github.com/korberlin/apigateway/pkg/webhook"
)

// webhookEvent is the outbound payload shape for invoice lifecycle events
// (SPEC_FULL §12.1: outbound invoice webhooks).
type webhookEvent struct {
	Type      string    `json:"type"`
	InvoiceID string    `json:"invoice_id"`
	Number    string    `json:"number"`
	Amount    float64   `json:"amount"`
	Status    Status    `json:"status"`
	At        time.Time `json:"at"`
}

// WebhookURLResolver maps a customer to its configured outbound webhook
// endpoint and signing secret, or "" if the customer has none configured.
type WebhookURLResolver interface {
	WebhookEndpoint(ctx context.Context, customerID string) (url, secret string, err error)
}

// RecipientResolver maps a customer to its billing contact email.
type RecipientResolver interface {
	BillingEmail(ctx context.Context, customerID string) (string, error)
}

// WebhookNotifier delivers invoice lifecycle events as signed outbound
// webhooks and billing emails, grounded on pkg/webhook.Sender and
// pkg/email.EmailSender (SPEC_FULL §12.1, §11).
//
// Delivery is fire-and-forget from the engine's perspective: failures are
// logged, never returned, so a flaky customer endpoint can't block invoice
// generation (spec.md §4.6 treats notification as a side effect, not a
// precondition).
type WebhookNotifier struct {
	sender  *webhook.Sender
	mailer  email.EmailSender
	hooks   WebhookURLResolver
	emails  RecipientResolver
	log     *slog.Logger
}

// NewWebhookNotifier returns a Notifier backed by pkg/webhook and pkg/email.
func NewWebhookNotifier(hooks WebhookURLResolver, emails RecipientResolver, mailer email.EmailSender, log *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		sender: webhook.NewSender(),
		mailer: mailer,
		hooks:  hooks,
		emails: emails,
		log:    log,
	}
}

func (n *WebhookNotifier) deliver(ctx context.Context, eventType string, inv *Invoice) {
	customerID := inv.CustomerID.String()

	url, secret, err := n.hooks.WebhookEndpoint(ctx, customerID)
	if err != nil {
		n.log.ErrorContext(ctx, "billing: failed to resolve webhook endpoint", "customer_id", customerID, "error", err)
	} else if url != "" {
		evt := webhookEvent{
			Type:      eventType,
			InvoiceID: inv.ID.String(),
			Number:    inv.Number,
			Amount:    inv.Amount,
			Status:    inv.Status,
			At:        time.Now(),
		}
		opts := []webhook.SendOption{webhook.WithMaxRetries(3)}
		if secret != "" {
			opts = append(opts, webhook.WithSignature(secret))
		}
		if err := n.sender.Send(ctx, url, evt, opts...); err != nil {
			n.log.WarnContext(ctx, "billing: webhook delivery failed", "customer_id", customerID, "event", eventType, "error", err)
		}
	}

	if n.mailer == nil {
		return
	}
	to, err := n.emails.BillingEmail(ctx, customerID)
	if err != nil || to == "" {
		return
	}
	subject, body, err := n.renderEmail(ctx, eventType, inv)
	if err != nil {
		n.log.WarnContext(ctx, "billing: invoice email render failed", "customer_id", customerID, "event", eventType, "error", err)
		return
	}
	if err := n.mailer.SendEmail(ctx, email.SendEmailParams{SendTo: to, Subject: subject, BodyHTML: body, Tag: eventType}); err != nil {
		n.log.WarnContext(ctx, "billing: invoice email failed", "customer_id", customerID, "event", eventType, "error", err)
	}
}

// invoiceEmailLine is the one-sentence body of an invoice lifecycle email,
// rendered through templ.Component so email HTML goes through the same
// component-rendering path as the rest of the pack, not a bare fmt.Sprintf.
func invoiceEmailLine(eventType string, inv *Invoice) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var line string
		switch eventType {
		case "invoice.generated":
			line = fmt.Sprintf("Invoice %s for $%.2f is due %s.", inv.Number, inv.Amount, inv.DueDate.Format("January 2, 2006"))
		case "invoice.overdue":
			line = fmt.Sprintf("Invoice %s for $%.2f was due %s and remains unpaid.", inv.Number, inv.Amount, inv.DueDate.Format("January 2, 2006"))
		case "invoice.paid":
			line = fmt.Sprintf("Thanks! We've recorded payment of $%.2f against invoice %s.", inv.Amount, inv.Number)
		default:
			return nil
		}
		_, err := fmt.Fprintf(w, "<p>%s</p>", line)
		return err
	})
}

func (n *WebhookNotifier) renderEmail(ctx context.Context, eventType string, inv *Invoice) (subject, body string, err error) {
	switch eventType {
	case "invoice.generated":
		subject = fmt.Sprintf("Invoice %s is ready", inv.Number)
	case "invoice.overdue":
		subject = fmt.Sprintf("Invoice %s is overdue", inv.Number)
	case "invoice.paid":
		subject = fmt.Sprintf("Invoice %s paid", inv.Number)
	default:
		return inv.Number, "", nil
	}
	body, err = templates.Render(ctx, invoiceEmailLine(eventType, inv))
	return subject, body, err
}

func (n *WebhookNotifier) InvoiceGenerated(ctx context.Context, inv *Invoice) { n.deliver(ctx, "invoice.generated", inv) }
func (n *WebhookNotifier) InvoiceOverdue(ctx context.Context, inv *Invoice)   { n.deliver(ctx, "invoice.overdue", inv) }
func (n *WebhookNotifier) InvoicePaid(ctx context.Context, inv *Invoice)     { n.deliver(ctx, "invoice.paid", inv) }
