// Package gatewayapi mounts the gateway process's HTTP surface: the proxy
// hot path (spec.md §4.1–§4.4) and the customer-facing billing/analytics
// endpoints, which it forwards to the billing process (spec.md §6).
package gatewayapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/korberlin/apigateway/internal/gateway/keyresolver"
	"github.com/korberlin/apigateway/internal/gateway/proxy"
	"github.com/korberlin/apigateway/internal/gateway/ratelimit"
	"github.com/korberlin/apigateway/internal/httpapi/httpjson"
	"github.com/korberlin/apigateway/internal/usage"
	"github.com/korberlin/apigateway/pkg/clientip"
)

// Deps are the components the gateway process wires together per request.
type Deps struct {
	Resolver  *keyresolver.Resolver
	Limiter   *ratelimit.Limiter
	Forwarder *proxy.Forwarder
	Buffer    *usage.Buffer
	Billing   *BillingForwarder // nil disables customer-facing billing/analytics forwarding
	Log       *slog.Logger
}

// Router builds the gateway process's top-level router.
func Router(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(clientip.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})

	r.Handle("/api/*", proxyHandler(d))

	if d.Billing != nil {
		r.Mount("/billing", billingForwardRouter(d))
	}

	return r
}

// proxyHandler implements spec.md §4.1–§4.4's request path: resolve →
// admit → forward → record.
func proxyHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		secret := r.Header.Get("X-Api-Key")
		if secret == "" {
			httpjson.WriteError(w, http.StatusUnauthorized, "missing_credential", "x-api-key header is required")
			return
		}

		ac, err := d.Resolver.Resolve(ctx, secret)
		if err != nil {
			httpjson.WriteError(w, http.StatusUnauthorized, "invalid_credential", "no matching active key")
			return
		}

		result, err := d.Limiter.CheckAndIncrement(ctx, ac.Customer.ID, ac.Customer.Tier.DailyQuota)
		if err != nil {
			d.Log.ErrorContext(ctx, "gatewayapi: rate limiter failed", "error", err)
			httpjson.WriteError(w, http.StatusInternalServerError, "internal_error", "rate limiter unavailable")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(ac.Customer.Tier.DailyQuota))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			httpjson.WriteError(w, http.StatusTooManyRequests, "quota_exhausted", "daily request quota exhausted")
			return
		}

		resp, err := d.Forwarder.Forward(ctx, proxy.Request{
			Method:          r.Method,
			Path:            proxy.StripAPIPrefix(r.URL.Path),
			Query:           r.URL.RawQuery,
			Header:          r.Header,
			Body:            r.Body,
			UpstreamBaseURL: ac.Developer.UpstreamBaseURL,
		})
		statusCode := http.StatusOK
		if err != nil {
			d.Log.WarnContext(ctx, "gatewayapi: upstream unreachable", "error", err, "developer_id", ac.Developer.ID)
			statusCode = http.StatusBadGateway
			httpjson.WriteError(w, statusCode, "upstream_unreachable", "upstream did not respond")
		} else {
			statusCode = resp.StatusCode
			for k, vs := range resp.Header {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
			w.WriteHeader(resp.StatusCode)
			_, _ = w.Write(resp.Body)
		}

		recordUsage(context.WithoutCancel(ctx), d, ac, r, statusCode)
	}
}

// recordUsage pushes the observed call onto the write-behind buffer
// (spec.md §4.4). It never blocks the response: the caller has already
// written the response by the time this runs.
func recordUsage(ctx context.Context, d Deps, ac *keyresolver.AuthContext, r *http.Request, statusCode int) {
	keyID := ac.Key.ID
	rec := usage.Record{
		CustomerID: ac.Customer.ID,
		ApiKeyID:   &keyID,
		Endpoint:   proxy.StripAPIPrefix(r.URL.Path),
		Method:     r.Method,
		StatusCode: statusCode,
		Timestamp:  time.Now(),
	}
	if err := d.Buffer.Push(ctx, rec); err != nil {
		d.Log.WarnContext(ctx, "gatewayapi: usage buffer push failed", "error", err)
	}
}

// BillingForwarder proxies customer-facing billing/analytics requests to
// the billing process, substituting the authenticated customer's ID for
// any client-supplied one (spec.md §6: "customerId is overridden by the
// authenticated customer on customer-facing mounts").
type BillingForwarder struct {
	BaseURL string
	Client  *http.Client
}

func billingForwardRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Api-Key")
		if secret == "" {
			httpjson.WriteError(w, http.StatusUnauthorized, "missing_credential", "x-api-key header is required")
			return
		}
		ac, err := d.Resolver.Resolve(r.Context(), secret)
		if err != nil {
			httpjson.WriteError(w, http.StatusUnauthorized, "invalid_credential", "no matching active key")
			return
		}

		target := d.Billing.BaseURL + "/billing" + r.URL.Path
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
		if err != nil {
			httpjson.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to build downstream request")
			return
		}
		req.Header = r.Header.Clone()
		req.Header.Set("X-Internal-Customer-Id", ac.Customer.ID.String())

		client := d.Billing.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			d.Log.WarnContext(r.Context(), "gatewayapi: billing service unreachable", "error", err)
			httpjson.WriteError(w, http.StatusServiceUnavailable, "downstream_unavailable", "billing service unavailable")
			return
		}
		defer resp.Body.Close()

		for k, vs := range resp.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	})
	return r
}
