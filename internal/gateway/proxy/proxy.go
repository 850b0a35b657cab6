// Package proxy forwards authorized, non-throttled requests to a
// customer's developer upstream (spec.md §4.3).
package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Timeout is the hard deadline on the upstream round trip (spec.md §4.3).
const Timeout = 30 * time.Second

// ErrUpstreamUnreachable signals a transport error or timeout reaching the
// upstream — maps to a 502 at the HTTP boundary (spec.md §7).
var ErrUpstreamUnreachable = errors.New("proxy: upstream unreachable")

// strippedRequestHeaders are removed before forwarding (spec.md §4.3).
// Content-Length is left to the HTTP client, which frames the forwarded
// body itself; Content-Type is not set again on the forwarded request.
var strippedRequestHeaders = []string{
	"Host", "X-Api-Key", "X-Forwarded-For", "X-Real-Ip", "Connection",
	"Content-Length", "Content-Type",
}

// Request is the forwarder's input, already stripped of the /api prefix.
type Request struct {
	Method string
	Path   string // with /api prefix stripped; "" becomes "/"
	Query  string // raw query string, without leading "?"
	Header http.Header
	Body   io.Reader

	UpstreamBaseURL string // from the resolved developer; never global config when set
}

// Response is what the upstream returned, or a synthesized gateway error.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forwarder proxies requests using a shared http.Client with a hard timeout.
type Forwarder struct {
	client            *http.Client
	defaultUpstreamURL string
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithDefaultUpstreamURL sets the fallback base URL used only when the
// resolved developer has none (spec.md §4.3).
func WithDefaultUpstreamURL(url string) Option {
	return func(f *Forwarder) { f.defaultUpstreamURL = url }
}

// New returns a Forwarder with the spec-mandated 30s timeout.
func New(opts ...Option) *Forwarder {
	f := &Forwarder{
		client: &http.Client{Timeout: Timeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StripAPIPrefix strips a leading "/api" from path, returning "/" for an
// empty result (spec.md §4.3).
func StripAPIPrefix(path string) string {
	stripped := strings.TrimPrefix(path, "/api")
	if stripped == "" {
		return "/"
	}
	return stripped
}

// Forward builds the target URL, sanitizes headers, and proxies req.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Response, error) {
	base := req.UpstreamBaseURL
	if base == "" {
		base = f.defaultUpstreamURL
	}

	target := base + req.Path
	if req.Query != "" {
		target += "?" + req.Query
	}
	if _, err := url.Parse(target); err != nil {
		return nil, errors.Join(ErrUpstreamUnreachable, err)
	}

	var body io.Reader = req.Body
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.Join(ErrUpstreamUnreachable, err)
	}
	httpReq.Header = sanitizeHeaders(req.Header)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, errors.Join(ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrUpstreamUnreachable, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// sanitizeHeaders returns a copy of h with the stripped headers removed.
func sanitizeHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, name := range strippedRequestHeaders {
		out.Del(name)
	}
	return out
}
