// Package trustednet restricts admin endpoints to a configured set of
// client CIDR blocks, in addition to the x-admin-key check (spec.md §6).
package trustednet

import (
	"net"
	"net/http"

	"github.com/korberlin/apigateway/internal/httpapi/httpjson"
	"github.com/korberlin/apigateway/pkg/clientip"
)

// Guard holds the parsed allowlist. A nil or empty Guard allows everything,
// so deployments without network-level restriction don't need to configure
// CIDRs at all.
type Guard struct {
	nets []*net.IPNet
}

// New parses cidrs (e.g. "10.0.0.0/8", "192.168.1.0/24") into a Guard.
// An empty list produces a Guard that allows any client.
func New(cidrs []string) (*Guard, error) {
	g := &Guard{nets: make([]*net.IPNet, 0, len(cidrs))}
	for _, c := range cidrs {
		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			return nil, err
		}
		g.nets = append(g.nets, ipnet)
	}
	return g, nil
}

// Allowed reports whether ip falls within any configured CIDR.
func (g *Guard) Allowed(ip string) bool {
	if g == nil || len(g.nets) == 0 {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range g.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// Middleware rejects requests from clients outside the allowlist with 403.
// Relies on clientip.Middleware having already populated the request
// context (spec.md §9: admission and IP-based access control layer under
// the proxy's client-IP resolution).
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.GetIPFromContext(r.Context())
		if ip == "" {
			ip = clientip.GetIP(r)
		}
		if !g.Allowed(ip) {
			httpjson.WriteError(w, http.StatusForbidden, "untrusted_network", "client network is not permitted to reach admin endpoints")
			return
		}
		next.ServeHTTP(w, r)
	})
}
