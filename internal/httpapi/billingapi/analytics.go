package billingapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/korberlin/apigateway/internal/httpapi/httpjson"
)

// analyticsRouter mounts the customer-facing usage analytics endpoints
// (spec.md §6), trusting the same internal customer header as
// customerRouter since both are reached only via the gateway process's
// forward.
func analyticsRouter(d Deps) chi.Router {
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

	r.Get("/usage-count", usageCountHandler(d))
	r.Get("/trends", trendsHandler(d))
	r.Get("/top-endpoints", topEndpointsHandler(d))
	r.Get("/error-rate", errorRateHandler(d))
	r.Get("/growth", growthHandler(d))

	return r
}

func parseRangeParams(r *http.Request) (start, end time.Time, ok bool) {
	q := r.URL.Query()
	s, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		return start, end, false
	}
	e, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		return start, end, false
	}
	return s, e, true
}

func usageCountHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)
		start, end, ok := parseRangeParams(r)
		if !ok {
			httpjson.BadInput(w, "start and end must be RFC3339 timestamps")
			return
		}

		count, err := d.Analytics.UsageCount(r.Context(), customerID, start, end)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, map[string]int64{"count": count})
	}
}

func trendsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)
		start, end, ok := parseRangeParams(r)
		if !ok {
			httpjson.BadInput(w, "start and end must be RFC3339 timestamps")
			return
		}

		granularity := r.URL.Query().Get("granularity")
		if granularity != "day" {
			granularity = "hour"
		}

		points, err := d.Analytics.Trends(r.Context(), customerID, granularity, start, end)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, points)
	}
}

func windowParam(r *http.Request) string {
	switch w := r.URL.Query().Get("window"); w {
	case "day", "week", "month", "all":
		return w
	default:
		return "day"
	}
}

func topEndpointsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)
		stats, err := d.Analytics.TopEndpoints(r.Context(), customerID, windowParam(r))
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, stats)
	}
}

func errorRateHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)
		health, err := d.Analytics.ErrorRateHealth(r.Context(), customerID, windowParam(r))
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, health)
	}
}

func growthHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _ := customerIDFromRequest(r)
		growth, err := d.Analytics.Growth(r.Context(), customerID)
		if err != nil {
			httpjson.Internal(w, err.Error())
			return
		}
		httpjson.WriteData(w, growth)
	}
}
