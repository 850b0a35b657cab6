// Package usage models the append-only UsageRecord and the write-behind
// buffer/drain pipeline that makes usage durable without blocking the
// request path (spec.md §4.4).
package usage

import (
	"time"

	"github.com/google/uuid"
)

// Record is one observed proxied call. Append-only: never mutated once
// durable (spec.md §3).
type Record struct {
	ID             int64      `json:"id,omitempty"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	ApiKeyID       *uuid.UUID `json:"api_key_id,omitempty"`
	Endpoint       string     `json:"endpoint"`
	Method         string     `json:"method"`
	StatusCode     int        `json:"status_code"`
	ResponseTimeMs int        `json:"response_time_ms"`
	Timestamp      time.Time  `json:"timestamp"`
}
