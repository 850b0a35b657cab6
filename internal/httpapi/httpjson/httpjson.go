// Package httpjson centralizes the JSON envelope and error-taxonomy
// (spec.md §7) helpers shared by the gateway and billing process routers.
package httpjson

import (
	"encoding/json"
	"net/http"
)

// envelope is the standard JSON response structure used by every endpoint.
type envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains the error information rendered under the envelope's
// "error" key.
type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError renders the standard error envelope for one of spec.md §7's
// error-taxonomy kinds.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	write(w, status, envelope{Error: &ErrorDetail{Code: code, Message: message}})
}

// WriteData renders data in the standard envelope with a 200 status.
func WriteData(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, envelope{Data: data})
}

// WriteDataStatus renders data in the standard envelope with a custom status.
func WriteDataStatus(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Data: data})
}

// MissingCredential, InvalidCredential, NotFound, BadInput, and Internal are
// the recurring 401/404/400/500 shapes from spec.md §7's error taxonomy.
func MissingCredential(w http.ResponseWriter, header string) {
	WriteError(w, http.StatusUnauthorized, "missing_credential", header+" header is required")
}

func InvalidCredential(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "invalid_credential", message)
}

func NotFound(w http.ResponseWriter, entity string) {
	WriteError(w, http.StatusNotFound, "not_found", entity+" not found")
}

func BadInput(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_input", message)
}

func Internal(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
