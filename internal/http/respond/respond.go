// Package respond writes the {success, data, message, errors} envelope used by
// every JSON endpoint of the coordinator.
package respond

import (
	"encoding/json"
	"net/http"
)

// Body is the served envelope. It mirrors the remote clinic API envelope.
type Body struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a successful envelope.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Body{Success: true, Data: data})
}

// Error writes a failed envelope with a message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Body{Success: false, Message: message})
}

// FieldErrors writes a failed envelope carrying per-field messages.
func FieldErrors(w http.ResponseWriter, status int, message string, errs map[string][]string) {
	JSON(w, status, Body{Success: false, Message: message, Errors: errs})
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
