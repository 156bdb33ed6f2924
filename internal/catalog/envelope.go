package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FailureKind classifies why an envelope is unsuccessful. It is local only and
// never travels over the wire.
type FailureKind string

const (
	FailureNone FailureKind = ""
	// FailureRemote means the API answered and rejected the request.
	FailureRemote FailureKind = "remote"
	// FailureTransport covers dial errors, timeouts and non-2xx without a usable body.
	FailureTransport FailureKind = "transport"
	// FailureDecode means the body was not JSON or violated the schema.
	FailureDecode FailureKind = "decode"
)

// Messages surfaced to users when the transport or payload is at fault.
const (
	MessageUnreachable = "We couldn't reach the clinic right now. Please try again."
	MessageTimeout     = "The clinic took too long to respond. Please try again."
	MessageBadResponse = "The clinic returned an unexpected response. Please try again."
	MessageRejected    = "The clinic could not process this request."
)

// FieldErrors maps a field name to its error messages. The API sends either a
// list or a single string per field; both decode into a list.
type FieldErrors map[string][]string

// UnmarshalJSON accepts {"field": ["msg"]} and {"field": "msg"}.
func (f *FieldErrors) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("errors: %w", err)
	}
	out := make(FieldErrors, len(raw))
	for field, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			out[field] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err != nil {
			return fmt.Errorf("errors.%s: expected string or list of strings", field)
		}
		out[field] = []string{single}
	}
	*f = out
	return nil
}

// First returns the first message for a field.
func (f FieldErrors) First(field string) string {
	if msgs := f[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields returns the field names in stable order.
func (f FieldErrors) Fields() []string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Envelope is the uniform {success, data, message, errors} wrapper.
type Envelope[T any] struct {
	Success bool        `json:"success"`
	Data    T           `json:"data"`
	Message string      `json:"message,omitempty"`
	Errors  FieldErrors `json:"errors,omitempty"`

	Failure    FailureKind `json:"-"`
	StatusCode int         `json:"-"`
}

// HasFieldErrors reports whether the failure carries per-field errors.
func (e Envelope[T]) HasFieldErrors() bool {
	return !e.Success && len(e.Errors) > 0
}

func failure[T any](kind FailureKind, status int, message string) Envelope[T] {
	return Envelope[T]{Success: false, Message: message, Failure: kind, StatusCode: status}
}
