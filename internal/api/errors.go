package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRegionNotFound is returned when a region id resolves to no record.
var ErrRegionNotFound = errors.New("export region not found")

// TransportError means no response was received from the service.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError means the service responded with a failure status.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("service returned HTTP %d", e.StatusCode)
}

// ValidationError is derived from a structured 4xx body on create/update.
// FieldErrors maps wire field names to their messages; Message is the
// user-facing summary.
type ValidationError struct {
	FieldErrors map[string][]string
	Message     string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// genericInvalidMessage is shown when the service rejects a submission
// without a more specific explanation.
const genericInvalidMessage = "Your export region is invalid. Please check the fields above."

// validationFromBody builds a ValidationError from a structured 4xx body.
// The generic message is upgraded when the service flags non_field_errors,
// and annotated when the geometry field is at fault. Returns nil when the
// body is not structured JSON.
func validationFromBody(body []byte) *ValidationError {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil
	}

	ve := &ValidationError{
		FieldErrors: make(map[string][]string, len(fields)),
		Message:     genericInvalidMessage,
	}

	for field, raw := range fields {
		var messages []string
		if err := json.Unmarshal(raw, &messages); err == nil {
			ve.FieldErrors[field] = messages
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			ve.FieldErrors[field] = []string{single}
		}
	}

	if nfe := ve.FieldErrors["non_field_errors"]; len(nfe) > 0 {
		ve.Message = nfe[0]
	}
	if _, ok := fields["the_geom"]; ok {
		ve.Message += " Choose an area to the right."
	}

	return ve
}

// StatusCode extracts the HTTP status from an error chain, or 0 when the
// failure never produced a response.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
