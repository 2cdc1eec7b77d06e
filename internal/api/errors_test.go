package api

import (
	"net/http"
	"testing"
)

func TestValidationFromBodyUnstructured(t *testing.T) {
	if ve := validationFromBody([]byte("<html>Server Error</html>")); ve != nil {
		t.Fatalf("expected nil for non-JSON body, got %+v", ve)
	}
	if ve := validationFromBody([]byte(`"just a string"`)); ve != nil {
		t.Fatalf("expected nil for non-object body, got %+v", ve)
	}
	if ve := validationFromBody(nil); ve != nil {
		t.Fatalf("expected nil for empty body, got %+v", ve)
	}
}

func TestValidationFromBodyFieldErrors(t *testing.T) {
	body := []byte(`{"name": ["This field may not be blank."]}`)
	ve := validationFromBody(body)
	if ve == nil {
		t.Fatal("expected a validation error")
	}
	if ve.Message != genericInvalidMessage {
		t.Fatalf("expected generic message, got %q", ve.Message)
	}
	if got := ve.FieldErrors["name"]; len(got) != 1 || got[0] != "This field may not be blank." {
		t.Fatalf("unexpected field errors: %v", got)
	}
}

func TestValidationFromBodyNonFieldErrors(t *testing.T) {
	body := []byte(`{"non_field_errors": ["Schedule conflicts with an existing export."]}`)
	ve := validationFromBody(body)
	if ve == nil {
		t.Fatal("expected a validation error")
	}
	if ve.Message != "Schedule conflicts with an existing export." {
		t.Fatalf("expected upgraded message, got %q", ve.Message)
	}
}

func TestValidationFromBodyGeometryHint(t *testing.T) {
	body := []byte(`{"the_geom": ["This field is required."]}`)
	ve := validationFromBody(body)
	if ve == nil {
		t.Fatal("expected a validation error")
	}
	want := genericInvalidMessage + " Choose an area to the right."
	if ve.Message != want {
		t.Fatalf("expected %q, got %q", want, ve.Message)
	}
}

func TestValidationFromBodySingleString(t *testing.T) {
	body := []byte(`{"detail": "Not found."}`)
	ve := validationFromBody(body)
	if ve == nil {
		t.Fatal("expected a validation error")
	}
	if got := ve.FieldErrors["detail"]; len(got) != 1 || got[0] != "Not found." {
		t.Fatalf("unexpected field errors: %v", got)
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(&HTTPError{StatusCode: http.StatusBadRequest}); got != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", got)
	}
	if got := StatusCode(&TransportError{URL: "http://x", Err: ErrRegionNotFound}); got != 0 {
		t.Fatalf("expected 0 for transport errors, got %d", got)
	}
	if got := StatusCode(nil); got != 0 {
		t.Fatalf("expected 0 for nil, got %d", got)
	}
}
