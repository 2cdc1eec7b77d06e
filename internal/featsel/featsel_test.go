package featsel

import (
	"errors"
	"strings"
	"testing"
)

const buildingsDoc = `Buildings:
  types:
    - polygons
  select:
    - name
    - building
  where: building IS NOT NULL`

func TestValidateOK(t *testing.T) {
	if err := Validate(buildingsDoc); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
}

func TestValidateMultipleThemes(t *testing.T) {
	doc := `Buildings:
  select:
    - building
Roads:
  types:
    - lines
  select:
    - highway`
	if err := Validate(doc); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
}

func TestValidateMalformedYAML(t *testing.T) {
	err := Validate("Buildings:\n  select: [unterminated")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestValidateEmptyDocument(t *testing.T) {
	err := Validate("")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if len(parseErr.Errors) != 1 || !strings.Contains(parseErr.Errors[0], "theme") {
		t.Fatalf("expected a missing-theme error, got %v", parseErr.Errors)
	}
}

func TestValidateMissingSelect(t *testing.T) {
	err := Validate("Buildings:\n  types:\n    - polygons")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.Contains(parseErr.Error(), "select list is required") {
		t.Fatalf("expected a select-list error, got %v", parseErr)
	}
}

func TestValidateUnknownGeomType(t *testing.T) {
	err := Validate("Buildings:\n  types:\n    - circles\n  select:\n    - name")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.Contains(parseErr.Error(), `unknown geometry type "circles"`) {
		t.Fatalf("expected a geometry-type error, got %v", parseErr)
	}
}
