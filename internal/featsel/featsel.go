// Package featsel checks feature-selection documents before submission.
//
// A feature selection is an opaque YAML mapping of theme names to selection
// rules. It is validated locally so a malformed document never reaches the
// service.
package featsel

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// validGeomTypes are the geometry kinds a theme may request.
var validGeomTypes = map[string]bool{
	"points":   true,
	"lines":    true,
	"polygons": true,
}

// theme is one named block of a feature selection.
type theme struct {
	Types  []string `yaml:"types"`
	Select []string `yaml:"select"`
	Where  string   `yaml:"where"`
}

// ParseError reports a feature selection that failed schema validation.
// It is resolved entirely locally, never by the service.
type ParseError struct {
	Errors []string
}

func (e *ParseError) Error() string {
	if len(e.Errors) == 0 {
		return "feature selection is invalid"
	}
	return "feature selection is invalid: " + strings.Join(e.Errors, "; ")
}

// Validate checks that the document parses as YAML and that every theme
// declares at least one selected attribute.
func Validate(doc string) error {
	var themes map[string]theme
	if err := yaml.Unmarshal([]byte(doc), &themes); err != nil {
		return &ParseError{Errors: []string{err.Error()}}
	}

	if len(themes) == 0 {
		return &ParseError{Errors: []string{"at least one theme is required"}}
	}

	var errs []string
	for name, th := range themes {
		if len(th.Select) == 0 {
			errs = append(errs, fmt.Sprintf("theme %q: select list is required", name))
		}
		for _, t := range th.Types {
			if !validGeomTypes[t] {
				errs = append(errs, fmt.Sprintf("theme %q: unknown geometry type %q", name, t))
			}
		}
	}
	if len(errs) > 0 {
		return &ParseError{Errors: errs}
	}
	return nil
}
