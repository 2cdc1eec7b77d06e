package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for payload checks.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("schedule_period", func(fl validator.FieldLevel) bool {
		return SchedulePeriod(fl.Field().String()).IsValid()
	})
	return v
}

// RegionPayload is the create/update request body for an export region.
type RegionPayload struct {
	Name             string          `json:"name" validate:"required"`
	Description      string          `json:"description"`
	ProjectName      string          `json:"event"`
	FeatureSelection string          `json:"feature_selection" validate:"required"`
	SchedulePeriod   SchedulePeriod  `json:"schedule_period" validate:"schedule_period"`
	ScheduleHour     int             `json:"schedule_hour" validate:"gte=0,lte=23"`
	ExportFormats    []string        `json:"export_formats" validate:"min=1"`
	PlanetFile       bool            `json:"planet_file"`
	PolygonCentroid  bool            `json:"polygon_centroid"`
	TheGeom          json.RawMessage `json:"the_geom,omitempty"`
	AOI              AOI             `json:"aoi"`
	Group            *int64          `json:"group,omitempty"`
}

// payloadFieldNames maps struct fields to their wire names for error output.
var payloadFieldNames = map[string]string{
	"Name":             "name",
	"FeatureSelection": "feature_selection",
	"SchedulePeriod":   "schedule_period",
	"ScheduleHour":     "schedule_hour",
	"ExportFormats":    "export_formats",
}

// Validate checks the payload before it is submitted to the service.
func (p *RegionPayload) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	aggregate := &ValidationErrors{}
	for _, fe := range fieldErrs {
		field := payloadFieldNames[fe.StructField()]
		if field == "" {
			field = fe.StructField()
		}
		aggregate.AddMessage(field, payloadMessage(field, fe))
	}
	return aggregate.Err()
}

func payloadMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if field == "export_formats" {
			return "choose at least one export format"
		}
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "gte", "lte":
		return "must be an hour between 0 and 23"
	case "schedule_period":
		return fmt.Sprintf("unknown schedule period %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
