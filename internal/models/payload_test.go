package models

import (
	"errors"
	"testing"
)

func validPayload() *RegionPayload {
	return &RegionPayload{
		Name:             "Senegal",
		FeatureSelection: "Buildings:\n  select:\n    - name",
		SchedulePeriod:   PeriodDaily,
		ScheduleHour:     4,
		ExportFormats:    []string{"shp"},
	}
}

func TestPayloadValidateOK(t *testing.T) {
	if err := validPayload().Validate(); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestPayloadValidateFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegionPayload)
		field  string
	}{
		{"missing name", func(p *RegionPayload) { p.Name = "" }, "name"},
		{"missing feature selection", func(p *RegionPayload) { p.FeatureSelection = "" }, "feature_selection"},
		{"no formats", func(p *RegionPayload) { p.ExportFormats = nil }, "export_formats"},
		{"hour too large", func(p *RegionPayload) { p.ScheduleHour = 24 }, "schedule_hour"},
		{"hour negative", func(p *RegionPayload) { p.ScheduleHour = -1 }, "schedule_hour"},
		{"unknown period", func(p *RegionPayload) { p.SchedulePeriod = "hourly" }, "schedule_period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(payload)

			err := payload.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}

			var aggregate *ValidationErrors
			if !errors.As(err, &aggregate) {
				t.Fatalf("expected aggregated errors, got %T", err)
			}
			if messages := aggregate.ByField(tt.field); len(messages) == 0 {
				t.Fatalf("expected an error on %s, got %v", tt.field, aggregate.Errors)
			}
		})
	}
}

func TestPayloadValidateAccumulates(t *testing.T) {
	payload := validPayload()
	payload.Name = ""
	payload.ExportFormats = nil

	err := payload.Validate()
	var aggregate *ValidationErrors
	if !errors.As(err, &aggregate) {
		t.Fatalf("expected aggregated errors, got %T", err)
	}
	if len(aggregate.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(aggregate.Errors), aggregate.Errors)
	}
}
