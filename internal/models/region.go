// Package models defines the export-region domain types shared across the
// client, stores, and controller.
package models

import (
	"encoding/json"
	"time"
)

// SchedulePeriod controls how often a region's export job is run.
type SchedulePeriod string

const (
	PeriodDisabled   SchedulePeriod = "disabled"
	PeriodSixHours   SchedulePeriod = "6hrs"
	PeriodDaily      SchedulePeriod = "daily"
	PeriodWeekly     SchedulePeriod = "weekly"
	PeriodBiweekly   SchedulePeriod = "2wks"
	PeriodTriweekly  SchedulePeriod = "3wks"
	PeriodMonthly    SchedulePeriod = "monthly"
	PeriodQuarterly  SchedulePeriod = "quarterly"
	PeriodSemiyearly SchedulePeriod = "6mos"
	PeriodYearly     SchedulePeriod = "yearly"
)

// SchedulePeriods lists every period the service accepts.
var SchedulePeriods = []SchedulePeriod{
	PeriodDisabled,
	PeriodSixHours,
	PeriodDaily,
	PeriodWeekly,
	PeriodBiweekly,
	PeriodTriweekly,
	PeriodMonthly,
	PeriodQuarterly,
	PeriodSemiyearly,
	PeriodYearly,
}

// IsValid reports whether the period is one the service accepts.
func (p SchedulePeriod) IsValid() bool {
	for _, known := range SchedulePeriods {
		if p == known {
			return true
		}
	}
	return false
}

// KnownExportFormats are the formats offered on the partner form.
var KnownExportFormats = []string{"shp", "geopackage", "osm_pbf"}

// AOI describes the area-of-interest metadata attached to a region.
type AOI struct {
	// Title is the free-text title for the drawn area.
	Title string `json:"title"`

	// Description is the free-text description for the drawn area.
	Description string `json:"description"`

	// GeomType is the geometry kind (Polygon, MultiPolygon).
	GeomType string `json:"geomType"`
}

// Geometry is a region's simplified geometry as returned by the service.
// Raw holds the GeoJSON body untouched; ID is filled in from the owning
// region so callers can correlate geometry back to its record.
type Geometry struct {
	ID  int64           `json:"id"`
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw GeoJSON alongside any id the server sent.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	g.Raw = append(g.Raw[:0], data...)

	var probe struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err == nil {
		g.ID = probe.ID
	}
	return nil
}

// MarshalJSON emits the raw GeoJSON body.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if len(g.Raw) == 0 {
		return []byte("null"), nil
	}
	return g.Raw, nil
}

// ExportRegion is a named, schedulable definition of a geographic area and
// data-selection rules to be periodically exported.
type ExportRegion struct {
	// ID is assigned by the service on creation and immutable afterwards.
	ID int64 `json:"id,omitempty"`

	// Name is the display name for the region.
	Name string `json:"name"`

	// Description is free text.
	Description string `json:"description"`

	// ProjectName names the project the region belongs to. The service
	// calls this field "event".
	ProjectName string `json:"event"`

	// JobUID links the region to its run history. Present from creation
	// onward and required to query runs.
	JobUID string `json:"job_uid"`

	// FeatureSelection is the opaque YAML document describing which map
	// features to include.
	FeatureSelection string `json:"feature_selection"`

	// SchedulePeriod and ScheduleHour control the automated schedule.
	SchedulePeriod SchedulePeriod `json:"schedule_period"`
	ScheduleHour   int            `json:"schedule_hour"`

	// ExportFormats is the set of output formats, non-empty on submit.
	ExportFormats []string `json:"export_formats"`

	// PlanetFile selects the daily planet file source (huge regions only).
	PlanetFile bool `json:"planet_file"`

	// PolygonCentroid exports polygon centroids as well.
	PolygonCentroid bool `json:"polygon_centroid"`

	// TheGeom is the submitted area-of-interest geometry (GeoJSON).
	TheGeom json.RawMessage `json:"the_geom,omitempty"`

	// SimplifiedGeom is the service-simplified geometry for display.
	SimplifiedGeom *Geometry `json:"simplified_geom,omitempty"`

	// AOI carries title/description metadata for the drawn area.
	AOI AOI `json:"aoi"`

	// Group is the optional partner-organization identifier.
	Group *int64 `json:"group,omitempty"`

	// LastRun and NextRun are nil when the job has never run or has no
	// scheduled run.
	LastRun *time.Time `json:"last_run"`
	NextRun *time.Time `json:"next_run"`
}

// Normalize nests the region id into the simplified geometry so callers can
// correlate geometry back to the record it belongs to.
func (r *ExportRegion) Normalize() {
	if r.SimplifiedGeom != nil {
		r.SimplifiedGeom.ID = r.ID
	}
}

// HasFormat reports whether the region includes the given export format.
func (r *ExportRegion) HasFormat(format string) bool {
	for _, f := range r.ExportFormats {
		if f == format {
			return true
		}
	}
	return false
}
