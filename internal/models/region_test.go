package models

import (
	"encoding/json"
	"testing"
)

func TestSchedulePeriodIsValid(t *testing.T) {
	for _, period := range SchedulePeriods {
		if !period.IsValid() {
			t.Fatalf("expected %q to be valid", period)
		}
	}
	if SchedulePeriod("hourly").IsValid() {
		t.Fatal("expected hourly to be invalid")
	}
	if SchedulePeriod("").IsValid() {
		t.Fatal("expected empty period to be invalid")
	}
}

func TestExportRegionUnmarshal(t *testing.T) {
	body := `{
		"id": 7,
		"name": "Senegal",
		"event": "Flood Response",
		"job_uid": "0c605f6a-07c6-4e27-9e3d-0d3ee2d5d9a0",
		"feature_selection": "Buildings:\n  select:\n    - name",
		"schedule_period": "daily",
		"schedule_hour": 4,
		"export_formats": ["shp", "geopackage"],
		"simplified_geom": {"type": "Polygon", "coordinates": []},
		"last_run": null,
		"next_run": "2026-03-01T04:00:00Z"
	}`

	var region ExportRegion
	if err := json.Unmarshal([]byte(body), &region); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if region.ProjectName != "Flood Response" {
		t.Fatalf("expected event to map to ProjectName, got %q", region.ProjectName)
	}
	if region.LastRun != nil {
		t.Fatalf("expected null last_run to stay nil, got %v", region.LastRun)
	}
	if region.NextRun == nil {
		t.Fatal("expected next_run to be set")
	}
	if region.SimplifiedGeom == nil {
		t.Fatal("expected simplified_geom to be decoded")
	}
	if len(region.SimplifiedGeom.Raw) == 0 {
		t.Fatal("expected raw GeoJSON to be retained")
	}
}

func TestNormalizeNestsRegionID(t *testing.T) {
	region := &ExportRegion{
		ID:             42,
		SimplifiedGeom: &Geometry{Raw: json.RawMessage(`{"type":"Polygon"}`)},
	}
	region.Normalize()

	if region.SimplifiedGeom.ID != 42 {
		t.Fatalf("expected geometry id 42, got %d", region.SimplifiedGeom.ID)
	}
}

func TestNormalizeWithoutGeometry(t *testing.T) {
	region := &ExportRegion{ID: 42}
	region.Normalize()

	if region.SimplifiedGeom != nil {
		t.Fatal("expected geometry to stay nil")
	}
}

func TestGeometryMarshalRoundTrip(t *testing.T) {
	geom := Geometry{ID: 3, Raw: json.RawMessage(`{"type":"Polygon","coordinates":[]}`)}
	data, err := json.Marshal(geom)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"type":"Polygon","coordinates":[]}` {
		t.Fatalf("expected raw body, got %s", data)
	}

	empty := Geometry{}
	data, err = json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("expected null for empty geometry, got %s", data)
	}
}

func TestHasFormat(t *testing.T) {
	region := &ExportRegion{ExportFormats: []string{"shp", "geopackage"}}

	if !region.HasFormat("shp") {
		t.Fatal("expected shp to be present")
	}
	if region.HasFormat("osm_pbf") {
		t.Fatal("expected osm_pbf to be absent")
	}
}
