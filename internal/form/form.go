// Package form holds the editable working copy of an export region.
//
// The form is a private, possibly-stale copy owned by one controller
// instance. Authoritative data is merged in only while the form is clean;
// once the user touches any field, background refreshes never overwrite
// local edits.
package form

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/osm-exports/exportctl/internal/models"
)

// Field names an editable form field.
type Field string

const (
	FieldName             Field = "name"
	FieldDescription      Field = "description"
	FieldProject          Field = "event"
	FieldFeatureSelection Field = "feature_selection"
	FieldSchedulePeriod   Field = "schedule_period"
	FieldScheduleHour     Field = "schedule_hour"
	FieldExportFormats    Field = "export_formats"
	FieldPlanetFile       Field = "planet_file"
	FieldPolygonCentroid  Field = "polygon_centroid"
	FieldGroup            Field = "group"
	FieldGeometry         Field = "the_geom"
	FieldAOITitle         Field = "aoi.title"
	FieldAOIDescription   Field = "aoi.description"
)

// DefaultFeatureSelection is the starter document offered on a new region.
const DefaultFeatureSelection = `Buildings:
  types:
    - polygons
  select:
    - name
    - building
    - building:levels
    - building:materials
    - addr:full
    - addr:housenumber
    - addr:street
    - addr:city
    - office
  where: building IS NOT NULL`

// Values is the working copy of an export region's editable fields.
type Values struct {
	ID               *int64
	Name             string
	Description      string
	Project          string
	FeatureSelection string
	SchedulePeriod   models.SchedulePeriod
	ScheduleHour     int
	Formats          map[string]bool
	PlanetFile       bool
	PolygonCentroid  bool
	Group            *int64
	Geometry         json.RawMessage
	AOI              models.AOI
}

// State is the editable form: values, per-field touched flags, and the
// errors attached to the submission surface.
type State struct {
	mu          sync.Mutex
	values      Values
	touched     map[Field]bool
	fieldErrors map[string][]string
	submitError string
}

// New creates a form pre-filled with the defaults for a new region.
func New() *State {
	return &State{
		values: Values{
			FeatureSelection: DefaultFeatureSelection,
			SchedulePeriod:   models.PeriodDaily,
			ScheduleHour:     0,
			Formats:          map[string]bool{"shp": true, "geopackage": true},
			AOI: models.AOI{
				Title:       "Custom Polygon",
				Description: "Draw",
				GeomType:    "Polygon",
			},
		},
		touched: make(map[Field]bool),
	}
}

// Values returns a copy of the working values.
func (s *State) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyValues()
}

func (s *State) copyValues() Values {
	values := s.values
	values.Formats = make(map[string]bool, len(s.values.Formats))
	for format, on := range s.values.Formats {
		values.Formats[format] = on
	}
	return values
}

// AnyTouched reports whether the user has edited at least one field.
func (s *State) AnyTouched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.touched) > 0
}

// Touched reports whether a specific field has been edited.
func (s *State) Touched(field Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched[field]
}

func (s *State) touch(field Field) {
	s.touched[field] = true
}

// SetName edits the name field.
func (s *State) SetName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Name = v
	s.touch(FieldName)
}

// SetDescription edits the description field.
func (s *State) SetDescription(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Description = v
	s.touch(FieldDescription)
}

// SetProject edits the project field.
func (s *State) SetProject(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Project = v
	s.touch(FieldProject)
}

// SetFeatureSelection edits the feature-selection document.
func (s *State) SetFeatureSelection(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.FeatureSelection = v
	s.touch(FieldFeatureSelection)
}

// SetSchedule edits the schedule period and hour together.
func (s *State) SetSchedule(period models.SchedulePeriod, hour int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.SchedulePeriod = period
	s.values.ScheduleHour = hour
	s.touch(FieldSchedulePeriod)
	s.touch(FieldScheduleHour)
}

// SetFormat toggles one export format.
func (s *State) SetFormat(format string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Formats[format] = on
	s.touch(FieldExportFormats)
}

// SetPlanetFile toggles the planet-file flag.
func (s *State) SetPlanetFile(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.PlanetFile = on
	s.touch(FieldPlanetFile)
}

// SetPolygonCentroid toggles the polygon-centroid flag.
func (s *State) SetPolygonCentroid(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.PolygonCentroid = on
	s.touch(FieldPolygonCentroid)
}

// SetGroup edits the partner-organization field.
func (s *State) SetGroup(group *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Group = group
	s.touch(FieldGroup)
}

// SetGeometry edits the area-of-interest geometry.
func (s *State) SetGeometry(geom json.RawMessage, aoi models.AOI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Geometry = geom
	s.values.AOI = aoi
	s.touch(FieldGeometry)
}

// Merge copies an authoritative record into the form, field by field from an
// explicit list. Suppressed entirely while any field is touched: user edits
// always win over a background refresh. Returns whether the merge ran.
func (s *State) Merge(region *models.ExportRegion) bool {
	if region == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.touched) > 0 {
		return false
	}

	id := region.ID
	s.values.ID = &id
	s.values.Name = region.Name
	s.values.Description = region.Description
	s.values.Project = region.ProjectName
	s.values.FeatureSelection = region.FeatureSelection
	s.values.SchedulePeriod = region.SchedulePeriod
	s.values.ScheduleHour = region.ScheduleHour
	s.values.PlanetFile = region.PlanetFile
	s.values.PolygonCentroid = region.PolygonCentroid
	s.values.Group = region.Group
	if len(region.TheGeom) > 0 {
		s.values.Geometry = region.TheGeom
	}
	s.values.AOI = region.AOI

	// Format flags are derived: true for each format present in the record.
	s.values.Formats = make(map[string]bool, len(region.ExportFormats))
	for _, format := range region.ExportFormats {
		s.values.Formats[format] = true
	}

	return true
}

// Payload assembles the submit payload from the working values.
func (s *State) Payload() *models.RegionPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	formats := make([]string, 0, len(s.values.Formats))
	for format, on := range s.values.Formats {
		if on {
			formats = append(formats, format)
		}
	}
	sort.Strings(formats)

	return &models.RegionPayload{
		Name:             s.values.Name,
		Description:      s.values.Description,
		ProjectName:      s.values.Project,
		FeatureSelection: s.values.FeatureSelection,
		SchedulePeriod:   s.values.SchedulePeriod,
		ScheduleHour:     s.values.ScheduleHour,
		ExportFormats:    formats,
		PlanetFile:       s.values.PlanetFile,
		PolygonCentroid:  s.values.PolygonCentroid,
		TheGeom:          s.values.Geometry,
		AOI:              s.values.AOI,
		Group:            s.values.Group,
	}
}

// ID returns the region id, or nil before first creation.
func (s *State) ID() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.ID
}

// SetID records the id assigned by the service after creation.
func (s *State) SetID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.ID = &id
}

// SetErrors attaches submission errors to the form.
func (s *State) SetErrors(fieldErrors map[string][]string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldErrors = fieldErrors
	s.submitError = message
}

// ClearErrors removes any attached submission errors.
func (s *State) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldErrors = nil
	s.submitError = ""
}

// SubmitError returns the summary error from the last failed submission.
func (s *State) SubmitError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitError
}

// FieldErrors returns per-field errors from the last failed submission.
func (s *State) FieldErrors() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrors
}

// ResetTouched clears the touched flags, e.g. after an explicit reload.
func (s *State) ResetTouched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = make(map[Field]bool)
}
