// Package controller orchestrates the export-region lifecycle: fetch on
// activation, merge of authoritative data into the editable form, submit,
// delete with confirmation, manual run triggering, and run-status polling.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/osm-exports/exportctl/internal/api"
	"github.com/osm-exports/exportctl/internal/featsel"
	"github.com/osm-exports/exportctl/internal/form"
	"github.com/osm-exports/exportctl/internal/logging"
	"github.com/osm-exports/exportctl/internal/models"
	"github.com/osm-exports/exportctl/internal/store"
)

// Phase is the controller's presentation state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseViewing  Phase = "viewing"
	PhaseNotFound Phase = "not_found"
	PhaseError    Phase = "error"
)

// Controller errors.
var (
	ErrSubmitInFlight     = errors.New("a submission is already in progress")
	ErrRunInFlight        = errors.New("a run is already in flight")
	ErrDeleteNotConfirmed = errors.New("delete has not been confirmed")
	ErrNoActiveRegion     = errors.New("no active region")
	ErrNotActive          = errors.New("controller is not active")
)

// genericSubmitFailure is shown when a submission fails without a
// structured body.
const genericSubmitFailure = "Export region creation failed."

// Service is the slice of the export-service client the controller uses.
type Service interface {
	GetRegion(ctx context.Context, id int64) (*models.ExportRegion, error)
	CreateRegion(ctx context.Context, payload *models.RegionPayload) (*models.ExportRegion, error)
	UpdateRegion(ctx context.Context, id int64, payload *models.RegionPayload) (*models.ExportRegion, error)
	DeleteRegion(ctx context.Context, id int64) error
	TriggerRun(ctx context.Context, jobUID string) error
	ListRuns(ctx context.Context, jobUID string) ([]*models.Run, error)
}

// Controller owns one editable form and drives it against the stores.
//
// All store mutation is funneled through the controller and its poller;
// activation carries a generation counter so a fetch response for an
// identifier that is no longer active is discarded instead of merged.
type Controller struct {
	svc     Service
	regions *store.RegionStore
	runs    *store.RunStore
	logger  zerolog.Logger

	pollInterval time.Duration
	navigate     func(route string)

	mu               sync.Mutex
	phase            Phase
	form             *form.State
	activeID         *int64
	jobUID           string
	generation       uint64
	active           bool
	submitting       bool
	confirmingDelete bool

	runInFlight atomic.Bool
	poller      *Poller
}

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval overrides the run-status poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithNavigator installs the navigation side effect invoked after create
// (to the new record's edit route) and confirmed delete (to the listing).
func WithNavigator(navigate func(route string)) Option {
	return func(c *Controller) { c.navigate = navigate }
}

// New creates a controller over the given service and stores.
func New(svc Service, regions *store.RegionStore, runs *store.RunStore, opts ...Option) *Controller {
	c := &Controller{
		svc:          svc,
		regions:      regions,
		runs:         runs,
		logger:       logging.Component("region-controller"),
		pollInterval: DefaultPollInterval,
		phase:        PhaseIdle,
		form:         form.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.poller = NewPoller(c.pollInterval, svc, c.runs, c.onRunsUpdate)
	return c
}

// Form returns the controller's editable form state.
func (c *Controller) Form() *form.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Phase returns the current presentation state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// CurrentRegion returns the authoritative record for the active region, or
// nil before one has been received.
func (c *Controller) CurrentRegion() *models.ExportRegion {
	return c.regions.Current()
}

// RunInFlight reports whether the latest run is still executing.
func (c *Controller) RunInFlight() bool {
	return c.runInFlight.Load()
}

// ConfirmingDelete reports whether a delete is awaiting confirmation.
func (c *Controller) ConfirmingDelete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmingDelete
}

// Activate enters the lifecycle for an identifier. A nil id means a new
// region: the form starts from defaults and the controller is immediately
// viewing, with no fetch. A non-nil id fetches the record; a stale response
// from a previous activation is never applied.
//
// Re-activation with a different id cancels the active poller and re-runs
// the sequence for the new identifier.
func (c *Controller) Activate(ctx context.Context, id *int64) error {
	c.stopPoller()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.active = true
	c.activeID = id
	c.jobUID = ""
	c.confirmingDelete = false
	c.runInFlight.Store(false)
	c.form = form.New()

	if id == nil {
		c.phase = PhaseViewing
		c.mu.Unlock()
		return nil
	}

	c.phase = PhaseLoading
	c.mu.Unlock()

	c.regions.Fetching()
	return c.fetchRegion(ctx, gen, *id)
}

// Refresh re-fetches the active region. The merge rule applies: a dirty
// form suppresses the merge entirely.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrNotActive
	}
	if c.activeID == nil {
		c.mu.Unlock()
		return ErrNoActiveRegion
	}
	gen := c.generation
	id := *c.activeID
	c.mu.Unlock()

	return c.fetchRegion(ctx, gen, id)
}

// fetchRegion fetches one region and applies the result if the activation
// generation is still current.
func (c *Controller) fetchRegion(ctx context.Context, gen uint64, id int64) error {
	region, err := c.svc.GetRegion(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || gen != c.generation {
		// A later activation superseded this fetch; discard the response.
		c.logger.Debug().Int64("region_id", id).Msg("discarding stale region response")
		return nil
	}

	if errors.Is(err, api.ErrRegionNotFound) {
		c.phase = PhaseNotFound
		return err
	}
	if err != nil {
		c.phase = PhaseError
		c.regions.FetchFailed(err, api.StatusCode(err))
		return err
	}

	c.phase = PhaseViewing
	c.jobUID = region.JobUID
	c.regions.ReceivedRegion(region)

	// At-most-once merge per fetch, clean forms only.
	c.form.Merge(region)

	if region.JobUID != "" {
		c.startPollerLocked(ctx, region.JobUID)
	}
	return nil
}

// Submit validates locally, then creates or updates depending on whether an
// id has been assigned. Reentrant submissions are rejected while one is
// outstanding. Failures attach errors to the form and leave the edit state
// untouched.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.submitting = true
	currentForm := c.form
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	payload := currentForm.Payload()

	// Local schema check first; a malformed document never reaches the
	// network.
	if err := featsel.Validate(payload.FeatureSelection); err != nil {
		var parseErr *featsel.ParseError
		fieldErrors := map[string][]string{string(form.FieldFeatureSelection): {err.Error()}}
		if errors.As(err, &parseErr) {
			fieldErrors[string(form.FieldFeatureSelection)] = parseErr.Errors
		}
		currentForm.SetErrors(fieldErrors, "Feature selection is invalid.")
		return err
	}

	if err := payload.Validate(); err != nil {
		var aggregate *models.ValidationErrors
		fieldErrors := make(map[string][]string)
		if errors.As(err, &aggregate) {
			for _, fe := range aggregate.Errors {
				fieldErrors[fe.Field] = append(fieldErrors[fe.Field], fe.Message)
			}
		}
		currentForm.SetErrors(fieldErrors, genericInvalidSummary(err))
		return err
	}

	currentForm.ClearErrors()

	if id := currentForm.ID(); id != nil {
		return c.submitUpdate(ctx, currentForm, *id, payload)
	}
	return c.submitCreate(ctx, currentForm, payload)
}

func (c *Controller) submitCreate(ctx context.Context, currentForm *form.State, payload *models.RegionPayload) error {
	region, err := c.svc.CreateRegion(ctx, payload)
	if err != nil {
		c.applySubmitError(currentForm, err)
		return err
	}

	c.regions.Created(region)

	c.mu.Lock()
	id := region.ID
	c.activeID = &id
	c.jobUID = region.JobUID
	c.phase = PhaseViewing
	c.mu.Unlock()

	currentForm.SetID(region.ID)
	c.logger.Info().Int64("region_id", region.ID).Str("job_uid", region.JobUID).Msg("export region created")

	if c.navigate != nil {
		c.navigate(fmt.Sprintf("/hdx/edit/%d", region.ID))
	}
	return nil
}

func (c *Controller) submitUpdate(ctx context.Context, currentForm *form.State, id int64, payload *models.RegionPayload) error {
	region, err := c.svc.UpdateRegion(ctx, id, payload)
	if err != nil {
		c.applySubmitError(currentForm, err)
		return err
	}

	// Store merges at the known id. The form is deliberately not re-merged
	// after a successful save, so fields mid-edit are never overwritten.
	c.regions.Updated(region)
	c.logger.Info().Int64("region_id", id).Msg("export region updated")
	return nil
}

// applySubmitError surfaces a submission failure on the form. Local edits
// are never mutated by a failure.
func (c *Controller) applySubmitError(currentForm *form.State, err error) {
	var ve *api.ValidationError
	if errors.As(err, &ve) {
		currentForm.SetErrors(ve.FieldErrors, ve.Message)
		return
	}
	currentForm.SetErrors(nil, genericSubmitFailure)
}

// RequestDelete flags the pending delete for confirmation. No request is
// issued until ConfirmDelete.
func (c *Controller) RequestDelete() {
	c.mu.Lock()
	c.confirmingDelete = true
	c.mu.Unlock()
}

// CancelDelete clears the pending confirmation.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	c.confirmingDelete = false
	c.mu.Unlock()
}

// ConfirmDelete issues the destructive call, then navigates to the listing.
// Without a prior RequestDelete it is a no-op against the service.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if !c.confirmingDelete {
		c.mu.Unlock()
		return ErrDeleteNotConfirmed
	}
	if c.activeID == nil {
		c.confirmingDelete = false
		c.mu.Unlock()
		return ErrNoActiveRegion
	}
	id := *c.activeID
	c.mu.Unlock()

	if err := c.svc.DeleteRegion(ctx, id); err != nil {
		c.regions.FetchFailed(err, api.StatusCode(err))
		return err
	}

	c.stopPoller()

	c.mu.Lock()
	c.confirmingDelete = false
	c.activeID = nil
	c.jobUID = ""
	c.phase = PhaseIdle
	c.mu.Unlock()

	c.regions.Deleted(id)
	c.logger.Info().Int64("region_id", id).Msg("export region deleted")

	if c.navigate != nil {
		c.navigate("/hdx")
	}
	return nil
}

// TriggerRun fires a run for the active region. Disabled while a run is
// already in flight. The running flag is set optimistically, the region is
// re-fetched to refresh its last-run timestamp, and the poller tracks the
// run to completion; the call does not wait for the run to finish.
func (c *Controller) TriggerRun(ctx context.Context) error {
	if c.runInFlight.Load() {
		return ErrRunInFlight
	}

	c.mu.Lock()
	if !c.active || c.activeID == nil {
		c.mu.Unlock()
		return ErrNoActiveRegion
	}
	jobUID := c.jobUID
	c.mu.Unlock()

	if jobUID == "" {
		return ErrNoActiveRegion
	}

	c.runInFlight.Store(true)
	if err := c.svc.TriggerRun(ctx, jobUID); err != nil {
		c.runInFlight.Store(false)
		return err
	}

	c.logger.Info().Str("job_uid", jobUID).Msg("run triggered")

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("region refresh after run trigger failed")
	}

	c.mu.Lock()
	c.startPollerLocked(ctx, jobUID)
	c.mu.Unlock()
	return nil
}

// Deactivate tears the controller down: the pending poller timer is
// cancelled and any in-flight response is prevented from mutating state.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.active = false
	c.generation++
	c.phase = PhaseIdle
	c.mu.Unlock()

	c.stopPoller()
}

// startPollerLocked starts the run poller if it is not already tracking.
// Callers hold c.mu.
func (c *Controller) startPollerLocked(ctx context.Context, jobUID string) {
	if err := c.poller.Start(ctx, jobUID); err != nil && !errors.Is(err, ErrPollerAlreadyRunning) {
		c.logger.Warn().Err(err).Msg("run poller failed to start")
	}
}

func (c *Controller) stopPoller() {
	if err := c.poller.Stop(); err != nil && !errors.Is(err, ErrPollerNotRunning) {
		c.logger.Warn().Err(err).Msg("run poller failed to stop")
	}
}

// onRunsUpdate tracks the in-flight flag from poller observations.
func (c *Controller) onRunsUpdate(latest *models.Run) {
	c.runInFlight.Store(latest != nil && latest.Status.IsInFlight())
}

// genericInvalidSummary renders a local validation failure for the
// submission surface.
func genericInvalidSummary(err error) string {
	var aggregate *models.ValidationErrors
	if errors.As(err, &aggregate) && len(aggregate.Errors) > 0 {
		return aggregate.Errors[0].Error()
	}
	return err.Error()
}
