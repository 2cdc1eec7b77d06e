package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the server-reported state of an export run. The full set is
// owned by the service; anything other than SUBMITTED or RUNNING is treated
// as terminal.
type RunStatus string

const (
	RunSubmitted RunStatus = "SUBMITTED"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
	RunCanceled  RunStatus = "CANCELED"
)

// IsInFlight reports whether the run is still executing.
func (s RunStatus) IsInFlight() bool {
	return s == RunSubmitted || s == RunRunning
}

// IsTerminal reports whether the run has finished, in any outcome.
func (s RunStatus) IsTerminal() bool {
	return !s.IsInFlight()
}

// Run is one execution instance of an export region's job.
type Run struct {
	// UID uniquely identifies the run within its job.
	UID string `json:"uid"`

	// Status is the server-reported run state.
	Status RunStatus `json:"status"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// ElapsedSeconds is how long the run has taken so far.
	ElapsedSeconds float64 `json:"elapsed_time"`

	// SizeBytes is the total output size.
	SizeBytes int64 `json:"size"`
}

// ValidateUID checks that the run uid is a well-formed UUID.
func (r *Run) ValidateUID() error {
	if _, err := uuid.Parse(r.UID); err != nil {
		return fmt.Errorf("invalid run uid %q: %w", r.UID, err)
	}
	return nil
}

// FormatElapsed renders the elapsed time as mm:ss.
func (r *Run) FormatElapsed() string {
	total := int(r.ElapsedSeconds + 0.5)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// byteUnits are the suffixes used by PrettyBytes.
var byteUnits = []string{"B", "kB", "MB", "GB", "TB"}

// PrettyBytes renders a byte count in human-readable form.
func PrettyBytes(size int64) string {
	value := float64(size)
	unit := 0
	for value >= 1000 && unit < len(byteUnits)-1 {
		value /= 1000
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", size, byteUnits[0])
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

// LatestRun returns the most recent run from a most-recent-first list, or
// nil when the job has never run.
func LatestRun(runs []*Run) *Run {
	if len(runs) == 0 {
		return nil
	}
	return runs[0]
}
