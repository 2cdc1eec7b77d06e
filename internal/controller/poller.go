package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/osm-exports/exportctl/internal/logging"
	"github.com/osm-exports/exportctl/internal/models"
	"github.com/osm-exports/exportctl/internal/store"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("run poller already running")
	ErrPollerNotRunning     = errors.New("run poller not running")
)

// DefaultPollInterval is the fixed delay between run-status polls, matching
// the service UI's refresh cadence.
const DefaultPollInterval = 15 * time.Second

// RunsSource fetches the run history for a job, most recent first.
type RunsSource interface {
	ListRuns(ctx context.Context, jobUID string) ([]*models.Run, error)
}

// Poller refreshes a job's run status while its latest run is in flight.
//
// The loop fetches immediately on start, then re-arms a fixed-interval timer
// only while the most recent run is non-terminal. Fetches are serialized:
// each response is awaited before the next tick is scheduled, so there is
// never more than one poll in flight per job. A poll failure is logged and
// the loop continues on its next tick.
type Poller struct {
	interval time.Duration
	source   RunsSource
	runs     *store.RunStore
	onUpdate func(latest *models.Run)
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller creates a poller. onUpdate, if non-nil, is invoked after every
// successful fetch with the most recent run (nil when the job has none).
func NewPoller(interval time.Duration, source RunsSource, runs *store.RunStore, onUpdate func(latest *models.Run)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		source:   source,
		runs:     runs,
		onUpdate: onUpdate,
		logger:   logging.Component("run-poller"),
	}
}

// Start begins polling the job. The first fetch happens immediately; the
// loop exits on its own once the latest run is terminal.
func (p *Poller) Start(ctx context.Context, jobUID string) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrPollerAlreadyRunning
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	p.logger.Debug().Str("job_uid", jobUID).Dur("interval", p.interval).Msg("run poller starting")

	p.wg.Add(1)
	go p.loop(pollCtx, jobUID)
	return nil
}

// Stop cancels the pending timer and waits for the loop to exit. Every exit
// path revokes the timer deterministically; no tick fires after Stop
// returns.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug().Msg("run poller stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context, jobUID string) {
	defer p.wg.Done()

	for {
		if terminal := p.pollOnce(ctx, jobUID); terminal {
			p.finish()
			return
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pollOnce fetches the run list and reports whether polling should stop.
// Transient failures keep the loop alive.
func (p *Poller) pollOnce(ctx context.Context, jobUID string) bool {
	runs, err := p.source.ListRuns(ctx, jobUID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Warn().Err(err).Str("job_uid", jobUID).Msg("run poll failed; will retry")
		return false
	}

	// Guard against a fetch that resolves after teardown.
	if ctx.Err() != nil {
		return false
	}

	p.runs.SetRuns(jobUID, runs)
	latest := models.LatestRun(runs)
	if p.onUpdate != nil {
		p.onUpdate(latest)
	}

	if latest == nil || latest.Status.IsTerminal() {
		return true
	}

	p.logger.Debug().
		Str("job_uid", jobUID).
		Str("run_uid", latest.UID).
		Str("status", string(latest.Status)).
		Msg("run still in flight")
	return false
}

// finish marks the poller stopped after a terminal status ended the loop.
func (p *Poller) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.cancel()
		p.running = false
	}
}
