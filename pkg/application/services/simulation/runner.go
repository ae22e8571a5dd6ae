package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

// Runner statuses
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
	StatusStopped        = "stopped"
)

// TickFunc advances the plant by one tick. done stops the loop. ctx belongs to
// the loop's session and is cancelled by Stop, so a tick that was waiting
// when its session ended can tell and skip.
type TickFunc func(ctx context.Context) (done bool, err error)

// Runner drives a TickFunc at a fixed cadence. Ticks never overlap; a slow
// tick delays the next one. Stop is cooperative: an in-flight tick finishes.
type Runner struct {
	interval time.Duration
	tick     TickFunc
	log      *logging.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewRunner creates a stopped runner
func NewRunner(interval time.Duration, tick TickFunc, log *logging.Logger) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	done := make(chan struct{})
	close(done)
	return &Runner{interval: interval, tick: tick, log: log, doneCh: done}
}

// Start launches the tick loop. Starting a running loop is a no-op.
func (r *Runner) Start() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return StatusAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.stopCh = make(chan struct{})
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	go r.loop(ctx, r.stopCh, r.doneCh)
	return StatusStarted
}

// Stop asks the loop to exit after the current tick
func (r *Runner) Stop() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.running = false
		close(r.stopCh)
		r.cancel()
	}
	return StatusStopped
}

// Running reports whether the loop is active
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Done is closed when the current (or last) loop has exited
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doneCh
}

func (r *Runner) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		done, err := r.tick(ctx)
		if err != nil {
			r.log.Error("tick_failed", err, nil)
		}
		if done {
			r.finish(stopCh)
			r.log.Info("simulation_finished", "tick loop finished", nil)
			return
		}

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// finish marks the loop stopped unless a newer session has already started
func (r *Runner) finish(stopCh chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && r.stopCh == stopCh {
		r.running = false
		close(r.stopCh)
		r.cancel()
	}
}
