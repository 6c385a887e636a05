// Package autosync runs unfiltered reconciliation batches on a schedule.
package autosync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/panics"

	"github.com/javi11/labelsync/internal/config"
	"github.com/javi11/labelsync/internal/reconcile"
	"github.com/javi11/labelsync/internal/slogutil"
)

var (
	// ErrNotRunning is returned when a manual sync is requested while the worker is stopped.
	ErrNotRunning = errors.New("autosync worker is not running")
	// ErrAlreadyTriggered is returned when a manual sync is already pending.
	ErrAlreadyTriggered = errors.New("sync already triggered")
)

// Runner executes one reconciliation batch.
type Runner interface {
	Run(ctx context.Context, criteria reconcile.SearchCriteria) *reconcile.Result
}

// Status represents the current state of the autosync worker
type Status struct {
	IsRunning   bool              `json:"is_running"`
	InProgress  bool              `json:"in_progress"`
	Schedule    string            `json:"schedule"`
	Runs        int               `json:"runs"`
	LastRunAt   *time.Time        `json:"last_run_at,omitempty"`
	NextRunAt   *time.Time        `json:"next_run_at,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	LastResult  *reconcile.Result `json:"last_result,omitempty"`
	LastElapsed time.Duration     `json:"last_elapsed"`
}

// Worker runs a full sync on startup and then on every tick of its schedule.
type Worker struct {
	runner       Runner
	configGetter config.ConfigGetter
	schedule     cron.Schedule

	mu         sync.Mutex
	running    bool
	cancelFunc context.CancelFunc
	done       chan struct{}

	statusMu sync.RWMutex
	status   Status

	manualTrigger chan struct{}
}

// Option configures a Worker.
type Option func(*Worker)

// WithSchedule overrides the schedule derived from configuration.
func WithSchedule(s cron.Schedule) Option {
	return func(w *Worker) {
		w.schedule = s
	}
}

// NewWorker creates a new autosync worker
func NewWorker(runner Runner, configGetter config.ConfigGetter, opts ...Option) *Worker {
	w := &Worker{
		runner:        runner,
		configGetter:  configGetter,
		manualTrigger: make(chan struct{}, 1), // Buffered channel for non-blocking sends
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ScheduleFor builds the schedule described by the sync configuration. A cron
// expression wins over the interval.
func ScheduleFor(cfg *config.Config) (cron.Schedule, string, error) {
	if expr := cfg.Sync.Cron; expr != "" {
		s, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, "", fmt.Errorf("invalid sync cron %q: %w", expr, err)
		}
		return s, expr, nil
	}

	interval := cfg.GetSyncInterval()
	return cron.Every(interval), "@every " + interval.String(), nil
}

// Start starts the worker in a background goroutine. It does nothing when
// autosync is disabled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		slog.WarnContext(ctx, "Autosync worker already running")
		return nil
	}

	cfg := w.configGetter()
	if !cfg.IsSyncEnabled() {
		slog.InfoContext(ctx, "Autosync disabled")
		return nil
	}

	schedule := w.schedule
	description := "custom"
	if schedule == nil {
		var err error
		schedule, description, err = ScheduleFor(cfg)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.running = true
	w.done = make(chan struct{})

	w.statusMu.Lock()
	w.status.Schedule = description
	w.statusMu.Unlock()

	go w.run(ctx, schedule, w.done)

	slog.InfoContext(ctx, "Autosync worker started", "schedule", description)
	return nil
}

// Stop stops the worker and waits for an in-flight batch to finish.
func (w *Worker) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
		w.cancelFunc = nil
	}
	done := w.done
	w.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Timed out waiting for autosync worker to stop")
	}
	slog.InfoContext(ctx, "Autosync worker stopped")
}

// IsRunning returns whether the worker loop is active
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// GetStatus returns a snapshot of the worker state
func (w *Worker) GetStatus() Status {
	w.statusMu.RLock()
	status := w.status
	w.statusMu.RUnlock()

	status.IsRunning = w.IsRunning()

	if status.LastRunAt != nil {
		t := *status.LastRunAt
		status.LastRunAt = &t
	}
	if status.NextRunAt != nil {
		t := *status.NextRunAt
		status.NextRunAt = &t
	}
	return status
}

// TriggerManualSync asks the worker to run a batch now
func (w *Worker) TriggerManualSync(ctx context.Context) error {
	if !w.IsRunning() {
		return ErrNotRunning
	}

	// Non-blocking send to trigger channel
	select {
	case w.manualTrigger <- struct{}{}:
		slog.InfoContext(ctx, "Manual sync triggered")
		return nil
	default:
		return ErrAlreadyTriggered
	}
}

func (w *Worker) run(ctx context.Context, schedule cron.Schedule, done chan struct{}) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(done)
	}()

	w.cycle(ctx, "startup")

	for {
		next := schedule.Next(time.Now())
		w.setNextRun(next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "Autosync worker stopped by context")
			return
		case <-timer.C:
			w.cycle(ctx, "schedule")
		case <-w.manualTrigger:
			timer.Stop()
			slog.InfoContext(ctx, "Manual sync trigger received")
			w.cycle(ctx, "manual")
		}
	}
}

// cycle runs one batch. A panic is logged and does not stop the loop.
func (w *Worker) cycle(ctx context.Context, trigger string) {
	ctx = slogutil.With(ctx, "trigger", trigger)
	start := time.Now()

	w.statusMu.Lock()
	w.status.InProgress = true
	w.statusMu.Unlock()

	var result *reconcile.Result
	var pc panics.Catcher
	pc.Try(func() {
		result = w.runner.Run(ctx, reconcile.SearchCriteria{})
	})

	var lastErr string
	if r := pc.Recovered(); r != nil {
		lastErr = r.AsError().Error()
		slog.ErrorContext(ctx, "Autosync cycle panicked", "panic", r.Value, "stack", string(r.Stack))
	} else if result != nil && result.Status.Error {
		lastErr = result.Status.Message
	}

	w.statusMu.Lock()
	w.status.InProgress = false
	w.status.Runs++
	w.status.LastRunAt = &start
	w.status.LastElapsed = time.Since(start)
	w.status.LastError = lastErr
	if result != nil {
		w.status.LastResult = result
	}
	w.statusMu.Unlock()
}

func (w *Worker) setNextRun(next time.Time) {
	w.statusMu.Lock()
	w.status.NextRunAt = &next
	w.statusMu.Unlock()
}
