package taskcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/cron"
)

// TaskSource fetches the operator's current tasks.
type TaskSource interface {
	FetchTasks(ctx context.Context) ([]wizard.Task, error)
}

// TaskSourceFunc adapts a function to TaskSource.
type TaskSourceFunc func(ctx context.Context) ([]wizard.Task, error)

// FetchTasks implements TaskSource.
func (f TaskSourceFunc) FetchTasks(ctx context.Context) ([]wizard.Task, error) {
	return f(ctx)
}

// RefreshConfig controls a Refresher.
type RefreshConfig struct {
	// Expression is a cron expression, "@every 30s" style descriptors included.
	Expression string
	Timeout    time.Duration
	MaxRetries int
}

// Refresher pulls tasks from a TaskSource into a Memory cache on a schedule.
type Refresher struct {
	cache     *Memory
	source    TaskSource
	cfg       RefreshConfig
	scheduler *cron.Scheduler
	logger    wizard.Logger

	mu     sync.Mutex
	handle cron.Handle
	last   time.Time
	err    error
}

// NewRefresher creates a refresher. A nil logger falls back to wizard.NewFmtLogger.
func NewRefresher(cache *Memory, source TaskSource, cfg RefreshConfig, logger wizard.Logger) *Refresher {
	if logger == nil {
		logger = wizard.NewFmtLogger(nil)
	}
	r := &Refresher{
		cache:  cache,
		source: source,
		cfg:    cfg,
		logger: logger,
	}
	r.scheduler = cron.NewScheduler(
		cron.WithLogger(logger),
		cron.WithErrorHandler(func(err error) {
			logger.Warn("task refresh failed: %v", err)
		}),
	)
	return r
}

// Refresh fetches tasks once and upserts them into the cache.
func (r *Refresher) Refresh(ctx context.Context) error {
	tasks, err := r.source.FetchTasks(ctx)

	r.mu.Lock()
	r.err = err
	if err == nil {
		r.last = time.Now()
	}
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("fetch tasks: %w", err)
	}
	r.cache.Upsert(tasks...)
	r.logger.Debug("refreshed %d tasks", len(tasks))
	return nil
}

// Start runs an initial refresh and then schedules the periodic one. A failed
// initial refresh is logged and does not prevent scheduling.
func (r *Refresher) Start(ctx context.Context) error {
	if r.cfg.Expression == "" {
		return fmt.Errorf("task refresh requires a cron expression")
	}
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("initial task refresh failed: %v", err)
	}

	handle, err := r.scheduler.ScheduleCron(cron.JobConfig{
		Expression: r.cfg.Expression,
		Timeout:    r.cfg.Timeout,
		MaxRetries: r.cfg.MaxRetries,
	}, r.Refresh)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.handle = handle
	r.mu.Unlock()

	return r.scheduler.Start(ctx)
}

// Stop cancels the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	handle := r.handle
	r.handle = nil
	r.mu.Unlock()
	if handle != nil {
		handle.Cancel()
	}
	return r.scheduler.Stop(ctx)
}

// LastRefresh returns the time of the last successful refresh and the error
// of the most recent attempt.
func (r *Refresher) LastRefresh() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.err
}
