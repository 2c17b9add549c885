// Package cron runs recurring jobs on cron expressions. Each run goes through
// a runner.Handler so jobs get timeouts and retries.
package cron

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goliatone/go-wizard/runner"
	rcron "github.com/robfig/cron/v3"
)

// Logger receives scheduler diagnostics. wizard.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// JobConfig defines scheduling and execution settings for a job.
type JobConfig struct {
	Expression string
	MaxRetries int
	Timeout    time.Duration
	Deadline   time.Time
	RunOnce    bool
	MaxRuns    int
	// Retry sets the delay strategy between attempts, no delay when nil.
	Retry runner.RetryStrategy
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	location     *time.Location
	errorHandler func(error)

	logger  Logger
	seconds bool

	nextHandleID int64
	handles      map[int64]*cronSubscription
}

// NewScheduler creates a new scheduler instance with the provided options.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		errorHandler: func(err error) {
			log.Printf("cron: %v", err)
		},
		handles: make(map[int64]*cronSubscription),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.cron = rcron.New(s.build()...)
	return s
}

// ScheduleCron schedules job on cfg.Expression.
func (s *Scheduler) ScheduleCron(cfg JobConfig, job Job) (Handle, error) {
	if cfg.Expression == "" {
		return nil, fmt.Errorf("cron expression cannot be empty")
	}
	if job == nil {
		return nil, fmt.Errorf("cron job cannot be nil")
	}
	h := runner.NewHandler(s.runnerOptions(cfg)...)

	sub := s.newHandle()
	entry := rcron.FuncJob(func() {
		if isTerminalStatus(sub.Status()) {
			return
		}

		sub.setStatus(ScheduleStatusRunning, nil)
		err := h.Run(sub.ctx, job)
		sub.recordRun(time.Now())
		switch {
		case err == runner.ErrSkipped:
			sub.setTerminal(ScheduleStatusCompleted, nil)
			s.removeHandle(sub.id)
			return
		case err != nil:
			// a failed run keeps the schedule alive, Err reports it
			sub.setStatus(ScheduleStatusIdle, err)
			s.errorHandler(err)
			return
		}

		if !isTerminalStatus(sub.Status()) {
			sub.setStatus(ScheduleStatusIdle, nil)
		}
	})

	entryID, err := s.cron.AddJob(cfg.Expression, entry)
	if err != nil {
		sub.cancel()
		return nil, fmt.Errorf("failed to add job: %w", err)
	}
	sub.entryID = int(entryID)
	s.storeHandle(sub)
	return sub, nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waits for running jobs and marks every handle
// stopped.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	var handles []*cronSubscription
	s.mu.Lock()
	for _, handle := range s.handles {
		handles = append(handles, handle)
	}
	s.handles = make(map[int64]*cronSubscription)
	s.mu.Unlock()

	for _, handle := range handles {
		if handle == nil {
			continue
		}
		if handle.entryID > 0 {
			s.cron.Remove(rcron.EntryID(handle.entryID))
		}
		if !isTerminalStatus(handle.Status()) {
			handle.setTerminal(ScheduleStatusStopped, nil)
		}
	}

	if ctx == nil {
		return nil
	}
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runnerOptions(cfg JobConfig) []runner.Option {
	opts := []runner.Option{
		runner.WithMaxRetries(cfg.MaxRetries),
		runner.WithDeadline(cfg.Deadline),
		runner.WithRunOnce(cfg.RunOnce),
		runner.WithMaxRuns(cfg.MaxRuns),
		runner.WithLogger(s.logger),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, runner.WithTimeout(cfg.Timeout))
	}
	if cfg.Retry != nil {
		opts = append(opts, runner.WithRetryStrategy(cfg.Retry))
	}
	return opts
}

func (s *Scheduler) removeHandle(id int64) {
	handle := s.removeStoredHandle(id)
	if handle == nil {
		return
	}
	if handle.entryID > 0 {
		s.cron.Remove(rcron.EntryID(handle.entryID))
	}
}

func (s *Scheduler) removeStoredHandle(id int64) *cronSubscription {
	if s == nil || id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.handles[id]
	delete(s.handles, id)
	return handle
}

func (s *Scheduler) storeHandle(handle *cronSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[int64]*cronSubscription)
	}
	s.handles[handle.id] = handle
}

func (s *Scheduler) newHandle() *cronSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	ctx, cancel := context.WithCancel(context.Background())
	return &cronSubscription{
		scheduler: s,
		id:        s.nextHandleID,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func isTerminalStatus(status ScheduleStatus) bool {
	switch status {
	case ScheduleStatusCompleted, ScheduleStatusCanceled, ScheduleStatusFailed, ScheduleStatusStopped:
		return true
	default:
		return false
	}
}

// build converts scheduler options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	fields := rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor
	if s.seconds {
		fields |= rcron.Second
	}
	opts := []rcron.Option{
		rcron.WithLocation(s.location),
		rcron.WithParser(rcron.NewParser(fields)),
		rcron.WithChain(rcron.Recover(panicReporter{handler: s.errorHandler})),
	}
	if s.logger != nil {
		opts = append(opts, rcron.WithLogger(cronLogger{logger: s.logger}))
	}
	return opts
}
