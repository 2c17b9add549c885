package cron

import (
	"fmt"
	"time"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates expressions in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithSeconds accepts six field expressions with a leading seconds field.
func WithSeconds() Option {
	return func(s *Scheduler) {
		s.seconds = true
	}
}

// WithLogger routes scheduler and job logs to logger.
func WithLogger(logger Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithErrorHandler receives failed runs and recovered job panics.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		if handler != nil {
			s.errorHandler = handler
		}
	}
}

// cronLogger forwards robfig/cron messages, dropping its chatty info lines
// unless verbose is set.
type cronLogger struct {
	logger  Logger
	verbose bool
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if l.verbose {
		l.logger.Info("cron: "+msg, keysAndValues...)
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// panicReporter feeds panics caught by rcron.Recover to the error handler.
type panicReporter struct {
	handler func(error)
}

func (panicReporter) Info(string, ...any) {}

func (p panicReporter) Error(err error, msg string, keysAndValues ...any) {
	if err == nil {
		err = fmt.Errorf("%s %v", msg, keysAndValues)
	}
	p.handler(fmt.Errorf("scheduled job panic: %w", err))
}
