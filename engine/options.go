package engine

import (
	"time"

	"github.com/goliatone/go-wizard"
	"github.com/google/uuid"
)

// DefaultDebounce is the window in which repeated scans of one code are dropped.
const DefaultDebounce = time.Second

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger wizard.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m wizard.MetricsRecorder) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDebounce sets the scan debounce window. Zero disables debouncing.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithIDGenerator overrides the fact record id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithSignalHandler registers the receiver of abort, completed and message signals.
func WithSignalHandler(h SignalHandler) Option {
	return func(c *Controller) {
		if h != nil {
			c.onSignal = h
		}
	}
}

func defaultController() *Controller {
	return &Controller{
		metrics:  wizard.NopMetrics{},
		now:      time.Now,
		newID:    uuid.NewString,
		debounce: DefaultDebounce,
		onSignal: func(Signal) {},
		values:   make(map[int]any),
		acc:      wizard.NewAccumulator(),
	}
}
