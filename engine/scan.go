package engine

import (
	"context"
	"strings"

	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/resolver"
)

// HandleScan dispatches a decoded scan code to the resolver of the current
// step. Repeated scans of the same code inside the debounce window are
// ignored, whatever step is current when they arrive.
func (c *Controller) HandleScan(ctx context.Context, code string) (Outcome, error) {
	code = strings.TrimSpace(code)

	c.mu.Lock()
	if err := c.requireActive(); err != nil {
		c.unlock()
		return Outcome{}, err
	}
	if code == "" {
		out := c.outcome(StatusIgnored, "empty scan")
		c.unlock()
		return out, nil
	}
	if c.debounced(code) {
		c.logger.Debug("debounced scan %s", code)
		out := c.outcome(StatusIgnored, "")
		c.unlock()
		return out, nil
	}
	c.lastScan = code
	step := c.steps[c.index]
	sc, ok := c.capability(step).(resolver.Scanner)
	if !ok {
		out := c.failure(unsupported(step, "scan"))
		c.unlock()
		return out, nil
	}
	cl, ok := c.start(ctx)
	if !ok {
		out := c.outcome(StatusIgnored, "another operation is in progress")
		c.unlock()
		return out, nil
	}
	c.markScanned(code)
	req := c.request()
	c.unlock()

	value, err := sc.Scan(cl.ctx, req, code)
	cl.cancel()
	return c.settle(cl, "scan", value, err), nil
}

// HandleScanAsync runs HandleScan on its own goroutine.
func (c *Controller) HandleScanAsync(ctx context.Context, code string) *wizard.Future[Outcome] {
	return wizard.Go(ctx, c.logger, "engine.HandleScan", func(ctx context.Context) (Outcome, error) {
		return c.HandleScan(ctx, code)
	})
}

// SubmitAsync runs Submit on its own goroutine.
func (c *Controller) SubmitAsync(ctx context.Context) *wizard.Future[Outcome] {
	return wizard.Go(ctx, c.logger, "engine.Submit", func(ctx context.Context) (Outcome, error) {
		return c.Submit(ctx)
	})
}

// debounced reports whether code was dispatched inside the window. Callers
// hold the lock.
func (c *Controller) debounced(code string) bool {
	if c.recent == nil {
		return false
	}
	seen, ok := c.recent.Load(code)
	return ok && seen != nil && c.now().Sub(*seen) < c.debounce
}

// markScanned opens the debounce window for a dispatched scan. Scans dropped
// before dispatch leave the window closed so the operator can scan again.
func (c *Controller) markScanned(code string) {
	if c.recent != nil {
		c.recent.Set(code, c.now())
	}
}
