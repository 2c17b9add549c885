// Package engine drives one guided action-execution session: it walks the
// steps of a planned action, dispatches operator input to the step resolvers,
// gates navigation with the validators and submits the resulting fact record.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/resolver"
	"github.com/united-manufacturing-hub/expiremap/v2/pkg/expiremap"
)

// Controller owns the state of one wizard session. All methods are safe for
// concurrent use; remote calls run without holding the state lock and their
// results are dropped when the session moved on in the meantime.
type Controller struct {
	mu sync.Mutex

	cache     wizard.TaskCache
	submitter wizard.Submitter
	registry  *resolver.Registry
	logger    wizard.Logger
	metrics   wizard.MetricsRecorder
	now       func() time.Time
	newID     func() string
	onSignal  SignalHandler
	debounce  time.Duration
	recent    *expiremap.ExpireMap[string, time.Time]

	sessionID string
	taskID    string
	actionID  string
	action    wizard.PlannedAction
	steps     []wizard.Step
	index     int
	values    map[int]any
	acc       *wizard.Accumulator
	life      *lifecycle

	session    context.Context
	endSession context.CancelFunc
	generation uint64
	busy       bool
	closed     bool

	fact       *wizard.FactRecord
	lastErr    string
	lastStatus int
	lastScan   string
	candidates []any
	pending    []Signal
}

// Initialize loads the planned action from cache and starts a session on its
// first step. A missing task or action yields an ErrNotFound error and an
// abort signal; the caller must leave the wizard.
func Initialize(
	ctx context.Context,
	cache wizard.TaskCache,
	submitter wizard.Submitter,
	registry *resolver.Registry,
	taskID, actionID string,
	opts ...Option,
) (*Controller, error) {
	c := defaultController()
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.taskID = taskID
	c.actionID = actionID
	c.sessionID = c.newID()
	c.logger = wizard.WithLoggerFields(wizard.NormalizeLogger(c.logger), map[string]any{
		"task_id":   taskID,
		"action_id": actionID,
		"session":   c.sessionID,
	})

	if cache == nil || submitter == nil || registry == nil {
		err := wizard.NewError(wizard.ErrUnsupported, "wizard requires a task cache, a submitter and a resolver registry", nil, nil)
		c.abort(err)
		return nil, err
	}
	c.cache = cache
	c.submitter = submitter
	c.registry = registry

	action, err := cache.GetPlannedAction(ctx, taskID, actionID)
	if err != nil {
		if !wizard.IsNotFound(err) {
			err = wizard.NewError(wizard.ErrNotFound,
				fmt.Sprintf("could not load planned action %s of task %s: %s", actionID, taskID, wizard.UserMessage(err)),
				err, nil)
		}
		c.logger.Error("wizard init failed: %v", err)
		c.abort(err)
		return nil, err
	}
	if action.Completed {
		c.logger.Warn("planned action %s is already completed, facts will be appended", actionID)
	}

	steps := wizard.BuildSteps(action.Template)
	if missing := registry.Missing(steps); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, k := range missing {
			names = append(names, string(k))
		}
		err := wizard.NewError(wizard.ErrUnsupported,
			"no resolver for step kinds: "+strings.Join(names, ", "), nil,
			map[string]any{"kinds": names})
		c.abort(err)
		return nil, err
	}

	// facts belong to the task the session was opened for
	action.TaskID = taskID
	if action.ID == "" {
		action.ID = actionID
	}
	c.action = action
	c.steps = steps
	c.session, c.endSession = context.WithCancel(context.WithoutCancel(ctx))
	if c.debounce > 0 {
		c.recent = expiremap.NewEx[string, time.Time](c.debounce, c.debounce)
	}
	c.life = newLifecycle(c.logger)

	if err := c.life.fire(ctx, eventInit); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		if err := c.life.fire(ctx, eventComplete); err != nil {
			return nil, err
		}
	}
	c.logger.Info("wizard started with %d steps", len(steps))
	return c, nil
}

func (c *Controller) abort(err error) {
	c.onSignal(Signal{
		Kind:     SignalAbort,
		TaskID:   c.taskID,
		ActionID: c.actionID,
		Message:  wizard.UserMessage(err),
		Err:      err,
	})
}

// unlock releases the state lock and delivers the signals queued while it
// was held.
func (c *Controller) unlock() {
	sigs := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, s := range sigs {
		c.onSignal(s)
	}
}

func (c *Controller) signal(kind SignalKind, message string, err error) {
	c.pending = append(c.pending, Signal{
		Kind:     kind,
		TaskID:   c.taskID,
		ActionID: c.actionID,
		Message:  message,
		Err:      err,
	})
}

// Supply records value for the current step and advances when the step
// validator accepts it. A nil value goes back one step.
func (c *Controller) Supply(ctx context.Context, value any) (Outcome, error) {
	if value == nil {
		return c.Back(ctx)
	}
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireActive(); err != nil {
		return Outcome{}, err
	}
	if c.busy {
		return c.outcome(StatusIgnored, "another operation is in progress"), nil
	}
	if err := c.check(value); err != nil {
		return c.failure(err), nil
	}
	return c.record(value), nil
}

// Back returns to the previous step. The value recorded for the step being
// left is discarded; earlier steps keep theirs. Going back from a completed
// wizard reopens it and invalidates the pending fact record.
func (c *Controller) Back(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return Outcome{}, c.closedError()
	}
	phase := c.life.phase()
	switch phase {
	case PhaseActive, PhaseCompleted, PhaseSubmitFailed:
	case PhaseSubmitting:
		return Outcome{}, wizard.NewError(wizard.ErrBusy, "submission in progress", nil, nil)
	default:
		return Outcome{}, c.phaseError(phase)
	}
	if c.index == 0 {
		return c.outcome(StatusIgnored, "already at the first step"), nil
	}
	if phase.Done() {
		if err := c.life.fire(ctx, eventReopen); err != nil {
			return Outcome{}, err
		}
		c.fact = nil
		c.lastErr = ""
		c.lastStatus = 0
	}

	delete(c.values, c.index)
	c.index--
	for i := range c.values {
		if i > c.index {
			delete(c.values, i)
		}
	}
	c.moved()
	if err := c.rebuild(); err != nil {
		c.logger.Warn("replaying recorded values failed: %v", err)
	}
	c.logger.Debug("back to step %d %s", c.index, c.steps[c.index])
	return c.outcome(StatusBack, ""), nil
}

// Advance moves past the current step using the value already recorded for
// it. It is rejected while the validator does not accept that value. A step
// that needs no value for the resolved item is passed without recording one.
func (c *Controller) Advance(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.closed && c.life.phase().Done() {
		return c.outcome(StatusCompleted, ""), nil
	}
	if err := c.requireActive(); err != nil {
		return Outcome{}, err
	}
	if c.busy {
		return c.outcome(StatusIgnored, "another operation is in progress"), nil
	}
	step := c.steps[c.index]
	snap := c.acc.Snapshot()
	value, ok := c.values[c.index]
	if !ok {
		if wizard.Optional(step, snap) {
			c.logger.Debug("step %d %s needs no value", c.index, step)
			return c.next(step), nil
		}
		return c.reject(step), nil
	}
	if !wizard.Accepts(step, snap) {
		return c.reject(step), nil
	}
	return c.record(value), nil
}

// Select records the n-th candidate of the last Search for the current step.
func (c *Controller) Select(ctx context.Context, n int) (Outcome, error) {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireActive(); err != nil {
		return Outcome{}, err
	}
	if c.busy {
		return c.outcome(StatusIgnored, "another operation is in progress"), nil
	}
	if n < 0 || n >= len(c.candidates) {
		return c.failure(wizard.NewError(wizard.ErrValidationRejected,
			fmt.Sprintf("no candidate %d, search first", n+1), nil, nil)), nil
	}
	value := c.candidates[n]
	if err := c.check(value); err != nil {
		return c.failure(err), nil
	}
	return c.record(value), nil
}

// Search lists candidate values for the current step.
func (c *Controller) Search(ctx context.Context, query string) (Outcome, error) {
	c.mu.Lock()
	if err := c.requireActive(); err != nil {
		c.unlock()
		return Outcome{}, err
	}
	step := c.steps[c.index]
	se, ok := c.capability(step).(resolver.Searcher)
	if !ok {
		out := c.failure(unsupported(step, "search"))
		c.unlock()
		return out, nil
	}
	cl, ok := c.start(ctx)
	if !ok {
		out := c.outcome(StatusIgnored, "another operation is in progress")
		c.unlock()
		return out, nil
	}
	req := c.request()
	c.unlock()

	found, err := se.Search(cl.ctx, req, query)
	cl.cancel()

	c.mu.Lock()
	defer c.unlock()
	if stale := c.finish(cl, "search", err); stale {
		return c.outcome(StatusStale, ""), nil
	}
	if err != nil {
		return c.failure(err), nil
	}
	if len(found) == 0 {
		return c.failure(wizard.ResolutionFailed(fmt.Sprintf("nothing matches %q", query), nil)), nil
	}
	c.candidates = found
	out := c.outcome(StatusCandidates, "")
	out.Candidates = append([]any(nil), found...)
	return out, nil
}

// Perform runs the side effect of the current step (create or close a
// container, print a label) and records its subject.
func (c *Controller) Perform(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if err := c.requireActive(); err != nil {
		c.unlock()
		return Outcome{}, err
	}
	step := c.steps[c.index]
	p, ok := c.capability(step).(resolver.Performer)
	if !ok {
		out := c.failure(unsupported(step, "perform"))
		c.unlock()
		return out, nil
	}
	cl, ok := c.start(ctx)
	if !ok {
		out := c.outcome(StatusIgnored, "another operation is in progress")
		c.unlock()
		return out, nil
	}
	req := c.request()
	c.unlock()

	value, err := p.Perform(cl.ctx, req)
	cl.cancel()
	return c.settle(cl, "perform", value, err), nil
}

// Submit sends the fact record of a completed wizard. The record is built
// once and reused by Retry.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	return c.send(ctx, eventSubmit)
}

// Retry resubmits the identical fact record after a failed submission. No
// deduplication happens here; the record keeps its id across attempts.
func (c *Controller) Retry(ctx context.Context) (Outcome, error) {
	return c.send(ctx, eventRetry)
}

func (c *Controller) send(ctx context.Context, event string) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.unlock()
		return Outcome{}, c.closedError()
	}
	if event == eventSubmit && c.life.phase() == PhaseSubmitFailed {
		event = eventRetry
	}
	if !c.life.can(event) {
		err := c.sendError(event)
		c.unlock()
		return Outcome{}, err
	}
	if c.busy {
		out := c.outcome(StatusIgnored, "another operation is in progress")
		c.unlock()
		return out, nil
	}
	if c.fact == nil {
		fact := wizard.BuildFact(c.newID(), c.action, c.acc.Snapshot(), c.now())
		if err := fact.Validate(); err != nil {
			c.unlock()
			return Outcome{}, err
		}
		c.fact = &fact
	}
	fact := *c.fact
	if err := c.life.fire(ctx, event); err != nil {
		c.unlock()
		return Outcome{}, err
	}
	c.lastErr = ""
	c.lastStatus = 0
	cl, _ := c.start(ctx)
	endpoint := c.action.Endpoint
	c.logger.Info("submitting fact %s (%s)", fact.ID, event)
	c.unlock()

	err := c.submitter.SubmitFactAction(cl.ctx, c.taskID, fact, endpoint)
	cl.cancel()

	c.mu.Lock()
	defer c.unlock()
	if stale := c.finish(cl, "submit", err); stale {
		c.logger.Warn("submission result for fact %s arrived after the wizard closed", fact.ID)
		return c.outcome(StatusStale, ""), nil
	}
	if err != nil {
		if ferr := c.life.fire(ctx, eventSubmitFail); ferr != nil {
			c.logger.Error("lifecycle: %v", ferr)
		}
		c.lastErr = wizard.UserMessage(err)
		c.lastStatus = wizard.StatusCode(err)
		failed := wizard.NewError(wizard.ErrSubmissionFailed, c.lastErr, err, map[string]any{
			"fact_id": fact.ID,
			"status":  c.lastStatus,
		})
		c.logger.Error("submission of fact %s failed: %s", fact.ID, c.lastErr)
		c.signal(SignalMessage, c.lastErr, failed)
		out := c.outcome(StatusSubmitFailed, c.lastErr)
		out.Err = failed
		return out, nil
	}

	if ferr := c.life.fire(ctx, eventSubmitOK); ferr != nil {
		c.logger.Error("lifecycle: %v", ferr)
	}
	if cerr := c.cache.RecordFactAction(context.WithoutCancel(ctx), fact); cerr != nil {
		c.logger.Warn("fact %s submitted but not recorded in the task cache: %v", fact.ID, cerr)
	}
	c.logger.Info("fact %s submitted", fact.ID)
	c.signal(SignalCompleted, "", nil)
	out := c.outcome(StatusSubmitted, "")
	c.shutdown(ctx, eventClose)
	return out, nil
}

// Cancel discards the session. It never calls the submitter or the task
// cache, and results of calls still in flight are dropped.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	c.shutdown(context.Background(), eventCancel)
	c.values = make(map[int]any)
	c.acc.Reset()
	c.fact = nil
	c.logger.Info("wizard cancelled")
}

func (c *Controller) shutdown(ctx context.Context, event string) {
	c.closed = true
	c.generation++
	c.candidates = nil
	if err := c.life.fire(ctx, event); err != nil {
		c.logger.Error("lifecycle: %v", err)
	}
	if c.endSession != nil {
		c.endSession()
	}
}

// record stores value for the current step, rebuilds the accumulator and
// advances when the validator accepts. Callers hold the lock.
func (c *Controller) record(value any) Outcome {
	step := c.steps[c.index]
	prev, had := c.values[c.index]
	c.values[c.index] = value
	if err := c.rebuild(); err != nil {
		if had {
			c.values[c.index] = prev
		} else {
			delete(c.values, c.index)
		}
		_ = c.rebuild()
		return c.failure(err)
	}

	if !wizard.Accepts(step, c.acc.Snapshot()) {
		return c.reject(step)
	}
	return c.next(step)
}

// next moves past step, completing the wizard after the last one.
func (c *Controller) next(step wizard.Step) Outcome {
	c.index++
	c.moved()
	if c.index == len(c.steps) {
		if err := c.life.fire(c.session, eventComplete); err != nil {
			c.logger.Error("lifecycle: %v", err)
		}
		c.fact = nil
		c.logger.Debug("all %d steps resolved", len(c.steps))
		return c.outcome(StatusCompleted, "")
	}
	c.logger.Debug("step %d %s resolved, now at %s", c.index-1, step, c.steps[c.index])
	return c.outcome(StatusAdvanced, "")
}

// rebuild replays recorded values in step order into a fresh accumulator.
func (c *Controller) rebuild() error {
	c.acc.Reset()
	keys := make([]int, 0, len(c.values))
	for i := range c.values {
		keys = append(keys, i)
	}
	sort.Ints(keys)
	for _, i := range keys {
		step := c.steps[i]
		res, ok := c.registry.Lookup(step.Kind)
		if !ok {
			return unsupported(step, "any")
		}
		if err := res.Apply(c.acc, step, c.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) moved() {
	c.generation++
	c.candidates = nil
}

func (c *Controller) check(value any) error {
	step := c.steps[c.index]
	if chk, ok := c.capability(step).(resolver.Checker); ok {
		return chk.Check(c.request(), value)
	}
	return nil
}

func (c *Controller) capability(step wizard.Step) resolver.Resolver {
	res, _ := c.registry.Lookup(step.Kind)
	return res
}

func (c *Controller) request() resolver.Request {
	var step wizard.Step
	if c.index < len(c.steps) {
		step = c.steps[c.index]
	}
	return resolver.Request{
		Step:     step,
		Action:   c.action,
		Snapshot: c.acc.Snapshot(),
	}
}

type call struct {
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
	started    time.Time
}

// start marks the controller busy for one remote call. The call context ends
// with either ctx or the session.
func (c *Controller) start(ctx context.Context) (call, bool) {
	if c.busy {
		return call{}, false
	}
	c.busy = true
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.session, cancel)
	return call{
		ctx: cctx,
		cancel: func() {
			stop()
			cancel()
		},
		generation: c.generation,
		started:    c.now(),
	}, true
}

// finish clears the busy flag and reports whether the call result is stale.
func (c *Controller) finish(cl call, op string, err error) bool {
	c.busy = false
	c.metrics.RecordDuration(op, c.now().Sub(cl.started))
	if c.closed || cl.generation != c.generation {
		c.logger.Debug("dropping stale %s result", op)
		return true
	}
	if err != nil {
		c.metrics.RecordError(op)
	} else {
		c.metrics.RecordSuccess(op)
	}
	return false
}

// settle applies the result of a resolver call under the lock.
func (c *Controller) settle(cl call, op string, value any, err error) Outcome {
	c.mu.Lock()
	defer c.unlock()
	if stale := c.finish(cl, op, err); stale {
		return c.outcome(StatusStale, "")
	}
	if err != nil {
		return c.failure(err)
	}
	return c.record(value)
}

func (c *Controller) failure(err error) Outcome {
	status := StatusNotResolved
	if wizard.HasCode(err, wizard.ErrCodeValidationRejected) {
		status = StatusRejected
	}
	msg := wizard.UserMessage(err)
	c.logger.Warn("step %d: %s", c.index, msg)
	c.signal(SignalMessage, msg, err)
	out := c.outcome(status, msg)
	out.Err = err
	return out
}

func (c *Controller) reject(step wizard.Step) Outcome {
	label := step.Prompt
	if label == "" {
		label = string(step.Kind)
	}
	return c.failure(wizard.NewError(wizard.ErrValidationRejected,
		fmt.Sprintf("%s is not complete", label), nil,
		map[string]any{"step": step.ID, "index": c.index}))
}

func (c *Controller) outcome(status Status, message string) Outcome {
	out := Outcome{
		Status:    status,
		Index:     c.index,
		Completed: c.index == len(c.steps),
		Message:   message,
	}
	if c.index < len(c.steps) {
		step := c.steps[c.index]
		out.Step = &step
	}
	return out
}

func (c *Controller) requireActive() error {
	if c.closed {
		return c.closedError()
	}
	if phase := c.life.phase(); phase != PhaseActive {
		return c.phaseError(phase)
	}
	return nil
}

func (c *Controller) closedError() error {
	return wizard.NewError(wizard.ErrClosed, "", nil, map[string]any{"session": c.sessionID})
}

func (c *Controller) phaseError(phase Phase) error {
	if phase == PhaseSubmitting {
		return wizard.NewError(wizard.ErrBusy, "submission in progress", nil, nil)
	}
	return wizard.NewError(wizard.ErrNotActive, "", nil, map[string]any{"phase": string(phase)})
}

func (c *Controller) sendError(event string) error {
	switch phase := c.life.phase(); {
	case phase == PhaseSubmitting:
		return wizard.NewError(wizard.ErrBusy, "submission in progress", nil, nil)
	case event == eventRetry && phase == PhaseCompleted:
		return wizard.NewError(wizard.ErrNotCompleted, "nothing to retry, submit first", nil, nil)
	default:
		return wizard.NewError(wizard.ErrNotCompleted, "", nil, map[string]any{
			"index": c.index,
			"steps": len(c.steps),
		})
	}
}

func unsupported(step wizard.Step, input string) error {
	return wizard.NewError(wizard.ErrUnsupported,
		fmt.Sprintf("%s step does not accept %s input", step.Kind, input), nil,
		map[string]any{"step": step.ID})
}
