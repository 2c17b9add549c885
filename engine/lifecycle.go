package engine

import (
	"context"
	"errors"

	"github.com/goliatone/go-wizard"
	"github.com/looplab/fsm"
)

// Phase is the lifecycle state of a wizard session.
type Phase string

const (
	PhaseNew          Phase = "new"
	PhaseActive       Phase = "active"
	PhaseCompleted    Phase = "completed"
	PhaseSubmitting   Phase = "submitting"
	PhaseSubmitted    Phase = "submitted"
	PhaseSubmitFailed Phase = "submit_failed"
	PhaseClosed       Phase = "closed"
)

const (
	eventInit       = "init"
	eventComplete   = "complete"
	eventReopen     = "reopen"
	eventSubmit     = "submit"
	eventSubmitOK   = "submit_ok"
	eventSubmitFail = "submit_fail"
	eventRetry      = "retry"
	eventCancel     = "cancel"
	eventClose      = "close"
)

type lifecycle struct {
	machine *fsm.FSM
}

func newLifecycle(logger wizard.Logger) *lifecycle {
	return &lifecycle{
		machine: fsm.NewFSM(
			string(PhaseNew),
			fsm.Events{
				{Name: eventInit, Src: []string{string(PhaseNew)}, Dst: string(PhaseActive)},
				{Name: eventComplete, Src: []string{string(PhaseActive)}, Dst: string(PhaseCompleted)},
				{Name: eventReopen, Src: []string{string(PhaseCompleted), string(PhaseSubmitFailed)}, Dst: string(PhaseActive)},
				{Name: eventSubmit, Src: []string{string(PhaseCompleted)}, Dst: string(PhaseSubmitting)},
				{Name: eventSubmitOK, Src: []string{string(PhaseSubmitting)}, Dst: string(PhaseSubmitted)},
				{Name: eventSubmitFail, Src: []string{string(PhaseSubmitting)}, Dst: string(PhaseSubmitFailed)},
				{Name: eventRetry, Src: []string{string(PhaseSubmitFailed)}, Dst: string(PhaseSubmitting)},
				{Name: eventClose, Src: []string{string(PhaseSubmitted)}, Dst: string(PhaseClosed)},
				{Name: eventCancel, Src: []string{
					string(PhaseNew),
					string(PhaseActive),
					string(PhaseCompleted),
					string(PhaseSubmitting),
					string(PhaseSubmitFailed),
					string(PhaseSubmitted),
				}, Dst: string(PhaseClosed)},
			},
			fsm.Callbacks{
				"enter_state": func(_ context.Context, e *fsm.Event) {
					logger.Debug("wizard phase %s -> %s on %s", e.Src, e.Dst, e.Event)
				},
			},
		),
	}
}

// fire runs event. The caller's context is detached from cancellation since
// the machine skips transitions on a done context.
func (l *lifecycle) fire(ctx context.Context, event string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	err := l.machine.Event(context.WithoutCancel(ctx), event)
	var noop fsm.NoTransitionError
	if errors.As(err, &noop) {
		return nil
	}
	return err
}

func (l *lifecycle) phase() Phase {
	return Phase(l.machine.Current())
}

func (l *lifecycle) can(event string) bool {
	return l.machine.Can(event)
}

// Done reports whether the phase is past step resolution.
func (p Phase) Done() bool {
	switch p {
	case PhaseCompleted, PhaseSubmitting, PhaseSubmitted, PhaseSubmitFailed:
		return true
	}
	return false
}
