package engine

// SignalKind names an outbound notification to the hosting screen.
type SignalKind string

const (
	// SignalAbort tells the caller the wizard cannot start and must be left.
	SignalAbort SignalKind = "abort"
	// SignalCompleted reports a successfully submitted planned action.
	SignalCompleted SignalKind = "completed"
	// SignalMessage carries an operator-facing message.
	SignalMessage SignalKind = "message"
)

// Signal is delivered to the SignalHandler outside the controller lock, so
// handlers may call back into the controller.
type Signal struct {
	Kind     SignalKind
	TaskID   string
	ActionID string
	Message  string
	Err      error
}

// SignalHandler receives controller signals.
type SignalHandler func(Signal)
