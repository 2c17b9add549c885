package wizard

import "context"

// TaskCache is the task store the engine reads planned actions from and
// writes completed facts back to.
type TaskCache interface {
	GetPlannedAction(ctx context.Context, taskID, actionID string) (PlannedAction, error)
	RecordFactAction(ctx context.Context, fact FactRecord) error
}

// Submitter sends a finished fact record to the task server. Errors should
// carry the server status code and message (see StatusCode, UserMessage).
type Submitter interface {
	SubmitFactAction(ctx context.Context, taskID string, fact FactRecord, endpoint string) error
}

// SubmitFunc is an adapter that lets you use a function as a Submitter.
type SubmitFunc func(ctx context.Context, taskID string, fact FactRecord, endpoint string) error

// SubmitFactAction calls the underlying function.
func (f SubmitFunc) SubmitFactAction(ctx context.Context, taskID string, fact FactRecord, endpoint string) error {
	return f(ctx, taskID, fact, endpoint)
}

// Lookup finds objects of one kind by scanned code or by free-text search.
// ByCode returns an error in the not_found category when nothing matches.
type Lookup[T any] interface {
	ByCode(ctx context.Context, code string) (T, error)
	Search(ctx context.Context, query string, filters map[string]string) ([]T, error)
}

// LookupFuncs adapts a pair of functions to Lookup[T].
type LookupFuncs[T any] struct {
	ByCodeFunc func(ctx context.Context, code string) (T, error)
	SearchFunc func(ctx context.Context, query string, filters map[string]string) ([]T, error)
}

// ByCode calls ByCodeFunc.
func (l LookupFuncs[T]) ByCode(ctx context.Context, code string) (T, error) {
	if l.ByCodeFunc == nil {
		var zero T
		return zero, NewError(ErrNotFound, "lookup by code not configured", nil, nil)
	}
	return l.ByCodeFunc(ctx, code)
}

// Search calls SearchFunc.
func (l LookupFuncs[T]) Search(ctx context.Context, query string, filters map[string]string) ([]T, error) {
	if l.SearchFunc == nil {
		return nil, nil
	}
	return l.SearchFunc(ctx, query, filters)
}

// ContainerService performs container side effects on the server.
type ContainerService interface {
	CreateContainer(ctx context.Context) (Container, error)
	CloseContainer(ctx context.Context, code string) (bool, error)
}

// LabelPrinter prints a label for an object code.
type LabelPrinter interface {
	PrintLabel(ctx context.Context, code string) (bool, error)
}

// LabelPrinterFunc is an adapter that lets you use a function as a LabelPrinter.
type LabelPrinterFunc func(ctx context.Context, code string) (bool, error)

// PrintLabel calls the underlying function.
func (f LabelPrinterFunc) PrintLabel(ctx context.Context, code string) (bool, error) {
	return f(ctx, code)
}

// Directory bundles the lookups and services resolvers depend on.
type Directory struct {
	Items      Lookup[Item]
	Conditions Lookup[Condition]
	Containers Lookup[Container]
	Locations  Lookup[Location]
	Services   ContainerService
	Printer    LabelPrinter
}
