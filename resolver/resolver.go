// Package resolver turns operator input (a decoded scan, a manual search and
// selection, or a side-effecting server call) into step values, one resolver
// per object kind.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-wizard"
)

// Request is the context a resolver sees for one step.
type Request struct {
	Step     wizard.Step
	Action   wizard.PlannedAction
	Snapshot wizard.Snapshot
}

// Filters returns the lookup filters declared on the step.
func (r Request) Filters() map[string]string {
	if len(r.Step.Params) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.Step.Params))
	for k, v := range r.Step.Params {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// Resolver merges a resolved value into the accumulator for its kind.
type Resolver interface {
	Kind() wizard.ObjectKind
	Apply(acc *wizard.Accumulator, step wizard.Step, value any) error
}

// Scanner resolves a value from a decoded scan code.
type Scanner interface {
	Scan(ctx context.Context, req Request, code string) (any, error)
}

// Searcher lists candidate values for a manual query.
type Searcher interface {
	Search(ctx context.Context, req Request, query string) ([]any, error)
}

// Performer runs a side effect and forwards its subject as the step value.
type Performer interface {
	Perform(ctx context.Context, req Request) (any, error)
}

// Checker vets a value supplied outside Scan, e.g. a manual selection.
type Checker interface {
	Check(req Request, value any) error
}

func as[T any](value any) (T, bool) {
	switch v := value.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}

func unexpected(kind wizard.ObjectKind, value any) error {
	return wizard.NewError(wizard.ErrUnexpectedValue,
		fmt.Sprintf("%s step cannot take a %T", kind, value), nil,
		map[string]any{"kind": string(kind)})
}

func notResolved(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err != nil && !wizard.IsNotFound(err) {
		msg = fmt.Sprintf("lookup failed: %s", wizard.UserMessage(err))
	}
	return wizard.ResolutionFailed(msg, err)
}

func unsupported(kind wizard.ObjectKind, input string) error {
	return wizard.NewError(wizard.ErrUnsupported,
		fmt.Sprintf("%s step does not accept %s input", kind, input), nil, nil)
}

func emptyCode() error {
	return wizard.ResolutionFailed("empty scan code", nil)
}

func toAny[T any](values []T) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func sameCode(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func matches(id, code, wantID, wantCode string) bool {
	if wantID != "" && id == wantID {
		return true
	}
	return sameCode(code, wantCode)
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006", "20060102", "060102"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if len(layout) != len(s) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
