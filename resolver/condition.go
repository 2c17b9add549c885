package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-wizard"
)

// Condition resolves the item status (new, damaged, ...).
type Condition struct {
	lookup wizard.Lookup[wizard.Condition]
}

func NewCondition(lookup wizard.Lookup[wizard.Condition]) *Condition {
	return &Condition{lookup: lookup}
}

func (r *Condition) Kind() wizard.ObjectKind { return wizard.KindCondition }

func (r *Condition) Scan(ctx context.Context, req Request, code string) (any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, emptyCode()
	}
	if r.lookup == nil {
		return nil, wizard.ResolutionFailed("condition lookup not configured", nil)
	}
	cond, err := r.lookup.ByCode(ctx, code)
	if err != nil {
		return nil, notResolved(err, "condition %s not found", code)
	}
	if err := r.Check(req, cond); err != nil {
		return nil, err
	}
	return cond, nil
}

func (r *Condition) Search(ctx context.Context, req Request, query string) ([]any, error) {
	if r.lookup == nil {
		return nil, wizard.ResolutionFailed("condition lookup not configured", nil)
	}
	conds, err := r.lookup.Search(ctx, query, req.Filters())
	if err != nil {
		return nil, notResolved(err, "no conditions match %q", query)
	}
	return toAny(conds), nil
}

func (r *Condition) Check(req Request, value any) error {
	cond, ok := as[wizard.Condition](value)
	if !ok {
		return unexpected(r.Kind(), value)
	}
	planned := req.Action.Plan.Condition
	if req.Step.FromPlan() && planned != nil && !matches(cond.ID, cond.Code, planned.ID, planned.Code) {
		return wizard.ResolutionFailed(
			fmt.Sprintf("condition %s is not part of the plan, expected %s", cond.Code, planned.Code), nil)
	}
	return nil
}

func (r *Condition) Apply(acc *wizard.Accumulator, _ wizard.Step, value any) error {
	cond, ok := as[wizard.Condition](value)
	if !ok {
		return unexpected(r.Kind(), value)
	}
	acc.SetCondition(cond)
	return nil
}
