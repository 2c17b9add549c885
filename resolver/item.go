package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-wizard"
)

// Item resolves the item a step is about.
type Item struct {
	lookup wizard.Lookup[wizard.Item]
}

func NewItem(lookup wizard.Lookup[wizard.Item]) *Item {
	return &Item{lookup: lookup}
}

func (r *Item) Kind() wizard.ObjectKind { return wizard.KindItem }

func (r *Item) Scan(ctx context.Context, req Request, code string) (any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, emptyCode()
	}
	if r.lookup == nil {
		return nil, wizard.ResolutionFailed("item lookup not configured", nil)
	}
	item, err := r.lookup.ByCode(ctx, code)
	if err != nil {
		return nil, notResolved(err, "item %s not found", code)
	}
	if err := r.Check(req, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Item) Search(ctx context.Context, req Request, query string) ([]any, error) {
	if r.lookup == nil {
		return nil, wizard.ResolutionFailed("item lookup not configured", nil)
	}
	items, err := r.lookup.Search(ctx, query, req.Filters())
	if err != nil {
		return nil, notResolved(err, "no items match %q", query)
	}
	out := make([]wizard.Item, 0, len(items))
	for _, it := range items {
		if r.Check(req, it) == nil {
			out = append(out, it)
		}
	}
	return toAny(out), nil
}

// Check rejects items outside the plan when the step selects from the plan.
func (r *Item) Check(req Request, value any) error {
	item, ok := as[wizard.Item](value)
	if !ok {
		return unexpected(r.Kind(), value)
	}
	if !req.Step.FromPlan() || req.Action.Plan.Item == nil {
		return nil
	}
	planned := req.Action.Plan.Item
	if !matches(item.ID, item.Code, planned.ID, planned.Code) {
		return wizard.ResolutionFailed(
			fmt.Sprintf("item %s is not part of the plan, expected %s", item.Code, planned.Code), nil)
	}
	return nil
}

func (r *Item) Apply(acc *wizard.Accumulator, _ wizard.Step, value any) error {
	item, ok := as[wizard.Item](value)
	if !ok {
		return unexpected(r.Kind(), value)
	}
	acc.SetItem(item)
	return nil
}
