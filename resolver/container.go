package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-wizard"
)

const paramZone = "zone"

// Container resolves a container (pallet, tote) or, when the step targets the
// location group, a storage bin. Storage and placement steps share the logic
// and differ only in their kind and default target.
type Container struct {
	kind       wizard.ObjectKind
	containers wizard.Lookup[wizard.Container]
	locations  wizard.Lookup[wizard.Location]
}

// NewStorageContainer resolves where the goods come from.
func NewStorageContainer(containers wizard.Lookup[wizard.Container], locations wizard.Lookup[wizard.Location]) *Container {
	return &Container{kind: wizard.KindStorageContainer, containers: containers, locations: locations}
}

// NewPlacementContainer resolves where the goods go.
func NewPlacementContainer(containers wizard.Lookup[wizard.Container], locations wizard.Lookup[wizard.Location]) *Container {
	return &Container{kind: wizard.KindPlacementContainer, containers: containers, locations: locations}
}

func (r *Container) Kind() wizard.ObjectKind { return r.kind }

func (r *Container) Scan(ctx context.Context, req Request, code string) (any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, emptyCode()
	}

	if req.Step.FieldGroup() == wizard.GroupLocation {
		if r.locations == nil {
			return nil, wizard.ResolutionFailed("location lookup not configured", nil)
		}
		loc, err := r.locations.ByCode(ctx, code)
		if err != nil {
			return nil, notResolved(err, "location %s not found", code)
		}
		if err := r.Check(req, loc); err != nil {
			return nil, err
		}
		return loc, nil
	}

	if r.containers == nil {
		return nil, wizard.ResolutionFailed("container lookup not configured", nil)
	}
	c, err := r.containers.ByCode(ctx, code)
	if err != nil {
		return nil, notResolved(err, "container %s not found", code)
	}
	if err := r.Check(req, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Container) Search(ctx context.Context, req Request, query string) ([]any, error) {
	if req.Step.FieldGroup() == wizard.GroupLocation {
		if r.locations == nil {
			return nil, wizard.ResolutionFailed("location lookup not configured", nil)
		}
		locs, err := r.locations.Search(ctx, query, req.Filters())
		if err != nil {
			return nil, notResolved(err, "no locations match %q", query)
		}
		out := make([]any, 0, len(locs))
		for _, l := range locs {
			if r.Check(req, l) == nil {
				out = append(out, l)
			}
		}
		return out, nil
	}

	if r.containers == nil {
		return nil, wizard.ResolutionFailed("container lookup not configured", nil)
	}
	found, err := r.containers.Search(ctx, query, req.Filters())
	if err != nil {
		return nil, notResolved(err, "no containers match %q", query)
	}
	out := make([]any, 0, len(found))
	for _, c := range found {
		if r.Check(req, c) == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// Check enforces the zone parameter and plan selection.
func (r *Container) Check(req Request, value any) error {
	zone := req.Step.Param(paramZone)
	group := req.Step.FieldGroup()

	if loc, ok := as[wizard.Location](value); ok {
		if group != wizard.GroupLocation {
			return unexpected(r.kind, value)
		}
		if zone != "" && !strings.EqualFold(loc.Zone, zone) {
			return wizard.ResolutionFailed(fmt.Sprintf("location %s is not in zone %s", loc.Code, zone), nil)
		}
		planned := req.Action.Plan.Location
		if req.Step.FromPlan() && planned != nil && !matches(loc.ID, loc.Code, planned.ID, planned.Code) {
			return wizard.ResolutionFailed(
				fmt.Sprintf("location %s is not part of the plan, expected %s", loc.Code, planned.Code), nil)
		}
		return nil
	}

	c, ok := as[wizard.Container](value)
	if !ok || group == wizard.GroupLocation {
		return unexpected(r.kind, value)
	}
	if zone != "" && !strings.EqualFold(c.Zone, zone) {
		return wizard.ResolutionFailed(fmt.Sprintf("container %s is not in zone %s", c.Code, zone), nil)
	}
	if req.Step.FromPlan() {
		planned := plannedContainer(req.Action.Plan, group)
		if planned != nil && !matches(c.ID, c.Code, planned.ID, planned.Code) {
			return wizard.ResolutionFailed(
				fmt.Sprintf("container %s is not part of the plan, expected %s", c.Code, planned.Code), nil)
		}
	}
	return nil
}

func (r *Container) Apply(acc *wizard.Accumulator, step wizard.Step, value any) error {
	return applyContainerValue(r.kind, acc, step, value)
}

func applyContainerValue(kind wizard.ObjectKind, acc *wizard.Accumulator, step wizard.Step, value any) error {
	if loc, ok := as[wizard.Location](value); ok {
		if step.FieldGroup() == wizard.GroupLocation {
			acc.SetLocation(loc)
		} else {
			acc.SetGeneric(step.ID, loc)
		}
		return nil
	}
	c, ok := as[wizard.Container](value)
	if !ok {
		return unexpected(kind, value)
	}
	acc.SetContainer(step.FieldGroup(), step.ID, c)
	return nil
}

func plannedContainer(plan wizard.Plan, group wizard.FieldGroup) *wizard.Container {
	switch group {
	case wizard.GroupSource:
		return plan.Source
	case wizard.GroupDestination:
		return plan.Destination
	}
	return nil
}
