package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-wizard"
)

// CreateContainer asks the server for a new container and records it.
type CreateContainer struct {
	services wizard.ContainerService
}

func NewCreateContainer(services wizard.ContainerService) *CreateContainer {
	return &CreateContainer{services: services}
}

func (r *CreateContainer) Kind() wizard.ObjectKind { return wizard.KindCreateContainer }

func (r *CreateContainer) Perform(ctx context.Context, _ Request) (any, error) {
	if r.services == nil {
		return nil, wizard.ResolutionFailed("container service not configured", nil)
	}
	c, err := r.services.CreateContainer(ctx)
	if err != nil {
		return nil, wizard.ResolutionFailed("could not create container: "+wizard.UserMessage(err), err)
	}
	return c, nil
}

func (r *CreateContainer) Apply(acc *wizard.Accumulator, step wizard.Step, value any) error {
	return applyContainerValue(r.Kind(), acc, step, value)
}

// CloseContainer closes a container on the server and forwards it marked
// closed. The container is either scanned or taken from the step's target group.
type CloseContainer struct {
	containers wizard.Lookup[wizard.Container]
	services   wizard.ContainerService
}

func NewCloseContainer(containers wizard.Lookup[wizard.Container], services wizard.ContainerService) *CloseContainer {
	return &CloseContainer{containers: containers, services: services}
}

func (r *CloseContainer) Kind() wizard.ObjectKind { return wizard.KindCloseContainer }

func (r *CloseContainer) Scan(ctx context.Context, _ Request, code string) (any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, emptyCode()
	}
	if r.containers == nil {
		return nil, wizard.ResolutionFailed("container lookup not configured", nil)
	}
	c, err := r.containers.ByCode(ctx, code)
	if err != nil {
		return nil, notResolved(err, "container %s not found", code)
	}
	return r.close(ctx, c)
}

func (r *CloseContainer) Perform(ctx context.Context, req Request) (any, error) {
	c := subjectContainer(req)
	if c == nil {
		return nil, wizard.ResolutionFailed("no container to close, scan one", nil)
	}
	return r.close(ctx, *c)
}

func (r *CloseContainer) close(ctx context.Context, c wizard.Container) (any, error) {
	if r.services == nil {
		return nil, wizard.ResolutionFailed("container service not configured", nil)
	}
	if c.Closed {
		return c, nil
	}
	ok, err := r.services.CloseContainer(ctx, c.Code)
	if err != nil {
		return nil, wizard.ResolutionFailed(
			fmt.Sprintf("could not close container %s: %s", c.Code, wizard.UserMessage(err)), err)
	}
	if !ok {
		return nil, wizard.ResolutionFailed(fmt.Sprintf("container %s was not closed", c.Code), nil)
	}
	c.Closed = true
	return c, nil
}

func (r *CloseContainer) Apply(acc *wizard.Accumulator, step wizard.Step, value any) error {
	return applyContainerValue(r.Kind(), acc, step, value)
}

// PrintLabel prints a label for the step subject and forwards that subject
// unchanged. The subject is chosen with the "subject" param (item, source,
// destination, location); by default the target container, then the item.
type PrintLabel struct {
	containers wizard.Lookup[wizard.Container]
	printer    wizard.LabelPrinter
}

func NewPrintLabel(containers wizard.Lookup[wizard.Container], printer wizard.LabelPrinter) *PrintLabel {
	return &PrintLabel{containers: containers, printer: printer}
}

func (r *PrintLabel) Kind() wizard.ObjectKind { return wizard.KindPrintLabel }

func (r *PrintLabel) Scan(ctx context.Context, _ Request, code string) (any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, emptyCode()
	}
	if r.containers == nil {
		return nil, wizard.ResolutionFailed("container lookup not configured", nil)
	}
	c, err := r.containers.ByCode(ctx, code)
	if err != nil {
		return nil, notResolved(err, "container %s not found", code)
	}
	if err := r.print(ctx, c.Code); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PrintLabel) Perform(ctx context.Context, req Request) (any, error) {
	subject, code := labelSubject(req)
	if subject == nil {
		return nil, wizard.ResolutionFailed("nothing to print a label for", nil)
	}
	if err := r.print(ctx, code); err != nil {
		return nil, err
	}
	return subject, nil
}

func (r *PrintLabel) print(ctx context.Context, code string) error {
	if r.printer == nil {
		return wizard.ResolutionFailed("label printer not configured", nil)
	}
	ok, err := r.printer.PrintLabel(ctx, code)
	if err != nil {
		return wizard.ResolutionFailed(
			fmt.Sprintf("could not print label for %s: %s", code, wizard.UserMessage(err)), err)
	}
	if !ok {
		return wizard.ResolutionFailed(fmt.Sprintf("label for %s was not printed", code), nil)
	}
	return nil
}

func (r *PrintLabel) Apply(acc *wizard.Accumulator, step wizard.Step, value any) error {
	switch step.FieldGroup() {
	case wizard.GroupSource, wizard.GroupDestination, wizard.GroupLocation:
		return applyContainerValue(r.Kind(), acc, step, value)
	case wizard.GroupItem:
		item, ok := as[wizard.ItemRecord](value)
		if !ok {
			return unexpected(r.Kind(), value)
		}
		acc.SetItem(item.Item)
		return nil
	}
	acc.SetGeneric(step.ID, value)
	return nil
}

func subjectContainer(req Request) *wizard.Container {
	snap := req.Snapshot
	if c := snap.Container(req.Step.FieldGroup()); c != nil {
		return c
	}
	if snap.Destination != nil {
		return snap.Destination
	}
	return snap.Source
}

func labelSubject(req Request) (any, string) {
	snap := req.Snapshot
	switch req.Step.Param("subject") {
	case "item":
		if snap.HasItem() {
			return *snap.Item, snap.Item.Item.Code
		}
		return nil, ""
	case "source":
		if snap.Source != nil {
			return *snap.Source, snap.Source.Code
		}
		return nil, ""
	case "destination":
		if snap.Destination != nil {
			return *snap.Destination, snap.Destination.Code
		}
		return nil, ""
	case "location":
		if snap.Location != nil {
			return *snap.Location, snap.Location.Code
		}
		return nil, ""
	}
	if c := subjectContainer(req); c != nil {
		return *c, c.Code
	}
	if snap.HasItem() {
		return *snap.Item, snap.Item.Item.Code
	}
	return nil, ""
}
