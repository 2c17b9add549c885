// Package wizardtest provides in-memory collaborators for driving the engine
// without a task server. They back the package tests and the CLI offline mode.
package wizardtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-wizard"
)

// Store is an in-memory Lookup keyed by code.
type Store[T any] struct {
	mu      sync.RWMutex
	entries []T
	code    func(T) string
	text    func(T) string
	zone    func(T) string
	calls   int
}

// NewStore builds a store. code extracts the scan code, text the searchable
// name. zone may be nil for objects without a zone.
func NewStore[T any](code, text, zone func(T) string, entries ...T) *Store[T] {
	return &Store[T]{entries: entries, code: code, text: text, zone: zone}
}

// Add appends entries to the store.
func (s *Store[T]) Add(entries ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
}

// Calls reports how many lookups hit the store.
func (s *Store[T]) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

func (s *Store[T]) ByCode(_ context.Context, code string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, e := range s.entries {
		if strings.EqualFold(s.code(e), strings.TrimSpace(code)) {
			return e, nil
		}
	}
	var zero T
	return zero, wizard.NewError(wizard.ErrNotFound, fmt.Sprintf("code %s not found", code), nil, nil)
}

func (s *Store[T]) Search(_ context.Context, query string, filters map[string]string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	q := strings.ToLower(strings.TrimSpace(query))
	zone := filters["zone"]
	var out []T
	for _, e := range s.entries {
		if zone != "" && s.zone != nil && !strings.EqualFold(s.zone(e), zone) {
			continue
		}
		hay := strings.ToLower(s.code(e) + " " + s.text(e))
		if q == "" || strings.Contains(hay, q) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Items returns a store of items.
func Items(items ...wizard.Item) *Store[wizard.Item] {
	return NewStore(
		func(i wizard.Item) string { return i.Code },
		func(i wizard.Item) string { return i.Name },
		nil, items...)
}

// Conditions returns a store of item conditions.
func Conditions(conds ...wizard.Condition) *Store[wizard.Condition] {
	return NewStore(
		func(c wizard.Condition) string { return c.Code },
		func(c wizard.Condition) string { return c.Name },
		nil, conds...)
}

// Containers returns a store of containers.
func Containers(cs ...wizard.Container) *Store[wizard.Container] {
	return NewStore(
		func(c wizard.Container) string { return c.Code },
		func(c wizard.Container) string { return c.Name },
		func(c wizard.Container) string { return c.Zone },
		cs...)
}

// Locations returns a store of locations.
func Locations(ls ...wizard.Location) *Store[wizard.Location] {
	return NewStore(
		func(l wizard.Location) string { return l.Code },
		func(l wizard.Location) string { return l.Name },
		func(l wizard.Location) string { return l.Zone },
		ls...)
}

// Services creates containers with sequential codes and closes any code not
// listed in Refuse.
type Services struct {
	mu      sync.Mutex
	Prefix  string
	Refuse  map[string]bool
	Err     error
	created []wizard.Container
	closed  []string
}

func (s *Services) CreateContainer(context.Context) (wizard.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return wizard.Container{}, s.Err
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = "NEW"
	}
	n := len(s.created) + 1
	c := wizard.Container{
		ID:   fmt.Sprintf("%s-id-%d", strings.ToLower(prefix), n),
		Code: fmt.Sprintf("%s-%03d", prefix, n),
		Name: fmt.Sprintf("container %d", n),
	}
	s.created = append(s.created, c)
	return c, nil
}

func (s *Services) CloseContainer(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if s.Refuse[code] {
		return false, nil
	}
	s.closed = append(s.closed, code)
	return true, nil
}

// Created lists the containers created so far.
func (s *Services) Created() []wizard.Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wizard.Container(nil), s.created...)
}

// Closed lists the codes closed so far.
func (s *Services) Closed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.closed...)
}

// Printer records printed label codes.
type Printer struct {
	mu      sync.Mutex
	Fail    bool
	printed []string
}

func (p *Printer) PrintLabel(_ context.Context, code string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return false, nil
	}
	p.printed = append(p.printed, code)
	return true, nil
}

// Printed lists the printed codes.
func (p *Printer) Printed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.printed...)
}

// Submission is one recorded submit call.
type Submission struct {
	TaskID   string
	Fact     wizard.FactRecord
	Endpoint string
}

// Submitter records every submission and answers with the queued errors in
// order, succeeding once the queue is empty.
type Submitter struct {
	mu     sync.Mutex
	errs   []error
	calls  []Submission
	Block  chan struct{}
	Called chan struct{}
}

// FailNext queues errors for the next submissions.
func (s *Submitter) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, errs...)
}

func (s *Submitter) SubmitFactAction(ctx context.Context, taskID string, fact wizard.FactRecord, endpoint string) error {
	s.mu.Lock()
	s.calls = append(s.calls, Submission{TaskID: taskID, Fact: fact, Endpoint: endpoint})
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	block, called := s.Block, s.Called
	s.mu.Unlock()

	if called != nil {
		called <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Calls returns the recorded submissions.
func (s *Submitter) Calls() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.calls...)
}

// Fixture bundles a populated directory with its backing stores.
type Fixture struct {
	Items      *Store[wizard.Item]
	Conditions *Store[wizard.Condition]
	Containers *Store[wizard.Container]
	Locations  *Store[wizard.Location]
	Services   *Services
	Printer    *Printer
}

// Directory exposes the fixture as a wizard.Directory.
func (f *Fixture) Directory() wizard.Directory {
	return wizard.Directory{
		Items:      f.Items,
		Conditions: f.Conditions,
		Containers: f.Containers,
		Locations:  f.Locations,
		Services:   f.Services,
		Printer:    f.Printer,
	}
}

// NewFixture returns a small warehouse: two items (one expiry tracked), two
// conditions, three containers in zones A and B, and two locations.
func NewFixture() *Fixture {
	return &Fixture{
		Items: Items(
			wizard.Item{ID: "i-1", Code: "4600000000011", Name: "Bolt M8", Tracking: wizard.TrackingNone},
			wizard.Item{ID: "i-2", Code: "4600000000028", Name: "Milk 1L", Tracking: wizard.TrackingExpiry},
		),
		Conditions: Conditions(
			wizard.Condition{ID: "c-new", Code: "NEW", Name: "new"},
			wizard.Condition{ID: "c-dmg", Code: "DMG", Name: "damaged"},
		),
		Containers: Containers(
			wizard.Container{ID: "p-1", Code: "PAL-001", Name: "pallet 1", Zone: "A"},
			wizard.Container{ID: "p-2", Code: "PAL-002", Name: "pallet 2", Zone: "A"},
			wizard.Container{ID: "p-3", Code: "PAL-003", Name: "pallet 3", Zone: "B"},
		),
		Locations: Locations(
			wizard.Location{ID: "l-1", Code: "A-01-01", Name: "rack A1", Zone: "A"},
			wizard.Location{ID: "l-2", Code: "B-02-01", Name: "rack B2", Zone: "B"},
		),
		Services: &Services{},
		Printer:  &Printer{},
	}
}

// TaskCache is a minimal in-memory wizard.TaskCache.
type TaskCache struct {
	mu       sync.Mutex
	actions  map[string]wizard.PlannedAction
	recorded []wizard.FactRecord
	gets     int
}

// NewTaskCache stores the given actions keyed by task and action id.
func NewTaskCache(actions ...wizard.PlannedAction) *TaskCache {
	c := &TaskCache{actions: make(map[string]wizard.PlannedAction)}
	for _, a := range actions {
		c.actions[a.TaskID+"/"+a.ID] = a
	}
	return c
}

func (c *TaskCache) GetPlannedAction(_ context.Context, taskID, actionID string) (wizard.PlannedAction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	a, ok := c.actions[taskID+"/"+actionID]
	if !ok {
		return wizard.PlannedAction{}, wizard.NewError(wizard.ErrNotFound,
			fmt.Sprintf("planned action %s/%s not found", taskID, actionID), nil, nil)
	}
	return a, nil
}

func (c *TaskCache) RecordFactAction(_ context.Context, fact wizard.FactRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorded = append(c.recorded, fact)
	return nil
}

// Recorded returns the facts written back to the cache.
func (c *TaskCache) Recorded() []wizard.FactRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wizard.FactRecord(nil), c.recorded...)
}

// Gets reports how many planned action reads hit the cache.
func (c *TaskCache) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}
