// Package taskcache keeps the operator's tasks in memory. Planned actions are
// read from it when a wizard starts and facts are written back when one is
// submitted. Updates are last-write-wins; nothing is persisted.
package taskcache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-wizard"
)

// Memory is an in-memory wizard.TaskCache.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]wizard.Task
}

// NewMemory creates a cache holding tasks.
func NewMemory(tasks ...wizard.Task) *Memory {
	m := &Memory{tasks: make(map[string]wizard.Task)}
	m.Upsert(tasks...)
	return m
}

// Upsert stores tasks, replacing any with the same id. Facts already
// recorded locally for a task are kept when the incoming copy has none.
func (m *Memory) Upsert(tasks ...wizard.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		if prev, ok := m.tasks[t.ID]; ok && len(t.Facts) == 0 && len(prev.Facts) > 0 {
			t.Facts = prev.Facts
			markCompleted(&t)
		}
		m.tasks[t.ID] = cloneTask(t)
	}
}

// Task returns a copy of the task with id.
func (m *Memory) Task(id string) (wizard.Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return wizard.Task{}, false
	}
	return cloneTask(t), true
}

// Tasks lists all tasks ordered by id.
func (m *Memory) Tasks() []wizard.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]wizard.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Facts returns the facts recorded for a task.
func (m *Memory) Facts(taskID string) []wizard.FactRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]wizard.FactRecord(nil), m.tasks[taskID].Facts...)
}

// GetPlannedAction returns the planned action with its task id and endpoint
// filled in from the owning task.
func (m *Memory) GetPlannedAction(_ context.Context, taskID, actionID string) (wizard.PlannedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return wizard.PlannedAction{}, wizard.NewError(wizard.ErrNotFound,
			fmt.Sprintf("task %s not found", taskID), nil,
			map[string]any{"task_id": taskID})
	}
	a, ok := t.Action(actionID)
	if !ok {
		return wizard.PlannedAction{}, wizard.NewError(wizard.ErrNotFound,
			fmt.Sprintf("planned action %s not found in task %s", actionID, taskID), nil,
			map[string]any{"task_id": taskID, "action_id": actionID})
	}
	a.TaskID = t.ID
	if a.Endpoint == "" {
		a.Endpoint = t.Endpoint
	}
	return a, nil
}

// RecordFactAction appends fact to its task and marks the planned action
// completed.
func (m *Memory) RecordFactAction(_ context.Context, fact wizard.FactRecord) error {
	if err := fact.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[fact.TaskID]
	if !ok {
		return wizard.NewError(wizard.ErrNotFound,
			fmt.Sprintf("task %s not found", fact.TaskID), nil,
			map[string]any{"task_id": fact.TaskID})
	}
	t.Facts = append(append([]wizard.FactRecord(nil), t.Facts...), fact)
	markCompleted(&t)
	m.tasks[t.ID] = t
	return nil
}

func markCompleted(t *wizard.Task) {
	done := make(map[string]bool, len(t.Facts))
	for _, f := range t.Facts {
		done[f.PlannedActionID] = true
	}
	actions := append([]wizard.PlannedAction(nil), t.Actions...)
	for i := range actions {
		if done[actions[i].ID] {
			actions[i].Completed = true
		}
	}
	t.Actions = actions
}

func cloneTask(t wizard.Task) wizard.Task {
	t.Actions = append([]wizard.PlannedAction(nil), t.Actions...)
	t.Facts = append([]wizard.FactRecord(nil), t.Facts...)
	return t
}
