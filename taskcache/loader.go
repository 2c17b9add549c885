package taskcache

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-wizard"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a task file.
type File struct {
	Tasks []wizard.Task `yaml:"tasks"`
}

// Parse decodes a YAML task file. Unknown keys are rejected.
func Parse(data []byte) ([]wizard.Task, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, wizard.NewError(wizard.ErrInvalidFact, fmt.Sprintf("parse tasks: %v", err), err, nil)
	}
	for i := range f.Tasks {
		t := &f.Tasks[i]
		if t.ID == "" {
			return nil, wizard.NewError(wizard.ErrInvalidFact, fmt.Sprintf("task %d has no id", i), nil, nil)
		}
		seen := map[string]bool{}
		for j := range t.Actions {
			a := &t.Actions[j]
			if a.ID == "" {
				return nil, wizard.NewError(wizard.ErrInvalidFact,
					fmt.Sprintf("task %s: action %d has no id", t.ID, j), nil, nil)
			}
			if seen[a.ID] {
				return nil, wizard.NewError(wizard.ErrInvalidFact,
					fmt.Sprintf("task %s: duplicate action %s", t.ID, a.ID), nil, nil)
			}
			seen[a.ID] = true
			a.TaskID = t.ID
		}
	}
	return f.Tasks, nil
}

// LoadFile reads and parses the task file at path.
func LoadFile(path string) ([]wizard.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks %s: %w", path, err)
	}
	return Parse(data)
}

// FileSource serves tasks from a YAML file, re-read on every fetch.
type FileSource string

// FetchTasks implements TaskSource.
func (f FileSource) FetchTasks(_ context.Context) ([]wizard.Task, error) {
	return LoadFile(string(f))
}
