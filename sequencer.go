package wizard

import "fmt"

// BuildSteps flattens a template into the ordered step list: storage steps
// first, then placement steps, with no reordering or deduplication. Steps
// without an ID get a positional one.
func BuildSteps(t Template) []Step {
	steps := make([]Step, 0, len(t.StorageSteps)+len(t.PlacementSteps))
	for i, s := range t.StorageSteps {
		steps = append(steps, withPositionalID(s, "storage", i))
	}
	for i, s := range t.PlacementSteps {
		steps = append(steps, withPositionalID(s, "placement", i))
	}
	return steps
}

func withPositionalID(s Step, phase string, i int) Step {
	if s.ID == "" {
		s.ID = fmt.Sprintf("%s-%d", phase, i)
	}
	if s.Selection == "" {
		s.Selection = SelectAny
	}
	return s
}
