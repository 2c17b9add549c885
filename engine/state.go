package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-wizard"
	"github.com/tiendc/go-deepcopy"
)

// State is a detached copy of the session state.
type State struct {
	SessionID  string
	TaskID     string
	ActionID   string
	Operation  wizard.OperationKind
	Phase      Phase
	Steps      []wizard.Step
	Index      int
	Completed  bool
	Sending    bool
	LastError  string
	LastStatus int
	LastScan   string
	Values     wizard.Snapshot
	Fact       *wizard.FactRecord
}

// Current returns the step at Index, false once completed.
func (s State) Current() (wizard.Step, bool) {
	if s.Index < 0 || s.Index >= len(s.Steps) {
		return wizard.Step{}, false
	}
	return s.Steps[s.Index], true
}

// State returns a copy of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	phase := c.life.phase()
	st := State{
		SessionID:  c.sessionID,
		TaskID:     c.taskID,
		ActionID:   c.actionID,
		Operation:  c.action.Operation,
		Phase:      phase,
		Steps:      c.steps,
		Index:      c.index,
		Completed:  c.index == len(c.steps),
		Sending:    phase == PhaseSubmitting,
		LastError:  c.lastErr,
		LastStatus: c.lastStatus,
		LastScan:   c.lastScan,
		Values:     c.acc.Snapshot(),
		Fact:       c.fact,
	}
	var out State
	if err := deepcopy.Copy(&out, st); err != nil {
		c.logger.Warn("state copy failed, returning shared steps: %v", err)
		st.Steps = append([]wizard.Step(nil), st.Steps...)
		if st.Fact != nil {
			f := *st.Fact
			st.Fact = &f
		}
		return st
	}
	return out
}

// Summary renders the accumulated values for the operator.
func (c *Controller) Summary() string {
	st := c.State()
	var b strings.Builder
	fmt.Fprintf(&b, "task %s, action %s", st.TaskID, st.ActionID)
	if st.Operation != "" {
		fmt.Fprintf(&b, " (%s)", st.Operation)
	}
	b.WriteString("\n")

	v := st.Values
	if v.Item != nil {
		fmt.Fprintf(&b, "  item:        %s %s x %s", v.Item.Item.Code, v.Item.Item.Name, formatQuantity(v.Item.Quantity))
		if v.Item.Condition != nil {
			fmt.Fprintf(&b, " [%s]", v.Item.Condition.Name)
		}
		if v.Item.ExpirationDate != nil {
			fmt.Fprintf(&b, " exp %s", v.Item.ExpirationDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	if v.Source != nil {
		fmt.Fprintf(&b, "  source:      %s\n", describeContainer(*v.Source))
	}
	if v.Destination != nil {
		fmt.Fprintf(&b, "  destination: %s\n", describeContainer(*v.Destination))
	}
	if v.Location != nil {
		fmt.Fprintf(&b, "  location:    %s %s\n", v.Location.Code, v.Location.Name)
	}
	keys := make([]string, 0, len(v.Generic))
	for k := range v.Generic {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, v.Generic[k])
	}
	if st.LastError != "" {
		fmt.Fprintf(&b, "  last error:  %s\n", st.LastError)
	}
	return b.String()
}

func describeContainer(c wizard.Container) string {
	s := c.Code
	if c.Name != "" {
		s += " " + c.Name
	}
	if c.Closed {
		s += " (closed)"
	}
	return s
}

func formatQuantity(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%g", q)
}
