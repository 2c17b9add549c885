package wizard

import (
	"fmt"
	"strings"
	"time"
)

// ObjectKind tags the kind of value a step resolves.
type ObjectKind string

const (
	KindItem               ObjectKind = "item"
	KindQuantity           ObjectKind = "quantity"
	KindExpirationDate     ObjectKind = "expiration_date"
	KindCondition          ObjectKind = "condition"
	KindStorageContainer   ObjectKind = "storage_container"
	KindPlacementContainer ObjectKind = "placement_container"
	KindCreateContainer    ObjectKind = "create_container"
	KindCloseContainer     ObjectKind = "close_container"
	KindPrintLabel         ObjectKind = "print_label"
)

// Kinds lists every object kind the engine knows how to resolve.
func Kinds() []ObjectKind {
	return []ObjectKind{
		KindItem,
		KindQuantity,
		KindExpirationDate,
		KindCondition,
		KindStorageContainer,
		KindPlacementContainer,
		KindCreateContainer,
		KindCloseContainer,
		KindPrintLabel,
	}
}

// SelectionCondition restricts where a step value may come from.
type SelectionCondition string

const (
	SelectAny  SelectionCondition = "any"
	SelectPlan SelectionCondition = "plan"
)

// FieldGroup addresses one merge target inside the Accumulator.
type FieldGroup string

const (
	GroupItem        FieldGroup = "item"
	GroupSource      FieldGroup = "source"
	GroupDestination FieldGroup = "destination"
	GroupLocation    FieldGroup = "location"
	GroupGeneric     FieldGroup = "generic"
)

// OperationKind is the warehouse operation a planned action performs.
type OperationKind string

const (
	OperationPut     OperationKind = "put"
	OperationTake    OperationKind = "take"
	OperationReceipt OperationKind = "receipt"
	OperationExpense OperationKind = "expense"
	OperationRecount OperationKind = "recount"
	OperationUse     OperationKind = "use"
)

// TrackingMode tells whether an item needs batch or expiry tracking.
type TrackingMode string

const (
	TrackingNone   TrackingMode = "none"
	TrackingBatch  TrackingMode = "batch"
	TrackingExpiry TrackingMode = "expiry"
)

// RequiresExpiration reports whether items tracked this way need an expiration date.
func (m TrackingMode) RequiresExpiration() bool {
	return m == TrackingBatch || m == TrackingExpiry
}

// Step is one unit of input resolution.
type Step struct {
	ID        string             `json:"id" yaml:"id"`
	Kind      ObjectKind         `json:"kind" yaml:"kind"`
	Prompt    string             `json:"prompt" yaml:"prompt"`
	Selection SelectionCondition `json:"selection,omitempty" yaml:"selection,omitempty"`
	Target    FieldGroup         `json:"target,omitempty" yaml:"target,omitempty"`
	Params    map[string]string  `json:"params,omitempty" yaml:"params,omitempty"`
}

// FieldGroup returns the accumulator group the step writes into. An explicit
// Target wins over the kind default.
func (s Step) FieldGroup() FieldGroup {
	if s.Target != "" {
		return s.Target
	}
	switch s.Kind {
	case KindItem, KindQuantity, KindExpirationDate, KindCondition:
		return GroupItem
	case KindStorageContainer:
		return GroupSource
	case KindPlacementContainer, KindCreateContainer, KindCloseContainer:
		return GroupDestination
	default:
		return GroupGeneric
	}
}

// Param returns a trimmed step parameter.
func (s Step) Param(key string) string {
	if s.Params == nil {
		return ""
	}
	return strings.TrimSpace(s.Params[key])
}

// FromPlan reports whether the value must come from the planned action.
func (s Step) FromPlan() bool {
	return s.Selection == SelectPlan
}

func (s Step) String() string {
	return fmt.Sprintf("%s(%s)", s.ID, s.Kind)
}

// Template is the ordered list of steps an action walks through.
type Template struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	StorageSteps   []Step `json:"storage_steps" yaml:"storage_steps"`
	PlacementSteps []Step `json:"placement_steps" yaml:"placement_steps"`
}

// Item is a stock keeping unit.
type Item struct {
	ID       string       `json:"id" yaml:"id"`
	Code     string       `json:"code" yaml:"code"`
	Name     string       `json:"name" yaml:"name"`
	Tracking TrackingMode `json:"tracking,omitempty" yaml:"tracking,omitempty"`
}

// Condition is an item status such as "new" or "damaged".
type Condition struct {
	ID   string `json:"id" yaml:"id"`
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Container is a pallet, tote or box.
type Container struct {
	ID     string `json:"id" yaml:"id"`
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Zone   string `json:"zone,omitempty" yaml:"zone,omitempty"`
	Closed bool   `json:"closed,omitempty" yaml:"closed,omitempty"`
}

// Location is a storage bin or cell.
type Location struct {
	ID   string `json:"id" yaml:"id"`
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
	Zone string `json:"zone,omitempty" yaml:"zone,omitempty"`
}

// Plan carries the values a task expects for one planned action.
type Plan struct {
	Item        *Item      `json:"item,omitempty" yaml:"item,omitempty"`
	Quantity    float64    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Condition   *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Source      *Container `json:"source,omitempty" yaml:"source,omitempty"`
	Destination *Container `json:"destination,omitempty" yaml:"destination,omitempty"`
	Location    *Location  `json:"location,omitempty" yaml:"location,omitempty"`
}

// PlannedAction is a unit of work scheduled on a task.
type PlannedAction struct {
	ID        string        `json:"id" yaml:"id"`
	TaskID    string        `json:"task_id" yaml:"task_id"`
	Operation OperationKind `json:"operation" yaml:"operation"`
	Template  Template      `json:"template" yaml:"template"`
	Plan      Plan          `json:"plan,omitempty" yaml:"plan,omitempty"`
	Completed bool          `json:"completed" yaml:"completed"`
	// Endpoint is the task-type endpoint facts for this action are sent to.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Task groups planned actions and the facts recorded against them.
type Task struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Endpoint string          `json:"endpoint" yaml:"endpoint"`
	Actions  []PlannedAction `json:"actions" yaml:"actions"`
	Facts    []FactRecord    `json:"facts,omitempty" yaml:"facts,omitempty"`
}

// Action returns the planned action with the given id.
func (t Task) Action(id string) (PlannedAction, bool) {
	for _, a := range t.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return PlannedAction{}, false
}

// ItemRecord is the item sub-object of a fact: what, how much, in which state.
type ItemRecord struct {
	Item           Item       `json:"item" yaml:"item"`
	Quantity       float64    `json:"quantity" yaml:"quantity"`
	Condition      *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
}

// FactRecord is the operator-confirmed outcome of a planned action.
type FactRecord struct {
	ID              string         `json:"id" yaml:"id"`
	TaskID          string         `json:"task_id" yaml:"task_id"`
	PlannedActionID string         `json:"planned_action_id" yaml:"planned_action_id"`
	Operation       OperationKind  `json:"operation,omitempty" yaml:"operation,omitempty"`
	Item            *ItemRecord    `json:"item,omitempty" yaml:"item,omitempty"`
	Source          *Container     `json:"source,omitempty" yaml:"source,omitempty"`
	Destination     *Container     `json:"destination,omitempty" yaml:"destination,omitempty"`
	Location        *Location      `json:"location,omitempty" yaml:"location,omitempty"`
	Extra           map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
}

// Validate checks the identifiers every fact must carry.
func (f FactRecord) Validate() error {
	if strings.TrimSpace(f.TaskID) == "" {
		return cloneError(ErrInvalidFact, "fact record requires task id", nil, nil)
	}
	if strings.TrimSpace(f.PlannedActionID) == "" {
		return cloneError(ErrInvalidFact, "fact record requires planned action id", nil, nil)
	}
	return nil
}
