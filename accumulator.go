package wizard

import (
	"maps"
	"time"

	"github.com/tiendc/go-deepcopy"
)

// Accumulator merges resolved step values into one fact payload. Every setter
// touches exactly one field group; the item group is merged in place so that
// quantity, condition and expiration accumulate on the same sub-object.
//
// Accumulator is not safe for concurrent use, the owning controller serialises
// access to it.
type Accumulator struct {
	item        *ItemRecord
	source      *Container
	destination *Container
	location    *Location
	generic     map[string]any
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

func (a *Accumulator) itemRecord() *ItemRecord {
	if a.item == nil {
		a.item = &ItemRecord{}
	}
	return a.item
}

// SetItem records the resolved item, keeping quantity and the other item fields.
func (a *Accumulator) SetItem(item Item) {
	a.itemRecord().Item = item
}

// SetQuantity records the quantity on the item record.
func (a *Accumulator) SetQuantity(qty float64) {
	a.itemRecord().Quantity = qty
}

// SetCondition records the item condition on the item record.
func (a *Accumulator) SetCondition(cond Condition) {
	c := cond
	a.itemRecord().Condition = &c
}

// SetExpiration records the expiration date on the item record.
func (a *Accumulator) SetExpiration(date time.Time) {
	d := date
	a.itemRecord().ExpirationDate = &d
}

// SetSource records the source container.
func (a *Accumulator) SetSource(c Container) {
	cp := c
	a.source = &cp
}

// SetDestination records the destination container.
func (a *Accumulator) SetDestination(c Container) {
	cp := c
	a.destination = &cp
}

// SetLocation records the destination location.
func (a *Accumulator) SetLocation(l Location) {
	cp := l
	a.location = &cp
}

// SetGeneric records a value under key in the generic group.
func (a *Accumulator) SetGeneric(key string, value any) {
	if a.generic == nil {
		a.generic = make(map[string]any)
	}
	a.generic[key] = value
}

// SetContainer routes a container to the source or destination group. Any
// other group stores the container in the generic group under key.
func (a *Accumulator) SetContainer(group FieldGroup, key string, c Container) {
	switch group {
	case GroupSource:
		a.SetSource(c)
	case GroupDestination:
		a.SetDestination(c)
	default:
		a.SetGeneric(key, c)
	}
}

// Reset clears every field group.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Snapshot returns a deep copy of the accumulated values.
func (a *Accumulator) Snapshot() Snapshot {
	src := Snapshot{
		Item:        a.item,
		Source:      a.source,
		Destination: a.destination,
		Location:    a.location,
		Generic:     a.generic,
	}
	var out Snapshot
	if err := deepcopy.Copy(&out, src); err != nil {
		return src.shallowCopy()
	}
	return out
}

// Snapshot is a read-only copy of the accumulator handed to validators,
// resolvers and the fact builder.
type Snapshot struct {
	Item        *ItemRecord
	Source      *Container
	Destination *Container
	Location    *Location
	Generic     map[string]any
}

func (s Snapshot) shallowCopy() Snapshot {
	out := Snapshot{Generic: maps.Clone(s.Generic)}
	if s.Item != nil {
		item := *s.Item
		out.Item = &item
	}
	if s.Source != nil {
		c := *s.Source
		out.Source = &c
	}
	if s.Destination != nil {
		c := *s.Destination
		out.Destination = &c
	}
	if s.Location != nil {
		l := *s.Location
		out.Location = &l
	}
	return out
}

// HasItem reports whether an item has been resolved.
func (s Snapshot) HasItem() bool {
	return s.Item != nil && (s.Item.Item.ID != "" || s.Item.Item.Code != "")
}

// Quantity returns the accumulated quantity, zero when unset.
func (s Snapshot) Quantity() float64 {
	if s.Item == nil {
		return 0
	}
	return s.Item.Quantity
}

// Container returns the container stored for group.
func (s Snapshot) Container(group FieldGroup) *Container {
	switch group {
	case GroupSource:
		return s.Source
	case GroupDestination:
		return s.Destination
	}
	return nil
}

// Has reports whether group holds a value. For the generic group key selects
// the entry.
func (s Snapshot) Has(group FieldGroup, key string) bool {
	switch group {
	case GroupItem:
		return s.HasItem()
	case GroupSource:
		return s.Source != nil
	case GroupDestination:
		return s.Destination != nil
	case GroupLocation:
		return s.Location != nil
	case GroupGeneric:
		_, ok := s.Generic[key]
		return ok
	}
	return false
}

// BuildFact assembles the fact record for action from the snapshot.
func BuildFact(id string, action PlannedAction, snap Snapshot, now time.Time) FactRecord {
	return FactRecord{
		ID:              id,
		TaskID:          action.TaskID,
		PlannedActionID: action.ID,
		Operation:       action.Operation,
		Item:            snap.Item,
		Source:          snap.Source,
		Destination:     snap.Destination,
		Location:        snap.Location,
		Extra:           snap.Generic,
		CreatedAt:       now.UTC(),
	}
}
