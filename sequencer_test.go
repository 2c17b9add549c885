package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildStepsOrder(t *testing.T) {
	tpl := Template{
		StorageSteps: []Step{
			{ID: "item", Kind: KindItem},
			{Kind: KindQuantity},
		},
		PlacementSteps: []Step{
			{Kind: KindPlacementContainer, Selection: SelectPlan},
			{ID: "item", Kind: KindItem},
		},
	}

	steps := BuildSteps(tpl)
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"item", "storage-1", "placement-0", "item"}, ids, "no reordering or dedup")
	assert.Equal(t, SelectAny, steps[1].Selection)
	assert.True(t, steps[2].FromPlan())
	assert.Empty(t, BuildSteps(Template{}))
}

func TestStepFieldGroup(t *testing.T) {
	cases := map[ObjectKind]FieldGroup{
		KindItem:               GroupItem,
		KindQuantity:           GroupItem,
		KindExpirationDate:     GroupItem,
		KindCondition:          GroupItem,
		KindStorageContainer:   GroupSource,
		KindPlacementContainer: GroupDestination,
		KindCreateContainer:    GroupDestination,
		KindCloseContainer:     GroupDestination,
		KindPrintLabel:         GroupGeneric,
	}
	for kind, group := range cases {
		assert.Equal(t, group, Step{Kind: kind}.FieldGroup(), kind)
	}
	assert.Equal(t, GroupLocation, Step{Kind: KindPlacementContainer, Target: GroupLocation}.FieldGroup())
	assert.Len(t, Kinds(), len(cases))
}

func TestAccepts(t *testing.T) {
	withItem := func(tracking TrackingMode, qty float64) Snapshot {
		acc := NewAccumulator()
		acc.SetItem(Item{ID: "i-1", Tracking: tracking})
		acc.SetQuantity(qty)
		return acc.Snapshot()
	}

	qty := Step{Kind: KindQuantity}
	assert.True(t, Accepts(qty, withItem(TrackingNone, 1)))
	assert.False(t, Accepts(qty, withItem(TrackingNone, 0)))
	assert.False(t, Accepts(qty, Snapshot{}), "quantity without an item")

	exp := Step{Kind: KindExpirationDate}
	assert.True(t, Accepts(exp, withItem(TrackingNone, 1)))
	assert.False(t, Accepts(exp, withItem(TrackingExpiry, 1)))
	assert.False(t, Accepts(exp, withItem(TrackingBatch, 1)))

	acc := NewAccumulator()
	acc.SetItem(Item{ID: "i-2", Tracking: TrackingExpiry})
	acc.SetExpiration(time.Now())
	assert.True(t, Accepts(exp, acc.Snapshot()))

	pallet := Step{ID: "pallet", Kind: KindPlacementContainer}
	assert.False(t, Accepts(pallet, Snapshot{}))
	assert.True(t, Accepts(pallet, Snapshot{Destination: &Container{Code: "PAL-001"}}))

	assert.True(t, Accepts(Step{Kind: KindCondition}, Snapshot{}), "kinds without a validator pass")

	assert.True(t, Optional(exp, withItem(TrackingNone, 1)))
	assert.False(t, Optional(exp, withItem(TrackingBatch, 1)))
	assert.False(t, Optional(exp, Snapshot{}), "expiration before any item")
	assert.False(t, Optional(qty, withItem(TrackingNone, 1)))
	assert.False(t, Optional(Step{Kind: KindItem}, Snapshot{}))
}
