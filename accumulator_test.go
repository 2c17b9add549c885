package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorMergesItemFields(t *testing.T) {
	acc := NewAccumulator()
	exp := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	acc.SetQuantity(4)
	acc.SetItem(Item{ID: "i-2", Code: "4600000000028"})
	acc.SetCondition(Condition{ID: "c-dmg", Code: "DMG"})
	acc.SetExpiration(exp)

	snap := acc.Snapshot()
	require.NotNil(t, snap.Item)
	assert.Equal(t, "i-2", snap.Item.Item.ID)
	assert.Equal(t, 4.0, snap.Item.Quantity, "setting the item keeps the quantity")
	assert.Equal(t, "DMG", snap.Item.Condition.Code)
	assert.Equal(t, exp, *snap.Item.ExpirationDate)

	acc.SetItem(Item{ID: "i-1"})
	snap = acc.Snapshot()
	assert.Equal(t, "i-1", snap.Item.Item.ID)
	assert.Equal(t, 4.0, snap.Quantity())
	assert.NotNil(t, snap.Item.Condition)
}

func TestAccumulatorGroupsAreIndependent(t *testing.T) {
	acc := NewAccumulator()
	acc.SetContainer(GroupSource, "src", Container{Code: "PAL-001"})
	acc.SetContainer(GroupDestination, "dst", Container{Code: "PAL-002"})
	acc.SetContainer(GroupGeneric, "spare", Container{Code: "PAL-003"})
	acc.SetLocation(Location{Code: "A-01-01"})

	snap := acc.Snapshot()
	assert.Equal(t, "PAL-001", snap.Container(GroupSource).Code)
	assert.Equal(t, "PAL-002", snap.Container(GroupDestination).Code)
	assert.Nil(t, snap.Container(GroupLocation))
	assert.Equal(t, Container{Code: "PAL-003"}, snap.Generic["spare"])
	assert.False(t, snap.HasItem())

	assert.True(t, snap.Has(GroupLocation, ""))
	assert.True(t, snap.Has(GroupGeneric, "spare"))
	assert.False(t, snap.Has(GroupGeneric, "other"))
	assert.False(t, snap.Has(GroupItem, ""))

	acc.Reset()
	snap = acc.Snapshot()
	assert.Nil(t, snap.Source)
	assert.Nil(t, snap.Location)
	assert.Empty(t, snap.Generic)
}

func TestSnapshotIsDetached(t *testing.T) {
	acc := NewAccumulator()
	acc.SetItem(Item{ID: "i-1"})
	acc.SetGeneric("note", "fragile")

	snap := acc.Snapshot()
	snap.Item.Quantity = 99
	snap.Generic["note"] = "changed"

	again := acc.Snapshot()
	assert.Equal(t, 0.0, again.Quantity())
	assert.Equal(t, "fragile", again.Generic["note"])
}

func TestBuildFact(t *testing.T) {
	acc := NewAccumulator()
	acc.SetItem(Item{ID: "i-1"})
	acc.SetQuantity(2)
	acc.SetDestination(Container{ID: "p-1"})

	now := time.Date(2026, 10, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	action := PlannedAction{ID: "a-1", TaskID: "t-1", Operation: OperationPut}
	fact := BuildFact("f-1", action, acc.Snapshot(), now)

	assert.Equal(t, "f-1", fact.ID)
	assert.Equal(t, "t-1", fact.TaskID)
	assert.Equal(t, "a-1", fact.PlannedActionID)
	assert.Equal(t, OperationPut, fact.Operation)
	assert.Equal(t, 2.0, fact.Item.Quantity)
	assert.Equal(t, "p-1", fact.Destination.ID)
	assert.Equal(t, time.UTC, fact.CreatedAt.Location())
	assert.NoError(t, fact.Validate())

	assert.Error(t, FactRecord{PlannedActionID: "a-1"}.Validate())
	assert.Error(t, FactRecord{TaskID: "t-1"}.Validate())
}
