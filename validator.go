package wizard

// Validator decides whether a step's recorded value is good enough to move
// past it.
type Validator func(step Step, snap Snapshot) bool

var validators = map[ObjectKind]Validator{
	KindQuantity:           acceptQuantity,
	KindExpirationDate:     acceptExpiration,
	KindStorageContainer:   acceptTarget,
	KindPlacementContainer: acceptTarget,
}

// Accepts runs the validator registered for the step kind. Kinds without an
// override are always accepted.
func Accepts(step Step, snap Snapshot) bool {
	v, ok := validators[step.Kind]
	if !ok {
		return true
	}
	return v(step, snap)
}

func acceptQuantity(_ Step, snap Snapshot) bool {
	return snap.HasItem() && snap.Quantity() > 0
}

func acceptExpiration(_ Step, snap Snapshot) bool {
	if snap.Item == nil || !snap.Item.Item.Tracking.RequiresExpiration() {
		return true
	}
	return snap.Item.ExpirationDate != nil
}

func acceptTarget(step Step, snap Snapshot) bool {
	return snap.Has(step.FieldGroup(), step.ID)
}

// Optional reports whether step may be passed without any recorded value.
// Only an expiration date for an item that tracks neither batch nor expiry
// qualifies.
func Optional(step Step, snap Snapshot) bool {
	if step.Kind != KindExpirationDate || !snap.HasItem() {
		return false
	}
	return !snap.Item.Item.Tracking.RequiresExpiration()
}
