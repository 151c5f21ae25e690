package world

// Resource names for capacity-bound action types.
const ResourceWorkshop = "workshop"

// Economy enforces shared, per-tick-replenished capacity. Remaining capacity
// is reset to full at the start of every tick by the tick executor; it is
// not persisted because a restored world always resumes at a tick boundary.
type Economy struct {
	capacity  map[string]int64
	remaining map[string]int64
}

// NewEconomy creates an economy with the given per-tick capacities.
// Remaining starts at full capacity.
func NewEconomy(capacity map[string]int64) *Economy {
	e := &Economy{
		capacity:  make(map[string]int64, len(capacity)),
		remaining: make(map[string]int64, len(capacity)),
	}
	for res, cap := range capacity {
		if cap < 0 {
			cap = 0
		}
		e.capacity[res] = cap
		e.remaining[res] = cap
	}
	return e
}

// ResetTick restores remaining capacity to full for every resource.
func (e *Economy) ResetTick() {
	for res, cap := range e.capacity {
		e.remaining[res] = cap
	}
}

// TryConsume atomically checks and decrements remaining capacity.
// Returns false with no side effects if the request cannot be satisfied.
// Unknown resources have zero capacity and always deny.
func (e *Economy) TryConsume(resource string, amount int64) bool {
	if amount <= 0 {
		return false
	}
	rem, ok := e.remaining[resource]
	if !ok || rem < amount {
		return false
	}
	e.remaining[resource] = rem - amount
	return true
}

// Remaining returns the capacity left for this tick.
func (e *Economy) Remaining(resource string) int64 {
	return e.remaining[resource]
}

// Capacity returns the configured per-tick capacity.
func (e *Economy) Capacity(resource string) int64 {
	return e.capacity[resource]
}

// CapacityMap returns a copy of all configured capacities.
func (e *Economy) CapacityMap() map[string]int64 {
	out := make(map[string]int64, len(e.capacity))
	for res, cap := range e.capacity {
		out[res] = cap
	}
	return out
}
