package vm

// Dispatch Caching for Type-Generic Operations
//
// Every type owns one slot per dynamic operation (construct, copy, destroy,
// ordinal, membership, value unwrap). A slot starts empty and is resolved
// through the Matcher at most once: either to a callable or to a recorded
// "not found". Slots are never invalidated because declarations at the
// program root are immutable once execution begins.

// Operation identifies a type-generic operation.
type Operation uint8

const (
	OpCreate  Operation = iota // dest ::= source
	OpCopy                     // dest := source
	OpDestroy                  // destroy(obj)
	OpOrdinal                  // ord(obj)
	OpMember                   // elem in set
	OpValue                    // T value(obj)

	numOperations
)

var operationNames = [numOperations]string{
	OpCreate:  "create",
	OpCopy:    "copy",
	OpDestroy: "destroy",
	OpOrdinal: "ord",
	OpMember:  "in",
	OpValue:   "value",
}

func (op Operation) String() string {
	if op < numOperations {
		return operationNames[op]
	}
	return "unknown"
}

// SlotState represents the resolution state of one dispatch slot.
type SlotState uint8

const (
	SlotEmpty    SlotState = iota // not looked up yet
	SlotResolved                  // callable cached
	SlotMissing                   // looked up, nothing declared
)

// DispatchSlot holds a single cached resolution. Arg is the argument type
// the callable was resolved for, for operations that take one.
type DispatchSlot struct {
	State    SlotState
	Callable *Object
	Arg      *Type

	// Statistics for profiling and tests
	Lookups uint64
	Hits    uint64
}

// DispatchCache holds the per-operation slots of one type.
type DispatchCache struct {
	slots [numOperations]DispatchSlot
}

// ResolveOnce returns the cached callable for op, calling lookup the first
// time only. A nil result from lookup is cached as "not found".
func (c *DispatchCache) ResolveOnce(op Operation, lookup func() *Object) *Object {
	slot := &c.slots[op]
	switch slot.State {
	case SlotResolved:
		slot.Hits++
		return slot.Callable
	case SlotMissing:
		slot.Hits++
		return nil
	}

	slot.Lookups++
	callable := lookup()
	if callable == nil {
		slot.State = SlotMissing
		return nil
	}
	slot.State = SlotResolved
	slot.Callable = callable
	return callable
}

// ResolveFor is ResolveOnce for operations whose callable also depends on
// the type of an argument. The slot remembers the first argument type; a
// different argument type is looked up on every call and leaves the slot
// as it is.
func (c *DispatchCache) ResolveFor(op Operation, arg *Type, lookup func() *Object) *Object {
	slot := &c.slots[op]
	if slot.State != SlotEmpty && slot.Arg != nil && slot.Arg != arg {
		return lookup()
	}
	callable := c.ResolveOnce(op, lookup)
	slot.Arg = arg
	return callable
}

// Slot returns a copy of the slot for op.
func (c *DispatchCache) Slot(op Operation) DispatchSlot {
	return c.slots[op]
}

// Store records a callable for op unless the slot is already resolved.
// Loaders use it to seed slots from a program artifact.
func (c *DispatchCache) Store(op Operation, callable *Object) {
	slot := &c.slots[op]
	if slot.State != SlotEmpty {
		return
	}
	if callable == nil {
		slot.State = SlotMissing
		return
	}
	slot.State = SlotResolved
	slot.Callable = callable
}

// Lookups returns the total number of resolutions performed for all slots.
func (c *DispatchCache) Lookups() uint64 {
	var n uint64
	for i := range c.slots {
		n += c.slots[i].Lookups
	}
	return n
}

func (c *DispatchCache) reset() {
	c.slots = [numOperations]DispatchSlot{}
}
