package vm

import (
	"testing"
)

func TestDispatchCacheResolvesOnce(t *testing.T) {
	var c DispatchCache
	callable := NewSymbol("create")
	calls := 0
	lookup := func() *Object {
		calls++
		return callable
	}

	for i := 0; i < 3; i++ {
		if got := c.ResolveOnce(OpCreate, lookup); got != callable {
			t.Fatalf("ResolveOnce #%d = %v, want the looked up callable", i, got)
		}
	}
	if calls != 1 {
		t.Errorf("lookup ran %d times, want 1", calls)
	}
	slot := c.Slot(OpCreate)
	if slot.State != SlotResolved {
		t.Errorf("slot state = %d, want resolved", slot.State)
	}
	if slot.Lookups != 1 || slot.Hits != 2 {
		t.Errorf("lookups/hits = %d/%d, want 1/2", slot.Lookups, slot.Hits)
	}
}

func TestDispatchCacheRemembersMissing(t *testing.T) {
	var c DispatchCache
	calls := 0
	lookup := func() *Object {
		calls++
		return nil
	}

	if c.ResolveOnce(OpDestroy, lookup) != nil || c.ResolveOnce(OpDestroy, lookup) != nil {
		t.Fatal("missing operation should resolve to nil")
	}
	if calls != 1 {
		t.Errorf("lookup ran %d times, want 1", calls)
	}
	if c.Slot(OpDestroy).State != SlotMissing {
		t.Error("slot should record the operation as missing")
	}
}

func TestDispatchCacheSlotsAreIndependent(t *testing.T) {
	var c DispatchCache
	create, cpy := NewSymbol("create"), NewSymbol("copy")
	c.ResolveOnce(OpCreate, func() *Object { return create })
	c.ResolveOnce(OpCopy, func() *Object { return cpy })

	if c.Slot(OpCreate).Callable != create || c.Slot(OpCopy).Callable != cpy {
		t.Error("slots should hold their own callables")
	}
	if c.Slot(OpOrdinal).State != SlotEmpty {
		t.Error("untouched slots stay empty")
	}
	if c.Lookups() != 2 {
		t.Errorf("Lookups() = %d, want 2", c.Lookups())
	}
}

func TestDispatchCacheStore(t *testing.T) {
	var c DispatchCache
	first, second := NewSymbol("first"), NewSymbol("second")

	c.Store(OpCreate, first)
	c.Store(OpCreate, second)
	if c.Slot(OpCreate).Callable != first {
		t.Error("Store should not overwrite a resolved slot")
	}

	c.Store(OpValue, nil)
	if c.Slot(OpValue).State != SlotMissing {
		t.Error("storing nil should record the operation as missing")
	}
	if got := c.ResolveOnce(OpCreate, func() *Object { t.Fatal("lookup after Store"); return nil }); got != first {
		t.Error("ResolveOnce should use the stored callable")
	}

	c.reset()
	if c.Slot(OpCreate).State != SlotEmpty || c.Lookups() != 0 {
		t.Error("reset should empty every slot")
	}
}

func TestOperationNames(t *testing.T) {
	for op := Operation(0); op < numOperations; op++ {
		if op.String() == "unknown" {
			t.Errorf("operation %d has no name", op)
		}
	}
	if Operation(99).String() != "unknown" {
		t.Error("out of range operations are unknown")
	}
}
