package vm

import (
	"sort"
	"sync"
)

// ActionFunc is the native implementation of an action. It receives the
// interpreter as explicit context and the evaluated arguments. It returns
// the result object, or nil after raising through the failure channel.
type ActionFunc func(in *Interpreter, args List) *Object

// Action is a native primitive.
type Action struct {
	Name string
	Fn   ActionFunc
}

func (*Action) Category() Category { return CategoryAction }
func (*Action) isValue()           {}

// NewActionObject wraps an action in an object whose type is the result
// type of calls to it.
func NewActionObject(act *Action, result *Type) *Object {
	return &Object{Type: result, value: act}
}

// ActionOf returns the action carried by obj, or nil.
func ActionOf(obj *Object) *Action {
	if a, ok := obj.Value().(*Action); ok {
		return a
	}
	return nil
}

// ---------------------------------------------------------------------------
// ActionTable: registry of native primitives by name
// ---------------------------------------------------------------------------

// ActionTable maps action names to their implementations. Program
// artifacts refer to actions by name.
type ActionTable struct {
	mu      sync.RWMutex
	actions map[string]*Action
}

// NewActionTable creates an empty action table.
func NewActionTable() *ActionTable {
	return &ActionTable{actions: make(map[string]*Action)}
}

// Register adds an action. Returns the previous action with this name, or nil.
func (t *ActionTable) Register(name string, fn ActionFunc) *Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.actions[name]
	t.actions[name] = &Action{Name: name, Fn: fn}
	return old
}

// Lookup finds an action by name.
func (t *ActionTable) Lookup(name string) *Action {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.actions[name]
}

// Names returns the registered action names in sorted order.
func (t *ActionTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.actions))
	for n := range t.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Primitives returns a table holding the built-in primitive library.
func Primitives() *ActionTable {
	t := NewActionTable()
	registerGenericPrimitives(t)
	registerIntegerPrimitives(t)
	registerCharacterPrimitives(t)
	registerFloatPrimitives(t)
	registerBooleanPrimitives(t)
	registerEnumPrimitives(t)
	registerStringPrimitives(t)
	registerArrayPrimitives(t)
	registerStructPrimitives(t)
	registerSetPrimitives(t)
	registerControlPrimitives(t)
	registerDeclarationPrimitives(t)
	registerProgramPrimitives(t)
	registerFilePrimitives(t)
	registerSocketPrimitives(t)
	registerDatabasePrimitives(t)
	return t
}
