package vm

import "errors"

// ---------------------------------------------------------------------------
// Matcher: resolves call shapes against declared signatures
// ---------------------------------------------------------------------------

// Matcher resolves unresolved expressions into calls. Candidates are taken
// from the starting scope outward; within a scope they are tried in
// declaration order and the first full match wins. A strict pass is
// followed by a relaxed pass that ignores variable access rights, so that
// "constant passed where a variable is required" can be told apart from
// "nothing matches".
type Matcher struct {
	prog     *Program
	memo     map[matchKey]*Object
	symCalls map[*Object]*Object

	// Trace reports whether successful matches are logged. An interpreter
	// sets it from its trace letters.
	Trace func() bool
}

// symbolCall returns the memoized one-element shape used to resolve an
// identifier as a parameterless call.
func (m *Matcher) symbolCall(sym *Object) *Object {
	if m.symCalls == nil {
		m.symCalls = make(map[*Object]*Object)
	}
	if e, ok := m.symCalls[sym]; ok {
		return e
	}
	e := NewExpr(sym)
	m.symCalls[sym] = e
	return e
}

type matchKey struct {
	expr  *Object
	scope *Scope
}

// NewMatcher creates a matcher for p.
func NewMatcher(p *Program) *Matcher {
	return &Matcher{prog: p, memo: make(map[matchKey]*Object)}
}

// Match resolves expr in scope (the declaration root when scope is nil).
// Failures are reported as analysis errors and counted on the program;
// Match never aborts.
func (m *Matcher) Match(expr *Object, scope *Scope) (*Object, error) {
	result, err := m.Resolve(expr, scope)
	if err != nil {
		m.prog.ErrorCount++
		matchLog.Errorf("%s", err)
	}
	return result, err
}

// Resolve is Match without error reporting. The dispatcher uses it to look
// for optional operations.
func (m *Matcher) Resolve(expr *Object, scope *Scope) (*Object, error) {
	if scope == nil {
		scope = m.prog.Root
	}
	if expr.Category() != CategoryExpr {
		return expr, nil
	}

	key := matchKey{expr: expr, scope: scope}
	if r, ok := m.memo[key]; ok {
		return r, nil
	}

	elems := expr.Items()
	var (
		result *Object
		err    error
	)
	switch {
	case len(elems) == 0:
		err = ErrNoMatch
	case len(elems) == 1 && elems[0].Category() == CategoryExpr:
		result, err = m.Resolve(elems[0], scope)
	default:
		result, err = m.resolve(expr, elems, scope)
	}
	if err != nil {
		var me *MatchError
		if !errors.As(err, &me) {
			err = &MatchError{Expr: expr, Err: err}
		}
		return nil, err
	}
	m.memo[key] = result
	return result, nil
}

// Forget drops the memoized resolutions made in scope. Runtime frames are
// forgotten when they close.
func (m *Matcher) Forget(scope *Scope) {
	for key := range m.memo {
		if key.scope == scope {
			delete(m.memo, key)
		}
	}
}

// ResolveShape resolves a call shape built at run time. The result is not
// memoized, so every call re-resolves.
func (m *Matcher) ResolveShape(elems List, scope *Scope) (*Object, error) {
	if scope == nil {
		scope = m.prog.Root
	}
	expr := NewExpr(elems...)
	r, err := m.resolve(expr, elems, scope)
	if err != nil {
		return nil, &MatchError{Expr: expr, Err: err}
	}
	return r, nil
}

func (m *Matcher) resolve(expr *Object, elems List, scope *Scope) (*Object, error) {
	att := newAttempt(m, elems, scope)
	for _, relaxed := range []bool{false, true} {
		for sc := scope; sc != nil; sc = sc.Parent {
			for _, sig := range sc.Candidates(len(elems)) {
				args, ok := m.tryMatch(sig, att, relaxed)
				if !ok {
					continue
				}
				if relaxed {
					return nil, ErrAccessRight
				}
				call := m.buildCall(expr, sig, args)
				if m.Trace != nil && m.Trace() {
					matchLog.Debugf("matched %s -> %s", expr, sig)
				}
				return call, nil
			}
		}
	}
	return nil, ErrNoMatch
}

// tryMatch checks one candidate element by element and returns the bound
// arguments with syntax symbols removed.
func (m *Matcher) tryMatch(sig *Signature, att *attempt, relaxed bool) (List, bool) {
	// syntax markers first, they are cheap and reject most candidates
	for i, pe := range sig.Pattern {
		if pe.Kind == ParamSymbol && !att.elems[i].IsSymbol(pe.Symbol) {
			return nil, false
		}
	}

	args := make(List, 0, sig.formalCount())
	for i, pe := range sig.Pattern {
		switch pe.Kind {
		case ParamSymbol:
			continue
		case ParamExpr:
			args = append(args, att.elems[i])
			continue
		}

		actual := att.operand(i)
		if actual == nil {
			return nil, false
		}
		// an object without a value can only be handed to a plain ref
		// parameter, which is how create operations receive it
		if actual.Category() == CategoryDeclared && (pe.Kind != ParamRef || pe.In) {
			return nil, false
		}

		switch pe.Kind {
		case ParamAttr:
			tv, ok := actual.Value().(TypeValue)
			if !ok || !tv.T.IsSubtypeOf(pe.Type) {
				return nil, false
			}
			args = append(args, actual)

		case ParamValue, ParamRef, ParamVar:
			bound, ok := bindOperand(pe, actual)
			if !ok {
				return nil, false
			}
			if pe.Kind == ParamVar && !relaxed && !actual.IsVar() {
				return nil, false
			}
			args = append(args, bound)
		}
	}
	return args, true
}

// bindOperand checks an operand against a value, ref or var formal. A
// formal of function type is lazy: a call actual is bound as a deferred
// match node that the callee evaluates on demand.
func bindOperand(pe PatternElem, actual *Object) (*Object, bool) {
	at := actual.Type
	if pe.Type.IsFunc() {
		if at.IsSubtypeOf(pe.Type) {
			return actual, true
		}
		if !at.IsSubtypeOf(pe.Type.Result) {
			return nil, false
		}
		if c := actual.Call(); c != nil && c.Category() == CategoryCall {
			deferred := NewObject(actual.Type, NewCallValue(CategoryMatch, c.Head, c.Args))
			deferred.Pos = actual.Pos
			deferred.flags = actual.flags & (FlagPosInfo | FlagVar)
			return deferred, true
		}
		return actual, true
	}
	if !at.IsSubtypeOf(pe.Type) {
		return nil, false
	}
	return actual, true
}

// buildCall creates the resolved call. Forward-declared heads that have
// been defined are replaced by their definition.
func (m *Matcher) buildCall(expr *Object, sig *Signature, args List) *Object {
	head := sig.Callable
	if head != nil && head.Category() == CategoryFwdRef && head.Target() != nil {
		head = head.Target()
	}
	t := sig.Result
	call := NewObject(t, NewCallValue(CategoryCall, head, args))
	if t != nil && t.VarFunc {
		call.Type = t.Result
		call.SetVar(true)
	}
	if expr.HasPos() {
		call.SetPos(expr.Pos)
	}
	return call
}

// ---------------------------------------------------------------------------
// attempt: per-expression operand resolution shared by all candidates
// ---------------------------------------------------------------------------

type attempt struct {
	m        *Matcher
	scope    *Scope
	elems    List
	operands []*Object
	done     []bool
}

func newAttempt(m *Matcher, elems List, scope *Scope) *attempt {
	return &attempt{
		m:        m,
		scope:    scope,
		elems:    elems,
		operands: make([]*Object, len(elems)),
		done:     make([]bool, len(elems)),
	}
}

// operand returns element i resolved as a value: nested expressions are
// matched bottom-up, identifiers are looked up by name or matched as
// parameterless calls. The result is computed once per element.
func (a *attempt) operand(i int) *Object {
	if a.done[i] {
		return a.operands[i]
	}
	a.done[i] = true

	elem := a.elems[i]
	switch elem.Category() {
	case CategoryExpr:
		if r, err := a.m.Resolve(elem, a.scope); err == nil {
			a.operands[i] = r
		}
	case CategorySymbol:
		if e := a.scope.Lookup(elem.SymbolName()); e != nil && e.Object != nil {
			a.operands[i] = e.Object
		} else if len(a.elems) > 1 {
			if r, err := a.m.Resolve(a.m.symbolCall(elem), a.scope); err == nil {
				a.operands[i] = r
			}
		}
	default:
		a.operands[i] = elem
	}
	return a.operands[i]
}
