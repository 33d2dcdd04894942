package vm

// ---------------------------------------------------------------------------
// Aggregate construction and destruction
// ---------------------------------------------------------------------------
//
// Aggregates are built element by element in forward order. If element k
// cannot be constructed, elements 0..k-1 are destroyed in reverse order and
// the destination keeps no value: construction is all-or-nothing.

// constructElems builds private copies of src. On failure the copies made
// so far are destroyed and the construct error is returned. Elements are
// always variables; whether they may be assigned is decided by the access
// right of the aggregate they are selected from.
func (in *Interpreter) constructElems(src []*Object) ([]*Object, error) {
	elems := make([]*Object, len(src))
	for i, e := range src {
		obj, err := in.createLocal(e.Type, true, e)
		if err != nil {
			in.destroyElems(elems[:i])
			return nil, err
		}
		elems[i] = obj
	}
	return elems, nil
}

// destroyElems destroys elements in reverse order with the failure
// channel saved, so a failing destructor does not stop the others.
func (in *Interpreter) destroyElems(elems []*Object) {
	snap := in.prog.Fail.Save()
	for i := len(elems) - 1; i >= 0; i-- {
		if elems[i] != nil {
			in.destroyLocal(elems[i])
		}
	}
	in.prog.Fail.Restore(snap)
}

// ConstructArray initialises dest as an element-wise copy of the array src.
func (in *Interpreter) ConstructArray(dest, src *Object) error {
	av, ok := src.Value().(*ArrayValue)
	if !ok {
		return &DispatchError{Kind: CreateError, Op: OpCreate, Type: dest.Type, Cause: "source is not an array"}
	}
	elems, err := in.constructElems(av.Elems)
	if err != nil {
		return err
	}
	dest.SetPayload(&ArrayValue{Min: av.Min, Elems: elems})
	return nil
}

// DestroyArray destroys the elements of an array in reverse order and
// leaves the array without a value.
func (in *Interpreter) DestroyArray(obj *Object) {
	if av, ok := obj.Value().(*ArrayValue); ok {
		in.destroyElems(av.Elems)
		obj.SetPayload(Declared())
	}
}

// CopyArray assigns src to the array dest. The new elements are built
// before the old ones are destroyed, so a failed copy leaves dest intact.
func (in *Interpreter) CopyArray(dest, src *Object) error {
	av, ok := src.Value().(*ArrayValue)
	if !ok {
		return &DispatchError{Kind: CopyError, Op: OpCopy, Type: dest.Type, Cause: "source is not an array"}
	}
	if dest == src {
		return nil
	}
	elems, err := in.constructElems(av.Elems)
	if err != nil {
		return &DispatchError{Kind: CopyError, Op: OpCopy, Type: dest.Type, Cause: err.Error()}
	}
	old, _ := dest.Value().(*ArrayValue)
	dest.SetPayload(&ArrayValue{Min: av.Min, Elems: elems})
	if old != nil {
		in.destroyElems(old.Elems)
	}
	return nil
}

// ConstructStruct initialises dest as an element-wise copy of the struct src.
func (in *Interpreter) ConstructStruct(dest, src *Object) error {
	sv, ok := src.Value().(*StructValue)
	if !ok {
		return &DispatchError{Kind: CreateError, Op: OpCreate, Type: dest.Type, Cause: "source is not a struct"}
	}
	elems, err := in.constructElems(sv.Elems)
	if err != nil {
		return err
	}
	dest.SetPayload(&StructValue{Elems: elems})
	return nil
}

// DestroyStruct destroys the elements of a struct in reverse order.
func (in *Interpreter) DestroyStruct(obj *Object) {
	if sv, ok := obj.Value().(*StructValue); ok {
		in.destroyElems(sv.Elems)
		obj.SetPayload(Declared())
	}
}

// CopyStruct assigns src to the struct dest.
func (in *Interpreter) CopyStruct(dest, src *Object) error {
	sv, ok := src.Value().(*StructValue)
	if !ok {
		return &DispatchError{Kind: CopyError, Op: OpCopy, Type: dest.Type, Cause: "source is not a struct"}
	}
	if dest == src {
		return nil
	}
	elems, err := in.constructElems(sv.Elems)
	if err != nil {
		return &DispatchError{Kind: CopyError, Op: OpCopy, Type: dest.Type, Cause: err.Error()}
	}
	old, _ := dest.Value().(*StructValue)
	dest.SetPayload(&StructValue{Elems: elems})
	if old != nil {
		in.destroyElems(old.Elems)
	}
	return nil
}

// DestroyHash destroys keys and data of a hash.
func (in *Interpreter) DestroyHash(obj *Object) {
	hv, ok := obj.Value().(*HashValue)
	if !ok {
		return
	}
	objs := make([]*Object, 0, 2*len(hv.Entries))
	for _, e := range hv.Entries {
		objs = append(objs, e.Key, e.Data)
	}
	in.destroyElems(objs)
	obj.SetPayload(Declared())
}
