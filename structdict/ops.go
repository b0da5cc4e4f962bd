package structdict

import (
	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Escalation reasons.
const (
	ReasonTypeBound     = "struct type bound"
	ReasonUnknownKey    = "struct unknown key"
	ReasonIntKey        = "struct int key"
	ReasonAppend        = "struct append"
	ReasonRequiredField = "struct required field removed"
	ReasonElem          = "struct elem on bounded field"
)

// ops implements the struct dict vtable. Slot lookups go through a probe
// plan, the same path generated code takes for a non-constant key.
type ops struct {
	u *Universe
}

func (u *Universe) vtable(name string) *layout.VTable {
	o := ops{u: u}
	return arrays.Impl{
		Destroy:     o.destroy,
		Copy:        o.copy,
		Get:         o.get,
		Set:         o.set,
		Remove:      o.remove,
		Append:      o.append,
		IterBegin:   func(*layout.Env, uint32) (uint32, error) { return 0, nil },
		IterLast:    o.iterLast,
		IterEnd:     func(env *layout.Env, arr uint32) (uint32, error) { return env.Heap.Size(arr), nil },
		IterAdvance: o.iterAdvance,
		GetPosKey:   o.getPosKey,
		GetPosVal:   o.getPosVal,
		Elem:        o.elem,
		Escalate:    o.escalate,
		Keys:        []layout.KeyKind{layout.KeyInt, layout.KeyStr},
	}.VTable(name)
}

func (o ops) slot(env *layout.Env, l *Layout, arr uint32, key value.TypedValue) Slot {
	if key.Type != value.KindOfString {
		return InvalidSlot
	}
	plan := o.u.Plan(Concrete(l), KeyInfo{})
	slot := plan.Exec(env, arr, key.StringID())
	if !slot.Valid() {
		return InvalidSlot
	}
	if value.DataType(env.Heap.Load8(arr+l.TypeOffset(slot))) == value.KindOfUninit {
		return InvalidSlot
	}
	return slot
}

func (o ops) destroy(env *layout.Env, arr uint32) error {
	l, err := layoutOf(env, arr)
	if err != nil {
		return err
	}
	h := env.Heap
	for _, f := range l.fields {
		if err := arrays.ReleaseTV(env, loadSlot(h, l, arr, f.Slot)); err != nil {
			return err
		}
	}
	h.Free(arr, l.Bytes(), heap.Alignment)
	return nil
}

func (o ops) copy(env *layout.Env, arr uint32) (uint32, error) {
	l, err := layoutOf(env, arr)
	if err != nil {
		return arr, err
	}
	return clone(env.Heap, l, arr), nil
}

func (o ops) get(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
	l, err := layoutOf(env, arr)
	if err != nil {
		return value.Uninit(), false, err
	}
	slot := o.slot(env, l, arr, key)
	if !slot.Valid() {
		return value.Uninit(), false, nil
	}
	return loadSlot(env.Heap, l, arr, slot), true, nil
}

func (o ops) escalateThen(env *layout.Env, arr uint32, reason string, then func(uint32) (uint32, error)) (uint32, error) {
	out, err := arrays.Escalate(env, arr, reason)
	if err != nil {
		return out, err
	}
	return then(out)
}

func (o ops) set(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	l, err := layoutOf(env, arr)
	if err != nil {
		return arr, err
	}
	if _, err := arrays.KeyKindOf(key); err != nil {
		return arr, err
	}
	then := func(out uint32) (uint32, error) { return arrays.Set(env, out, key, tv) }
	if key.Type != value.KindOfString {
		return o.escalateThen(env, arr, ReasonIntKey, then)
	}
	plan := o.u.Plan(Concrete(l), KeyInfo{})
	slot := plan.Exec(env, arr, key.StringID())
	if !slot.Valid() {
		return o.escalateThen(env, arr, ReasonUnknownKey, then)
	}
	return SetStrInSlot(env, l, arr, slot, key, tv)
}

func (o ops) remove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	l, err := layoutOf(env, arr)
	if err != nil {
		return arr, err
	}
	slot := o.slot(env, l, arr, key)
	if !slot.Valid() {
		return arr, nil
	}
	return RemoveStrInSlot(env, l, arr, slot)
}

func (o ops) append(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	return o.escalateThen(env, arr, ReasonAppend, func(out uint32) (uint32, error) {
		return arrays.Append(env, out, tv)
	})
}

func (o ops) elem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	l, err := layoutOf(env, arr)
	if err != nil {
		return arr, 0, 0, err
	}
	slot := o.slot(env, l, arr, key)
	if !slot.Valid() {
		if throwOnMissing {
			return arr, 0, 0, errors.MissingKey(layout.OpElem.String(), arrays.KeyString(env, key))
		}
		return arr, 0, 0, nil
	}
	// Stores through the type address skip the bound check.
	if l.TypeBound(slot) != value.MaskAny {
		out, err := arrays.Escalate(env, arr, ReasonElem)
		if err != nil {
			return out, 0, 0, err
		}
		return arrays.Elem(env, out, key, throwOnMissing)
	}
	arr = writable(env, l, arr)
	valAddr, typeAddr := ElemAddr(env.Heap, l, arr, slot)
	return arr, valAddr, typeAddr, nil
}

func (o ops) iterLast(env *layout.Env, arr uint32) (uint32, error) {
	size := env.Heap.Size(arr)
	if size == 0 {
		return 0, nil
	}
	return size - 1, nil
}

func (o ops) iterAdvance(env *layout.Env, arr, pos uint32) (uint32, error) {
	return min(pos+1, env.Heap.Size(arr)), nil
}

// occupied returns the slot stored at pos, which must be below the size.
func occupied(env *layout.Env, arr, pos uint32) (*Layout, Slot, error) {
	l, err := layoutOf(env, arr)
	if err != nil {
		return nil, InvalidSlot, err
	}
	if size := env.Heap.Size(arr); pos >= size {
		return l, InvalidSlot, errors.OutOfBounds(errors.PhaseRuntime, []string{l.Name()}, int(pos), int(size))
	}
	slot := positionSlot(env.Heap, l, arr, pos)
	if int(slot) >= len(l.fields) {
		return l, InvalidSlot, errors.InvalidSlot(errors.PhaseStorage, l.Name(), uint32(slot), l.NumFields())
	}
	return l, slot, nil
}

func (o ops) getPosKey(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	l, slot, err := occupied(env, arr, pos)
	if err != nil {
		return value.Uninit(), err
	}
	return value.String(l.fields[slot].Name), nil
}

func (o ops) getPosVal(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	l, slot, err := occupied(env, arr, pos)
	if err != nil {
		return value.Uninit(), err
	}
	return loadSlot(env.Heap, l, arr, slot), nil
}

// escalate converts arr to a vanilla dict in iteration order, consuming
// the reference.
func (o ops) escalate(env *layout.Env, arr uint32, _ string) (uint32, error) {
	l, err := layoutOf(env, arr)
	if err != nil {
		return arr, err
	}
	h := env.Heap
	size := h.Size(arr)
	out := arrays.NewDict(h, size)
	for pos := range size {
		slot := positionSlot(h, l, arr, pos)
		val := loadSlot(h, l, arr, slot)
		h.IncRefTV(val)
		if out, err = arrays.DictSet(env, out, value.String(l.fields[slot].Name), val); err != nil {
			return out, err
		}
	}
	return out, arrays.Release(env, arr)
}
