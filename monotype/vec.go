package monotype

import (
	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

func vecBytes(capacity uint32) uint32 {
	return VecValuesOffset + capacity*VecElemSize
}

func vecCapacity(h *heap.Heap, arr uint32) uint32 {
	return uint32(h.Load16(arr + VecCapacityOffset))
}

func vecAddr(arr, pos uint32) uint32 {
	return VecValues.Offset(Dynamic(pos), 0).At(arr)
}

func allocVec(h *heap.Heap, tag value.DataType, capacity uint32) uint32 {
	arr := h.MustAlloc(vecBytes(capacity))
	h.InitHeader(arr, value.ArrayVec, true, uint16(layout.MonotypeVecIndex), 0)
	h.Store8(arr+TypeOffset, uint8(tag))
	h.Store16(arr+VecCapacityOffset, uint16(capacity))
	return arr
}

// NewVec allocates an empty MonotypeVec. The first appended value fixes the
// value kind.
func (l *Layouts) NewVec(h *heap.Heap, capacity uint32) uint32 {
	return allocVec(h, value.KindOfUninit, min(capacity, l.maxCapacity))
}

// VecFromValues builds a MonotypeVec from values that share one kind.
// References are moved in.
func (l *Layouts) VecFromValues(h *heap.Heap, tvs ...value.TypedValue) (uint32, error) {
	if uint32(len(tvs)) > l.maxCapacity {
		return 0, errors.New(errors.PhaseRuntime, errors.KindOverflow).
			Detail("%d values exceed monotype capacity %d", len(tvs), l.maxCapacity).
			Build()
	}
	tag := value.KindOfUninit
	for i, tv := range tvs {
		if i == 0 {
			tag = tv.Type
		} else if tv.Type != tag {
			return 0, errors.InvalidInput(errors.PhaseRuntime, "monotype values must share one kind")
		}
	}
	arr := allocVec(h, tag, uint32(len(tvs)))
	for i, tv := range tvs {
		h.Store64(vecAddr(arr, uint32(i)), tv.Data)
	}
	h.SetSize(arr, uint32(len(tvs)))
	return arr, nil
}

// vecMutable returns an unshared vec with room for need values. It reports
// false when need exceeds the capacity limit.
func (l *Layouts) vecMutable(env *layout.Env, arr, need uint32) (uint32, bool) {
	h := env.Heap
	if need > l.maxCapacity {
		return arr, false
	}
	size := h.Size(arr)
	capacity := vecCapacity(h, arr)
	shared := h.HasMultipleRefs(arr)
	if !shared && need <= capacity {
		return arr, true
	}

	newCap := capacity
	if need > capacity {
		newCap = min(max(need, capacity*2, 4), l.maxCapacity)
	}
	out := allocVec(h, LoadValueKind(h, arr), newCap)
	h.Move(out+VecValuesOffset, arr+VecValuesOffset, size*VecElemSize)
	h.SetSize(out, size)
	if shared {
		if LoadValueKind(h, arr).IsArray() {
			for i := range size {
				h.IncRef(uint32(h.Load64(vecAddr(out, i))))
			}
		}
		h.DecRef(arr)
	} else {
		h.Free(arr, vecBytes(capacity), heap.Alignment)
	}
	return out, true
}

func (l *Layouts) vecDestroy(env *layout.Env, arr uint32) error {
	h := env.Heap
	if tag := LoadValueKind(h, arr); tag.IsArray() {
		for i := range h.Size(arr) {
			if err := arrays.Release(env, uint32(h.Load64(vecAddr(arr, i)))); err != nil {
				return err
			}
		}
	}
	h.Free(arr, vecBytes(vecCapacity(h, arr)), heap.Alignment)
	return nil
}

func (l *Layouts) vecCopy(env *layout.Env, arr uint32) (uint32, error) {
	h := env.Heap
	size := h.Size(arr)
	out := allocVec(h, LoadValueKind(h, arr), vecCapacity(h, arr))
	h.Move(out+VecValuesOffset, arr+VecValuesOffset, size*VecElemSize)
	h.SetSize(out, size)
	if LoadValueKind(h, arr).IsArray() {
		for i := range size {
			h.IncRef(uint32(h.Load64(vecAddr(out, i))))
		}
	}
	return out, nil
}

func (l *Layouts) vecGet(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
	h := env.Heap
	if key.Type != value.KindOfInt64 || key.Int() < 0 || key.Int() >= int64(h.Size(arr)) {
		return value.Uninit(), false, nil
	}
	return LoadVecElem(h, arr, Dynamic(uint32(key.Int()))), true, nil
}

func (l *Layouts) vecSet(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	h := env.Heap
	if key.Type != value.KindOfInt64 {
		out, err := arrays.Escalate(env, arr, ReasonKeyKind)
		if err != nil {
			return out, err
		}
		return arrays.Set(env, out, key, tv)
	}
	size := h.Size(arr)
	idx := key.Int()
	if idx < 0 || idx >= int64(size) {
		return arr, arrays.VecOutOfBounds(idx, size)
	}
	if tv.Type != LoadValueKind(h, arr) {
		out, err := arrays.Escalate(env, arr, ReasonValueKind)
		if err != nil {
			return out, err
		}
		return arrays.Set(env, out, key, tv)
	}
	arr, _ = l.vecMutable(env, arr, size)
	addr := vecAddr(arr, uint32(idx))
	old := value.TypedValue{Data: h.Load64(addr), Type: tv.Type}
	h.Store64(addr, tv.Data)
	return arr, arrays.ReleaseTV(env, old)
}

func (l *Layouts) vecAppend(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	h := env.Heap
	size := h.Size(arr)
	if size > 0 && tv.Type != LoadValueKind(h, arr) {
		out, err := arrays.Escalate(env, arr, ReasonValueKind)
		if err != nil {
			return out, err
		}
		return arrays.Append(env, out, tv)
	}
	out, ok := l.vecMutable(env, arr, size+1)
	if !ok {
		out, err := arrays.Escalate(env, arr, ReasonCapacity)
		if err != nil {
			return out, err
		}
		return arrays.Append(env, out, tv)
	}
	if size == 0 {
		h.Store8(out+TypeOffset, uint8(tv.Type))
	}
	h.Store64(vecAddr(out, size), tv.Data)
	h.SetSize(out, size+1)
	return out, nil
}

func (l *Layouts) vecRemove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	h := env.Heap
	size := h.Size(arr)
	if key.Type != value.KindOfInt64 || key.Int() < 0 || key.Int() >= int64(size) {
		return arr, nil
	}
	idx := key.Int()
	if idx != int64(size)-1 {
		return arr, arrays.VecRemoveUnsupported(idx, size)
	}
	arr, _ = l.vecMutable(env, arr, size)
	old := LoadVecElem(h, arr, Dynamic(uint32(idx)))
	h.SetSize(arr, size-1)
	return arr, arrays.ReleaseTV(env, old)
}

// vecElem hands out addresses only after escalating, since writes through
// a type address cannot change a single element's kind in place.
func (l *Layouts) vecElem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	if _, found, _ := l.vecGet(env, arr, key); !found {
		if throwOnMissing {
			return arr, 0, 0, errors.MissingKey(layout.OpElem.String(), arrays.KeyString(env, key))
		}
		return arr, 0, 0, nil
	}
	out, err := arrays.Escalate(env, arr, ReasonElem)
	if err != nil {
		return out, 0, 0, err
	}
	return arrays.Elem(env, out, key, throwOnMissing)
}

func (l *Layouts) vecIterLast(env *layout.Env, arr uint32) (uint32, error) {
	size := env.Heap.Size(arr)
	if size == 0 {
		return 0, nil
	}
	return size - 1, nil
}

func (l *Layouts) vecIterEnd(env *layout.Env, arr uint32) (uint32, error) {
	return env.Heap.Size(arr), nil
}

func (l *Layouts) vecIterAdvance(env *layout.Env, arr, pos uint32) (uint32, error) {
	return min(pos+1, env.Heap.Size(arr)), nil
}

func (l *Layouts) vecGetPosVal(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	return LoadVecElem(env.Heap, arr, Dynamic(pos)), nil
}

// vecEscalate converts arr to a vanilla vec, consuming the reference.
func (l *Layouts) vecEscalate(env *layout.Env, arr uint32, _ string) (uint32, error) {
	h := env.Heap
	size := h.Size(arr)
	out := arrays.NewVec(h, size)
	for i := range size {
		tv := LoadVecElem(h, arr, Dynamic(i))
		h.IncRefTV(tv)
		out = arrays.VecAppend(env, out, tv)
	}
	return out, arrays.Release(env, arr)
}
