package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Vanilla vec layout.
const (
	VecCapacityOffset = heap.OffsetAux
	VecDataOffset     = heap.HeaderSize
	VecElemSize       = 16
)

// NewVec allocates an empty vec with room for capacity elements.
func NewVec(h *heap.Heap, capacity uint32) uint32 {
	arr := h.MustAlloc(VecDataOffset + capacity*VecElemSize)
	h.InitHeader(arr, value.ArrayVec, false, 0, 0)
	h.SetAux(arr, capacity)
	return arr
}

// VecFromValues builds a vec holding tvs. References are moved in.
func VecFromValues(h *heap.Heap, tvs ...value.TypedValue) uint32 {
	arr := NewVec(h, uint32(len(tvs)))
	for i, tv := range tvs {
		h.StoreTV(vecSlot(arr, uint32(i)), tv)
	}
	h.SetSize(arr, uint32(len(tvs)))
	return arr
}

func vecCapacity(h *heap.Heap, arr uint32) uint32 {
	return h.Load32(arr + VecCapacityOffset)
}

func vecSlot(arr, i uint32) uint32 {
	return arr + VecDataOffset + i*VecElemSize
}

func vecBytes(capacity uint32) uint32 {
	return VecDataOffset + capacity*VecElemSize
}

func growCapacity(capacity, need uint32) uint32 {
	return max(need, capacity*2, 4)
}

// vecMutable returns an unshared vec with room for need elements, copying or
// reallocating arr as required.
func vecMutable(env *layout.Env, arr, need uint32) uint32 {
	h := env.Heap
	size := h.Size(arr)
	capacity := vecCapacity(h, arr)
	if h.HasMultipleRefs(arr) {
		out := NewVec(h, max(need, capacity))
		h.Move(out+VecDataOffset, arr+VecDataOffset, size*VecElemSize)
		h.SetSize(out, size)
		for i := range size {
			h.IncRefTV(h.LoadTV(vecSlot(out, i)))
		}
		h.DecRef(arr)
		return out
	}
	if need <= capacity {
		return arr
	}
	out := NewVec(h, growCapacity(capacity, need))
	h.Move(out+VecDataOffset, arr+VecDataOffset, size*VecElemSize)
	h.SetSize(out, size)
	h.Free(arr, vecBytes(capacity), heap.Alignment)
	return out
}

// VecCopy returns an unshared copy of arr.
func VecCopy(env *layout.Env, arr uint32) uint32 {
	h := env.Heap
	size := h.Size(arr)
	out := NewVec(h, vecCapacity(h, arr))
	h.Move(out+VecDataOffset, arr+VecDataOffset, size*VecElemSize)
	h.SetSize(out, size)
	for i := range size {
		h.IncRefTV(h.LoadTV(vecSlot(out, i)))
	}
	return out
}

// VecDestroy releases every element and frees arr.
func VecDestroy(env *layout.Env, arr uint32) error {
	h := env.Heap
	for i := range h.Size(arr) {
		if err := ReleaseTV(env, h.LoadTV(vecSlot(arr, i))); err != nil {
			return err
		}
	}
	h.Free(arr, vecBytes(vecCapacity(h, arr)), heap.Alignment)
	return nil
}

func VecGet(h *heap.Heap, arr uint32, idx int64) (value.TypedValue, bool) {
	if idx < 0 || idx >= int64(h.Size(arr)) {
		return value.Uninit(), false
	}
	return h.LoadTV(vecSlot(arr, uint32(idx))), true
}

// VecSet overwrites an existing element. Vecs do not grow on Set.
func VecSet(env *layout.Env, arr uint32, idx int64, tv value.TypedValue) (uint32, error) {
	h := env.Heap
	size := h.Size(arr)
	if idx < 0 || idx >= int64(size) {
		return arr, VecOutOfBounds(idx, size)
	}
	arr = vecMutable(env, arr, size)
	slot := vecSlot(arr, uint32(idx))
	old := h.LoadTV(slot)
	h.StoreTV(slot, tv)
	return arr, ReleaseTV(env, old)
}

func VecAppend(env *layout.Env, arr uint32, tv value.TypedValue) uint32 {
	h := env.Heap
	size := h.Size(arr)
	arr = vecMutable(env, arr, size+1)
	h.StoreTV(vecSlot(arr, size), tv)
	h.SetSize(arr, size+1)
	return arr
}

// VecRemove removes the last element. Removing a missing index is a no-op;
// removing any other element is an error.
func VecRemove(env *layout.Env, arr uint32, idx int64) (uint32, error) {
	h := env.Heap
	size := h.Size(arr)
	if idx < 0 || idx >= int64(size) {
		return arr, nil
	}
	if idx != int64(size)-1 {
		return arr, VecRemoveUnsupported(idx, size)
	}
	arr = vecMutable(env, arr, size)
	old := h.LoadTV(vecSlot(arr, uint32(idx)))
	h.SetSize(arr, size-1)
	return arr, ReleaseTV(env, old)
}

// VecOutOfBounds is the error every vec layout returns for a Set past the end.
func VecOutOfBounds(idx int64, size uint32) error {
	return errors.OutOfBounds(errors.PhaseRuntime, []string{"vec"}, int(idx), int(size))
}

// VecRemoveUnsupported is the error every vec layout returns for removing
// an element other than the last.
func VecRemoveUnsupported(idx int64, size uint32) error {
	return errors.New(errors.PhaseRuntime, errors.KindUnsupported).
		Op(layout.OpRemove.String()).
		Detail("vecs only support removing the last element (index %d of %d)", idx, size).
		Build()
}

// VecElem returns the value and type addresses of element idx after making
// arr writable. A missing element yields zero addresses, or an error when
// throwOnMissing is set.
func VecElem(env *layout.Env, arr uint32, idx int64, throwOnMissing bool) (uint32, uint32, uint32, error) {
	h := env.Heap
	size := h.Size(arr)
	if idx < 0 || idx >= int64(size) {
		if throwOnMissing {
			return arr, 0, 0, errors.MissingKey(layout.OpElem.String(), idx)
		}
		return arr, 0, 0, nil
	}
	arr = vecMutable(env, arr, size)
	slot := vecSlot(arr, uint32(idx))
	return arr, slot, slot + 8, nil
}

func vecIterLast(h *heap.Heap, arr uint32) uint32 {
	size := h.Size(arr)
	if size == 0 {
		return 0
	}
	return size - 1
}

func vecIterAdvance(h *heap.Heap, arr, pos uint32) uint32 {
	return min(pos+1, h.Size(arr))
}
