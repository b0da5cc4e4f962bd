package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Vanilla keyset layout. Keysets share the dict's used word and key
// encoding but store no values.
const (
	KeysetCapacityOffset = heap.OffsetAux
	KeysetUsedOffset     = DictUsedOffset
	KeysetDataOffset     = DictDataOffset
	KeysetEntrySize      = 16
)

// NewKeyset allocates an empty keyset with room for capacity keys.
func NewKeyset(h *heap.Heap, capacity uint32) uint32 {
	arr := h.MustAlloc(keysetBytes(capacity))
	h.InitHeader(arr, value.ArrayKeyset, false, 0, 0)
	h.SetAux(arr, capacity)
	return arr
}

func keysetBytes(capacity uint32) uint32 {
	return KeysetDataOffset + capacity*KeysetEntrySize
}

func keysetEntry(arr, i uint32) uint32 {
	return arr + KeysetDataOffset + i*KeysetEntrySize
}

func keysetKey(h *heap.Heap, e uint32) value.TypedValue {
	return h.LoadTV(e)
}

func keysetFind(env *layout.Env, arr uint32, key value.TypedValue) (uint32, bool) {
	h := env.Heap
	for i := range dictUsed(h, arr) {
		e := keysetEntry(arr, i)
		k := keysetKey(h, e)
		if k.Type == value.KindOfUninit {
			continue
		}
		if sameKey(env, k.Data, k.Type, key) {
			return i, true
		}
	}
	return 0, false
}

func keysetCompactInto(h *heap.Heap, dst, src uint32) {
	n := uint32(0)
	for i := range dictUsed(h, src) {
		e := keysetEntry(src, i)
		if keysetKey(h, e).Type == value.KindOfUninit {
			continue
		}
		h.Move(keysetEntry(dst, n), e, KeysetEntrySize)
		n++
	}
	h.Store32(dst+KeysetUsedOffset, n)
	h.SetSize(dst, n)
}

func keysetMutable(env *layout.Env, arr, need uint32) uint32 {
	h := env.Heap
	capacity := h.Load32(arr + KeysetCapacityOffset)
	if h.HasMultipleRefs(arr) {
		out := NewKeyset(h, max(need, capacity))
		used := dictUsed(h, arr)
		h.Move(keysetEntry(out, 0), keysetEntry(arr, 0), used*KeysetEntrySize)
		h.Store32(out+KeysetUsedOffset, used)
		h.SetSize(out, h.Size(arr))
		h.DecRef(arr)
		return out
	}
	if need <= capacity {
		return arr
	}
	live := h.Size(arr)
	out := NewKeyset(h, growCapacity(live, live+need-dictUsed(h, arr)))
	keysetCompactInto(h, out, arr)
	h.Free(arr, keysetBytes(capacity), heap.Alignment)
	return out
}

// KeysetCopy returns an unshared, compacted copy of arr.
func KeysetCopy(env *layout.Env, arr uint32) uint32 {
	h := env.Heap
	out := NewKeyset(h, h.Load32(arr+KeysetCapacityOffset))
	keysetCompactInto(h, out, arr)
	return out
}

// KeysetDestroy frees arr. Keys are never arrays, so nothing is released.
func KeysetDestroy(env *layout.Env, arr uint32) error {
	h := env.Heap
	h.Free(arr, keysetBytes(h.Load32(arr+KeysetCapacityOffset)), heap.Alignment)
	return nil
}

// KeysetGet returns the stored key equal to key.
func KeysetGet(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool) {
	i, ok := keysetFind(env, arr, key)
	if !ok {
		return value.Uninit(), false
	}
	return keysetKey(env.Heap, keysetEntry(arr, i)), true
}

// KeysetAdd inserts key if it is not already present.
func KeysetAdd(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	if _, err := KeyKindOf(key); err != nil {
		return arr, err
	}
	if _, ok := keysetFind(env, arr, key); ok {
		return arr, nil
	}
	h := env.Heap
	arr = keysetMutable(env, arr, dictUsed(h, arr)+1)
	used := dictUsed(h, arr)
	h.StoreTV(keysetEntry(arr, used), key)
	h.Store32(arr+KeysetUsedOffset, used+1)
	h.SetSize(arr, h.Size(arr)+1)
	return arr, nil
}

// KeysetRemove tombstones key. Removing a missing key returns arr unchanged.
func KeysetRemove(env *layout.Env, arr uint32, key value.TypedValue) uint32 {
	h := env.Heap
	i, ok := keysetFind(env, arr, key)
	if !ok {
		return arr
	}
	arr = keysetMutable(env, arr, dictUsed(h, arr))
	h.Store64(keysetEntry(arr, i)+8, uint64(value.KindOfUninit))
	h.SetSize(arr, h.Size(arr)-1)
	return arr
}

// KeysetElem returns the addresses of a stored key. Keyset elements are
// read-only; the addresses must not be written through.
func KeysetElem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	i, ok := keysetFind(env, arr, key)
	if !ok {
		if throwOnMissing {
			return arr, 0, 0, errors.MissingKey(layout.OpElem.String(), KeyString(env, key))
		}
		return arr, 0, 0, nil
	}
	e := keysetEntry(arr, i)
	return arr, e, e + 8, nil
}

func keysetSetUnsupported() error {
	return errors.New(errors.PhaseRuntime, errors.KindUnsupported).
		Op(layout.OpSet.String()).
		Detail("keysets do not support Set; use Append").
		Build()
}
