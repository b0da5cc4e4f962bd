package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Vanilla dict layout.
const (
	DictCapacityOffset = heap.OffsetAux
	DictUsedOffset     = 16
	DictNextKeyOffset  = 24
	DictDataOffset     = 32
	DictEntrySize      = 32

	DictKeyOffset     = 0
	DictKeyTypeOffset = 8
	DictValOffset     = 16
	DictValTypeOffset = 24
)

// NewDict allocates an empty dict with room for capacity entries.
func NewDict(h *heap.Heap, capacity uint32) uint32 {
	arr := h.MustAlloc(dictBytes(capacity))
	h.InitHeader(arr, value.ArrayDict, false, 0, 0)
	h.SetAux(arr, capacity)
	return arr
}

func dictBytes(capacity uint32) uint32 {
	return DictDataOffset + capacity*DictEntrySize
}

func dictEntry(arr, i uint32) uint32 {
	return arr + DictDataOffset + i*DictEntrySize
}

func dictUsed(h *heap.Heap, arr uint32) uint32 {
	return h.Load32(arr + DictUsedOffset)
}

func dictKeyType(h *heap.Heap, e uint32) value.DataType {
	return value.DataType(h.Load8(e + DictKeyTypeOffset))
}

func dictKey(h *heap.Heap, e uint32) value.TypedValue {
	return value.TypedValue{Data: h.Load64(e + DictKeyOffset), Type: dictKeyType(h, e)}
}

func dictVal(h *heap.Heap, e uint32) value.TypedValue {
	return h.LoadTV(e + DictValOffset)
}

func dictFind(env *layout.Env, arr uint32, key value.TypedValue) (uint32, bool) {
	h := env.Heap
	used := dictUsed(h, arr)
	for i := range used {
		e := dictEntry(arr, i)
		kt := dictKeyType(h, e)
		if kt == value.KindOfUninit {
			continue
		}
		if sameKey(env, h.Load64(e+DictKeyOffset), kt, key) {
			return i, true
		}
	}
	return 0, false
}

// dictCompactInto copies live entries of src to dst, dropping tombstones.
func dictCompactInto(h *heap.Heap, dst, src uint32, incRef bool) {
	used := dictUsed(h, src)
	n := uint32(0)
	for i := range used {
		e := dictEntry(src, i)
		if dictKeyType(h, e) == value.KindOfUninit {
			continue
		}
		h.Move(dictEntry(dst, n), e, DictEntrySize)
		if incRef {
			h.IncRefTV(dictVal(h, e))
		}
		n++
	}
	h.Store32(dst+DictUsedOffset, n)
	h.SetSize(dst, n)
	h.Store64(dst+DictNextKeyOffset, h.Load64(src+DictNextKeyOffset))
}

// dictMutable returns an unshared dict with room for need used entries.
// Entry indices are preserved unless the dict had to grow.
func dictMutable(env *layout.Env, arr, need uint32) uint32 {
	h := env.Heap
	capacity := h.Load32(arr + DictCapacityOffset)
	if h.HasMultipleRefs(arr) {
		out := NewDict(h, max(need, capacity))
		used := dictUsed(h, arr)
		h.Move(dictEntry(out, 0), dictEntry(arr, 0), used*DictEntrySize)
		h.Store32(out+DictUsedOffset, used)
		h.SetSize(out, h.Size(arr))
		h.Store64(out+DictNextKeyOffset, h.Load64(arr+DictNextKeyOffset))
		for i := range used {
			e := dictEntry(out, i)
			if dictKeyType(h, e) != value.KindOfUninit {
				h.IncRefTV(dictVal(h, e))
			}
		}
		h.DecRef(arr)
		return out
	}
	if need <= capacity {
		return arr
	}
	live := h.Size(arr)
	out := NewDict(h, growCapacity(live, live+need-dictUsed(h, arr)))
	dictCompactInto(h, out, arr, false)
	h.Free(arr, dictBytes(capacity), heap.Alignment)
	return out
}

// DictCopy returns an unshared, compacted copy of arr.
func DictCopy(env *layout.Env, arr uint32) uint32 {
	h := env.Heap
	out := NewDict(h, h.Load32(arr+DictCapacityOffset))
	dictCompactInto(h, out, arr, true)
	return out
}

// DictDestroy releases every value and frees arr.
func DictDestroy(env *layout.Env, arr uint32) error {
	h := env.Heap
	for i := range dictUsed(h, arr) {
		e := dictEntry(arr, i)
		if dictKeyType(h, e) == value.KindOfUninit {
			continue
		}
		if err := ReleaseTV(env, dictVal(h, e)); err != nil {
			return err
		}
	}
	h.Free(arr, dictBytes(h.Load32(arr+DictCapacityOffset)), heap.Alignment)
	return nil
}

func DictGet(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool) {
	i, ok := dictFind(env, arr, key)
	if !ok {
		return value.Uninit(), false
	}
	return dictVal(env.Heap, dictEntry(arr, i)), true
}

// DictSet inserts or overwrites key. New keys are appended in order.
func DictSet(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	h := env.Heap
	if i, ok := dictFind(env, arr, key); ok {
		arr = dictMutable(env, arr, dictUsed(h, arr))
		e := dictEntry(arr, i)
		old := dictVal(h, e)
		h.StoreTV(e+DictValOffset, tv)
		return arr, ReleaseTV(env, old)
	}

	used := dictUsed(h, arr)
	arr = dictMutable(env, arr, used+1)
	used = dictUsed(h, arr)
	e := dictEntry(arr, used)
	h.Store64(e+DictKeyOffset, key.Data)
	h.Store64(e+DictKeyTypeOffset, uint64(key.Type))
	h.StoreTV(e+DictValOffset, tv)
	h.Store32(arr+DictUsedOffset, used+1)
	h.SetSize(arr, h.Size(arr)+1)
	if key.Type == value.KindOfInt64 {
		next := int64(h.Load64(arr + DictNextKeyOffset))
		if key.Int() >= next {
			h.Store64(arr+DictNextKeyOffset, uint64(key.Int()+1))
		}
	}
	return arr, nil
}

// DictAppend inserts tv under the next integer key.
func DictAppend(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	next := int64(env.Heap.Load64(arr + DictNextKeyOffset))
	return DictSet(env, arr, value.Int(next), tv)
}

// DictRemove tombstones key. Removing a missing key returns arr unchanged.
func DictRemove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	h := env.Heap
	i, ok := dictFind(env, arr, key)
	if !ok {
		return arr, nil
	}
	arr = dictMutable(env, arr, dictUsed(h, arr))
	e := dictEntry(arr, i)
	old := dictVal(h, e)
	h.Store64(e+DictKeyTypeOffset, uint64(value.KindOfUninit))
	h.SetSize(arr, h.Size(arr)-1)
	return arr, ReleaseTV(env, old)
}

// DictElem returns the value and type addresses of key after making arr
// writable.
func DictElem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	h := env.Heap
	i, ok := dictFind(env, arr, key)
	if !ok {
		if throwOnMissing {
			return arr, 0, 0, errors.MissingKey(layout.OpElem.String(), KeyString(env, key))
		}
		return arr, 0, 0, nil
	}
	arr = dictMutable(env, arr, dictUsed(h, arr))
	e := dictEntry(arr, i)
	return arr, e + DictValOffset, e + DictValTypeOffset, nil
}

// hashIterNext returns the first live entry at or after pos, or used.
func hashIterNext(h *heap.Heap, arr, pos, entrySize uint32) uint32 {
	used := dictUsed(h, arr)
	for ; pos < used; pos++ {
		e := arr + DictDataOffset + pos*entrySize
		if value.DataType(h.Load8(e+DictKeyTypeOffset)) != value.KindOfUninit {
			return pos
		}
	}
	return used
}

// hashIterLast returns the last live entry, or used when there is none.
func hashIterLast(h *heap.Heap, arr, entrySize uint32) uint32 {
	used := dictUsed(h, arr)
	for pos := used; pos > 0; pos-- {
		e := arr + DictDataOffset + (pos-1)*entrySize
		if value.DataType(h.Load8(e+DictKeyTypeOffset)) != value.KindOfUninit {
			return pos - 1
		}
	}
	return used
}
