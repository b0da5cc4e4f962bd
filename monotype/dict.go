package monotype

import (
	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

const maxTombstones = 0xFFFF

func dictBytes(capacity uint32) uint32 {
	return DictEntriesOffset + capacity*DictEntrySize
}

func dictCapacity(h *heap.Heap, arr uint32) uint32 {
	return h.Load32(arr + DictCapacityOffset)
}

func dictUsed(h *heap.Heap, arr uint32) uint32 {
	return h.Size(arr) + uint32(LoadDictTombstones(h, arr))
}

func dictKeyAddr(arr, pos uint32) uint32 {
	return DictEntries.Offset(Dynamic(pos), DictKeyOffset).At(arr)
}

func dictValAddr(arr, pos uint32) uint32 {
	return DictEntries.Offset(Dynamic(pos), DictValOffset).At(arr)
}

func allocDict(h *heap.Heap, intKeys bool, tag value.DataType, capacity uint32) uint32 {
	arr := h.MustAlloc(dictBytes(capacity))
	h.InitHeader(arr, value.ArrayDict, true, uint16(dictIndex(intKeys)), 0)
	h.Store8(arr+TypeOffset, uint8(tag))
	h.Store16(arr+DictTombstonesOffset, 0)
	h.Store32(arr+DictCapacityOffset, capacity)
	return arr
}

// NewDict allocates an empty MonotypeDict with the given key kind.
func (l *Layouts) NewDict(h *heap.Heap, intKeys bool, capacity uint32) uint32 {
	return allocDict(h, intKeys, value.KindOfUninit, min(capacity, l.maxCapacity))
}

func dictFind(env *layout.Env, arr uint32, key value.TypedValue) (uint32, bool) {
	h := env.Heap
	intKeys := HasIntKeys(h, arr)
	if intKeys != (key.Type == value.KindOfInt64) {
		return 0, false
	}
	if !intKeys && key.Type != value.KindOfString {
		return 0, false
	}
	used := dictUsed(h, arr)
	for pos := range used {
		raw := h.Load64(dictKeyAddr(arr, pos))
		if raw == TombstoneKey {
			continue
		}
		if intKeys {
			if raw == key.Data {
				return pos, true
			}
		} else if env.Strings().SameString(uint32(raw), key.StringID()) {
			return pos, true
		}
	}
	return 0, false
}

// dictWritable unshares arr, preserving entry positions.
func dictWritable(env *layout.Env, arr uint32) uint32 {
	h := env.Heap
	if !h.HasMultipleRefs(arr) {
		return arr
	}
	out, _ := dictClone(env, arr, dictCapacity(h, arr), false)
	h.DecRef(arr)
	return out
}

// dictClone copies arr into a fresh allocation of capacity entries. With
// compact set, tombstones are dropped and positions renumbered.
func dictClone(env *layout.Env, arr, capacity uint32, compact bool) (uint32, error) {
	h := env.Heap
	tag := LoadValueKind(h, arr)
	out := allocDict(h, HasIntKeys(h, arr), tag, capacity)
	h.Store64(out+DictNextKeyOffset, h.Load64(arr+DictNextKeyOffset))
	used := dictUsed(h, arr)
	if !compact {
		h.Move(out+DictEntriesOffset, arr+DictEntriesOffset, used*DictEntrySize)
		h.Store16(out+DictTombstonesOffset, LoadDictTombstones(h, arr))
		h.SetSize(out, h.Size(arr))
		if tag.IsArray() {
			for pos := range used {
				if h.Load64(dictKeyAddr(out, pos)) != TombstoneKey {
					h.IncRef(uint32(h.Load64(dictValAddr(out, pos))))
				}
			}
		}
		return out, nil
	}
	n := uint32(0)
	for pos := range used {
		if h.Load64(dictKeyAddr(arr, pos)) == TombstoneKey {
			continue
		}
		h.Move(dictKeyAddr(out, n), dictKeyAddr(arr, pos), DictEntrySize)
		n++
	}
	h.SetSize(out, n)
	return out, nil
}

// dictReserve returns an unshared dict with room to append one entry,
// compacting or growing as needed. It reports false at the capacity limit.
func (l *Layouts) dictReserve(env *layout.Env, arr uint32) (uint32, bool) {
	h := env.Heap
	arr = dictWritable(env, arr)
	size := h.Size(arr)
	capacity := dictCapacity(h, arr)
	if dictUsed(h, arr) < capacity {
		return arr, true
	}
	if size+1 > l.maxCapacity {
		return arr, false
	}
	newCap := min(max(size+1, size*2, 4), l.maxCapacity)
	out, _ := dictClone(env, arr, newCap, true)
	h.Free(arr, dictBytes(capacity), heap.Alignment)
	return out, true
}

func (l *Layouts) dictDestroy(env *layout.Env, arr uint32) error {
	h := env.Heap
	if LoadValueKind(h, arr).IsArray() {
		for pos := range dictUsed(h, arr) {
			if h.Load64(dictKeyAddr(arr, pos)) == TombstoneKey {
				continue
			}
			if err := arrays.Release(env, uint32(h.Load64(dictValAddr(arr, pos)))); err != nil {
				return err
			}
		}
	}
	h.Free(arr, dictBytes(dictCapacity(h, arr)), heap.Alignment)
	return nil
}

func (l *Layouts) dictCopy(env *layout.Env, arr uint32) (uint32, error) {
	return dictClone(env, arr, dictCapacity(env.Heap, arr), false)
}

func (l *Layouts) dictGet(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
	pos, ok := dictFind(env, arr, key)
	if !ok {
		return value.Uninit(), false, nil
	}
	return LoadDictVal(env.Heap, arr, Dynamic(pos)), true, nil
}

func (l *Layouts) escalateThenSet(env *layout.Env, arr uint32, reason string, key, tv value.TypedValue) (uint32, error) {
	out, err := arrays.Escalate(env, arr, reason)
	if err != nil {
		return out, err
	}
	return arrays.Set(env, out, key, tv)
}

func (l *Layouts) dictSet(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	h := env.Heap
	if _, err := arrays.KeyKindOf(key); err != nil {
		return arr, err
	}
	intKey := key.Type == value.KindOfInt64
	if intKey && key.Data == TombstoneKey {
		return l.escalateThenSet(env, arr, ReasonTombstoneKey, key, tv)
	}

	size := h.Size(arr)
	if intKey != HasIntKeys(h, arr) {
		if size > 0 {
			return l.escalateThenSet(env, arr, ReasonKeyKind, key, tv)
		}
		arr = dictWritable(env, arr)
		h.Store16(arr+DictTombstonesOffset, 0)
		h.SetLayoutIndex(arr, uint16(dictIndex(intKey)))
	}
	if size > 0 && tv.Type != LoadValueKind(h, arr) {
		return l.escalateThenSet(env, arr, ReasonValueKind, key, tv)
	}

	if pos, ok := dictFind(env, arr, key); ok {
		arr = dictWritable(env, arr)
		addr := dictValAddr(arr, pos)
		old := value.TypedValue{Data: h.Load64(addr), Type: tv.Type}
		h.Store64(addr, tv.Data)
		return arr, arrays.ReleaseTV(env, old)
	}

	out, ok := l.dictReserve(env, arr)
	if !ok {
		return l.escalateThenSet(env, out, ReasonCapacity, key, tv)
	}
	if size == 0 {
		h.Store8(out+TypeOffset, uint8(tv.Type))
	}
	pos := dictUsed(h, out)
	h.Store64(dictKeyAddr(out, pos), key.Data)
	h.Store64(dictValAddr(out, pos), tv.Data)
	h.SetSize(out, size+1)
	if intKey {
		if next := int64(h.Load64(out + DictNextKeyOffset)); key.Int() >= next {
			h.Store64(out+DictNextKeyOffset, uint64(key.Int()+1))
		}
	}
	return out, nil
}

func (l *Layouts) dictAppend(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	h := env.Heap
	if !HasIntKeys(h, arr) && h.Size(arr) > 0 {
		out, err := arrays.Escalate(env, arr, ReasonStrAppend)
		if err != nil {
			return out, err
		}
		return arrays.Append(env, out, tv)
	}
	next := int64(h.Load64(arr + DictNextKeyOffset))
	return l.dictSet(env, arr, value.Int(next), tv)
}

func (l *Layouts) dictRemove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	h := env.Heap
	pos, ok := dictFind(env, arr, key)
	if !ok {
		return arr, nil
	}
	arr = dictWritable(env, arr)
	old := LoadDictVal(h, arr, Dynamic(pos))
	h.Store64(dictKeyAddr(arr, pos), TombstoneKey)
	tombs := LoadDictTombstones(h, arr) + 1
	h.Store16(arr+DictTombstonesOffset, tombs)
	h.SetSize(arr, h.Size(arr)-1)
	if tombs == maxTombstones {
		out, _ := dictClone(env, arr, dictCapacity(h, arr), true)
		h.Free(arr, dictBytes(dictCapacity(h, arr)), heap.Alignment)
		arr = out
	}
	return arr, arrays.ReleaseTV(env, old)
}

func (l *Layouts) dictElem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	if _, ok := dictFind(env, arr, key); !ok {
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

func dictNextLive(h *heap.Heap, arr, pos uint32) uint32 {
	used := dictUsed(h, arr)
	for ; pos < used; pos++ {
		if h.Load64(dictKeyAddr(arr, pos)) != TombstoneKey {
			return pos
		}
	}
	return used
}

func (l *Layouts) dictIterBegin(env *layout.Env, arr uint32) (uint32, error) {
	return dictNextLive(env.Heap, arr, 0), nil
}

func (l *Layouts) dictIterLast(env *layout.Env, arr uint32) (uint32, error) {
	h := env.Heap
	used := dictUsed(h, arr)
	for pos := used; pos > 0; pos-- {
		if h.Load64(dictKeyAddr(arr, pos-1)) != TombstoneKey {
			return pos - 1, nil
		}
	}
	return used, nil
}

func (l *Layouts) dictIterEnd(env *layout.Env, arr uint32) (uint32, error) {
	return dictUsed(env.Heap, arr), nil
}

func (l *Layouts) dictIterAdvance(env *layout.Env, arr, pos uint32) (uint32, error) {
	return dictNextLive(env.Heap, arr, pos+1), nil
}

func (l *Layouts) dictGetPosKey(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	return LoadDictKey(env.Heap, arr, Dynamic(pos)), nil
}

func (l *Layouts) dictGetPosVal(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	return LoadDictVal(env.Heap, arr, Dynamic(pos)), nil
}

// dictEscalate converts arr to a vanilla dict, consuming the reference.
func (l *Layouts) dictEscalate(env *layout.Env, arr uint32, _ string) (uint32, error) {
	h := env.Heap
	out := arrays.NewDict(h, h.Size(arr))
	used := dictUsed(h, arr)
	for pos := range used {
		key := LoadDictKey(h, arr, Dynamic(pos))
		if !key.IsInit() {
			continue
		}
		val := LoadDictVal(h, arr, Dynamic(pos))
		h.IncRefTV(val)
		var err error
		if out, err = arrays.DictSet(env, out, key, val); err != nil {
			return out, err
		}
	}
	h.Store64(out+arrays.DictNextKeyOffset, h.Load64(arr+DictNextKeyOffset))
	return out, arrays.Release(env, arr)
}
