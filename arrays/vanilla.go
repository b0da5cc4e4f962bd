package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// NewVanilla allocates an empty vanilla array of kind.
func NewVanilla(env *layout.Env, kind value.ArrayKind, capacity uint32) uint32 {
	switch kind {
	case value.ArrayDict:
		return NewDict(env.Heap, capacity)
	case value.ArrayKeyset:
		return NewKeyset(env.Heap, capacity)
	}
	return NewVec(env.Heap, capacity)
}

func vanillaDestroy(env *layout.Env, arr uint32) error {
	switch env.Heap.Kind(arr) {
	case value.ArrayVec:
		return VecDestroy(env, arr)
	case value.ArrayDict:
		return DictDestroy(env, arr)
	case value.ArrayKeyset:
		return KeysetDestroy(env, arr)
	}
	return badKind(env, arr)
}

func vanillaCopy(env *layout.Env, arr uint32) (uint32, error) {
	switch env.Heap.Kind(arr) {
	case value.ArrayVec:
		return VecCopy(env, arr), nil
	case value.ArrayDict:
		return DictCopy(env, arr), nil
	case value.ArrayKeyset:
		return KeysetCopy(env, arr), nil
	}
	return arr, badKind(env, arr)
}

func vanillaGet(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
	switch env.Heap.Kind(arr) {
	case value.ArrayVec:
		if key.Type != value.KindOfInt64 {
			return value.Uninit(), false, nil
		}
		tv, ok := VecGet(env.Heap, arr, key.Int())
		return tv, ok, nil
	case value.ArrayDict:
		tv, ok := DictGet(env, arr, key)
		return tv, ok, nil
	case value.ArrayKeyset:
		tv, ok := KeysetGet(env, arr, key)
		return tv, ok, nil
	}
	return value.Uninit(), false, badKind(env, arr)
}

func vanillaSet(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	switch kind := env.Heap.Kind(arr); kind {
	case value.ArrayVec:
		if key.Type != value.KindOfInt64 {
			return arr, invalidKey(layout.OpSet, kind, key)
		}
		return VecSet(env, arr, key.Int(), tv)
	case value.ArrayDict:
		if _, err := KeyKindOf(key); err != nil {
			return arr, err
		}
		return DictSet(env, arr, key, tv)
	case value.ArrayKeyset:
		return arr, keysetSetUnsupported()
	}
	return arr, badKind(env, arr)
}

func vanillaRemove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	switch env.Heap.Kind(arr) {
	case value.ArrayVec:
		if key.Type != value.KindOfInt64 {
			return arr, nil
		}
		return VecRemove(env, arr, key.Int())
	case value.ArrayDict:
		return DictRemove(env, arr, key)
	case value.ArrayKeyset:
		return KeysetRemove(env, arr, key), nil
	}
	return arr, badKind(env, arr)
}

func vanillaAppend(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	switch env.Heap.Kind(arr) {
	case value.ArrayVec:
		return VecAppend(env, arr, tv), nil
	case value.ArrayDict:
		return DictAppend(env, arr, tv)
	case value.ArrayKeyset:
		return KeysetAdd(env, arr, tv)
	}
	return arr, badKind(env, arr)
}

func vanillaElem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	switch env.Heap.Kind(arr) {
	case value.ArrayVec:
		if key.Type != value.KindOfInt64 {
			if throwOnMissing {
				return arr, 0, 0, errors.MissingKey(layout.OpElem.String(), KeyString(env, key))
			}
			return arr, 0, 0, nil
		}
		return VecElem(env, arr, key.Int(), throwOnMissing)
	case value.ArrayDict:
		return DictElem(env, arr, key, throwOnMissing)
	case value.ArrayKeyset:
		return KeysetElem(env, arr, key, throwOnMissing)
	}
	return arr, 0, 0, badKind(env, arr)
}

func vanillaIterBegin(env *layout.Env, arr uint32) (uint32, error) {
	h := env.Heap
	switch h.Kind(arr) {
	case value.ArrayVec:
		return 0, nil
	case value.ArrayDict:
		return hashIterNext(h, arr, 0, DictEntrySize), nil
	case value.ArrayKeyset:
		return hashIterNext(h, arr, 0, KeysetEntrySize), nil
	}
	return 0, badKind(env, arr)
}

func vanillaIterLast(env *layout.Env, arr uint32) (uint32, error) {
	h := env.Heap
	switch h.Kind(arr) {
	case value.ArrayVec:
		return vecIterLast(h, arr), nil
	case value.ArrayDict:
		return hashIterLast(h, arr, DictEntrySize), nil
	case value.ArrayKeyset:
		return hashIterLast(h, arr, KeysetEntrySize), nil
	}
	return 0, badKind(env, arr)
}

func vanillaIterEnd(env *layout.Env, arr uint32) (uint32, error) {
	h := env.Heap
	switch h.Kind(arr) {
	case value.ArrayVec:
		return h.Size(arr), nil
	case value.ArrayDict, value.ArrayKeyset:
		return dictUsed(h, arr), nil
	}
	return 0, badKind(env, arr)
}

func vanillaIterAdvance(env *layout.Env, arr, pos uint32) (uint32, error) {
	h := env.Heap
	switch h.Kind(arr) {
	case value.ArrayVec:
		return vecIterAdvance(h, arr, pos), nil
	case value.ArrayDict:
		return hashIterNext(h, arr, pos+1, DictEntrySize), nil
	case value.ArrayKeyset:
		return hashIterNext(h, arr, pos+1, KeysetEntrySize), nil
	}
	return 0, badKind(env, arr)
}

func vanillaGetPosKey(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	h := env.Heap
	switch h.Kind(arr) {
	case value.ArrayVec:
		return value.Int(int64(pos)), nil
	case value.ArrayDict:
		return dictKey(h, dictEntry(arr, pos)), nil
	case value.ArrayKeyset:
		return keysetKey(h, keysetEntry(arr, pos)), nil
	}
	return value.Uninit(), badKind(env, arr)
}

func vanillaGetPosVal(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	h := env.Heap
	switch h.Kind(arr) {
	case value.ArrayVec:
		return h.LoadTV(vecSlot(arr, pos)), nil
	case value.ArrayDict:
		return dictVal(h, dictEntry(arr, pos)), nil
	case value.ArrayKeyset:
		return keysetKey(h, keysetEntry(arr, pos)), nil
	}
	return value.Uninit(), badKind(env, arr)
}

func badKind(env *layout.Env, arr uint32) error {
	return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
		Value(arr).
		Detail("array %#x has invalid header kind %#x", arr, env.Heap.Load8(arr+heap.OffsetKind)).
		Build()
}
