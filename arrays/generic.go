package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// The functions below are correct for arrays of every layout. They branch
// on the header's bespoke bit and container kind at run time.

// Release drops one reference to arr, destroying it when none remain.
func Release(env *layout.Env, arr uint32) error {
	if arr == 0 {
		return nil
	}
	if env.Heap.DecRef(arr) > 0 {
		return nil
	}
	return Destroy(env, arr)
}

// ReleaseTV releases tv when it holds an array.
func ReleaseTV(env *layout.Env, tv value.TypedValue) error {
	if tv.Type.IsArray() {
		return Release(env, tv.Ptr())
	}
	return nil
}

// Destroy frees an array whose refcount reached zero.
func Destroy(env *layout.Env, arr uint32) error {
	if env.Heap.IsBespoke(arr) {
		return BespokeDestroy(env, arr)
	}
	return vanillaDestroy(env, arr)
}

// Copy returns an unshared copy of arr with refcount 1.
func Copy(env *layout.Env, arr uint32) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeCopy(env, arr)
	}
	return vanillaCopy(env, arr)
}

// Get looks key up. A missing key yields an uninit value and false.
func Get(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeGet(env, arr, key)
	}
	return vanillaGet(env, arr, key)
}

// GetThrow looks key up and fails with KindNotFound when it is missing.
func GetThrow(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeGetThrow(env, arr, key)
	}
	tv, found, err := vanillaGet(env, arr, key)
	if err != nil {
		return tv, err
	}
	if !found {
		return tv, errors.MissingKey(layout.OpGetThrow.String(), KeyString(env, key))
	}
	return tv, nil
}

// Set stores tv under key and returns the resulting array. The reference
// to arr and the reference held by tv are consumed.
func Set(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeSet(env, arr, key, tv)
	}
	return vanillaSet(env, arr, key, tv)
}

// Remove deletes key. Removing a missing key returns arr unchanged.
func Remove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeRemove(env, arr, key)
	}
	return vanillaRemove(env, arr, key)
}

// Append adds tv at the end: the next index of a vec, the next integer key
// of a dict, or a new member of a keyset.
func Append(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeAppend(env, arr, tv)
	}
	return vanillaAppend(env, arr, tv)
}

// Elem returns writable value and type addresses for key, making arr
// unshared first. A missing key yields zero addresses, or KindNotFound when
// throwOnMissing is set.
func Elem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeElem(env, arr, key, throwOnMissing)
	}
	return vanillaElem(env, arr, key, throwOnMissing)
}

func IterBegin(env *layout.Env, arr uint32) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeIterBegin(env, arr)
	}
	return vanillaIterBegin(env, arr)
}

func IterLast(env *layout.Env, arr uint32) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeIterLast(env, arr)
	}
	return vanillaIterLast(env, arr)
}

func IterEnd(env *layout.Env, arr uint32) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeIterEnd(env, arr)
	}
	return vanillaIterEnd(env, arr)
}

func IterAdvance(env *layout.Env, arr, pos uint32) (uint32, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeIterAdvance(env, arr, pos)
	}
	return vanillaIterAdvance(env, arr, pos)
}

func GetPosKey(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeGetPosKey(env, arr, pos)
	}
	return vanillaGetPosKey(env, arr, pos)
}

func GetPosVal(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	if env.Heap.IsBespoke(arr) {
		return BespokeGetPosVal(env, arr, pos)
	}
	return vanillaGetPosVal(env, arr, pos)
}

// Pair is one key/value entry in iteration order.
type Pair struct {
	Key value.TypedValue
	Val value.TypedValue
}

// Entries collects the pairs of arr in iteration order. Values are borrowed.
func Entries(env *layout.Env, arr uint32) ([]Pair, error) {
	pos, err := IterBegin(env, arr)
	if err != nil {
		return nil, err
	}
	end, err := IterEnd(env, arr)
	if err != nil {
		return nil, err
	}
	out := make([]Pair, 0, env.Heap.Size(arr))
	for pos != end {
		k, err := GetPosKey(env, arr, pos)
		if err != nil {
			return nil, err
		}
		v, err := GetPosVal(env, arr, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, Pair{Key: k, Val: v})
		if pos, err = IterAdvance(env, arr, pos); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Equal reports whether two arrays have the same kind and the same pairs in
// the same order, whatever their layouts. Nested arrays compare by content.
func Equal(env *layout.Env, a, b uint32) (bool, error) {
	h := env.Heap
	if a == b {
		return true, nil
	}
	if h.Kind(a) != h.Kind(b) || h.Size(a) != h.Size(b) {
		return false, nil
	}
	pa, err := Entries(env, a)
	if err != nil {
		return false, err
	}
	pb, err := Entries(env, b)
	if err != nil {
		return false, err
	}
	if len(pa) != len(pb) {
		return false, nil
	}
	for i := range pa {
		same, err := sameValue(env, pa[i].Key, pb[i].Key)
		if err != nil || !same {
			return false, err
		}
		same, err = sameValue(env, pa[i].Val, pb[i].Val)
		if err != nil || !same {
			return false, err
		}
	}
	return true, nil
}

func sameValue(env *layout.Env, a, b value.TypedValue) (bool, error) {
	if a.Type.IsArray() && b.Type == a.Type {
		return Equal(env, a.Ptr(), b.Ptr())
	}
	return env.Strings().Same(a, b), nil
}
