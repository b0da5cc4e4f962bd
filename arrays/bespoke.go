package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// bespokeEntry looks up the vtable entry of arr's runtime layout.
func bespokeEntry(env *layout.Env, arr uint32, op layout.Op, key layout.KeyKind) (layout.Entry, bool) {
	idx := layout.Index(env.Heap.LayoutIndex(arr))
	return env.Registry.VTableFor(idx).Lookup(op, key)
}

func call(env *layout.Env, e layout.Entry, args ...uint64) ([]uint64, error) {
	stack := make([]uint64, e.Op.StackSize())
	copy(stack, args)
	err := layout.Invoke(env, e.Fn, stack)
	return stack, err
}

// withVanilla runs fn against a temporary vanilla copy of a specialized
// array whose layout lacks a read-only operation.
func withVanilla(env *layout.Env, arr uint32, fn func(tmp uint32) error) error {
	tmp, err := ToVanilla(env, arr)
	if err != nil {
		return err
	}
	ferr := fn(tmp)
	if rerr := Release(env, tmp); ferr == nil {
		ferr = rerr
	}
	return ferr
}

func unimplemented(op layout.Op) string {
	return "unimplemented " + op.String()
}

// BespokeDestroy frees a specialized array whose refcount reached zero.
func BespokeDestroy(env *layout.Env, arr uint32) error {
	e, ok := bespokeEntry(env, arr, layout.OpRelease, layout.KeyNone)
	if !ok {
		return errors.New(errors.PhaseRuntime, errors.KindUnsupported).
			Op(layout.OpRelease.String()).
			Detail("layout %d has no destructor", env.Heap.LayoutIndex(arr)).
			Build()
	}
	_, err := call(env, e, uint64(arr))
	return err
}

func BespokeCopy(env *layout.Env, arr uint32) (uint32, error) {
	if e, ok := bespokeEntry(env, arr, layout.OpCopy, layout.KeyNone); ok {
		stack, err := call(env, e, uint64(arr))
		return uint32(stack[0]), err
	}
	return ToVanilla(env, arr)
}

func BespokeGet(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
	kk, err := KeyKindOf(key)
	if err != nil {
		return value.Uninit(), false, err
	}
	if e, ok := bespokeEntry(env, arr, layout.OpGet, kk); ok {
		stack, err := call(env, e, uint64(arr), key.Data)
		if err != nil {
			return value.Uninit(), false, err
		}
		tv := value.FromWords(stack[0], stack[1])
		return tv, tv.IsInit(), nil
	}
	var tv value.TypedValue
	var found bool
	err = withVanilla(env, arr, func(tmp uint32) error {
		var err error
		tv, found, err = vanillaGet(env, tmp, key)
		return err
	})
	return tv, found, err
}

func BespokeGetThrow(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, error) {
	kk, err := KeyKindOf(key)
	if err != nil {
		return value.Uninit(), err
	}
	if e, ok := bespokeEntry(env, arr, layout.OpGetThrow, kk); ok {
		stack, err := call(env, e, uint64(arr), key.Data)
		if err != nil {
			return value.Uninit(), err
		}
		return value.FromWords(stack[0], stack[1]), nil
	}
	tv, found, err := BespokeGet(env, arr, key)
	if err != nil {
		return tv, err
	}
	if !found {
		return tv, errors.MissingKey(layout.OpGetThrow.String(), KeyString(env, key))
	}
	return tv, nil
}

func BespokeSet(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	kk, err := KeyKindOf(key)
	if err != nil {
		return arr, err
	}
	if e, ok := bespokeEntry(env, arr, layout.OpSet, kk); ok {
		d, t := tv.Words()
		stack, err := call(env, e, uint64(arr), key.Data, d, t)
		return uint32(stack[0]), err
	}
	arr, err = Escalate(env, arr, unimplemented(layout.OpSet))
	if err != nil {
		return arr, err
	}
	return vanillaSet(env, arr, key, tv)
}

func BespokeRemove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	kk, err := KeyKindOf(key)
	if err != nil {
		return arr, err
	}
	if e, ok := bespokeEntry(env, arr, layout.OpRemove, kk); ok {
		stack, err := call(env, e, uint64(arr), key.Data)
		return uint32(stack[0]), err
	}
	arr, err = Escalate(env, arr, unimplemented(layout.OpRemove))
	if err != nil {
		return arr, err
	}
	return vanillaRemove(env, arr, key)
}

func BespokeAppend(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	if e, ok := bespokeEntry(env, arr, layout.OpAppend, layout.KeyNone); ok {
		d, t := tv.Words()
		stack, err := call(env, e, uint64(arr), d, t)
		return uint32(stack[0]), err
	}
	arr, err := Escalate(env, arr, unimplemented(layout.OpAppend))
	if err != nil {
		return arr, err
	}
	return vanillaAppend(env, arr, tv)
}

func BespokeElem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	kk, err := KeyKindOf(key)
	if err != nil {
		return arr, 0, 0, err
	}
	if e, ok := bespokeEntry(env, arr, layout.OpElem, kk); ok {
		stack, err := call(env, e, uint64(arr), key.Data, boolWord(throwOnMissing))
		return uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), err
	}
	arr, err = Escalate(env, arr, unimplemented(layout.OpElem))
	if err != nil {
		return arr, 0, 0, err
	}
	return vanillaElem(env, arr, key, throwOnMissing)
}

func bespokeIter(env *layout.Env, op layout.Op, arr uint32, args []uint64, vanilla func(tmp uint32) (uint64, error)) (uint64, error) {
	if e, ok := bespokeEntry(env, arr, op, layout.KeyNone); ok {
		stack, err := call(env, e, append([]uint64{uint64(arr)}, args...)...)
		return stack[0], err
	}
	var out uint64
	err := withVanilla(env, arr, func(tmp uint32) error {
		var err error
		out, err = vanilla(tmp)
		return err
	})
	return out, err
}

func BespokeIterBegin(env *layout.Env, arr uint32) (uint32, error) {
	pos, err := bespokeIter(env, layout.OpIterBegin, arr, nil, func(tmp uint32) (uint64, error) {
		p, err := vanillaIterBegin(env, tmp)
		return uint64(p), err
	})
	return uint32(pos), err
}

func BespokeIterLast(env *layout.Env, arr uint32) (uint32, error) {
	pos, err := bespokeIter(env, layout.OpIterLast, arr, nil, func(tmp uint32) (uint64, error) {
		p, err := vanillaIterLast(env, tmp)
		return uint64(p), err
	})
	return uint32(pos), err
}

func BespokeIterEnd(env *layout.Env, arr uint32) (uint32, error) {
	pos, err := bespokeIter(env, layout.OpIterEnd, arr, nil, func(tmp uint32) (uint64, error) {
		p, err := vanillaIterEnd(env, tmp)
		return uint64(p), err
	})
	return uint32(pos), err
}

func BespokeIterAdvance(env *layout.Env, arr, pos uint32) (uint32, error) {
	next, err := bespokeIter(env, layout.OpIterAdvance, arr, []uint64{uint64(pos)}, func(tmp uint32) (uint64, error) {
		p, err := vanillaIterAdvance(env, tmp, pos)
		return uint64(p), err
	})
	return uint32(next), err
}

func bespokeGetPos(env *layout.Env, op layout.Op, arr, pos uint32) (value.TypedValue, error) {
	if e, ok := bespokeEntry(env, arr, op, layout.KeyNone); ok {
		stack, err := call(env, e, uint64(arr), uint64(pos))
		return value.FromWords(stack[0], stack[1]), err
	}
	var tv value.TypedValue
	err := withVanilla(env, arr, func(tmp uint32) error {
		var err error
		if op == layout.OpGetPosKey {
			tv, err = vanillaGetPosKey(env, tmp, pos)
		} else {
			tv, err = vanillaGetPosVal(env, tmp, pos)
		}
		return err
	})
	return tv, err
}

func BespokeGetPosKey(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	return bespokeGetPos(env, layout.OpGetPosKey, arr, pos)
}

func BespokeGetPosVal(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
	return bespokeGetPos(env, layout.OpGetPosVal, arr, pos)
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
