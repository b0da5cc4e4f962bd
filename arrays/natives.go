package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Impl is a set of operation implementations written against Go types.
// VTable adapts it to the stack calling convention. Nil members leave their
// vtable slots empty; a nil GetThrow is synthesized from Get.
type Impl struct {
	Destroy     func(env *layout.Env, arr uint32) error
	Copy        func(env *layout.Env, arr uint32) (uint32, error)
	Get         func(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error)
	GetThrow    func(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, error)
	Set         func(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error)
	Remove      func(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error)
	Append      func(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error)
	IterBegin   func(env *layout.Env, arr uint32) (uint32, error)
	IterLast    func(env *layout.Env, arr uint32) (uint32, error)
	IterEnd     func(env *layout.Env, arr uint32) (uint32, error)
	IterAdvance func(env *layout.Env, arr, pos uint32) (uint32, error)
	GetPosKey   func(env *layout.Env, arr, pos uint32) (value.TypedValue, error)
	GetPosVal   func(env *layout.Env, arr, pos uint32) (value.TypedValue, error)
	Elem        func(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error)
	Escalate    func(env *layout.Env, arr uint32, reason string) (uint32, error)

	// Keys lists the key kinds keyed ops are installed for.
	Keys []layout.KeyKind
}

// VTable builds the operation table for im.
func (im Impl) VTable(name string) *layout.VTable {
	vt := layout.NewVTable(name)

	if im.Destroy != nil {
		vt.Set(layout.OpRelease, layout.KeyNone, func(env *layout.Env, stack []uint64) error {
			return im.Destroy(env, uint32(stack[0]))
		})
	}
	if im.Copy != nil {
		vt.Set(layout.OpCopy, layout.KeyNone, func(env *layout.Env, stack []uint64) error {
			out, err := im.Copy(env, uint32(stack[0]))
			stack[0] = uint64(out)
			return err
		})
	}
	if im.Append != nil {
		vt.Set(layout.OpAppend, layout.KeyNone, func(env *layout.Env, stack []uint64) error {
			out, err := im.Append(env, uint32(stack[0]), value.FromWords(stack[1], stack[2]))
			stack[0] = uint64(out)
			return err
		})
	}
	for op, fn := range map[layout.Op]func(*layout.Env, uint32) (uint32, error){
		layout.OpIterBegin: im.IterBegin,
		layout.OpIterLast:  im.IterLast,
		layout.OpIterEnd:   im.IterEnd,
	} {
		if fn != nil {
			vt.Set(op, layout.KeyNone, iterNative(fn))
		}
	}
	if im.IterAdvance != nil {
		vt.Set(layout.OpIterAdvance, layout.KeyNone, func(env *layout.Env, stack []uint64) error {
			pos, err := im.IterAdvance(env, uint32(stack[0]), uint32(stack[1]))
			stack[0] = uint64(pos)
			return err
		})
	}
	if im.GetPosKey != nil {
		vt.Set(layout.OpGetPosKey, layout.KeyNone, posNative(im.GetPosKey))
	}
	if im.GetPosVal != nil {
		vt.Set(layout.OpGetPosVal, layout.KeyNone, posNative(im.GetPosVal))
	}
	if im.Escalate != nil {
		vt.Set(layout.OpEscalateToVanilla, layout.KeyNone, func(env *layout.Env, stack []uint64) error {
			reason := env.Strings().Content(uint32(stack[1]))
			out, err := im.Escalate(env, uint32(stack[0]), reason)
			stack[0] = uint64(out)
			return err
		})
	}

	for _, key := range im.Keys {
		if im.Get != nil {
			vt.Set(layout.OpGet, key, getNative(im.Get, key))
			if im.GetThrow == nil {
				vt.Set(layout.OpGetThrow, key, SynthesizeGetThrow(im.Get, key))
			}
		}
		if im.GetThrow != nil {
			vt.Set(layout.OpGetThrow, key, getThrowNative(im.GetThrow, key))
		}
		if im.Set != nil {
			vt.Set(layout.OpSet, key, setNative(im.Set, key))
		}
		if im.Remove != nil {
			vt.Set(layout.OpRemove, key, removeNative(im.Remove, key))
		}
		if im.Elem != nil {
			vt.Set(layout.OpElem, key, ElemNative(im.Elem, key, nil))
		}
	}
	return vt
}

func iterNative(fn func(*layout.Env, uint32) (uint32, error)) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		pos, err := fn(env, uint32(stack[0]))
		stack[0] = uint64(pos)
		return err
	}
}

func posNative(fn func(*layout.Env, uint32, uint32) (value.TypedValue, error)) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		tv, err := fn(env, uint32(stack[0]), uint32(stack[1]))
		stack[0], stack[1] = tv.Words()
		return err
	}
}

func getNative(fn func(*layout.Env, uint32, value.TypedValue) (value.TypedValue, bool, error), key layout.KeyKind) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		tv, _, err := fn(env, uint32(stack[0]), KeyFromWord(key, stack[1]))
		stack[0], stack[1] = tv.Words()
		return err
	}
}

func getThrowNative(fn func(*layout.Env, uint32, value.TypedValue) (value.TypedValue, error), key layout.KeyKind) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		tv, err := fn(env, uint32(stack[0]), KeyFromWord(key, stack[1]))
		stack[0], stack[1] = tv.Words()
		return err
	}
}

// SynthesizeGetThrow derives a throwing lookup from a non-throwing one.
func SynthesizeGetThrow(get func(*layout.Env, uint32, value.TypedValue) (value.TypedValue, bool, error), key layout.KeyKind) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		k := KeyFromWord(key, stack[1])
		tv, found, err := get(env, uint32(stack[0]), k)
		if err != nil {
			return err
		}
		if !found {
			return errors.MissingKey(layout.OpGetThrow.String(), KeyString(env, k))
		}
		stack[0], stack[1] = tv.Words()
		return nil
	}
}

func setNative(fn func(*layout.Env, uint32, value.TypedValue, value.TypedValue) (uint32, error), key layout.KeyKind) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		out, err := fn(env, uint32(stack[0]), KeyFromWord(key, stack[1]), value.FromWords(stack[2], stack[3]))
		stack[0] = uint64(out)
		return err
	}
}

func removeNative(fn func(*layout.Env, uint32, value.TypedValue) (uint32, error), key layout.KeyKind) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		out, err := fn(env, uint32(stack[0]), KeyFromWord(key, stack[1]))
		stack[0] = uint64(out)
		return err
	}
}

// ElemNative adapts an Elem implementation. A non-nil throwOnMissing fixes
// the throw mode and ignores the stack's third word.
func ElemNative(fn func(*layout.Env, uint32, value.TypedValue, bool) (uint32, uint32, uint32, error), key layout.KeyKind, throwOnMissing *bool) layout.NativeFunc {
	return func(env *layout.Env, stack []uint64) error {
		throw := stack[2] != 0
		if throwOnMissing != nil {
			throw = *throwOnMissing
		}
		arr, valAddr, typeAddr, err := fn(env, uint32(stack[0]), KeyFromWord(key, stack[1]), throw)
		stack[0], stack[1], stack[2] = uint64(arr), uint64(valAddr), uint64(typeAddr)
		return err
	}
}

var bothKeys = []layout.KeyKind{layout.KeyInt, layout.KeyStr}

var genericVTable = Impl{
	Destroy:     Destroy,
	Copy:        Copy,
	Get:         Get,
	GetThrow:    GetThrow,
	Set:         Set,
	Remove:      Remove,
	Append:      Append,
	IterBegin:   IterBegin,
	IterLast:    IterLast,
	IterEnd:     IterEnd,
	IterAdvance: IterAdvance,
	GetPosKey:   GetPosKey,
	GetPosVal:   GetPosVal,
	Elem:        Elem,
	Escalate:    Escalate,
	Keys:        bothKeys,
}.VTable("Generic")

var bespokeVTable = Impl{
	Destroy:     BespokeDestroy,
	Copy:        BespokeCopy,
	Get:         BespokeGet,
	GetThrow:    BespokeGetThrow,
	Set:         BespokeSet,
	Remove:      BespokeRemove,
	Append:      BespokeAppend,
	IterBegin:   BespokeIterBegin,
	IterLast:    BespokeIterLast,
	IterEnd:     BespokeIterEnd,
	IterAdvance: BespokeIterAdvance,
	GetPosKey:   BespokeGetPosKey,
	GetPosVal:   BespokeGetPosVal,
	Elem:        BespokeElem,
	Escalate:    Escalate,
	Keys:        bothKeys,
}.VTable("BespokeArray")

func identityEscalate(_ *layout.Env, arr uint32, _ string) (uint32, error) {
	return arr, nil
}

var vanillaVTables = [value.NumArrayKinds]*layout.VTable{
	value.ArrayVec: Impl{
		Destroy: VecDestroy,
		Copy: func(env *layout.Env, arr uint32) (uint32, error) {
			return VecCopy(env, arr), nil
		},
		Get: func(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
			tv, ok := VecGet(env.Heap, arr, key.Int())
			return tv, ok, nil
		},
		Set: func(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
			return VecSet(env, arr, key.Int(), tv)
		},
		Remove: func(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
			return VecRemove(env, arr, key.Int())
		},
		Append: func(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
			return VecAppend(env, arr, tv), nil
		},
		IterBegin:   vanillaIterBegin,
		IterLast:    vanillaIterLast,
		IterEnd:     vanillaIterEnd,
		IterAdvance: vanillaIterAdvance,
		GetPosKey:   vanillaGetPosKey,
		GetPosVal:   vanillaGetPosVal,
		Escalate:    identityEscalate,
		Keys:        []layout.KeyKind{layout.KeyInt},
	}.VTable("VanillaVec"),
	value.ArrayDict: Impl{
		Destroy: DictDestroy,
		Copy: func(env *layout.Env, arr uint32) (uint32, error) {
			return DictCopy(env, arr), nil
		},
		Get: func(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
			tv, ok := DictGet(env, arr, key)
			return tv, ok, nil
		},
		Set:         DictSet,
		Remove:      DictRemove,
		Append:      DictAppend,
		IterBegin:   vanillaIterBegin,
		IterLast:    vanillaIterLast,
		IterEnd:     vanillaIterEnd,
		IterAdvance: vanillaIterAdvance,
		GetPosKey:   vanillaGetPosKey,
		GetPosVal:   vanillaGetPosVal,
		Escalate:    identityEscalate,
		Keys:        bothKeys,
	}.VTable("VanillaDict"),
	value.ArrayKeyset: Impl{
		Destroy: KeysetDestroy,
		Copy: func(env *layout.Env, arr uint32) (uint32, error) {
			return KeysetCopy(env, arr), nil
		},
		Get: func(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
			tv, ok := KeysetGet(env, arr, key)
			return tv, ok, nil
		},
		Remove: func(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
			return KeysetRemove(env, arr, key), nil
		},
		Append:      KeysetAdd,
		IterBegin:   vanillaIterBegin,
		IterLast:    vanillaIterLast,
		IterEnd:     vanillaIterEnd,
		IterAdvance: vanillaIterAdvance,
		GetPosKey:   vanillaGetPosKey,
		GetPosVal:   vanillaGetPosVal,
		Escalate:    identityEscalate,
		Keys:        bothKeys,
	}.VTable("VanillaKeyset"),
}

// GenericVTable returns the operations that are correct for every array.
func GenericVTable() *layout.VTable { return genericVTable }

// BespokeVTable returns the specialized-layout fallback operations. They
// dispatch through the runtime layout's vtable and escalate when it has no
// entry for an operation that mutates.
func BespokeVTable() *layout.VTable { return bespokeVTable }

// VanillaVTable returns the dedicated operations for one vanilla kind.
func VanillaVTable(kind value.ArrayKind) *layout.VTable {
	if int(kind) >= len(vanillaVTables) {
		return nil
	}
	return vanillaVTables[kind]
}

var (
	throwTrue  = true
	throwFalse = false
)

// VanillaElem returns the dedicated Elem for a vanilla kind and throw mode.
// Dicts have both modes; keysets only the non-throwing one; vecs none.
func VanillaElem(kind value.ArrayKind, key layout.KeyKind, throwOnMissing bool) (layout.Entry, bool) {
	if key != layout.KeyInt && key != layout.KeyStr {
		return layout.Entry{}, false
	}
	mode := &throwFalse
	suffix := "Quiet"
	if throwOnMissing {
		mode, suffix = &throwTrue, "Throw"
	}
	switch {
	case kind == value.ArrayDict:
		return layout.Entry{
			Fn:     ElemNative(DictElem, key, mode),
			Symbol: "VanillaDict::" + layout.OpElem.Symbol(key) + suffix,
			Op:     layout.OpElem,
			Key:    key,
		}, true
	case kind == value.ArrayKeyset && !throwOnMissing:
		return layout.Entry{
			Fn:     ElemNative(KeysetElem, key, mode),
			Symbol: "VanillaKeyset::" + layout.OpElem.Symbol(key) + suffix,
			Op:     layout.OpElem,
			Key:    key,
		}, true
	}
	return layout.Entry{}, false
}

// GenericElem returns the generic Elem for a throw mode.
func GenericElem(key layout.KeyKind, throwOnMissing bool) layout.Entry {
	mode := &throwFalse
	suffix := "Quiet"
	if throwOnMissing {
		mode, suffix = &throwTrue, "Throw"
	}
	return layout.Entry{
		Fn:     ElemNative(Elem, key, mode),
		Symbol: "Generic::" + layout.OpElem.Symbol(key) + suffix,
		Op:     layout.OpElem,
		Key:    key,
	}
}
