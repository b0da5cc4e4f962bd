package arrays

import (
	"go.uber.org/zap"

	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Escalate converts arr to the vanilla layout of its container kind and
// reports reason to the profiler. The reference to arr is consumed. Vanilla
// arrays are returned unchanged.
func Escalate(env *layout.Env, arr uint32, reason string) (uint32, error) {
	h := env.Heap
	if !h.IsBespoke(arr) {
		return arr, nil
	}
	env.Profiler.RecordEscalation(arr, reason)
	return Convert(env, arr, reason)
}

// Convert escalates arr like Escalate without reporting to the profiler.
// Layouts that delegate to an inner array use it so one escalation is
// recorded once.
func Convert(env *layout.Env, arr uint32, reason string) (uint32, error) {
	h := env.Heap
	if !h.IsBespoke(arr) {
		return arr, nil
	}
	Logger().Debug("escalating array",
		zap.Uint32("arr", arr),
		zap.Uint16("layout", h.LayoutIndex(arr)),
		zap.String("reason", reason))

	if e, ok := bespokeEntry(env, arr, layout.OpEscalateToVanilla, layout.KeyNone); ok {
		reasonID := env.Strings().Intern(reason).ID()
		stack, err := call(env, e, uint64(arr), uint64(reasonID))
		return uint32(stack[0]), err
	}

	out, err := ToVanilla(env, arr)
	if err != nil {
		return arr, err
	}
	return out, Release(env, arr)
}

// ToVanilla builds a vanilla copy of a specialized array by iterating it
// through its layout. The reference to arr is not consumed. Layouts without
// an EscalateToVanilla entry must implement every iteration op.
func ToVanilla(env *layout.Env, arr uint32) (uint32, error) {
	h := env.Heap
	kind := h.Kind(arr)
	lookup := func(op layout.Op) (layout.Entry, error) {
		e, ok := bespokeEntry(env, arr, op, layout.KeyNone)
		if !ok {
			return e, errors.New(errors.PhaseEscalate, errors.KindUnsupported).
				Op(op.String()).
				Detail("layout %d cannot be iterated", h.LayoutIndex(arr)).
				Build()
		}
		return e, nil
	}

	var entries [layout.NumOps]layout.Entry
	for _, op := range []layout.Op{layout.OpIterBegin, layout.OpIterEnd, layout.OpIterAdvance, layout.OpGetPosKey, layout.OpGetPosVal} {
		e, err := lookup(op)
		if err != nil {
			return 0, err
		}
		entries[op] = e
	}
	step := func(op layout.Op, args ...uint64) ([]uint64, error) {
		return call(env, entries[op], args...)
	}

	out := NewVanilla(env, kind, h.Size(arr))
	s, err := step(layout.OpIterBegin, uint64(arr))
	if err != nil {
		return 0, err
	}
	pos := s[0]
	s, err = step(layout.OpIterEnd, uint64(arr))
	if err != nil {
		return 0, err
	}
	end := s[0]

	for pos != end {
		ks, err := step(layout.OpGetPosKey, uint64(arr), pos)
		if err != nil {
			return 0, err
		}
		vs, err := step(layout.OpGetPosVal, uint64(arr), pos)
		if err != nil {
			return 0, err
		}
		key := value.FromWords(ks[0], ks[1])
		val := value.FromWords(vs[0], vs[1])
		h.IncRefTV(val)

		switch kind {
		case value.ArrayVec:
			out = VecAppend(env, out, val)
		case value.ArrayDict:
			out, err = DictSet(env, out, key, val)
		case value.ArrayKeyset:
			out, err = KeysetAdd(env, out, key)
		}
		if err != nil {
			return 0, err
		}

		as, err := step(layout.OpIterAdvance, uint64(arr), pos)
		if err != nil {
			return 0, err
		}
		pos = as[0]
	}
	return out, nil
}
