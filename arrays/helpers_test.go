package arrays

import (
	"testing"

	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

type recorder struct {
	escalations []string
}

func (r *recorder) RecordGuardFailure(uint32, layout.Index, uint64) {}
func (r *recorder) RecordSpecializationOutcome(uint32) {}
func (r *recorder) RecordEscalation(_ uint32, reason string) {
	r.escalations = append(r.escalations, reason)
}

func newEnv(t *testing.T) (*layout.Env, *recorder) {
	t.Helper()
	h, err := heap.New(heap.NewLinear(1, 0), value.NewStringTable())
	if err != nil {
		t.Fatalf("heap.New failed: %v", err)
	}
	rec := &recorder{}
	reg := layout.NewRegistry()
	registerBox(t, reg)
	reg.Finalize()
	return layout.NewEnv(h, reg, rec), rec
}

// boxIndex is a minimal specialized layout used to exercise the fallback
// paths: a header whose aux word points at a vanilla array. It implements
// only destruction and iteration.
const boxIndex = layout.FirstDynamicIndex

func registerBox(t *testing.T, reg *layout.Registry) {
	t.Helper()
	inner := func(env *layout.Env, arr uint32) uint32 { return env.Heap.Aux(arr) }
	vt := Impl{
		Destroy: func(env *layout.Env, arr uint32) error {
			if err := Release(env, inner(env, arr)); err != nil {
				return err
			}
			env.Heap.Free(arr, heap.HeaderSize, heap.Alignment)
			return nil
		},
		IterBegin: func(env *layout.Env, arr uint32) (uint32, error) { return IterBegin(env, inner(env, arr)) },
		IterEnd:   func(env *layout.Env, arr uint32) (uint32, error) { return IterEnd(env, inner(env, arr)) },
		IterAdvance: func(env *layout.Env, arr, pos uint32) (uint32, error) {
			return IterAdvance(env, inner(env, arr), pos)
		},
		GetPosKey: func(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
			return GetPosKey(env, inner(env, arr), pos)
		},
		GetPosVal: func(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
			return GetPosVal(env, inner(env, arr), pos)
		},
	}.VTable("Box")
	err := reg.Register(&layout.Concrete{Name: "Box", Index: boxIndex, Kind: value.ArrayDict, VTable: vt})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func newBox(env *layout.Env, inner uint32) uint32 {
	h := env.Heap
	arr := h.MustAlloc(heap.HeaderSize)
	h.InitHeader(arr, h.Kind(inner), true, uint16(boxIndex), h.Size(inner))
	h.SetAux(arr, inner)
	return arr
}

func mustSet(t *testing.T, env *layout.Env, arr uint32, key, val value.TypedValue) uint32 {
	t.Helper()
	out, err := Set(env, arr, key, val)
	if err != nil {
		t.Fatalf("Set(%v) failed: %v", key, err)
	}
	return out
}
