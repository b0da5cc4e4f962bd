package monotype

import (
	"testing"

	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

func appendAll(t *testing.T, env *layout.Env, arr uint32, tvs ...value.TypedValue) uint32 {
	t.Helper()
	for _, tv := range tvs {
		var err error
		if arr, err = arrays.Append(env, arr, tv); err != nil {
			t.Fatalf("Append(%v) failed: %v", tv, err)
		}
	}
	return arr
}

func TestVecAppendFixesKind(t *testing.T) {
	env, l, rec := newEnv(t, Config{})
	h := env.Heap
	arr := appendAll(t, env, l.NewVec(h, 0), value.Int(1), value.Int(2), value.Int(3))

	if !h.IsBespoke(arr) || layout.Index(h.LayoutIndex(arr)) != layout.MonotypeVecIndex {
		t.Fatalf("got layout %d, want MonotypeVec", h.LayoutIndex(arr))
	}
	if got := LoadValueKind(h, arr); got != value.KindOfInt64 {
		t.Errorf("got kind %v, want int", got)
	}
	tv, ok, err := arrays.Get(env, arr, value.Int(1))
	if err != nil || !ok || tv.Int() != 2 {
		t.Errorf("got %v/%v/%v, want 2", tv.Int(), ok, err)
	}
	if len(rec.escalations) != 0 {
		t.Errorf("got escalations %v, want none", rec.escalations)
	}
	if err := arrays.Release(env, arr); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	checkNoLeaks(t, env)
}

func TestVecEscalation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		mutate func(env *layout.Env, arr uint32) (uint32, error)
		want   string
		size   uint32
	}{
		{
			name: "append other kind",
			mutate: func(env *layout.Env, arr uint32) (uint32, error) {
				return arrays.Append(env, arr, value.Double(1.5))
			},
			want: ReasonValueKind,
			size: 3,
		},
		{
			name: "set other kind",
			mutate: func(env *layout.Env, arr uint32) (uint32, error) {
				return arrays.Set(env, arr, value.Int(0), value.Null())
			},
			want: ReasonValueKind,
			size: 2,
		},
		{
			name: "capacity",
			cfg:  Config{MaxCapacity: 2},
			mutate: func(env *layout.Env, arr uint32) (uint32, error) {
				return arrays.Append(env, arr, value.Int(3))
			},
			want: ReasonCapacity,
			size: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, l, rec := newEnv(t, tt.cfg)
			h := env.Heap
			arr := appendAll(t, env, l.NewVec(h, 0), value.Int(1), value.Int(2))
			out, err := tt.mutate(env, arr)
			if err != nil {
				t.Fatalf("mutate failed: %v", err)
			}
			if h.IsBespoke(out) {
				t.Errorf("array is still bespoke")
			}
			if got := h.Size(out); got != tt.size {
				t.Errorf("got size %d, want %d", got, tt.size)
			}
			if len(rec.escalations) != 1 || rec.escalations[0] != tt.want {
				t.Errorf("got escalations %v, want [%s]", rec.escalations, tt.want)
			}
			if err := arrays.Release(env, out); err != nil {
				t.Fatalf("Release failed: %v", err)
			}
			checkNoLeaks(t, env)
		})
	}
}

func TestVecErrorsMatchVanilla(t *testing.T) {
	env, l, _ := newEnv(t, Config{})
	h := env.Heap
	mono := appendAll(t, env, l.NewVec(h, 0), value.Int(1), value.Int(2))
	vanilla := appendAll(t, env, arrays.NewVec(h, 0), value.Int(1), value.Int(2))

	_, monoErr := arrays.Set(env, mono, value.Int(5), value.Int(0))
	_, vanErr := arrays.Set(env, vanilla, value.Int(5), value.Int(0))
	if monoErr == nil || vanErr == nil || monoErr.Error() != vanErr.Error() {
		t.Errorf("set out of bounds: got %v, want %v", monoErr, vanErr)
	}

	_, monoErr = arrays.Remove(env, mono, value.Int(0))
	_, vanErr = arrays.Remove(env, vanilla, value.Int(0))
	if monoErr == nil || vanErr == nil || monoErr.Error() != vanErr.Error() {
		t.Errorf("remove middle: got %v, want %v", monoErr, vanErr)
	}

	_, monoErr = arrays.GetThrow(env, mono, value.Int(9))
	_, vanErr = arrays.GetThrow(env, vanilla, value.Int(9))
	if monoErr == nil || vanErr == nil || monoErr.Error() != vanErr.Error() {
		t.Errorf("get throw: got %v, want %v", monoErr, vanErr)
	}
}

func TestVecCopyOnWrite(t *testing.T) {
	env, l, _ := newEnv(t, Config{})
	h := env.Heap
	arr := appendAll(t, env, l.NewVec(h, 0), value.Int(1), value.Int(2))
	h.IncRef(arr)

	out, err := arrays.Set(env, arr, value.Int(0), value.Int(10))
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if out == arr {
		t.Fatal("shared vec was written in place")
	}
	old, _, _ := arrays.Get(env, arr, value.Int(0))
	if old.Int() != 1 {
		t.Errorf("got original %d, want 1", old.Int())
	}
	got, _, _ := arrays.Get(env, out, value.Int(0))
	if got.Int() != 10 {
		t.Errorf("got copy %d, want 10", got.Int())
	}
	for _, a := range []uint32{arr, out} {
		if err := arrays.Release(env, a); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
	}
	checkNoLeaks(t, env)
}

func TestVecNestedRelease(t *testing.T) {
	env, l, _ := newEnv(t, Config{})
	h := env.Heap
	inner := appendAll(t, env, arrays.NewVec(h, 0), value.Int(1))
	h.IncRef(inner)
	outer := appendAll(t, env, l.NewVec(h, 0),
		value.Array(value.ArrayVec, inner), value.Array(value.ArrayVec, inner))
	if got := h.RefCount(inner); got != 2 {
		t.Fatalf("got refcount %d, want 2", got)
	}

	out, err := arrays.Remove(env, outer, value.Int(1))
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if got := h.RefCount(inner); got != 1 {
		t.Errorf("got refcount %d, want 1", got)
	}
	if err := arrays.Release(env, out); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	checkNoLeaks(t, env)
}

func TestVecElemEscalatesOnHit(t *testing.T) {
	env, l, rec := newEnv(t, Config{})
	h := env.Heap
	arr := appendAll(t, env, l.NewVec(h, 0), value.Int(7))

	out, valAddr, _, err := arrays.Elem(env, arr, value.Int(3), false)
	if err != nil || valAddr != 0 || out != arr {
		t.Fatalf("miss: got %d/%d/%v, want unchanged array", out, valAddr, err)
	}
	if len(rec.escalations) != 0 {
		t.Errorf("miss escalated: %v", rec.escalations)
	}

	out, valAddr, typeAddr, err := arrays.Elem(env, arr, value.Int(0), true)
	if err != nil {
		t.Fatalf("Elem failed: %v", err)
	}
	if h.IsBespoke(out) {
		t.Error("Elem hit should escalate")
	}
	if got := h.Load64(valAddr); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
	if got := value.DataType(h.Load64(typeAddr)); got != value.KindOfInt64 {
		t.Errorf("got type %v, want int", got)
	}
	if err := arrays.Release(env, out); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	checkNoLeaks(t, env)
}
