package arrays

import (
	"testing"

	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

func TestBespokeFallbackReads(t *testing.T) {
	env, rec := newEnv(t)
	st := env.Strings()
	inner := mustSet(t, env, NewDict(env.Heap, 0), value.String(st.Intern("a")), value.Int(1))
	inner = mustSet(t, env, inner, value.Int(2), value.Int(2))
	box := newBox(env, inner)

	tv, ok, err := Get(env, box, value.Int(2))
	if err != nil || !ok || tv.Int() != 2 {
		t.Errorf("got %d/%v/%v, want 2", tv.Int(), ok, err)
	}
	if len(rec.escalations) != 0 {
		t.Errorf("reads must not escalate, got %v", rec.escalations)
	}
	if _, err := GetThrow(env, box, value.Int(3)); err == nil {
		t.Error("expected missing key error")
	}
}

func TestBespokeFallbackEscalatesMutations(t *testing.T) {
	env, rec := newEnv(t)
	h := env.Heap
	st := env.Strings()
	inner := mustSet(t, env, NewDict(h, 0), value.String(st.Intern("a")), value.Int(1))
	inner = mustSet(t, env, inner, value.String(st.Intern("b")), value.Int(2))
	box := newBox(env, inner)
	h.IncRef(box)

	out, err := Set(env, box, value.String(st.Intern("c")), value.Int(3))
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if h.IsBespoke(out) {
		t.Fatal("mutation without a vtable entry must escalate")
	}
	if len(rec.escalations) != 1 || rec.escalations[0] != "unimplemented Set" {
		t.Errorf("got escalations %v", rec.escalations)
	}

	pairs, err := Entries(env, out)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for i, p := range pairs {
		if got := st.Content(p.Key.StringID()); got != want[i] {
			t.Errorf("pair %d: got key %q, want %q", i, got, want[i])
		}
	}

	// the other reference to box is untouched
	if !h.IsBespoke(box) || h.RefCount(box) != 1 {
		t.Error("escalation must not disturb other holders")
	}
}

func TestEscalatePreservesContent(t *testing.T) {
	tests := []struct {
		name  string
		build func(env *layout.Env) uint32
	}{
		{"vec", func(env *layout.Env) uint32 {
			return VecFromValues(env.Heap, value.Int(3), value.Null(), value.Double(1.5))
		}},
		{"dict", func(env *layout.Env) uint32 {
			arr := NewDict(env.Heap, 0)
			for i := int64(5); i > 0; i-- {
				arr, _ = Set(env, arr, value.Int(i), value.Int(i*i))
			}
			return arr
		}},
		{"keyset", func(env *layout.Env) uint32 {
			arr := NewKeyset(env.Heap, 0)
			arr, _ = Append(env, arr, value.Int(9))
			arr, _ = Append(env, arr, value.String(env.Strings().Intern("z")))
			return arr
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, rec := newEnv(t)
			inner := tt.build(env)
			env.Heap.IncRef(inner)
			box := newBox(env, inner)

			out, err := Escalate(env, box, "test")
			if err != nil {
				t.Fatalf("Escalate failed: %v", err)
			}
			if env.Heap.Kind(out) != env.Heap.Kind(inner) {
				t.Errorf("got kind %s, want %s", env.Heap.Kind(out), env.Heap.Kind(inner))
			}
			same, err := Equal(env, out, inner)
			if err != nil || !same {
				t.Errorf("escalated array differs: %v", err)
			}
			if len(rec.escalations) != 1 {
				t.Errorf("got %d escalation records, want 1", len(rec.escalations))
			}
		})
	}
}

func TestEscalateVanillaIsIdentity(t *testing.T) {
	env, rec := newEnv(t)
	arr := NewVec(env.Heap, 0)
	out, err := Escalate(env, arr, "noop")
	if err != nil || out != arr {
		t.Errorf("got %#x/%v, want %#x", out, err, arr)
	}
	if len(rec.escalations) != 0 {
		t.Error("vanilla arrays are not reported")
	}
}
