package monotype

import (
	"testing"

	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

type recorder struct {
	layout.NopProfiler
	escalations []string
}

func (r *recorder) RecordEscalation(_ uint32, reason string) {
	r.escalations = append(r.escalations, reason)
}

func newEnv(t *testing.T, cfg Config) (*layout.Env, *Layouts, *recorder) {
	t.Helper()
	h, err := heap.New(heap.NewLinear(1, 0), value.NewStringTable())
	if err != nil {
		t.Fatalf("heap.New failed: %v", err)
	}
	l := New(cfg)
	reg := layout.NewRegistry()
	if err := l.Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	reg.Finalize()
	rec := &recorder{}
	return layout.NewEnv(h, reg, rec), l, rec
}

func checkNoLeaks(t *testing.T, env *layout.Env) {
	t.Helper()
	if live := env.Heap.Stats().Live; live != 0 {
		t.Errorf("got %d live allocations, want 0", live)
	}
}

func str(env *layout.Env, s string) value.TypedValue {
	return value.String(env.Strings().Intern(s))
}
