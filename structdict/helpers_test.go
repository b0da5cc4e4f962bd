package structdict

import (
	"fmt"
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

type fixture struct {
	env *layout.Env
	u   *Universe
	rec *recorder
}

// newFixture declares layouts with build and finalizes the registry.
func newFixture(t testing.TB, build func(u *Universe)) *fixture {
	t.Helper()
	strings := value.NewStringTable()
	h, err := heap.New(heap.NewLinear(1, 0), strings)
	if err != nil {
		t.Fatalf("heap.New failed: %v", err)
	}
	reg := layout.NewRegistry()
	u := NewUniverse(reg, strings)
	if build != nil {
		build(u)
	}
	reg.Finalize()
	rec := &recorder{}
	return &fixture{env: layout.NewEnv(h, reg, rec), u: u, rec: rec}
}

func mustLayout(t testing.TB, u *Universe, name string, fields ...FieldSpec) *Layout {
	t.Helper()
	l, err := u.NewLayout(name, fields)
	if err != nil {
		t.Fatalf("NewLayout(%s) failed: %v", name, err)
	}
	return l
}

func optional(names ...string) []FieldSpec {
	out := make([]FieldSpec, len(names))
	for i, n := range names {
		out[i] = FieldSpec{Name: n}
	}
	return out
}

func numbered(prefix string, n int) []FieldSpec {
	out := make([]FieldSpec, n)
	for i := range out {
		out[i] = FieldSpec{Name: fmt.Sprintf("%s%d", prefix, i)}
	}
	return out
}

// scanSlot is the exhaustive reference lookup: compare key content with
// every field name.
func scanSlot(l *Layout, key string) Slot {
	for _, f := range l.Fields() {
		if f.Name.String() == key {
			return f.Slot
		}
	}
	return InvalidSlot
}

func (f *fixture) str(s string) value.TypedValue {
	return value.String(f.env.Strings().Intern(s))
}

func (f *fixture) checkNoLeaks(t *testing.T) {
	t.Helper()
	if live := f.env.Heap.Stats().Live; live != 0 {
		t.Errorf("got %d live allocations, want 0", live)
	}
}
