package dispatch

import (
	"testing"

	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/logging"
	"github.com/wippyai/bespoke-runtime/monotype"
	"github.com/wippyai/bespoke-runtime/structdict"
	"github.com/wippyai/bespoke-runtime/value"
)

type fixture struct {
	env  *layout.Env
	d    *Dispatcher
	in   *Interp
	mono *monotype.Layouts
	u    *structdict.Universe
	user *structdict.Layout
	wrap *logging.Wrapper
	sink *logging.Sink
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	strs := value.NewStringTable()
	h, err := heap.New(heap.NewLinear(1, 0), strs)
	if err != nil {
		t.Fatalf("heap.New failed: %v", err)
	}
	reg := layout.NewRegistry()

	mono := monotype.New(monotype.Config{})
	if err := mono.Register(reg); err != nil {
		t.Fatalf("monotype Register failed: %v", err)
	}
	sink := logging.NewSink(1)
	wrap := logging.NewWrapper(sink)
	if err := wrap.Register(reg); err != nil {
		t.Fatalf("logging Register failed: %v", err)
	}
	u := structdict.NewUniverse(reg, strs)
	user, err := u.NewLayout("User", []structdict.FieldSpec{
		{Name: "id", Required: true, Types: value.MaskOf(value.KindOfInt64)},
		{Name: "name"},
	})
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	reg.Finalize()

	env := layout.NewEnv(h, reg, sink)
	return &fixture{
		env:  env,
		d:    New(reg),
		in:   NewInterp(env),
		mono: mono,
		u:    u,
		user: user,
		wrap: wrap,
		sink: sink,
	}
}

func (f *fixture) str(s string) value.TypedValue {
	return value.String(f.env.Strings().Intern(s))
}

// run lowers inst with args, executes it and returns the result words.
func (f *fixture) run(t testing.TB, inst Inst, args ...uint64) ([]uint64, error) {
	t.Helper()
	c, err := f.d.Lower(f.env.Strings(), inst, args...)
	if err != nil {
		t.Fatalf("Lower(%s) failed: %v", inst.Op, err)
	}
	dst := make([]uint64, c.Target.Results)
	err = f.in.Emit(c, dst)
	return dst, err
}

func (f *fixture) release(t testing.TB, arrs ...uint32) {
	t.Helper()
	for _, a := range arrs {
		if err := arrays.Release(f.env, a); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
	}
}

func (f *fixture) checkNoLeaks(t testing.TB) {
	t.Helper()
	if live := f.env.Heap.Stats().Live; live != 0 {
		t.Errorf("got %d live allocations, want 0", live)
	}
}
