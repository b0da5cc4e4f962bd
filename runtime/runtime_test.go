package runtime

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/bespoke-runtime/dispatch"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/logging"
	"github.com/wippyai/bespoke-runtime/structdict"
	"github.com/wippyai/bespoke-runtime/value"
)

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := New(ctx, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		if err := rt.Close(ctx); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return rt
}

func TestNewRegistersReservedLayouts(t *testing.T) {
	rt := newRuntime(t)
	tests := []struct {
		idx  layout.Index
		name string
	}{
		{layout.LoggingIndex, "logging"},
		{layout.TopIndex, "top"},
		{layout.MonotypeVecIndex, "monotype vec"},
		{layout.MonotypeDictStrIndex, "monotype dict str"},
		{layout.MonotypeDictIntIndex, "monotype dict int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := rt.Registry().Get(tt.idx); !ok {
				t.Errorf("index %v not registered", tt.idx)
			}
		})
	}
	if rt.Registry().Finalized() {
		t.Error("registry finalized before Finalize")
	}
}

func TestConfigDefaults(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		wantPages uint32
	}{
		{"default", nil, DefaultInitialPages},
		{"explicit", []Option{WithInitialPages(4)}, 4},
		{"clamped to limit", []Option{WithInitialPages(8), WithMemoryLimitPages(2)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t, tt.opts...)
			if got := rt.Config().InitialPages; got != tt.wantPages {
				t.Errorf("got %d pages, want %d", got, tt.wantPages)
			}
			if got, want := rt.Heap().Stats().Capacity, tt.wantPages*heap.PageSize; got != want {
				t.Errorf("got capacity %d, want %d", got, want)
			}
		})
	}
}

func TestDeclareAfterFinalize(t *testing.T) {
	rt := newRuntime(t)
	if _, err := rt.DeclareStruct("Point", structdict.FieldSpec{Name: "x"}); err != nil {
		t.Fatalf("DeclareStruct failed: %v", err)
	}
	rt.Finalize()

	want := &errors.Error{Phase: errors.PhaseRegister, Kind: errors.KindRegistration}
	if _, err := rt.DeclareStruct("Late", structdict.FieldSpec{Name: "y"}); !stderrors.Is(err, want) {
		t.Errorf("DeclareStruct: got %v, want a registration error", err)
	}
	if _, err := rt.DeclareAbstract("LateTop"); !stderrors.Is(err, want) {
		t.Errorf("DeclareAbstract: got %v, want a registration error", err)
	}
	if _, err := rt.DeclareWIT(strings.NewReader("{}")); !stderrors.Is(err, want) {
		t.Errorf("DeclareWIT: got %v, want a registration error", err)
	}
}

func TestDeclareWITRejectsBadJSON(t *testing.T) {
	rt := newRuntime(t)
	want := &errors.Error{Phase: errors.PhaseSchema, Kind: errors.KindInvalidInput}
	if _, err := rt.DeclareWIT(strings.NewReader("not json")); !stderrors.Is(err, want) {
		t.Errorf("got %v, want an invalid input error", err)
	}
}

func execStructOps(t *testing.T, rt *Runtime) {
	t.Helper()
	user, err := rt.DeclareStruct("User",
		structdict.FieldSpec{Name: "id", Required: true, Types: value.MaskOf(value.KindOfInt64)},
		structdict.FieldSpec{Name: "name"})
	if err != nil {
		t.Fatalf("DeclareStruct failed: %v", err)
	}
	rt.Finalize()

	typ := dispatch.Bespoke(user.Descriptor())
	key := value.String(rt.Heap().Strings.Intern("id"))
	arr := structdict.AllocStructDict(rt.Heap(), user)

	vd, vt := value.Int(42).Words()
	out, err := rt.Exec(dispatch.Inst{Op: layout.OpSet, Arr: typ, Key: dispatch.ConstKey(key)}, uint64(arr), key.Data, vd, vt)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	arr = uint32(out[0])
	if !rt.Heap().IsBespoke(arr) {
		t.Fatal("in-bounds set escalated")
	}

	out, err = rt.Exec(dispatch.Inst{Op: layout.OpGet, Arr: typ, Key: dispatch.StaticStrKey()}, uint64(arr), key.Data)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := value.FromWords(out[0], out[1]); got.Int() != 42 {
		t.Errorf("got %d, want 42", got.Int())
	}

	if err := rt.Release(arr); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if live := rt.Heap().Stats().Live; live != 0 {
		t.Errorf("got %d live allocations, want 0", live)
	}
}

func TestExec(t *testing.T) {
	execStructOps(t, newRuntime(t))
}

func TestExecOnWazeroMemory(t *testing.T) {
	rt := newRuntime(t, WithWazeroMemory(), WithInitialPages(2), WithMemoryLimitPages(4))
	if got, want := rt.Heap().Stats().Capacity, uint32(2*heap.PageSize); got != want {
		t.Fatalf("got capacity %d, want %d", got, want)
	}
	execStructOps(t, rt)
}

func TestExecRejectsBadArity(t *testing.T) {
	rt := newRuntime(t)
	rt.Finalize()
	_, err := rt.Exec(dispatch.Inst{Op: layout.OpGet, Arr: dispatch.AnyArray(), Key: dispatch.IntKey()}, 1)
	want := &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindInvalidInput}
	if !stderrors.Is(err, want) {
		t.Errorf("got %v, want an invalid input error", err)
	}
}

func TestLoggerReceivesSinkEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(func() { installLogger(zap.NewNop()) })

	rt := newRuntime(t, WithLogger(zap.New(core)), WithLoggingSampleRate(1))
	rt.Finalize()

	id, err := rt.Sink().NewProfile("alloc")
	if err != nil {
		t.Fatalf("NewProfile failed: %v", err)
	}
	arr := rt.NewArray(value.ArrayDict, 0)
	c := rt.Dispatcher().LowerNewLoggingArray(rt.Logging(), id, 7, arr)
	out := make([]uint64, c.Target.Results)
	if err := rt.Interp().Emit(c, out); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	arr = uint32(out[0])
	if !logging.IsLoggingArray(rt.Heap(), arr) {
		t.Fatal("array was not wrapped at sample rate 1")
	}
	if err := rt.Release(arr); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if n := logs.FilterMessage("array event").Len(); n == 0 {
		t.Error("no sink events logged")
	}
	if n := logs.FilterMessage("layout registry finalized").Len(); n != 1 {
		t.Errorf("got %d finalize logs, want 1", n)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, WithWazeroMemory())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Errorf("second Close: got %v, want nil", err)
	}
}
