package runtime

import (
	"context"
	"io"

	"go.uber.org/zap"

	bespoke "github.com/wippyai/bespoke-runtime"
	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/dispatch"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/logging"
	"github.com/wippyai/bespoke-runtime/monotype"
	"github.com/wippyai/bespoke-runtime/schema"
	"github.com/wippyai/bespoke-runtime/structdict"
	"github.com/wippyai/bespoke-runtime/value"
)

// Runtime owns one heap and the layouts declared over it.
type Runtime struct {
	cfg     Config
	mem     bespoke.Memory
	wazero  *heap.WazeroMemory
	heap    *heap.Heap
	reg     *layout.Registry
	mono    *monotype.Layouts
	structs *structdict.Universe
	schema  *schema.Schema
	sink    *logging.Sink
	wrapper *logging.Wrapper
	env     *layout.Env
	disp    *dispatch.Dispatcher
	interp  *dispatch.Interp
	closed  bool
}

// New assembles a runtime: heap, registry with the reserved layouts,
// struct universe, logging sink and dispatcher. Struct layouts may be
// declared until Finalize.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := newConfig(opts)
	if cfg.Logger != nil {
		installLogger(cfg.Logger)
	}

	r := &Runtime{cfg: cfg}
	if cfg.WazeroMemory {
		mem, err := heap.NewWazeroMemory(ctx, cfg.InitialPages, cfg.MemoryLimitPages)
		if err != nil {
			return nil, err
		}
		r.wazero, r.mem = mem, mem
	} else {
		r.mem = heap.NewLinear(cfg.InitialPages, cfg.MemoryLimitPages)
	}

	strs := value.NewStringTable()
	h, err := heap.New(r.mem, strs)
	if err != nil {
		_ = r.closeMemory(ctx)
		return nil, err
	}
	r.heap = h

	r.reg = layout.NewRegistry()
	r.mono = monotype.New(monotype.Config{MaxCapacity: cfg.MonotypeCapacity})
	if err := r.mono.Register(r.reg); err != nil {
		_ = r.closeMemory(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindRegistration, err, "register monotype layouts")
	}
	r.sink = logging.NewSink(cfg.LoggingSampleRate)
	r.wrapper = logging.NewWrapper(r.sink)
	if err := r.wrapper.Register(r.reg); err != nil {
		_ = r.closeMemory(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindRegistration, err, "register logging layout")
	}
	r.sink.Subscribe(eventLog{})

	r.structs = structdict.NewUniverse(r.reg, strs)
	r.schema = schema.New(r.structs, r.mono)
	r.env = layout.NewEnv(h, r.reg, r.sink)
	r.disp = dispatch.New(r.reg)
	r.interp = dispatch.NewInterp(r.env)

	Logger().Debug("runtime created",
		zap.Uint32("pages", cfg.InitialPages),
		zap.Uint32("limit_pages", cfg.MemoryLimitPages),
		zap.Bool("wazero", cfg.WazeroMemory),
		zap.Uint32("sample_rate", cfg.LoggingSampleRate))
	return r, nil
}

// installLogger sets l in every package that logs.
func installLogger(l *zap.Logger) {
	SetLogger(l)
	heap.SetLogger(l.Named("heap"))
	layout.SetLogger(l.Named("layout"))
	arrays.SetLogger(l.Named("arrays"))
	structdict.SetLogger(l.Named("structdict"))
	logging.SetLogger(l.Named("logging"))
	dispatch.SetLogger(l.Named("dispatch"))
}

func (r *Runtime) Config() Config { return r.cfg }

func (r *Runtime) Env() *layout.Env { return r.env }

func (r *Runtime) Heap() *heap.Heap { return r.heap }

func (r *Runtime) Registry() *layout.Registry { return r.reg }

func (r *Runtime) Monotype() *monotype.Layouts { return r.mono }

// Structs returns the universe struct layouts are declared in.
func (r *Runtime) Structs() *structdict.Universe { return r.structs }

func (r *Runtime) Schema() *schema.Schema { return r.schema }

func (r *Runtime) Sink() *logging.Sink { return r.sink }

// Logging returns the wrapper that creates logging arrays.
func (r *Runtime) Logging() *logging.Wrapper { return r.wrapper }

func (r *Runtime) Dispatcher() *dispatch.Dispatcher { return r.disp }

func (r *Runtime) Interp() *dispatch.Interp { return r.interp }

// DeclareStruct declares a concrete struct layout.
func (r *Runtime) DeclareStruct(name string, fields ...structdict.FieldSpec) (*structdict.Layout, error) {
	if r.reg.Finalized() {
		return nil, errors.Registration(name, "registry is finalized")
	}
	return r.structs.NewLayout(name, fields)
}

// DeclareAbstract declares an abstract struct layout over children.
func (r *Runtime) DeclareAbstract(name string, children ...*structdict.Layout) (*layout.Abstract, error) {
	if r.reg.Finalized() {
		return nil, errors.Registration(name, "registry is finalized")
	}
	return r.structs.NewAbstract(name, children...)
}

// DeclareWIT declares layouts for the records and record variants of a
// WIT package set in JSON form.
func (r *Runtime) DeclareWIT(src io.Reader) ([]layout.Descriptor, error) {
	if r.reg.Finalized() {
		return nil, errors.Registration("wit", "registry is finalized")
	}
	res, err := schema.DecodeJSON(src)
	if err != nil {
		return nil, err
	}
	return r.schema.DeclareAll(res)
}

// Finalize freezes the registry. Dispatch targets resolved afterwards
// are cached.
func (r *Runtime) Finalize() {
	r.reg.Finalize()
}

// NewArray allocates an empty vanilla array of kind.
func (r *Runtime) NewArray(kind value.ArrayKind, capacity uint32) uint32 {
	return arrays.NewVanilla(r.env, kind, capacity)
}

// Release drops one reference to arr.
func (r *Runtime) Release(arr uint32) error {
	return arrays.Release(r.env, arr)
}

// Exec lowers inst and runs it, returning the result words.
func (r *Runtime) Exec(inst dispatch.Inst, args ...uint64) ([]uint64, error) {
	c, err := r.disp.Lower(r.heap.Strings, inst, args...)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, c.Target.Results)
	if err := r.interp.Emit(c, out); err != nil {
		return out, err
	}
	return out, nil
}

// Close releases the runtime's profiles and memory. Arrays allocated from
// it must not be used afterwards.
func (r *Runtime) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.sink.Close(); err != nil {
		return err
	}
	return r.closeMemory(ctx)
}

func (r *Runtime) closeMemory(ctx context.Context) error {
	if r.wazero == nil {
		return nil
	}
	return r.wazero.Close(ctx)
}

// eventLog forwards sink events to the runtime logger.
type eventLog struct{}

func (eventLog) OnEvent(e logging.Event) {
	l := Logger()
	if ce := l.Check(zap.DebugLevel, "array event"); ce != nil {
		ce.Write(
			zap.Stringer("type", e.Type),
			zap.Uint32("arr", e.Arr),
			zap.Uint32("profile", uint32(e.Profile)),
			zap.Uint16("layout", uint16(e.Layout)),
			zap.String("reason", e.Reason),
			zap.Uint64("site", e.Site))
	}
}
