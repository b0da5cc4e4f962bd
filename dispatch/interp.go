package dispatch

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
)

var heapFault = &errors.Error{Phase: errors.PhaseAddress, Kind: errors.KindOutOfBounds}

// Emitter consumes lowered calls: invoke c.Target with c.Args and capture
// the results into dst.
type Emitter interface {
	Emit(c Call, dst []uint64) error
}

// InterpStats counts what an Interp executed.
type InterpStats struct {
	Calls      uint64
	SyncPoints uint64
	Faults     uint64
	BySource   [SourceHelper + 1]uint64
}

// Interp executes calls immediately against an environment.
type Interp struct {
	env   *layout.Env
	stack []uint64
	stats InterpStats
}

// NewInterp creates an interpreter over env.
func NewInterp(env *layout.Env) *Interp {
	return &Interp{env: env, stack: make([]uint64, 0, 8)}
}

// Env returns the environment calls run in.
func (in *Interp) Env() *layout.Env { return in.env }

// Stats returns the interpreter's counters.
func (in *Interp) Stats() InterpStats { return in.stats }

// Emit runs c. A sync point publishes c.Site in the environment before the
// call. Heap faults raised by the target are returned as errors.
func (in *Interp) Emit(c Call, dst []uint64) error {
	if c.Target.Fn == nil {
		return errors.New(errors.PhaseDispatch, errors.KindNotInitialized).
			Op(c.Target.Symbol).
			Detail("call target has no implementation").
			Build()
	}
	size := max(c.Target.Params, c.Target.Results, len(c.Args))
	if cap(in.stack) < size {
		in.stack = make([]uint64, size)
	}
	stack := in.stack[:size]
	clear(stack)
	copy(stack, c.Args)

	in.stats.Calls++
	in.stats.BySource[c.Target.Source]++
	if c.Sync == SyncPoint {
		in.stats.SyncPoints++
		in.env.Site = c.Site
	}
	if err := layout.Invoke(in.env, c.Target.Fn, stack); err != nil {
		if stderrors.Is(err, heapFault) {
			in.stats.Faults++
			Logger().Debug("heap fault in native call",
				zap.String("symbol", c.Target.Symbol),
				zap.Error(err))
		}
		copy(dst, stack[:min(len(dst), c.Target.Results)])
		return err
	}
	copy(dst, stack[:min(len(dst), c.Target.Results)])
	return nil
}
