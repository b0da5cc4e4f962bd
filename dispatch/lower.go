package dispatch

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/logging"
	"github.com/wippyai/bespoke-runtime/value"
)

// Inst is one array operation as generated code sees it: static operand
// types plus the immediates lowering needs.
type Inst struct {
	Op  layout.Op
	Arr Type
	Key KeyType
	// Site identifies the call site; sync points publish it.
	Site           uint64
	ThrowOnMissing bool
	// Reason is the escalation reason of EscalateToVanilla.
	Reason string
}

// Call is a lowered native call. Args are the call's input words in the
// stack calling convention; results are written back from word 0.
type Call struct {
	Target CallSpec
	Sync   Sync
	Site   uint64
	Args   []uint64
}

// Lower resolves inst to a call with the given argument words. Keys and
// values occupy their two words (data, type) except that keyed entry points
// take the key as a single data word. EscalateToVanilla takes only the array;
// the reason is interned and appended as an immediate.
func (d *Dispatcher) Lower(strs *value.StringTable, inst Inst, args ...uint64) (Call, error) {
	var target CallSpec
	switch inst.Op {
	case layout.OpElem:
		target = d.Elem(inst.Arr, inst.Key.Kind(), inst.ThrowOnMissing)
		throw := uint64(0)
		if inst.ThrowOnMissing {
			throw = 1
		}
		args = append(args[:min(len(args), 2):min(len(args), 2)], throw)
	case layout.OpEscalateToVanilla:
		if strs == nil {
			return Call{}, errors.InvalidInput(errors.PhaseDispatch, "escalation reason needs a string table")
		}
		target = d.Target(inst.Arr, inst.Op, layout.KeyNone)
		args = append(args[:min(len(args), 1):min(len(args), 1)], uint64(strs.Intern(inst.Reason).ID()))
	default:
		target = d.Target(inst.Arr, inst.Op, inst.Key.Kind())
	}
	if len(args) != target.Params {
		return Call{}, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
			Op(target.Symbol).
			Detail("got %d argument words, want %d", len(args), target.Params).
			Build()
	}
	return Call{
		Target: target,
		Sync:   d.SyncFor(inst.Arr, inst.Op),
		Site:   inst.Site,
		Args:   args,
	}, nil
}

// LowerGuardFailure reports that arr failed a layout guard for want at site.
func (d *Dispatcher) LowerGuardFailure(want ArrayLayout, site uint64, arr uint32) Call {
	return Call{
		Target: CallSpec{
			Fn: func(env *layout.Env, stack []uint64) error {
				env.Profiler.RecordGuardFailure(uint32(stack[0]), layout.Index(stack[1]), stack[2])
				return nil
			},
			Symbol: "LogGuardFailure",
			Source: SourceHelper,
			Params: 3,
		},
		Sync: SyncPoint,
		Site: site,
		Args: []uint64{uint64(arr), uint64(want.Uint16()), site},
	}
}

// LowerLogArrayReach reports that arr reached the specialized code of
// profile.
func (d *Dispatcher) LowerLogArrayReach(profile uint32, site uint64, arr uint32) Call {
	return Call{
		Target: CallSpec{
			Fn: func(env *layout.Env, stack []uint64) error {
				env.Profiler.RecordSpecializationOutcome(uint32(stack[0]))
				return nil
			},
			Symbol: "LogArrayReach",
			Source: SourceHelper,
			Params: 2,
		},
		Sync: SyncPoint,
		Site: site,
		Args: []uint64{uint64(profile), uint64(arr)},
	}
}

// LowerNewLoggingArray wraps a freshly created array for profile when the
// wrapper's sink samples it. The result replaces the array operand.
func (d *Dispatcher) LowerNewLoggingArray(w *logging.Wrapper, profile logging.ProfileID, site uint64, arr uint32) Call {
	return Call{
		Target: CallSpec{
			Fn: func(env *layout.Env, stack []uint64) error {
				out, err := w.MaybeMakeLoggingArray(env, uint32(stack[0]), logging.ProfileID(stack[1]))
				stack[0] = uint64(out)
				return err
			},
			Symbol:  "NewLoggingArray",
			Source:  SourceHelper,
			Params:  2,
			Results: 1,
		},
		Sync: SyncPoint,
		Site: site,
		Args: []uint64{uint64(arr), uint64(profile)},
	}
}
