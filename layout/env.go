package layout

import (
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/value"
)

// Profiler receives the events generated code reports about layouts.
type Profiler interface {
	RecordGuardFailure(arr uint32, layout Index, site uint64)
	RecordSpecializationOutcome(profile uint32)
	RecordEscalation(arr uint32, reason string)
}

// NopProfiler discards every event.
type NopProfiler struct{}

func (NopProfiler) RecordGuardFailure(uint32, Index, uint64) {}
func (NopProfiler) RecordSpecializationOutcome(uint32) {}
func (NopProfiler) RecordEscalation(uint32, string) {}

// Env is the execution context operations run in.
type Env struct {
	Heap     *heap.Heap
	Registry *Registry
	Profiler Profiler
	// Site is the call site recorded by the most recent sync point.
	Site uint64
}

// NewEnv creates an environment. A nil profiler discards events.
func NewEnv(h *heap.Heap, reg *Registry, p Profiler) *Env {
	if p == nil {
		p = NopProfiler{}
	}
	return &Env{Heap: h, Registry: reg, Profiler: p}
}

// Strings returns the string table of the environment's heap.
func (e *Env) Strings() *value.StringTable {
	return e.Heap.Strings
}

// Invoke calls fn, converting heap faults raised inside it into errors.
func Invoke(env *Env, fn NativeFunc, stack []uint64) (err error) {
	defer heap.Recover(&err)
	return fn(env, stack)
}
