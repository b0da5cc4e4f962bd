package dispatch

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/layout"
)

// Source says which tier a call target was taken from.
type Source uint8

const (
	// SourceVTable is a concrete specialized layout's own entry.
	SourceVTable Source = iota
	// SourceBespoke is the specialized-layout fallback.
	SourceBespoke
	// SourceVanilla is a dedicated vanilla implementation.
	SourceVanilla
	// SourceGeneric is correct for every array.
	SourceGeneric
	// SourceHelper is a runtime helper that is not an array operation.
	SourceHelper
)

var sourceNames = [...]string{
	SourceVTable:  "vtable",
	SourceBespoke: "bespoke",
	SourceVanilla: "vanilla",
	SourceGeneric: "generic",
	SourceHelper:  "helper",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "unknown"
}

// CallSpec is a resolved native call target.
type CallSpec struct {
	Fn      layout.NativeFunc
	Symbol  string
	Source  Source
	Op      layout.Op
	Key     layout.KeyKind
	Params  int
	Results int
}

func specFrom(e layout.Entry, src Source) CallSpec {
	return CallSpec{
		Fn:      e.Fn,
		Symbol:  e.Symbol,
		Source:  src,
		Op:      e.Op,
		Key:     e.Key,
		Params:  e.Op.Params(),
		Results: e.Op.Results(),
	}
}

type targetKey struct {
	t     Type
	op    layout.Op
	key   layout.KeyKind
	elem  bool
	throw bool
}

// Dispatcher resolves call targets against a layout registry. Results are
// cached once the registry is finalized.
type Dispatcher struct {
	reg   *layout.Registry
	cache sync.Map // targetKey -> CallSpec
}

// New creates a dispatcher over reg.
func New(reg *layout.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Registry returns the registry targets are resolved against.
func (d *Dispatcher) Registry() *layout.Registry { return d.reg }

// Target returns the implementation of op on values of type t with keys of
// kind key. Unkeyed ops ignore key; keyed ops treat KeyNone as KeyStr. Elem
// resolves as its non-throwing variant; use Elem to pick the throw mode.
func (d *Dispatcher) Target(t Type, op layout.Op, key layout.KeyKind) CallSpec {
	if op >= layout.NumOps {
		op = layout.OpRelease
	}
	if op == layout.OpElem {
		return d.Elem(t, key, false)
	}
	key = normalizeKey(op, key)
	return d.cached(targetKey{t: t, op: op, key: key}, func() CallSpec {
		return d.resolve(t, op, key)
	})
}

// Destructor returns the release function for values of type t.
func (d *Dispatcher) Destructor(t Type) CallSpec {
	return d.Target(t, layout.OpRelease, layout.KeyNone)
}

// CopyFunc returns the copy function for values of type t. It resolves
// through the same chain as Destructor.
func (d *Dispatcher) CopyFunc(t Type) CallSpec {
	return d.Target(t, layout.OpCopy, layout.KeyNone)
}

// Elem returns the address-of-element implementation. Specialized layouts
// take throwOnMissing as an argument; the vanilla and generic targets are
// fixed to one mode.
func (d *Dispatcher) Elem(t Type, key layout.KeyKind, throwOnMissing bool) CallSpec {
	key = normalizeKey(layout.OpElem, key)
	return d.cached(targetKey{t: t, op: layout.OpElem, key: key, elem: true, throw: throwOnMissing}, func() CallSpec {
		if _, ok := t.Layout.Index(); ok {
			return d.resolve(t, layout.OpElem, key)
		}
		if kind, ok := t.Single(); ok && t.Layout.Vanilla() {
			if e, ok := arrays.VanillaElem(kind, key, throwOnMissing); ok {
				return specFrom(e, SourceVanilla)
			}
		}
		return specFrom(arrays.GenericElem(key, throwOnMissing), SourceGeneric)
	})
}

func normalizeKey(op layout.Op, key layout.KeyKind) layout.KeyKind {
	if !op.Keyed() {
		return layout.KeyNone
	}
	if key != layout.KeyInt {
		return layout.KeyStr
	}
	return key
}

func (d *Dispatcher) cached(k targetKey, resolve func() CallSpec) CallSpec {
	if v, ok := d.cache.Load(k); ok {
		return v.(CallSpec)
	}
	spec := resolve()
	Logger().Debug("call target resolved",
		zap.Stringer("type", k.t),
		zap.String("symbol", spec.Symbol),
		zap.Stringer("source", spec.Source))
	if d.reg.Finalized() {
		d.cache.Store(k, spec)
	}
	return spec
}

func (d *Dispatcher) resolve(t Type, op layout.Op, key layout.KeyKind) CallSpec {
	if idx, ok := t.Layout.Index(); ok {
		if e, ok := d.reg.VTableFor(idx).Lookup(op, key); ok {
			return specFrom(e, SourceVTable)
		}
		if e, ok := arrays.BespokeVTable().Lookup(op, key); ok {
			return specFrom(e, SourceBespoke)
		}
	}
	if kind, ok := t.Single(); ok && t.Layout.Vanilla() {
		if e, ok := arrays.VanillaVTable(kind).Lookup(op, key); ok {
			return specFrom(e, SourceVanilla)
		}
	}
	e, _ := arrays.GenericVTable().Lookup(op, key)
	return specFrom(e, SourceGeneric)
}

// MaybeLogging reports whether a value of type t may currently be wrapped
// in a logging array.
func (d *Dispatcher) MaybeLogging(t Type) bool {
	if t.Kinds == layout.KindSetNone {
		return false
	}
	if t.Layout.Top() {
		return true
	}
	idx, ok := t.Layout.Index()
	if !ok {
		return false
	}
	if idx == layout.LoggingIndex || idx == layout.TopIndex {
		return true
	}
	if desc, ok := d.reg.Get(idx); ok {
		if a, ok := desc.(*layout.Abstract); ok {
			return a.Covers(layout.LoggingIndex)
		}
	}
	return false
}

// Sync says whether a call needs a sync point.
type Sync uint8

const (
	SyncNone Sync = iota
	SyncPoint
)

func (s Sync) String() string {
	if s == SyncPoint {
		return "sync"
	}
	return "none"
}

// SyncFor returns the sync policy of op on values of type t.
func (d *Dispatcher) SyncFor(t Type, op layout.Op) Sync {
	switch op {
	case layout.OpIterBegin, layout.OpIterLast, layout.OpIterEnd,
		layout.OpIterAdvance, layout.OpGetPosKey, layout.OpGetPosVal:
		return SyncNone
	case layout.OpGet, layout.OpEscalateToVanilla, layout.OpRelease, layout.OpCopy:
		if d.MaybeLogging(t) {
			return SyncPoint
		}
		return SyncNone
	}
	return SyncPoint
}
