package logging

import (
	"go.uber.org/zap"

	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Logging array offsets.
const (
	ProfileOffset = heap.OffsetAux
	InnerOffset   = heap.HeaderSize
	WrapperSize   = heap.HeaderSize + 8
)

// Wrapper is the logging layout bound to the sink its arrays report to.
type Wrapper struct {
	sink *Sink
	desc *layout.Logging
}

// NewWrapper builds the logging layout for sink.
func NewWrapper(sink *Sink) *Wrapper {
	w := &Wrapper{sink: sink}
	w.desc = &layout.Logging{
		Index: layout.LoggingIndex,
		VTable: arrays.Impl{
			Destroy:     w.destroy,
			Copy:        w.copy,
			Get:         w.get,
			GetThrow:    w.getThrow,
			Set:         w.set,
			Remove:      w.remove,
			Append:      w.append,
			IterBegin:   w.iter(layout.OpIterBegin, arrays.IterBegin),
			IterLast:    w.iter(layout.OpIterLast, arrays.IterLast),
			IterEnd:     w.iter(layout.OpIterEnd, arrays.IterEnd),
			IterAdvance: w.iterAdvance,
			GetPosKey:   w.pos(layout.OpGetPosKey, arrays.GetPosKey),
			GetPosVal:   w.pos(layout.OpGetPosVal, arrays.GetPosVal),
			Elem:        w.elem,
			Escalate:    w.escalate,
			Keys:        []layout.KeyKind{layout.KeyInt, layout.KeyStr},
		}.VTable("LoggingArray"),
	}
	return w
}

// Descriptor returns the logging layout descriptor.
func (w *Wrapper) Descriptor() *layout.Logging { return w.desc }

// Sink returns the sink logging arrays report to.
func (w *Wrapper) Sink() *Sink { return w.sink }

// Register installs the logging layout at its reserved index.
func (w *Wrapper) Register(reg *layout.Registry) error {
	return reg.Register(w.desc)
}

// IsLoggingArray reports whether arr is wrapped.
func IsLoggingArray(h *heap.Heap, arr uint32) bool {
	return h.IsBespoke(arr) && layout.Index(h.LayoutIndex(arr)) == layout.LoggingIndex
}

// Inner returns the wrapped array of a logging array.
func Inner(h *heap.Heap, arr uint32) uint32 {
	return h.Load32(arr + InnerOffset)
}

// ProfileOf returns the profile a logging array reports to.
func ProfileOf(h *heap.Heap, arr uint32) ProfileID {
	return ProfileID(h.Aux(arr))
}

// MaybeMakeLoggingArray wraps arr for profile when the sink samples it.
// The reference to arr is consumed; arrays that are not sampled, already
// wrapped, or whose profile is unknown are returned unchanged.
func (w *Wrapper) MaybeMakeLoggingArray(env *layout.Env, arr uint32, profile ProfileID) (uint32, error) {
	h := env.Heap
	if IsLoggingArray(h, arr) {
		return arr, nil
	}
	if _, ok := w.sink.profiles.Get(profile); !ok {
		return arr, nil
	}
	if !w.sink.shouldSample() {
		return arr, nil
	}
	out, err := h.Alloc(WrapperSize, heap.Alignment)
	if err != nil {
		return arr, err
	}
	wrap(h, out, arr, profile)
	w.sink.recordWrap(profile)
	Logger().Debug("logging array created",
		zap.Uint32("arr", out),
		zap.Uint32("inner", arr),
		zap.Uint32("profile", uint32(profile)))
	return out, nil
}

func wrap(h *heap.Heap, out, inner uint32, profile ProfileID) {
	h.InitHeader(out, h.Kind(inner), true, uint16(layout.LoggingIndex), h.Size(inner))
	h.SetAux(out, uint32(profile))
	h.Store32(out+InnerOffset, inner)
}

// update points arr at a new inner array and mirrors its size.
func update(h *heap.Heap, arr, inner uint32) uint32 {
	h.Store32(arr+InnerOffset, inner)
	h.SetSize(arr, h.Size(inner))
	return arr
}

// writable unshares the wrapper. The new wrapper shares the inner array,
// whose own layout copies on write.
func (w *Wrapper) writable(h *heap.Heap, arr uint32) uint32 {
	if !h.HasMultipleRefs(arr) {
		return arr
	}
	inner := Inner(h, arr)
	h.IncRef(inner)
	out := h.MustAlloc(WrapperSize)
	wrap(h, out, inner, ProfileOf(h, arr))
	h.DecRef(arr)
	return out
}

func (w *Wrapper) record(h *heap.Heap, arr uint32, op layout.Op, key value.TypedValue) {
	kk, err := arrays.KeyKindOf(key)
	if err != nil || !op.Keyed() {
		kk = layout.KeyNone
	}
	w.sink.RecordOp(ProfileOf(h, arr), arr, op, kk)
}

func (w *Wrapper) destroy(env *layout.Env, arr uint32) error {
	h := env.Heap
	w.record(h, arr, layout.OpRelease, value.Uninit())
	if err := arrays.Release(env, Inner(h, arr)); err != nil {
		return err
	}
	h.Free(arr, WrapperSize, heap.Alignment)
	return nil
}

func (w *Wrapper) copy(env *layout.Env, arr uint32) (uint32, error) {
	h := env.Heap
	w.record(h, arr, layout.OpCopy, value.Uninit())
	inner, err := arrays.Copy(env, Inner(h, arr))
	if err != nil {
		return arr, err
	}
	out := h.MustAlloc(WrapperSize)
	wrap(h, out, inner, ProfileOf(h, arr))
	return out, nil
}

func (w *Wrapper) get(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, bool, error) {
	w.record(env.Heap, arr, layout.OpGet, key)
	return arrays.Get(env, Inner(env.Heap, arr), key)
}

func (w *Wrapper) getThrow(env *layout.Env, arr uint32, key value.TypedValue) (value.TypedValue, error) {
	w.record(env.Heap, arr, layout.OpGetThrow, key)
	return arrays.GetThrow(env, Inner(env.Heap, arr), key)
}

// mutate runs fn on the inner array of an unshared wrapper.
func (w *Wrapper) mutate(env *layout.Env, arr uint32, op layout.Op, key value.TypedValue, fn func(inner uint32) (uint32, error)) (uint32, error) {
	h := env.Heap
	w.record(h, arr, op, key)
	arr = w.writable(h, arr)
	inner, err := fn(Inner(h, arr))
	return update(h, arr, inner), err
}

func (w *Wrapper) set(env *layout.Env, arr uint32, key, tv value.TypedValue) (uint32, error) {
	return w.mutate(env, arr, layout.OpSet, key, func(inner uint32) (uint32, error) {
		return arrays.Set(env, inner, key, tv)
	})
}

func (w *Wrapper) remove(env *layout.Env, arr uint32, key value.TypedValue) (uint32, error) {
	return w.mutate(env, arr, layout.OpRemove, key, func(inner uint32) (uint32, error) {
		return arrays.Remove(env, inner, key)
	})
}

func (w *Wrapper) append(env *layout.Env, arr uint32, tv value.TypedValue) (uint32, error) {
	return w.mutate(env, arr, layout.OpAppend, value.Uninit(), func(inner uint32) (uint32, error) {
		return arrays.Append(env, inner, tv)
	})
}

func (w *Wrapper) elem(env *layout.Env, arr uint32, key value.TypedValue, throwOnMissing bool) (uint32, uint32, uint32, error) {
	var valAddr, typeAddr uint32
	out, err := w.mutate(env, arr, layout.OpElem, key, func(inner uint32) (uint32, error) {
		var err error
		inner, valAddr, typeAddr, err = arrays.Elem(env, inner, key, throwOnMissing)
		return inner, err
	})
	return out, valAddr, typeAddr, err
}

func (w *Wrapper) iter(op layout.Op, fn func(*layout.Env, uint32) (uint32, error)) func(*layout.Env, uint32) (uint32, error) {
	return func(env *layout.Env, arr uint32) (uint32, error) {
		w.record(env.Heap, arr, op, value.Uninit())
		return fn(env, Inner(env.Heap, arr))
	}
}

func (w *Wrapper) iterAdvance(env *layout.Env, arr, pos uint32) (uint32, error) {
	w.record(env.Heap, arr, layout.OpIterAdvance, value.Uninit())
	return arrays.IterAdvance(env, Inner(env.Heap, arr), pos)
}

func (w *Wrapper) pos(op layout.Op, fn func(*layout.Env, uint32, uint32) (value.TypedValue, error)) func(*layout.Env, uint32, uint32) (value.TypedValue, error) {
	return func(env *layout.Env, arr, pos uint32) (value.TypedValue, error) {
		w.record(env.Heap, arr, op, value.Uninit())
		return fn(env, Inner(env.Heap, arr), pos)
	}
}

// escalate unwraps arr and escalates the inner array, consuming arr.
func (w *Wrapper) escalate(env *layout.Env, arr uint32, reason string) (uint32, error) {
	h := env.Heap
	profile := ProfileOf(h, arr)
	w.sink.recordProfileEscalation(profile)
	inner := Inner(h, arr)
	h.IncRef(inner)
	if err := arrays.Release(env, arr); err != nil {
		return inner, err
	}
	return arrays.Convert(env, inner, reason)
}
