package errors

import (
	"fmt"
	"strings"
)

// Phase names the layer that raised an error.
type Phase string

const (
	PhaseRegister Phase = "register" // layout registration
	PhaseDispatch Phase = "dispatch" // call-target resolution
	PhaseResolve  Phase = "resolve"  // struct slot resolution
	PhaseStorage  Phase = "storage"  // struct field storage
	PhaseAddress  Phase = "address"  // flat-memory addressing
	PhaseEscalate Phase = "escalate" // conversion to the generic layout
	PhaseRuntime  Phase = "runtime"  // array operations
	PhaseSchema   Phase = "schema"   // layout declarations
)

// Kind classifies an error within its phase.
type Kind string

const (
	KindTypeBound      Kind = "type_bound"
	KindInvalidSlot    Kind = "invalid_slot"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNotFound       Kind = "not_found"
	KindUnsupported    Kind = "unsupported"
	KindRegistration   Kind = "registration"
	KindOverflow       Kind = "overflow"
	KindAllocation     Kind = "allocation"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidLayout  Kind = "invalid_layout"
	KindNotInitialized Kind = "not_initialized"
)

// Error is a runtime failure. Layout and Op name the array layout and the
// operation involved, Path the field path inside a struct layout.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Layout string
	Op     string
	Detail string
	Path   []string
}

// Error formats as "[phase] kind at a.b: layout L, op O - detail (caused by: ...)".
func (e *Error) Error() string {
	head := "[" + string(e.Phase) + "] " + string(e.Kind)
	if len(e.Path) > 0 {
		head += " at " + strings.Join(e.Path, ".")
	}

	var where []string
	if e.Layout != "" {
		where = append(where, "layout "+e.Layout)
	}
	if e.Op != "" {
		where = append(where, "op "+e.Op)
	}

	msg := head
	switch {
	case len(where) > 0 && e.Detail != "":
		msg = fmt.Sprintf("%s: %s - %s", head, strings.Join(where, ", "), e.Detail)
	case len(where) > 0:
		msg = head + ": " + strings.Join(where, ", ")
	case e.Detail != "":
		msg = head + ": " + e.Detail
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same phase and kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder assembles an Error field by field.
type Builder struct {
	err Error
}

// New starts an error of the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder { b.err.Path = path; return b }
func (b *Builder) Layout(name string) *Builder  { b.err.Layout = name; return b }
func (b *Builder) Op(name string) *Builder      { b.err.Op = name; return b }
func (b *Builder) Value(v any) *Builder         { b.err.Value = v; return b }
func (b *Builder) Cause(err error) *Builder     { b.err.Cause = err; return b }

// Detail sets the message, formatting it when args are given.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	b.err.Detail = sprintf(msg, args)
	return b
}

func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

func sprintf(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// TypeBound reports a value whose type is not in a slot's allowed-type mask.
func TypeBound(layout string, slot uint32, dataType string) *Error {
	return New(PhaseStorage, KindTypeBound).Layout(layout).Value(slot).
		Detail("slot %d does not admit %s", slot, dataType).Build()
}

// InvalidSlot reports a slot outside a layout's field range.
func InvalidSlot(phase Phase, layout string, slot uint32, numFields int) *Error {
	return New(phase, KindInvalidSlot).Layout(layout).Value(slot).
		Detail("slot %d out of range (fields %d)", slot, numFields).Build()
}

func AllocationFailed(phase Phase, size, align uint32) *Error {
	return New(phase, KindAllocation).Detail("failed to allocate %d bytes (align %d)", size, align).Build()
}

func Unsupported(phase Phase, what string) *Error {
	return New(phase, KindUnsupported).Detail(what).Build()
}

func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return New(phase, KindOutOfBounds).Path(path...).Value(index).
		Detail("index %d out of bounds (length %d)", index, length).Build()
}

// MemoryFault reports a load or store past the end of linear memory.
func MemoryFault(addr, width, size uint32) *Error {
	return New(PhaseAddress, KindOutOfBounds).Value(addr).
		Detail("access of %d bytes at %#x outside memory (size %#x)", width, addr, size).Build()
}

func Overflow(phase Phase, path []string, value any, target string) *Error {
	return New(phase, KindOverflow).Path(path...).Value(value).
		Detail("value %v overflows %s", value, target).Build()
}

// MissingKey reports a key absent from an array under a throwing lookup.
func MissingKey(op string, key any) *Error {
	return New(PhaseRuntime, KindNotFound).Op(op).Value(key).
		Detail("undefined index %v", key).Build()
}

// Wrap attaches a phase, kind and message to cause.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).Cause(cause).Detail(detail).Build()
}

func NotInitialized(phase Phase, component string) *Error {
	return New(phase, KindNotInitialized).Detail("%s not initialized", component).Build()
}

func NotFound(phase Phase, what, name string) *Error {
	return New(phase, KindNotFound).Detail("%s %q not found", what, name).Build()
}

func InvalidInput(phase Phase, detail string) *Error {
	return New(phase, KindInvalidInput).Detail(detail).Build()
}

// Registration reports a rejected layout registration.
func Registration(layout string, detail string) *Error {
	return New(PhaseRegister, KindRegistration).Layout(layout).Detail(detail).Build()
}

// InvalidLayout reports a layout declaration that cannot be represented.
func InvalidLayout(phase Phase, layout string, detail string, args ...any) *Error {
	return New(phase, KindInvalidLayout).Layout(layout).Detail(detail, args...).Build()
}
