package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  &Error{Phase: PhaseAddress, Kind: KindOutOfBounds},
			want: "[address] out_of_bounds",
		},
		{
			name: "detail only",
			err:  &Error{Phase: PhaseSchema, Kind: KindUnsupported, Detail: "flags type"},
			want: "[schema] unsupported: flags type",
		},
		{
			name: "layout only",
			err:  &Error{Phase: PhaseRegister, Kind: KindRegistration, Layout: "MonotypeVec", Detail: "registry finalized"},
			want: "[register] registration: layout MonotypeVec - registry finalized",
		},
		{
			name: "op only",
			err:  &Error{Phase: PhaseRuntime, Kind: KindNotFound, Op: "ElemStrThrow"},
			want: "[runtime] not_found: op ElemStrThrow",
		},
		{
			name: "full",
			err: &Error{
				Phase:  PhaseStorage,
				Kind:   KindTypeBound,
				Path:   []string{"user", "address", "zip"},
				Layout: "User",
				Op:     "SetStr",
				Detail: "slot 3 does not admit string",
			},
			want: "[storage] type_bound at user.address.zip: layout User, op SetStr - slot 3 does not admit string",
		},
		{
			name: "cause",
			err:  &Error{Phase: PhaseEscalate, Kind: KindAllocation, Detail: "heap full", Cause: errors.New("grow failed")},
			want: "[escalate] allocation: heap full (caused by: grow failed)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("grow failed")
	err := Wrap(PhaseEscalate, KindAllocation, cause, "escalate User")

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through errors.Is")
	}
	if !errors.Is(err, &Error{Phase: PhaseEscalate, Kind: KindAllocation}) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(err, &Error{Phase: PhaseRuntime, Kind: KindAllocation}) {
		t.Error("different phase should not match")
	}
	if errors.Is(err, &Error{Phase: PhaseEscalate, Kind: KindOverflow}) {
		t.Error("different kind should not match")
	}

	var target *Error
	if !errors.As(error(err), &target) || target.Detail != "escalate User" {
		t.Errorf("errors.As: got %v", target)
	}
}

func TestBuilderFields(t *testing.T) {
	b := New(PhaseResolve, KindInvalidSlot).
		Path("order", "items").
		Layout("Order").
		Op("GetStr").
		Value(uint32(7)).
		Detail("slot %d of %d", 7, 3)
	err := b.Build()

	if err.Phase != PhaseResolve || err.Kind != KindInvalidSlot {
		t.Errorf("got %s/%s, want %s/%s", err.Phase, err.Kind, PhaseResolve, KindInvalidSlot)
	}
	if strings.Join(err.Path, ".") != "order.items" {
		t.Errorf("got path %v, want [order items]", err.Path)
	}
	if err.Layout != "Order" || err.Op != "GetStr" {
		t.Errorf("got layout %q op %q", err.Layout, err.Op)
	}
	if err.Value != uint32(7) {
		t.Errorf("got value %v, want 7", err.Value)
	}
	if err.Detail != "slot 7 of 3" {
		t.Errorf("got detail %q", err.Detail)
	}

	// Build hands out independent errors.
	again := b.Op("SetStr").Build()
	if err.Op != "GetStr" || again.Op != "SetStr" {
		t.Errorf("got ops %q and %q", err.Op, again.Op)
	}
}

func TestDetailWithoutArgsIsVerbatim(t *testing.T) {
	err := New(PhaseRuntime, KindInvalidInput).Detail("100% full").Build()
	if err.Detail != "100% full" {
		t.Errorf("got %q", err.Detail)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		phase  Phase
		kind   Kind
		detail string
	}{
		{"TypeBound", TypeBound("Point", 2, "string"), PhaseStorage, KindTypeBound, "slot 2 does not admit string"},
		{"InvalidSlot", InvalidSlot(PhaseResolve, "Point", 9, 3), PhaseResolve, KindInvalidSlot, "slot 9 out of range (fields 3)"},
		{"AllocationFailed", AllocationFailed(PhaseRuntime, 1024, 16), PhaseRuntime, KindAllocation, "failed to allocate 1024 bytes (align 16)"},
		{"Unsupported", Unsupported(PhaseDispatch, "Elem on keyset"), PhaseDispatch, KindUnsupported, "Elem on keyset"},
		{"OutOfBounds", OutOfBounds(PhaseRuntime, []string{"vec"}, 10, 5), PhaseRuntime, KindOutOfBounds, "index 10 out of bounds (length 5)"},
		{"MemoryFault", MemoryFault(0x1000, 8, 0x800), PhaseAddress, KindOutOfBounds, "access of 8 bytes at 0x1000 outside memory (size 0x800)"},
		{"Overflow", Overflow(PhaseAddress, nil, uint64(1<<40), "u32"), PhaseAddress, KindOverflow, "value 1099511627776 overflows u32"},
		{"MissingKey", MissingKey("ElemStrThrow", "name"), PhaseRuntime, KindNotFound, "undefined index name"},
		{"NotInitialized", NotInitialized(PhaseRuntime, "heap"), PhaseRuntime, KindNotInitialized, "heap not initialized"},
		{"NotFound", NotFound(PhaseRegister, "layout", "User"), PhaseRegister, KindNotFound, `layout "User" not found`},
		{"InvalidInput", InvalidInput(PhaseDispatch, "want 3 args"), PhaseDispatch, KindInvalidInput, "want 3 args"},
		{"Registration", Registration("User", "registry finalized"), PhaseRegister, KindRegistration, "registry finalized"},
		{"InvalidLayout", InvalidLayout(PhaseSchema, "User", "duplicate field %q", "x"), PhaseSchema, KindInvalidLayout, `duplicate field "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
				t.Errorf("got %s/%s, want %s/%s", tt.err.Phase, tt.err.Kind, tt.phase, tt.kind)
			}
			if tt.err.Detail != tt.detail {
				t.Errorf("got detail %q, want %q", tt.err.Detail, tt.detail)
			}
		})
	}

	if v := TypeBound("Point", 2, "string").Value; v != uint32(2) {
		t.Errorf("TypeBound value: got %v, want 2", v)
	}
	if v := OutOfBounds(PhaseRuntime, nil, 10, 5).Value; v != 10 {
		t.Errorf("OutOfBounds value: got %v, want 10", v)
	}
}
