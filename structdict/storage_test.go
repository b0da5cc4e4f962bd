package structdict

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/value"
)

func TestMemoryContract(t *testing.T) {
	var l *Layout
	newFixture(t, func(u *Universe) {
		l = mustLayout(t, u, "Five", optional("a", "b", "c", "d", "e")...)
	})
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"type offset", l.TypeOffset(3), 19},
		{"position offset", l.PositionOffset(), 21},
		{"value offset", l.ValueOffset(), 32},
		{"value offset for slot", l.ValueOffsetForSlot(4), 64},
		{"bytes", l.Bytes(), 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestInitStructPositions(t *testing.T) {
	var l *Layout
	f := newFixture(t, func(u *Universe) {
		l = mustLayout(t, u, "Eleven", numbered("f", 11)...)
	})
	h := f.env.Heap
	arr := AllocStructDict(h, l)
	// Type bytes share the first 8-byte word with the positions.
	h.Store8(arr+l.TypeOffset(10), uint8(value.KindOfInt64))

	slots := []Slot{10, 3, 0, 7, 1, 2, 4, 5, 6}
	if err := InitStructPositions(h, l, arr, slots); err != nil {
		t.Fatalf("InitStructPositions failed: %v", err)
	}
	if got := h.Size(arr); got != uint32(len(slots)) {
		t.Errorf("got size %d, want %d", got, len(slots))
	}
	if got := value.DataType(h.Load8(arr + l.TypeOffset(10))); got != value.KindOfInt64 {
		t.Errorf("type byte before positions was overwritten: got %v", got)
	}
	for pos, want := range slots {
		if got := positionSlot(h, l, arr, uint32(pos)); got != want {
			t.Errorf("position %d: got slot %d, want %d", pos, got, want)
		}
	}
	for pos := len(slots); pos < l.NumFields(); pos++ {
		if got := h.Load8(arr + l.PositionOffset() + uint32(pos)); got != PositionUninit {
			t.Errorf("position %d: got %#x, want uninitialized", pos, got)
		}
	}

	err := InitStructPositions(h, l, arr, []Slot{11})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseStorage, Kind: errors.KindInvalidSlot}) {
		t.Errorf("got %v, want invalid slot", err)
	}
}

func TestMakeStructDict(t *testing.T) {
	var l *Layout
	f := newFixture(t, func(u *Universe) {
		l = mustLayout(t, u, "User",
			FieldSpec{Name: "id", Required: true, Types: value.MaskOf(value.KindOfInt64)},
			FieldSpec{Name: "name", Types: value.MaskOf(value.KindOfString)},
			FieldSpec{Name: "score"})
	})
	h := f.env.Heap
	arr, err := MakeStructDict(h, l, []Slot{1, 0}, []value.TypedValue{f.str("ada"), value.Int(7)})
	if err != nil {
		t.Fatalf("MakeStructDict failed: %v", err)
	}
	pairs, err := f.entries(arr)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(pairs) != 2 || pairs[0] != "name" || pairs[1] != "id" {
		t.Errorf("got order %v, want [name id]", pairs)
	}

	t.Run("type bound", func(t *testing.T) {
		_, err := MakeStructDict(h, l, []Slot{0}, []value.TypedValue{f.str("x")})
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseStorage, Kind: errors.KindTypeBound}) {
			t.Errorf("got %v, want type bound", err)
		}
	})

	t.Run("type bound check", func(t *testing.T) {
		tests := []struct {
			slot Slot
			tv   value.TypedValue
			want bool
		}{
			{0, value.Int(1), true},
			{0, value.Double(1), false},
			{1, f.str("s"), true},
			{2, value.Null(), true},
			{5, value.Null(), false},
		}
		for _, tt := range tests {
			if got := TypeBoundCheck(f.env, arr, tt.slot, tt.tv); got != tt.want {
				t.Errorf("slot %d %v: got %v, want %v", tt.slot, tt.tv.Type, got, tt.want)
			}
		}
	})
}

func TestElemAddrAbstractMatchesConcrete(t *testing.T) {
	var l *Layout
	f := newFixture(t, func(u *Universe) {
		l = mustLayout(t, u, "Seven", numbered("f", 7)...)
	})
	h := f.env.Heap
	arr := AllocStructDict(h, l)
	for slot := range Slot(7) {
		cv, ct := ElemAddr(h, l, arr, slot)
		av, at := ElemAddr(h, nil, arr, slot)
		if cv != av || ct != at {
			t.Errorf("slot %d: concrete %d/%d, abstract %d/%d", slot, cv, ct, av, at)
		}
	}
}

func TestAddNextSlotAbstract(t *testing.T) {
	var l *Layout
	f := newFixture(t, func(u *Universe) {
		l = mustLayout(t, u, "Three", optional("a", "b", "c")...)
	})
	h := f.env.Heap
	arr := AllocStructDict(h, l)
	AddNextSlot(h, nil, arr, 2)
	AddNextSlot(h, l, arr, 0)
	if got := h.Size(arr); got != 2 {
		t.Fatalf("got size %d, want 2", got)
	}
	if got := positionSlot(h, l, arr, 0); got != 2 {
		t.Errorf("got slot %d, want 2", got)
	}
	if got := positionSlot(h, l, arr, 1); got != 0 {
		t.Errorf("got slot %d, want 0", got)
	}
}
