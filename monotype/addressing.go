package monotype

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/internal/abi"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Shared monotype layout constants.
const (
	TypeOffset = 12

	VecCapacityOffset = 14
	VecValuesOffset   = heap.HeaderSize
	VecElemSize       = 8

	DictTombstonesOffset = 14
	DictCapacityOffset   = 16
	DictNextKeyOffset    = 24
	DictEntriesOffset    = 32
	DictEntrySize        = 16
	DictKeyOffset        = 0
	DictValOffset        = 8

	// IntKeyMask selects the key-kind bit of a dict's layout index.
	IntKeyMask = 0x1

	TombstoneKey uint64 = 1 << 63
)

// Position is an element index or iteration position, either known when
// the address is planned or only at run time.
type Position struct {
	Value uint32
	Const bool
}

// Const returns a compile-time position.
func Const(p uint32) Position { return Position{Value: p, Const: true} }

// Dynamic returns a run-time position.
func Dynamic(p uint32) Position { return Position{Value: p} }

// Address is an offset from an array base: a folded displacement, or a
// displacement plus a shifted run-time index.
type Address struct {
	Disp   uint32
	Index  uint32
	Shift  uint8
	Scaled bool

	// set when folding a constant position overflowed
	overflow bool
}

// Checked evaluates the address relative to the array base. Offsets that
// wrap past 32 bits or do not fit a signed displacement are reported as
// KindOverflow.
func (a Address) Checked() (uint32, error) {
	if a.overflow {
		return 0, errors.Overflow(errors.PhaseAddress, []string{"monotype"}, a.Index, "u32 offset")
	}
	if !a.Scaled {
		return a.Disp, nil
	}
	scaled, ok := abi.SafeMulU32(a.Index, 1<<a.Shift)
	if ok {
		var off uint32
		if off, ok = abi.SafeAddU32(a.Disp, scaled); ok && abi.FitsInt32(uint64(off)) {
			return off, nil
		}
	}
	return 0, errors.Overflow(errors.PhaseAddress, []string{"monotype"}, a.Index, "u32 offset")
}

// Resolve is Checked for code running under heap.Recover: an overflowing
// offset faults instead of aliasing a lower element.
func (a Address) Resolve() uint32 {
	off, err := a.Checked()
	if err != nil {
		panic(err)
	}
	return off
}

// At resolves the address against the array base arr.
func (a Address) At(arr uint32) uint32 {
	addr, ok := abi.SafeAddU32(arr, a.Resolve())
	if !ok {
		panic(errors.Overflow(errors.PhaseAddress, []string{"monotype"}, arr, "u32 address"))
	}
	return addr
}

// Contract describes one flat table inside a container: where it begins and
// how large each entry is.
type Contract struct {
	Base      uint32
	EntrySize uint32
	Shift     uint8
}

// NewContract validates that entrySize is a power of two.
func NewContract(base, entrySize uint32) (Contract, error) {
	if !abi.IsPow2(entrySize) {
		return Contract{}, errors.InvalidLayout(errors.PhaseAddress, "monotype",
			"entry size %d is not a power of two", entrySize)
	}
	return Contract{Base: base, EntrySize: entrySize, Shift: abi.Log2(entrySize)}, nil
}

func mustContract(base, entrySize uint32) Contract {
	c, err := NewContract(base, entrySize)
	if err != nil {
		panic(err)
	}
	return c
}

// Offset computes base + pos*EntrySize + sub. Constant positions fold the
// multiply; run-time positions use pos << Shift.
func (c Contract) Offset(pos Position, sub uint32) Address {
	if pos.Const {
		scaled, ok := abi.SafeMulU32(pos.Value, c.EntrySize)
		var disp uint32
		if ok {
			disp, ok = abi.SafeAddU32(c.Base+sub, scaled)
		}
		if !ok || !abi.FitsInt32(uint64(disp)) {
			return Address{Index: pos.Value, overflow: true}
		}
		return Address{Disp: disp}
	}
	return Address{Disp: c.Base + sub, Index: pos.Value, Shift: c.Shift, Scaled: true}
}

// Table contracts.
var (
	VecValues   = mustContract(VecValuesOffset, VecElemSize)
	DictEntries = mustContract(DictEntriesOffset, DictEntrySize)
)

// LoadValueKind reads the container's value kind.
func LoadValueKind(h *heap.Heap, arr uint32) value.DataType {
	return value.DataType(h.Load8(arr + TypeOffset))
}

// LoadVecElem reads element pos of a MonotypeVec.
func LoadVecElem(h *heap.Heap, arr uint32, pos Position) value.TypedValue {
	tag := LoadValueKind(h, arr)
	return value.TypedValue{Data: h.Load64(VecValues.Offset(pos, 0).At(arr)), Type: tag}
}

// HasIntKeys reports whether a MonotypeDict holds integer keys.
func HasIntKeys(h *heap.Heap, arr uint32) bool {
	return h.LayoutIndex(arr)&IntKeyMask != 0
}

// LoadDictKey reads the key at pos. Tombstones load as uninit.
func LoadDictKey(h *heap.Heap, arr uint32, pos Position) value.TypedValue {
	raw := h.Load64(DictEntries.Offset(pos, DictKeyOffset).At(arr))
	if raw == TombstoneKey {
		return value.Uninit()
	}
	if HasIntKeys(h, arr) {
		return value.TypedValue{Data: raw, Type: value.KindOfInt64}
	}
	return value.TypedValue{Data: raw, Type: value.KindOfString}
}

// LoadDictVal reads the value at pos.
func LoadDictVal(h *heap.Heap, arr uint32, pos Position) value.TypedValue {
	tag := LoadValueKind(h, arr)
	return value.TypedValue{Data: h.Load64(DictEntries.Offset(pos, DictValOffset).At(arr)), Type: tag}
}

// LoadDictTombstones reads the tombstone count.
func LoadDictTombstones(h *heap.Heap, arr uint32) uint16 {
	return h.Load16(arr + DictTombstonesOffset)
}

// dictIndex returns the layout index for a key kind.
func dictIndex(intKeys bool) layout.Index {
	if intKeys {
		return layout.MonotypeDictIntIndex
	}
	return layout.MonotypeDictStrIndex
}
