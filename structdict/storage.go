package structdict

import (
	"encoding/binary"

	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

const slotsPerStore = 8

// AllocStructDict allocates an empty struct dict: every type byte uninit
// and every position uninitialized.
func AllocStructDict(h *heap.Heap, l *Layout) uint32 {
	arr := h.MustAlloc(l.Bytes())
	h.InitHeader(arr, value.ArrayDict, true, uint16(l.Index()), 0)
	h.Store8(arr+NumFieldsOffset, uint8(l.NumFields()))
	h.Store8(arr+ValueOffsetOffset, uint8(l.ValueOffset()/valueSize))
	h.Fill(arr+TypesOffset, uint32(l.NumFields()), byte(value.KindOfUninit))
	h.Fill(arr+l.PositionOffset(), uint32(l.NumFields()), PositionUninit)
	return arr
}

// InitStructPositions sets the iteration order of a freshly allocated
// struct dict to slots and its size to len(slots). Positions are written
// with 8-byte stores aligned down from the positions array; bytes before
// it are preserved and positions past len(slots) stay uninitialized.
func InitStructPositions(h *heap.Heap, l *Layout, arr uint32, slots []Slot) error {
	if len(slots) > l.NumFields() {
		return errors.OutOfBounds(errors.PhaseStorage, []string{l.Name(), "positions"}, len(slots), l.NumFields())
	}
	h.SetSize(arr, uint32(len(slots)))

	posOff := l.PositionOffset()
	pad := int(posOff & (slotsPerStore - 1))
	size := len(slots)
	for i := 0; i < size+pad; i += slotsPerStore {
		off := posOff - uint32(pad) + uint32(i)
		var word [slotsPerStore]byte
		binary.LittleEndian.PutUint64(word[:], h.Load64(arr+off))
		for j := range slotsPerStore {
			switch idx := i + j - pad; {
			case idx < 0:
			case idx < size:
				if !slots[idx].Valid() || int(slots[idx]) >= l.NumFields() {
					return errors.InvalidSlot(errors.PhaseStorage, l.Name(), uint32(slots[idx]), l.NumFields())
				}
				word[j] = byte(slots[idx])
			default:
				word[j] = PositionUninit
			}
		}
		h.Store64(arr+off, binary.LittleEndian.Uint64(word[:]))
	}
	return nil
}

// InitStructElem stores tv in slot without touching positions or size.
// The reference held by tv is moved in.
func InitStructElem(h *heap.Heap, l *Layout, arr uint32, slot Slot, tv value.TypedValue) error {
	f, ok := l.Field(slot)
	if !ok {
		return errors.InvalidSlot(errors.PhaseStorage, l.Name(), uint32(slot), l.NumFields())
	}
	if !f.TypeMask.Has(tv.Type) {
		return errors.TypeBound(l.Name(), uint32(slot), tv.Type.String())
	}
	h.Store8(arr+l.TypeOffset(slot), uint8(tv.Type))
	h.Store64(arr+l.ValueOffsetForSlot(slot), tv.Data)
	return nil
}

// MakeStructDict builds a struct dict holding values[i] in slots[i], in
// that iteration order. References held by values are moved in.
func MakeStructDict(h *heap.Heap, l *Layout, slots []Slot, values []value.TypedValue) (uint32, error) {
	if len(slots) != len(values) {
		return 0, errors.InvalidInput(errors.PhaseStorage, "slots and values differ in length")
	}
	arr := AllocStructDict(h, l)
	if err := InitStructPositions(h, l, arr, slots); err != nil {
		h.Free(arr, l.Bytes(), heap.Alignment)
		return 0, err
	}
	for i, slot := range slots {
		if err := InitStructElem(h, l, arr, slot, values[i]); err != nil {
			h.Free(arr, l.Bytes(), heap.Alignment)
			return 0, err
		}
	}
	return arr, nil
}

// TypeBoundCheck reports whether tv may be stored in slot of arr. The
// layout is found through the header index.
func TypeBoundCheck(env *layout.Env, arr uint32, slot Slot, tv value.TypedValue) bool {
	l, err := layoutOf(env, arr)
	if err != nil {
		return false
	}
	return l.TypeBound(slot).Has(tv.Type)
}

// ElemAddr returns the addresses of slot's value and type byte. With a nil
// layout the value array is located through the header.
func ElemAddr(h *heap.Heap, l *Layout, arr uint32, slot Slot) (valAddr, typeAddr uint32) {
	typeAddr = arr + TypesOffset + uint32(slot)
	if l != nil {
		return arr + l.ValueOffsetForSlot(slot), typeAddr
	}
	base := uint32(h.Load8(arr+ValueOffsetOffset)) * valueSize
	return arr + base + uint32(slot)*valueSize, typeAddr
}

// AddNextSlot appends slot to the iteration order and grows the size.
// With a nil layout the positions array is located through the header.
func AddNextSlot(h *heap.Heap, l *Layout, arr uint32, slot Slot) {
	size := h.Size(arr)
	var posOff uint32
	if l != nil {
		posOff = l.PositionOffset()
	} else {
		posOff = TypesOffset + uint32(h.Load8(arr+NumFieldsOffset))
	}
	h.Store8(arr+posOff+size, uint8(slot))
	h.SetSize(arr, size+1)
}

func loadSlot(h *heap.Heap, l *Layout, arr uint32, slot Slot) value.TypedValue {
	valAddr, typeAddr := ElemAddr(h, l, arr, slot)
	return value.TypedValue{Data: h.Load64(valAddr), Type: value.DataType(h.Load8(typeAddr))}
}

func positionSlot(h *heap.Heap, l *Layout, arr, pos uint32) Slot {
	return Slot(h.Load8(arr + l.PositionOffset() + pos))
}

// writable unshares arr.
func writable(env *layout.Env, l *Layout, arr uint32) uint32 {
	h := env.Heap
	if !h.HasMultipleRefs(arr) {
		return arr
	}
	out := clone(h, l, arr)
	h.DecRef(arr)
	return out
}

func clone(h *heap.Heap, l *Layout, arr uint32) uint32 {
	out := h.MustAlloc(l.Bytes())
	h.InitHeader(out, value.ArrayDict, true, uint16(l.Index()), h.Size(arr))
	h.Move(out+NumFieldsOffset, arr+NumFieldsOffset, l.Bytes()-NumFieldsOffset)
	for _, f := range l.fields {
		h.IncRefTV(loadSlot(h, l, out, f.Slot))
	}
	return out
}

// RemoveStrInSlot clears an optional field in place. Removing an absent
// field returns arr unchanged; removing a required one escalates arr and
// removes the key from the vanilla dict.
func RemoveStrInSlot(env *layout.Env, l *Layout, arr uint32, slot Slot) (uint32, error) {
	h := env.Heap
	f, ok := l.Field(slot)
	if !ok {
		return arr, errors.InvalidSlot(errors.PhaseStorage, l.Name(), uint32(slot), l.NumFields())
	}
	if value.DataType(h.Load8(arr+l.TypeOffset(slot))) == value.KindOfUninit {
		return arr, nil
	}
	if f.Required {
		out, err := arrays.Escalate(env, arr, ReasonRequiredField)
		if err != nil {
			return out, err
		}
		return arrays.Remove(env, out, value.String(f.Name))
	}
	arr = writable(env, l, arr)
	old := loadSlot(h, l, arr, slot)
	h.Store8(arr+l.TypeOffset(slot), uint8(value.KindOfUninit))

	size := h.Size(arr)
	posOff := arr + l.PositionOffset()
	for pos := range size {
		if Slot(h.Load8(posOff+pos)) == slot {
			h.Move(posOff+pos, posOff+pos+1, size-pos-1)
			h.Store8(posOff+size-1, PositionUninit)
			break
		}
	}
	h.SetSize(arr, size-1)
	return arr, arrays.ReleaseTV(env, old)
}

// SetStrInSlot stores tv in slot. A value outside the slot's type mask
// takes the slow path: the array is escalated and the generic set runs.
// References to arr and tv are consumed.
func SetStrInSlot(env *layout.Env, l *Layout, arr uint32, slot Slot, key, tv value.TypedValue) (uint32, error) {
	h := env.Heap
	if !l.TypeBound(slot).Has(tv.Type) {
		out, err := arrays.Escalate(env, arr, ReasonTypeBound)
		if err != nil {
			return out, err
		}
		return arrays.Set(env, out, key, tv)
	}
	arr = writable(env, l, arr)
	old := loadSlot(h, l, arr, slot)
	if old.Type == value.KindOfUninit {
		AddNextSlot(h, l, arr, slot)
	}
	h.Store8(arr+l.TypeOffset(slot), uint8(tv.Type))
	h.Store64(arr+l.ValueOffsetForSlot(slot), tv.Data)
	return arr, arrays.ReleaseTV(env, old)
}
