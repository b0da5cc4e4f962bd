package structdict

import (
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/internal/abi"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Hash table geometry.
const (
	MaxColor       = 63
	HashEntrySize  = 8
	HashTableSize  = (MaxColor + 1) * HashEntrySize
	HashTableShift = 9
	HashStrOffset  = 0
	HashSlotOffset = 4
)

// StructDict memory offsets.
const (
	NumFieldsOffset   = 12
	ValueOffsetOffset = 13
	TypesOffset       = heap.HeaderSize
	PositionUninit    = 0xFF
	MaxFields         = 255
	valueSize         = 8
)

// Slot is a field's fixed storage index.
type Slot uint32

// InvalidSlot is returned for keys that are not fields of a layout.
const InvalidSlot Slot = ^Slot(0)

// Valid reports whether s names a slot.
func (s Slot) Valid() bool { return s != InvalidSlot }

// FieldSpec declares one field of a layout.
type FieldSpec struct {
	Name     string
	Required bool
	// Types admitted by the field; MaskNone is treated as MaskAny.
	Types value.TypeMask
}

// Field is a resolved field of a concrete layout.
type Field struct {
	Name     *value.StringData
	Slot     Slot
	Required bool
	TypeMask value.TypeMask
}

// Layout is a concrete struct layout. Field slots never change once the
// layout is created.
type Layout struct {
	desc      *layout.Concrete
	fields    []Field
	byID      map[uint32]Slot
	byContent map[string]Slot
	perfect   bool
}

func (l *Layout) Index() layout.Index { return l.desc.Index }

func (l *Layout) Name() string { return l.desc.Name }

// Descriptor returns the registered descriptor.
func (l *Layout) Descriptor() *layout.Concrete { return l.desc }

func (l *Layout) NumFields() int { return len(l.fields) }

// Field returns the field stored in slot.
func (l *Layout) Field(slot Slot) (Field, bool) {
	if int(slot) >= len(l.fields) {
		return Field{}, false
	}
	return l.fields[slot], true
}

func (l *Layout) Fields() []Field { return l.fields }

// Perfect reports whether every field received a distinct color, in which
// case a static key whose table entry does not match is absent.
func (l *Layout) Perfect() bool { return l.perfect }

// KeySlot resolves a key by identity for static strings and by content
// otherwise.
func (l *Layout) KeySlot(key *value.StringData) Slot {
	if key.IsStatic() {
		if slot, ok := l.byID[key.ID()]; ok {
			return slot
		}
		return InvalidSlot
	}
	return l.KeySlotNonStatic(key)
}

// KeySlotNonStatic resolves a key by content.
func (l *Layout) KeySlotNonStatic(key *value.StringData) Slot {
	if slot, ok := l.byContent[key.String()]; ok {
		return slot
	}
	return InvalidSlot
}

// TypeBound returns the type mask of slot.
func (l *Layout) TypeBound(slot Slot) value.TypeMask {
	if int(slot) >= len(l.fields) {
		return value.MaskNone
	}
	return l.fields[slot].TypeMask
}

// TypeOffset is the offset of slot's type byte.
func (l *Layout) TypeOffset(slot Slot) uint32 { return TypesOffset + uint32(slot) }

// PositionOffset is the offset of the positions array.
func (l *Layout) PositionOffset() uint32 { return TypesOffset + uint32(len(l.fields)) }

// ValueOffset is the offset of the values array.
func (l *Layout) ValueOffset() uint32 {
	return abi.AlignTo(TypesOffset+2*uint32(len(l.fields)), valueSize)
}

// ValueOffsetForSlot is the offset of slot's value.
func (l *Layout) ValueOffsetForSlot(slot Slot) uint32 {
	return l.ValueOffset() + uint32(slot)*valueSize
}

// Bytes is the allocation size of an array in this layout.
func (l *Layout) Bytes() uint32 {
	return l.ValueOffset() + uint32(len(l.fields))*valueSize
}
