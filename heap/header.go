package heap

import "github.com/wippyai/bespoke-runtime/value"

// Array header layout.
const (
	OffsetRefCount    = 0
	OffsetKind        = 4
	OffsetFlags       = 5
	OffsetLayoutIndex = 6
	OffsetSize        = 8
	OffsetAux         = 12
	HeaderSize        = 16
)

// BespokeBit is set in the header kind byte of arrays in a specialized layout.
const BespokeBit = 0x80

// InitHeader writes a fresh header with refcount 1.
func (h *Heap) InitHeader(arr uint32, kind value.ArrayKind, bespoke bool, index uint16, size uint32) {
	k := uint8(kind)
	if bespoke {
		k |= BespokeBit
	}
	h.Store32(arr+OffsetRefCount, 1)
	h.Store8(arr+OffsetKind, k)
	h.Store8(arr+OffsetFlags, 0)
	h.Store16(arr+OffsetLayoutIndex, index)
	h.Store32(arr+OffsetSize, size)
}

// Kind returns the container kind of arr.
func (h *Heap) Kind(arr uint32) value.ArrayKind {
	return value.ArrayKind(h.Load8(arr+OffsetKind) &^ BespokeBit)
}

// IsBespoke reports whether arr uses a specialized layout.
func (h *Heap) IsBespoke(arr uint32) bool {
	return h.Load8(arr+OffsetKind)&BespokeBit != 0
}

// LayoutIndex returns the layout index recorded in the header.
func (h *Heap) LayoutIndex(arr uint32) uint16 {
	return h.Load16(arr + OffsetLayoutIndex)
}

func (h *Heap) SetLayoutIndex(arr uint32, index uint16) {
	h.Store16(arr+OffsetLayoutIndex, index)
}

// Size returns the element count of arr.
func (h *Heap) Size(arr uint32) uint32 {
	return h.Load32(arr + OffsetSize)
}

func (h *Heap) SetSize(arr uint32, size uint32) {
	h.Store32(arr+OffsetSize, size)
}

func (h *Heap) Flags(arr uint32) uint8 {
	return h.Load8(arr + OffsetFlags)
}

func (h *Heap) SetFlags(arr uint32, flags uint8) {
	h.Store8(arr+OffsetFlags, flags)
}

// Aux returns the layout-specific header word.
func (h *Heap) Aux(arr uint32) uint32 {
	return h.Load32(arr + OffsetAux)
}

func (h *Heap) SetAux(arr uint32, aux uint32) {
	h.Store32(arr+OffsetAux, aux)
}

func (h *Heap) RefCount(arr uint32) uint32 {
	return h.Load32(arr + OffsetRefCount)
}

// HasMultipleRefs reports whether a mutation of arr must copy first.
func (h *Heap) HasMultipleRefs(arr uint32) bool {
	return h.RefCount(arr) > 1
}

func (h *Heap) IncRef(arr uint32) {
	h.Store32(arr+OffsetRefCount, h.RefCount(arr)+1)
}

// DecRef drops one reference and returns the remaining count.
func (h *Heap) DecRef(arr uint32) uint32 {
	rc := h.RefCount(arr)
	if rc == 0 {
		return 0
	}
	rc--
	h.Store32(arr+OffsetRefCount, rc)
	return rc
}

// IncRefTV adds a reference to tv when it holds an array.
func (h *Heap) IncRefTV(tv value.TypedValue) {
	if tv.Type.IsArray() {
		h.IncRef(tv.Ptr())
	}
}
