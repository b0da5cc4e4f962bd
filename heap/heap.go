package heap

import (
	"go.uber.org/zap"

	bespoke "github.com/wippyai/bespoke-runtime"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/internal/abi"
	"github.com/wippyai/bespoke-runtime/value"
)

// Alignment is the alignment of every allocation.
const Alignment = 16

// Heap is a flat memory with an allocator and typed accessors.
// A Heap is not safe for concurrent use.
type Heap struct {
	mem     bespoke.Memory
	sizer   bespoke.MemorySizer
	grower  bespoke.MemoryGrower
	Strings *value.StringTable
	free    map[uint32][]uint32
	top     uint32
	live    int
	bytes   uint32
}

var _ bespoke.Allocator = (*Heap)(nil)

// Stats is a snapshot of allocator state.
type Stats struct {
	Live       int
	LiveBytes  uint32
	Top        uint32
	Capacity   uint32
	FreeBlocks int
}

// New creates a heap over mem. mem must report its size; it may also grow.
func New(mem bespoke.Memory, strings *value.StringTable) (*Heap, error) {
	sizer, ok := mem.(bespoke.MemorySizer)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "heap memory must implement MemorySizer")
	}
	if strings == nil {
		strings = value.NewStringTable()
	}
	h := &Heap{
		mem:     mem,
		sizer:   sizer,
		Strings: strings,
		free:    make(map[uint32][]uint32),
		top:     Alignment,
	}
	if g, ok := mem.(bespoke.MemoryGrower); ok {
		h.grower = g
	}
	return h, nil
}

// Alloc returns zeroed memory of at least size bytes.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if align > Alignment {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, size, align)
	}
	class := sizeClass(size)
	if class == 0 {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, size, align)
	}

	if list := h.free[class]; len(list) > 0 {
		ptr := list[len(list)-1]
		h.free[class] = list[:len(list)-1]
		h.Fill(ptr, class, 0)
		h.live++
		h.bytes += class
		return ptr, nil
	}

	end, ok := abi.SafeAddU32(h.top, class)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, size, align)
	}
	if capacity := h.sizer.Size(); end > capacity {
		if h.grower == nil {
			return 0, errors.AllocationFailed(errors.PhaseRuntime, size, align)
		}
		if _, err := h.grower.Grow(end - capacity); err != nil {
			return 0, errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, "grow heap")
		}
		Logger().Debug("heap grown",
			zap.Uint32("from", capacity),
			zap.Uint32("to", h.sizer.Size()))
	}

	ptr := h.top
	h.top = end
	h.live++
	h.bytes += class
	return ptr, nil
}

// Free returns a block to its size class.
func (h *Heap) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	class := sizeClass(size)
	h.free[class] = append(h.free[class], ptr)
	h.live--
	h.bytes -= class
}

// MustAlloc allocates or panics with the allocation error.
func (h *Heap) MustAlloc(size uint32) uint32 {
	ptr, err := h.Alloc(size, Alignment)
	if err != nil {
		panic(err)
	}
	return ptr
}

func (h *Heap) Stats() Stats {
	n := 0
	for _, l := range h.free {
		n += len(l)
	}
	return Stats{
		Live:       h.live,
		LiveBytes:  h.bytes,
		Top:        h.top,
		Capacity:   h.sizer.Size(),
		FreeBlocks: n,
	}
}

func sizeClass(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return abi.AlignTo(size, Alignment)
}

func (h *Heap) fault(addr, width uint32) {
	panic(errors.MemoryFault(addr, width, h.sizer.Size()))
}

func (h *Heap) Load8(addr uint32) uint8 {
	v, err := h.mem.ReadU8(addr)
	if err != nil {
		h.fault(addr, 1)
	}
	return v
}

func (h *Heap) Load16(addr uint32) uint16 {
	v, err := h.mem.ReadU16(addr)
	if err != nil {
		h.fault(addr, 2)
	}
	return v
}

func (h *Heap) Load32(addr uint32) uint32 {
	v, err := h.mem.ReadU32(addr)
	if err != nil {
		h.fault(addr, 4)
	}
	return v
}

func (h *Heap) Load64(addr uint32) uint64 {
	v, err := h.mem.ReadU64(addr)
	if err != nil {
		h.fault(addr, 8)
	}
	return v
}

func (h *Heap) Store8(addr uint32, v uint8) {
	if err := h.mem.WriteU8(addr, v); err != nil {
		h.fault(addr, 1)
	}
}

func (h *Heap) Store16(addr uint32, v uint16) {
	if err := h.mem.WriteU16(addr, v); err != nil {
		h.fault(addr, 2)
	}
}

func (h *Heap) Store32(addr uint32, v uint32) {
	if err := h.mem.WriteU32(addr, v); err != nil {
		h.fault(addr, 4)
	}
}

func (h *Heap) Store64(addr uint32, v uint64) {
	if err := h.mem.WriteU64(addr, v); err != nil {
		h.fault(addr, 8)
	}
}

// LoadTV reads a 16-byte typed value (data @0, type @8).
func (h *Heap) LoadTV(addr uint32) value.TypedValue {
	return value.TypedValue{Data: h.Load64(addr), Type: value.DataType(h.Load8(addr + 8))}
}

// StoreTV writes a 16-byte typed value.
func (h *Heap) StoreTV(addr uint32, tv value.TypedValue) {
	h.Store64(addr, tv.Data)
	h.Store64(addr+8, uint64(tv.Type))
}

// Bytes returns a copy of n bytes at addr.
func (h *Heap) Bytes(addr, n uint32) []byte {
	b, err := h.mem.Read(addr, n)
	if err != nil {
		h.fault(addr, n)
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Move copies n bytes from src to dst. The ranges may overlap.
func (h *Heap) Move(dst, src, n uint32) {
	if n == 0 || dst == src {
		return
	}
	if err := h.mem.Write(dst, h.Bytes(src, n)); err != nil {
		h.fault(dst, n)
	}
}

// Fill sets n bytes at addr to b.
func (h *Heap) Fill(addr, n uint32, b byte) {
	if n == 0 {
		return
	}
	buf := make([]byte, n)
	if b != 0 {
		for i := range buf {
			buf[i] = b
		}
	}
	if err := h.mem.Write(addr, buf); err != nil {
		h.fault(addr, n)
	}
}

// Recover converts a heap fault panic into *errp. Other panics propagate.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*errors.Error); ok {
		*errp = e
		return
	}
	panic(r)
}
