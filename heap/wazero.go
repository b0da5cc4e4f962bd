package heap

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bespoke-runtime/errors"
)

// WazeroMemory adapts a wazero api.Memory to the heap's memory contract.
type WazeroMemory struct {
	Mem api.Memory
	rt  wazero.Runtime
	mod api.Module
}

// WrapMemory wraps an existing wazero memory. The caller keeps ownership of
// the module that exports it.
func WrapMemory(mem api.Memory) *WazeroMemory {
	if mem == nil {
		return nil
	}
	return &WazeroMemory{Mem: mem}
}

// NewWazeroMemory instantiates a module exporting one linear memory of
// initialPages pages and wraps it. maxPages of 0 leaves the memory unbounded
// up to the runtime limit.
func NewWazeroMemory(ctx context.Context, initialPages, maxPages uint32) (*WazeroMemory, error) {
	cfg := wazero.NewRuntimeConfig()
	if maxPages > 0 {
		cfg = cfg.WithMemoryLimitPages(maxPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := rt.CompileModule(ctx, memoryModule(initialPages, maxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, "compile memory module")
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("heap"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, "instantiate memory module")
	}
	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseRuntime, "export", "memory")
	}
	return &WazeroMemory{Mem: mem, rt: rt, mod: mod}, nil
}

// Close releases the module and runtime created by NewWazeroMemory.
func (m *WazeroMemory) Close(ctx context.Context) error {
	if m.rt == nil {
		return nil
	}
	if err := m.mod.Close(ctx); err != nil {
		return err
	}
	return m.rt.Close(ctx)
}

func (m *WazeroMemory) Size() uint32 {
	return m.Mem.Size()
}

// Grow extends the memory by at least delta bytes, in whole pages.
func (m *WazeroMemory) Grow(delta uint32) (uint32, error) {
	pages := uint32((uint64(delta) + PageSize - 1) / PageSize)
	prev, ok := m.Mem.Grow(pages)
	if !ok {
		return m.Mem.Size(), errors.New(errors.PhaseRuntime, errors.KindAllocation).
			Detail("cannot grow memory by %d pages", pages).
			Build()
	}
	return prev * PageSize, nil
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.MemoryFault(offset, length, m.Mem.Size())
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.MemoryFault(offset, uint32(len(data)), m.Mem.Size())
	}
	return nil
}

func (m *WazeroMemory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, errors.MemoryFault(offset, 1, m.Mem.Size())
	}
	return v, nil
}

func (m *WazeroMemory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.MemoryFault(offset, 2, m.Mem.Size())
	}
	return v, nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.MemoryFault(offset, 4, m.Mem.Size())
	}
	return v, nil
}

func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.MemoryFault(offset, 8, m.Mem.Size())
	}
	return v, nil
}

func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return errors.MemoryFault(offset, 1, m.Mem.Size())
	}
	return nil
}

func (m *WazeroMemory) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return errors.MemoryFault(offset, 2, m.Mem.Size())
	}
	return nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return errors.MemoryFault(offset, 4, m.Mem.Size())
	}
	return nil
}

func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return errors.MemoryFault(offset, 8, m.Mem.Size())
	}
	return nil
}

// memoryModule encodes a module whose only content is one exported memory.
func memoryModule(minPages, maxPages uint32) []byte {
	limits := []byte{0x00}
	if maxPages > 0 {
		limits[0] = 0x01
	}
	limits = appendULEB(limits, minPages)
	if maxPages > 0 {
		limits = appendULEB(limits, maxPages)
	}
	memSection := append([]byte{0x01}, limits...)

	exportSection := []byte{0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, 0x05)
	out = appendULEB(out, uint32(len(memSection)))
	out = append(out, memSection...)
	out = append(out, 0x07)
	out = appendULEB(out, uint32(len(exportSection)))
	out = append(out, exportSection...)
	return out
}

func appendULEB(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}
