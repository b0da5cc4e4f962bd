package heap

import (
	"encoding/binary"

	"github.com/wippyai/bespoke-runtime/errors"
)

// PageSize is the growth granularity of every backing memory.
const PageSize = 65536

// Linear is a slice-backed memory.
type Linear struct {
	data     []byte
	maxPages uint32
}

// NewLinear creates a memory of pages pages. maxPages of 0 means unlimited.
func NewLinear(pages, maxPages uint32) *Linear {
	return &Linear{data: make([]byte, int(pages)*PageSize), maxPages: maxPages}
}

func (m *Linear) Size() uint32 {
	return uint32(len(m.data))
}

// Grow extends the memory by at least delta bytes, in whole pages.
func (m *Linear) Grow(delta uint32) (uint32, error) {
	prev := uint32(len(m.data))
	pages := (uint64(delta) + PageSize - 1) / PageSize
	newPages := uint64(prev)/PageSize + pages
	if newPages > 65536 || (m.maxPages > 0 && newPages > uint64(m.maxPages)) {
		return prev, errors.New(errors.PhaseRuntime, errors.KindAllocation).
			Detail("cannot grow memory to %d pages (limit %d)", newPages, m.maxPages).
			Build()
	}
	m.data = append(m.data, make([]byte, int(pages)*PageSize)...)
	return prev, nil
}

func (m *Linear) check(offset, n uint32) error {
	if uint64(offset)+uint64(n) > uint64(len(m.data)) {
		return errors.MemoryFault(offset, n, uint32(len(m.data)))
	}
	return nil
}

func (m *Linear) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *Linear) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *Linear) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *Linear) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *Linear) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *Linear) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *Linear) WriteU8(offset uint32, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *Linear) WriteU16(offset uint32, value uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

func (m *Linear) WriteU32(offset uint32, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *Linear) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}
