package layout

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/bespoke-runtime/errors"
)

// Registry is the process-wide table of specialized layouts.
// It is written during initialization and read-only after Finalize.
type Registry struct {
	byName    map[string]Index
	entries   []Descriptor
	next      Index
	finalized bool
}

// NewRegistry creates a registry holding only the top abstract layout.
func NewRegistry() *Registry {
	r := &Registry{
		byName:  make(map[string]Index),
		entries: make([]Descriptor, FirstDynamicIndex),
		next:    FirstDynamicIndex,
	}
	top := &Abstract{Name: "TopBespoke", Index: TopIndex, KindSet: KindSetAll}
	r.entries[TopIndex] = top
	r.byName[top.Name] = TopIndex
	return r
}

// Reserve returns the next free dynamic index.
func (r *Registry) Reserve() (Index, error) {
	if r.finalized {
		return 0, errors.Registration("", "registry is finalized")
	}
	if r.next >= MaxIndex {
		return 0, errors.Registration("", fmt.Sprintf("layout index space exhausted (%d)", MaxIndex))
	}
	idx := r.next
	r.next++
	for int(r.next) > len(r.entries) {
		r.entries = append(r.entries, nil)
	}
	return idx, nil
}

// Register installs d at its own index.
func (r *Registry) Register(d Descriptor) error {
	if r.finalized {
		return errors.Registration(d.LayoutName(), "registry is finalized")
	}
	idx, ok := IndexOf(d)
	if !ok {
		return errors.Registration(d.LayoutName(), "vanilla layouts are not registered")
	}
	if idx >= MaxIndex {
		return errors.Registration(d.LayoutName(), fmt.Sprintf("index %d out of range", idx))
	}
	for int(idx) >= len(r.entries) {
		r.entries = append(r.entries, nil)
	}
	if r.entries[idx] != nil {
		return errors.Registration(d.LayoutName(), fmt.Sprintf("index %d already holds %s", idx, r.entries[idx].LayoutName()))
	}
	if _, dup := r.byName[d.LayoutName()]; dup {
		return errors.Registration(d.LayoutName(), "duplicate layout name")
	}
	r.entries[idx] = d
	r.byName[d.LayoutName()] = idx
	if idx >= r.next {
		r.next = idx + 1
	}
	Logger().Debug("layout registered",
		zap.String("layout", d.LayoutName()),
		zap.Uint16("index", uint16(idx)))
	return nil
}

// Finalize freezes the registry.
func (r *Registry) Finalize() {
	if r.finalized {
		return
	}
	r.finalized = true
	Logger().Info("layout registry finalized", zap.Int("layouts", r.Len()))
}

func (r *Registry) Finalized() bool { return r.finalized }

// Get returns the descriptor registered at idx.
func (r *Registry) Get(idx Index) (Descriptor, bool) {
	if int(idx) >= len(r.entries) || r.entries[idx] == nil {
		return nil, false
	}
	return r.entries[idx], true
}

// Concrete returns the concrete layout registered at idx.
func (r *Registry) Concrete(idx Index) (*Concrete, bool) {
	d, ok := r.Get(idx)
	if !ok {
		return nil, false
	}
	c, ok := d.(*Concrete)
	return c, ok
}

// VTableFor returns the vtable of the layout at idx, if it has one.
func (r *Registry) VTableFor(idx Index) *VTable {
	d, ok := r.Get(idx)
	if !ok {
		return nil
	}
	switch d := d.(type) {
	case *Concrete:
		return d.VTable
	case *Logging:
		return d.VTable
	}
	return nil
}

// ByName looks a layout up by name.
func (r *Registry) ByName(name string) (Descriptor, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.Get(idx)
}

// All returns registered descriptors in index order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.entries {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.byName) }

// IndexOf returns the registry index of a specialized descriptor.
func IndexOf(d Descriptor) (Index, bool) {
	switch d := d.(type) {
	case *Concrete:
		return d.Index, true
	case *Abstract:
		return d.Index, true
	case *Logging:
		return d.Index, true
	}
	return 0, false
}
