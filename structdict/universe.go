package structdict

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// Universe owns every struct layout of a registry and the shared region
// their hash tables live in. It is populated during initialization and
// read-only once the registry is finalized.
type Universe struct {
	reg       *layout.Registry
	strings   *value.StringTable
	tables    *heap.Linear
	layouts   map[layout.Index]*Layout
	abstracts map[layout.Index]*layout.Abstract
}

// NewUniverse creates an empty universe registering into reg.
func NewUniverse(reg *layout.Registry, strings *value.StringTable) *Universe {
	maxPages := uint32(layout.MaxIndex) << HashTableShift / heap.PageSize
	return &Universe{
		reg:       reg,
		strings:   strings,
		tables:    heap.NewLinear(1, maxPages),
		layouts:   make(map[layout.Index]*Layout),
		abstracts: make(map[layout.Index]*layout.Abstract),
	}
}

// Strings returns the string table field names are interned in.
func (u *Universe) Strings() *value.StringTable { return u.strings }

// Tables returns the hash table region.
func (u *Universe) Tables() *heap.Linear { return u.tables }

// NewLayout declares a concrete struct layout. Field slots follow the order
// of fields.
func (u *Universe) NewLayout(name string, fields []FieldSpec) (*Layout, error) {
	if len(fields) > MaxFields {
		return nil, errors.InvalidLayout(errors.PhaseRegister, name,
			"%d fields exceed the limit of %d", len(fields), MaxFields)
	}
	idx, err := u.reg.Reserve()
	if err != nil {
		return nil, err
	}

	l := &Layout{
		fields:    make([]Field, len(fields)),
		byID:      make(map[uint32]Slot, len(fields)),
		byContent: make(map[string]Slot, len(fields)),
	}
	for i, f := range fields {
		if _, dup := l.byContent[f.Name]; dup {
			return nil, errors.InvalidLayout(errors.PhaseRegister, name, "duplicate field %q", f.Name)
		}
		mask := f.Types
		if mask == value.MaskNone {
			mask = value.MaskAny
		}
		sd := u.strings.Intern(f.Name)
		l.fields[i] = Field{Name: sd, Slot: Slot(i), Required: f.Required, TypeMask: mask}
		l.byID[sd.ID()] = Slot(i)
		l.byContent[f.Name] = Slot(i)
	}
	l.desc = &layout.Concrete{
		Name:   name,
		Index:  idx,
		Kind:   value.ArrayDict,
		Data:   l,
		VTable: u.vtable(name),
	}

	if err := u.buildTable(l); err != nil {
		return nil, err
	}
	if err := u.reg.Register(l.desc); err != nil {
		return nil, err
	}
	u.layouts[idx] = l
	Logger().Debug("struct layout created",
		zap.String("layout", name),
		zap.Uint16("index", uint16(idx)),
		zap.Int("fields", len(fields)),
		zap.Bool("perfect", l.perfect))
	return l, nil
}

// buildTable colors the field names and writes the perfect hash table.
// Colors are global per string: a name colored by an earlier layout keeps
// its color, and a collision with another field makes the layout imperfect.
func (u *Universe) buildTable(l *Layout) error {
	base := uint32(l.Index()) << HashTableShift
	if err := u.ensureTables(base + HashTableSize); err != nil {
		return err
	}

	var used [MaxColor + 1]bool
	l.perfect = true
	for _, f := range l.fields {
		color, ok := u.colorFor(f.Name, &used)
		if !ok {
			l.perfect = false
			continue
		}
		used[color] = true
		entry := base + uint32(color)*HashEntrySize
		if err := u.tables.WriteU32(entry+HashStrOffset, f.Name.ID()); err != nil {
			return err
		}
		if err := u.tables.WriteU16(entry+HashSlotOffset, uint16(f.Slot)); err != nil {
			return err
		}
	}
	return nil
}

func (u *Universe) colorFor(name *value.StringData, used *[MaxColor + 1]bool) (uint8, bool) {
	if name.HasColor() {
		c := name.Color() & MaxColor
		return c, !used[c]
	}
	for c := range uint8(MaxColor + 1) {
		if !used[c] && u.strings.SetColor(name, c) {
			return c, true
		}
	}
	return 0, false
}

func (u *Universe) ensureTables(end uint32) error {
	if size := u.tables.Size(); end > size {
		if _, err := u.tables.Grow(end - size); err != nil {
			return errors.Wrap(errors.PhaseRegister, errors.KindAllocation, err, "grow struct hash tables")
		}
	}
	return nil
}

// NewAbstract declares an abstract struct layout covering children. Which
// layouts to group is the caller's decision.
func (u *Universe) NewAbstract(name string, children ...*Layout) (*layout.Abstract, error) {
	idx, err := u.reg.Reserve()
	if err != nil {
		return nil, err
	}
	a := &layout.Abstract{
		Name:    name,
		Index:   idx,
		KindSet: layout.KindSetOf(value.ArrayDict),
	}
	for _, c := range children {
		a.Children = append(a.Children, c.Index())
	}
	if err := u.reg.Register(a); err != nil {
		return nil, err
	}
	u.abstracts[idx] = a
	return a, nil
}

// Layout returns the concrete struct layout at idx.
func (u *Universe) Layout(idx layout.Index) (*Layout, bool) {
	l, ok := u.layouts[idx]
	return l, ok
}

// Abstract returns the abstract struct layout at idx.
func (u *Universe) Abstract(idx layout.Index) (*layout.Abstract, bool) {
	a, ok := u.abstracts[idx]
	return a, ok
}

// Layouts returns the concrete layouts in index order.
func (u *Universe) Layouts() []*Layout {
	out := make([]*Layout, 0, len(u.layouts))
	for _, d := range u.reg.All() {
		if c, ok := d.(*layout.Concrete); ok {
			if l, ok := u.layouts[c.Index]; ok {
				out = append(out, l)
			}
		}
	}
	return out
}

// KeySlotNonStatic resolves key by content in the layout at idx. It is the
// slow path for arrays whose concrete layout is only known at run time.
func (u *Universe) KeySlotNonStatic(idx layout.Index, key *value.StringData) Slot {
	l, ok := u.layouts[idx]
	if !ok {
		return InvalidSlot
	}
	return l.KeySlotNonStatic(key)
}

// HashEntry reads color's entry of the table at idx.
func (u *Universe) HashEntry(idx layout.Index, color uint8) (str uint32, slot Slot, err error) {
	entry := uint32(idx)<<HashTableShift + uint32(color&MaxColor)*HashEntrySize
	if str, err = u.tables.ReadU32(entry + HashStrOffset); err != nil {
		return 0, InvalidSlot, err
	}
	s, err := u.tables.ReadU16(entry + HashSlotOffset)
	if err != nil {
		return 0, InvalidSlot, err
	}
	return str, Slot(s), nil
}

// layoutOf returns the concrete layout of a struct dict from its header.
func layoutOf(env *layout.Env, arr uint32) (*Layout, error) {
	idx := layout.Index(env.Heap.LayoutIndex(arr))
	if c, ok := env.Registry.Concrete(idx); ok {
		if l, ok := c.Data.(*Layout); ok {
			return l, nil
		}
	}
	return nil, errors.InvalidLayout(errors.PhaseStorage, fmt.Sprint(idx), "not a struct layout")
}
