package structdict

import (
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// LayoutRef is the static knowledge of an array's struct layout: either a
// concrete layout or an abstract family resolved through the header index.
type LayoutRef struct {
	Concrete *Layout
	Abstract *layout.Abstract
}

// Concrete refers to a concrete layout.
func Concrete(l *Layout) LayoutRef { return LayoutRef{Concrete: l} }

// AbstractRef refers to an abstract struct layout.
func AbstractRef(a *layout.Abstract) LayoutRef { return LayoutRef{Abstract: a} }

// KeyInfo is the static knowledge of a string key.
type KeyInfo struct {
	// Const is the key's value when it is a compile-time constant.
	Const *value.StringData
	// Static is set when the key is known to be a static string.
	Static bool
	// NonStatic is set when the key is known not to be a static string.
	NonStatic bool
}

// PlanKind selects how a slot is resolved at run time.
type PlanKind uint8

const (
	PlanConst PlanKind = iota
	PlanAbsent
	PlanNonStatic
	PlanProbe
)

func (k PlanKind) String() string {
	switch k {
	case PlanConst:
		return "const"
	case PlanAbsent:
		return "absent"
	case PlanNonStatic:
		return "nonstatic"
	case PlanProbe:
		return "probe"
	}
	return "unknown"
}

// SlotPlan is a slot lookup decided once per call site.
type SlotPlan struct {
	u        *Universe
	layout   *Layout
	Kind     PlanKind
	Slot     Slot
	Color    uint8
	Folded   bool
	KeyKnown bool
}

// Plan decides how key is resolved against ref.
func (u *Universe) Plan(ref LayoutRef, key KeyInfo) SlotPlan {
	p := SlotPlan{u: u, layout: ref.Concrete, Slot: InvalidSlot}
	if key.Const != nil && ref.Concrete != nil {
		if slot := ref.Concrete.KeySlot(key.Const); slot.Valid() {
			p.Kind, p.Slot = PlanConst, slot
		} else {
			p.Kind = PlanAbsent
		}
		return p
	}
	if key.NonStatic || (key.Const != nil && !key.Const.IsStatic()) {
		p.Kind = PlanNonStatic
		return p
	}
	p.Kind = PlanProbe
	p.KeyKnown = key.Static || key.Const != nil
	if key.Const != nil {
		p.Color, p.Folded = key.Const.Color()&MaxColor, true
	}
	return p
}

// Exec resolves the slot of key in arr. It returns InvalidSlot when the
// key is not a field of arr's layout.
func (p SlotPlan) Exec(env *layout.Env, arr uint32, key uint32) Slot {
	switch p.Kind {
	case PlanConst:
		return p.Slot
	case PlanAbsent:
		return InvalidSlot
	}
	sd, ok := env.Strings().Lookup(key)
	if !ok {
		return InvalidSlot
	}
	if p.Kind == PlanNonStatic {
		return p.nonStatic(env, arr, sd)
	}

	idx := p.index(env, arr)
	color := p.Color
	if !p.Folded {
		color = sd.Color() & MaxColor
	}
	str, slot, err := p.u.HashEntry(idx, color)
	if err == nil && str == key {
		return slot
	}
	if p.KeyKnown || sd.IsStatic() {
		if l, ok := p.u.Layout(idx); ok && l.Perfect() {
			return InvalidSlot
		}
	}
	return p.nonStatic(env, arr, sd)
}

func (p SlotPlan) index(env *layout.Env, arr uint32) layout.Index {
	if p.layout != nil {
		return p.layout.Index()
	}
	return layout.Index(env.Heap.LayoutIndex(arr))
}

func (p SlotPlan) nonStatic(env *layout.Env, arr uint32, sd *value.StringData) Slot {
	if p.layout != nil {
		return p.layout.KeySlotNonStatic(sd)
	}
	return p.u.KeySlotNonStatic(layout.Index(env.Heap.LayoutIndex(arr)), sd)
}
