package layout

import "github.com/wippyai/bespoke-runtime/value"

// Descriptor is the static description of an array layout.
type Descriptor interface {
	LayoutName() string
	// Kinds returns the container kinds arrays in this layout may have.
	Kinds() KindSet
	isDescriptor()
}

// Generic is the vanilla layout of one container kind.
type Generic struct {
	Kind value.ArrayKind
}

func (g Generic) LayoutName() string { return "Vanilla" + titleKind(g.Kind) }
func (g Generic) Kinds() KindSet { return KindSetOf(g.Kind) }
func (Generic) isDescriptor() {}

// Concrete is a fully known specialized layout. Data carries the
// layout-specific description (for example a struct field table).
type Concrete struct {
	VTable *VTable
	Data   any
	Name   string
	Index  Index
	Kind   value.ArrayKind
}

func (c *Concrete) LayoutName() string { return c.Name }
func (c *Concrete) Kinds() KindSet { return KindSetOf(c.Kind) }
func (*Concrete) isDescriptor() {}

// Abstract is a family of specialized layouts. The concrete member is found
// at run time from the array header's layout index.
type Abstract struct {
	Name     string
	Children []Index
	Index    Index
	KindSet  KindSet
}

func (a *Abstract) LayoutName() string { return a.Name }
func (a *Abstract) Kinds() KindSet { return a.KindSet }
func (*Abstract) isDescriptor() {}

// Covers reports whether idx is a member of the family. The top layout
// covers every specialized index.
func (a *Abstract) Covers(idx Index) bool {
	if a.Index == TopIndex || a.Index == idx {
		return true
	}
	for _, c := range a.Children {
		if c == idx {
			return true
		}
	}
	return false
}

// Logging wraps another array and records how it is used.
type Logging struct {
	VTable *VTable
	Index  Index
}

func (l *Logging) LayoutName() string { return "Logging" }
func (*Logging) Kinds() KindSet { return KindSetAll }
func (*Logging) isDescriptor() {}

// IsSpecialized reports whether d is anything other than a vanilla layout.
func IsSpecialized(d Descriptor) bool {
	_, ok := d.(Generic)
	return !ok
}

func titleKind(k value.ArrayKind) string {
	switch k {
	case value.ArrayVec:
		return "Vec"
	case value.ArrayDict:
		return "Dict"
	case value.ArrayKeyset:
		return "Keyset"
	}
	return "Array"
}
