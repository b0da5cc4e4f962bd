package dispatch

import (
	"fmt"

	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

type layoutClass uint8

const (
	classBottom layoutClass = iota
	classVanilla
	classBespoke
	classTop
)

// ArrayLayout is what compiled code knows statically about an array's
// layout. The lattice is Bottom < Vanilla, Bespoke(i) < Top, with
// Bespoke(TopIndex) above every other specialized layout.
type ArrayLayout struct {
	class layoutClass
	index layout.Index
}

// Encoded forms of the non-specialized layouts, used where a layout is
// passed as a single immediate.
const (
	encodedTop     uint16 = 0xFFFF
	encodedVanilla uint16 = 0xFFFE
	encodedBottom  uint16 = 0xFFFD
)

func TopLayout() ArrayLayout     { return ArrayLayout{class: classTop} }
func VanillaLayout() ArrayLayout { return ArrayLayout{class: classVanilla} }
func BottomLayout() ArrayLayout  { return ArrayLayout{class: classBottom} }

// BespokeLayout is the specialized layout registered at idx.
func BespokeLayout(idx layout.Index) ArrayLayout {
	return ArrayLayout{class: classBespoke, index: idx}
}

// BespokeTopLayout covers every specialized layout.
func BespokeTopLayout() ArrayLayout { return BespokeLayout(layout.TopIndex) }

func (l ArrayLayout) Top() bool     { return l.class == classTop }
func (l ArrayLayout) Vanilla() bool { return l.class == classVanilla }
func (l ArrayLayout) Bespoke() bool { return l.class == classBespoke }
func (l ArrayLayout) Bottom() bool  { return l.class == classBottom }

// Index returns the registry index of a specialized layout.
func (l ArrayLayout) Index() (layout.Index, bool) {
	return l.index, l.class == classBespoke
}

// Uint16 encodes l as a single immediate.
func (l ArrayLayout) Uint16() uint16 {
	switch l.class {
	case classTop:
		return encodedTop
	case classVanilla:
		return encodedVanilla
	case classBottom:
		return encodedBottom
	}
	return uint16(l.index)
}

// LayoutFromUint16 decodes an immediate produced by Uint16.
func LayoutFromUint16(v uint16) ArrayLayout {
	switch v {
	case encodedTop:
		return TopLayout()
	case encodedVanilla:
		return VanillaLayout()
	case encodedBottom:
		return BottomLayout()
	}
	return BespokeLayout(layout.Index(v))
}

// Join returns the least layout above both l and o.
func (l ArrayLayout) Join(o ArrayLayout) ArrayLayout {
	switch {
	case l == o || o.Bottom():
		return l
	case l.Bottom():
		return o
	case l.Bespoke() && o.Bespoke():
		return BespokeTopLayout()
	}
	return TopLayout()
}

func (l ArrayLayout) String() string {
	switch l.class {
	case classTop:
		return "top"
	case classVanilla:
		return "vanilla"
	case classBottom:
		return "bottom"
	}
	if l.index == layout.TopIndex {
		return "bespoke"
	}
	return fmt.Sprintf("bespoke%s", l.index)
}

// Type is the static type of an array value: the container kinds it may
// have and what is known about its layout.
type Type struct {
	Kinds  layout.KindSet
	Layout ArrayLayout
}

// AnyArray is an array of unknown kind and layout.
func AnyArray() Type { return Type{Kinds: layout.KindSetAll, Layout: TopLayout()} }

// Of returns an array of one of kinds with unknown layout.
func Of(kinds ...value.ArrayKind) Type {
	return Type{Kinds: layout.KindSetOf(kinds...), Layout: TopLayout()}
}

// Vanilla returns a vanilla array of kind.
func Vanilla(kind value.ArrayKind) Type {
	return Type{Kinds: layout.KindSetOf(kind), Layout: VanillaLayout()}
}

// Bespoke returns an array in the specialized layout d.
func Bespoke(d layout.Descriptor) Type {
	idx, ok := layout.IndexOf(d)
	if !ok {
		return Type{Kinds: d.Kinds(), Layout: VanillaLayout()}
	}
	return Type{Kinds: d.Kinds(), Layout: BespokeLayout(idx)}
}

// NarrowToLayout returns t with its layout replaced by l.
func (t Type) NarrowToLayout(l ArrayLayout) Type {
	t.Layout = l
	return t
}

// Single returns the only container kind t can have.
func (t Type) Single() (value.ArrayKind, bool) { return t.Kinds.Single() }

func (t Type) String() string {
	return t.Kinds.String() + "@" + t.Layout.String()
}

// KeyBase is the static category of a key.
type KeyBase uint8

const (
	KeyTypeInt KeyBase = iota
	KeyTypeStr
	// KeyTypeStaticStr is a string known to be interned.
	KeyTypeStaticStr
)

// KeyType is the static type of an operation's key, optionally a constant.
type KeyType struct {
	Base  KeyBase
	Const value.TypedValue
}

func IntKey() KeyType       { return KeyType{Base: KeyTypeInt} }
func StrKey() KeyType       { return KeyType{Base: KeyTypeStr} }
func StaticStrKey() KeyType { return KeyType{Base: KeyTypeStaticStr} }

// ConstKey returns the type of the constant key tv.
func ConstKey(tv value.TypedValue) KeyType {
	if tv.Type == value.KindOfInt64 {
		return KeyType{Base: KeyTypeInt, Const: tv}
	}
	base := KeyTypeStr
	if tv.StringID()&value.NonStaticBit == 0 {
		base = KeyTypeStaticStr
	}
	return KeyType{Base: base, Const: tv}
}

// HasConst reports whether the key is a compile-time constant.
func (k KeyType) HasConst() bool { return k.Const.IsInit() }

// Kind picks the key specialization: integer keys use the Int entry points
// and everything else the Str ones.
func (k KeyType) Kind() layout.KeyKind {
	if k.Base == KeyTypeInt {
		return layout.KeyInt
	}
	return layout.KeyStr
}

func (k KeyType) String() string {
	switch k.Base {
	case KeyTypeInt:
		return "int"
	case KeyTypeStaticStr:
		return "static-str"
	}
	return "str"
}
