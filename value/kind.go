package value

// DataType is the runtime type tag stored next to every value.
type DataType uint8

const (
	KindOfUninit DataType = iota
	KindOfNull
	KindOfBool
	KindOfInt64
	KindOfDouble
	KindOfString
	KindOfVec
	KindOfDict
	KindOfKeyset
)

var dataTypeNames = [...]string{
	KindOfUninit: "uninit",
	KindOfNull:   "null",
	KindOfBool:   "bool",
	KindOfInt64:  "int",
	KindOfDouble: "double",
	KindOfString: "string",
	KindOfVec:    "vec",
	KindOfDict:   "dict",
	KindOfKeyset: "keyset",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return "unknown"
}

// Valid reports whether t is an initialized, known type.
func (t DataType) Valid() bool {
	return t > KindOfUninit && t <= KindOfKeyset
}

// IsArray reports whether values of this type are array references.
func (t DataType) IsArray() bool {
	return t == KindOfVec || t == KindOfDict || t == KindOfKeyset
}

// Mask returns the single-bit TypeMask for t. Uninit has no bit.
func (t DataType) Mask() TypeMask {
	if !t.Valid() {
		return 0
	}
	return TypeMask(1) << (t - 1)
}

// TypeMask is a set of DataTypes packed into one byte, one bit per type.
type TypeMask uint8

const (
	MaskNone TypeMask = 0
	MaskAny  TypeMask = 0xFF
)

// MaskOf builds a mask admitting every listed type.
func MaskOf(types ...DataType) TypeMask {
	var m TypeMask
	for _, t := range types {
		m |= t.Mask()
	}
	return m
}

// Has reports whether t is a member of the mask.
func (m TypeMask) Has(t DataType) bool {
	return m&t.Mask() != 0
}

func (m TypeMask) String() string {
	if m == MaskNone {
		return "none"
	}
	if m == MaskAny {
		return "any"
	}
	s := ""
	for t := KindOfNull; t <= KindOfKeyset; t++ {
		if m.Has(t) {
			if s != "" {
				s += "|"
			}
			s += t.String()
		}
	}
	return s
}

// ArrayKind is the container kind of an array value.
type ArrayKind uint8

const (
	ArrayVec ArrayKind = iota
	ArrayDict
	ArrayKeyset
)

// NumArrayKinds is the number of container kinds.
const NumArrayKinds = 3

var arrayKindNames = [...]string{
	ArrayVec:    "vec",
	ArrayDict:   "dict",
	ArrayKeyset: "keyset",
}

func (k ArrayKind) String() string {
	if int(k) < len(arrayKindNames) {
		return arrayKindNames[k]
	}
	return "unknown"
}

// DataType returns the value tag of arrays of this kind.
func (k ArrayKind) DataType() DataType {
	return KindOfVec + DataType(k)
}

// ArrayKindOf maps an array DataType back to its container kind.
func ArrayKindOf(t DataType) (ArrayKind, bool) {
	if !t.IsArray() {
		return 0, false
	}
	return ArrayKind(t - KindOfVec), true
}
