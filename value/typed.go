package value

import "math"

// TypedValue is a value word paired with its type tag. Strings store their
// string id in Data; arrays store their heap address.
type TypedValue struct {
	Data uint64
	Type DataType
}

func Uninit() TypedValue { return TypedValue{} }

func Null() TypedValue { return TypedValue{Type: KindOfNull} }

func Int(i int64) TypedValue { return TypedValue{Data: uint64(i), Type: KindOfInt64} }

func Double(f float64) TypedValue {
	return TypedValue{Data: math.Float64bits(f), Type: KindOfDouble}
}

func Bool(b bool) TypedValue {
	if b {
		return TypedValue{Data: 1, Type: KindOfBool}
	}
	return TypedValue{Type: KindOfBool}
}

func String(s *StringData) TypedValue {
	return TypedValue{Data: uint64(s.ID()), Type: KindOfString}
}

// Array wraps an array reference of the given kind.
func Array(kind ArrayKind, ptr uint32) TypedValue {
	return TypedValue{Data: uint64(ptr), Type: kind.DataType()}
}

// FromWords rebuilds a TypedValue from its two-word calling-convention form.
func FromWords(data, typ uint64) TypedValue {
	return TypedValue{Data: data, Type: DataType(typ)}
}

// Words returns the two-word calling-convention form (data, type).
func (tv TypedValue) Words() (uint64, uint64) {
	return tv.Data, uint64(tv.Type)
}

func (tv TypedValue) IsInit() bool { return tv.Type != KindOfUninit }

func (tv TypedValue) Int() int64 { return int64(tv.Data) }

func (tv TypedValue) Double() float64 { return math.Float64frombits(tv.Data) }

func (tv TypedValue) Bool() bool { return tv.Data != 0 }

func (tv TypedValue) StringID() uint32 { return uint32(tv.Data) }

func (tv TypedValue) Ptr() uint32 { return uint32(tv.Data) }
