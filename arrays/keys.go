package arrays

import (
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// KeyFromWord builds a key from its stack word.
func KeyFromWord(key layout.KeyKind, w uint64) value.TypedValue {
	if key == layout.KeyStr {
		return value.TypedValue{Data: w, Type: value.KindOfString}
	}
	return value.TypedValue{Data: w, Type: value.KindOfInt64}
}

// KeyKindOf returns the key kind of a key value.
func KeyKindOf(key value.TypedValue) (layout.KeyKind, error) {
	switch key.Type {
	case value.KindOfInt64:
		return layout.KeyInt, nil
	case value.KindOfString:
		return layout.KeyStr, nil
	}
	return layout.KeyNone, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
		Detail("invalid array key type %s", key.Type).
		Build()
}

// KeyString renders a key for error messages.
func KeyString(env *layout.Env, key value.TypedValue) any {
	if key.Type == value.KindOfString {
		return env.Strings().Content(key.StringID())
	}
	return key.Int()
}

func sameKey(env *layout.Env, data uint64, typ value.DataType, key value.TypedValue) bool {
	if typ != key.Type {
		return false
	}
	if typ == value.KindOfString {
		return env.Strings().SameString(uint32(data), key.StringID())
	}
	return data == key.Data
}

func invalidKey(op layout.Op, kind value.ArrayKind, key value.TypedValue) error {
	return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
		Op(op.String()).
		Detail("%s does not accept %s keys", kind, key.Type).
		Build()
}
