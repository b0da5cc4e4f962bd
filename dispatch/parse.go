package dispatch

import (
	"strconv"
	"strings"

	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// ParseType reads a type written as kinds[@layout]. Kinds is "array" or a
// "|"-separated list of vec, dict and keyset. Layout is top (the default),
// vanilla, bottom, bespoke, a registered layout name, or #index.
func ParseType(reg *layout.Registry, s string) (Type, error) {
	kindsPart, layoutPart, _ := strings.Cut(strings.TrimSpace(s), "@")
	t := Type{Layout: TopLayout()}
	if kindsPart == "" || kindsPart == "array" {
		t.Kinds = layout.KindSetAll
	} else {
		for _, name := range strings.Split(kindsPart, "|") {
			kind, ok := parseKind(name)
			if !ok {
				return Type{}, errors.InvalidInput(errors.PhaseDispatch, "unknown array kind "+strconv.Quote(name))
			}
			t.Kinds |= layout.KindSetOf(kind)
		}
	}

	switch layoutPart {
	case "", "top":
	case "vanilla":
		t.Layout = VanillaLayout()
	case "bottom":
		t.Layout = BottomLayout()
	case "bespoke":
		t.Layout = BespokeTopLayout()
	default:
		if n, ok := strings.CutPrefix(layoutPart, "#"); ok {
			idx, err := strconv.ParseUint(n, 10, 16)
			if err != nil || layout.Index(idx) >= layout.MaxIndex {
				return Type{}, errors.InvalidInput(errors.PhaseDispatch, "bad layout index "+strconv.Quote(layoutPart))
			}
			t.Layout = BespokeLayout(layout.Index(idx))
			break
		}
		if reg == nil {
			return Type{}, errors.NotInitialized(errors.PhaseDispatch, "layout registry")
		}
		desc, ok := reg.ByName(layoutPart)
		if !ok {
			return Type{}, errors.NotFound(errors.PhaseDispatch, "layout", layoutPart)
		}
		idx, _ := layout.IndexOf(desc)
		t.Layout = BespokeLayout(idx)
		if kindsPart == "" {
			t.Kinds = desc.Kinds()
		}
	}
	return t, nil
}

func parseKind(s string) (value.ArrayKind, bool) {
	for k := value.ArrayVec; k <= value.ArrayKeyset; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// ParseOp reads an op by its name, case-insensitively.
func ParseOp(s string) (layout.Op, error) {
	for op := layout.Op(0); op < layout.NumOps; op++ {
		if strings.EqualFold(op.String(), s) {
			return op, nil
		}
	}
	return 0, errors.InvalidInput(errors.PhaseDispatch, "unknown op "+strconv.Quote(s))
}

// ParseKeyType reads int, str or static-str.
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToLower(s) {
	case "int":
		return IntKey(), nil
	case "str", "string":
		return StrKey(), nil
	case "static-str", "static":
		return StaticStrKey(), nil
	}
	return KeyType{}, errors.InvalidInput(errors.PhaseDispatch, "unknown key type "+strconv.Quote(s))
}
