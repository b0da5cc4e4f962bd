package layout

import "github.com/wippyai/bespoke-runtime/value"

// KindSet is a set of container kinds.
type KindSet uint8

const (
	KindSetNone KindSet = 0
	KindSetAll  KindSet = 1<<value.NumArrayKinds - 1
)

// KindSetOf builds a set containing the listed kinds.
func KindSetOf(kinds ...value.ArrayKind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

func (s KindSet) Has(k value.ArrayKind) bool {
	return s&(1<<k) != 0
}

// Single returns the only kind in the set, if the set has exactly one.
func (s KindSet) Single() (value.ArrayKind, bool) {
	switch s {
	case 1 << value.ArrayVec:
		return value.ArrayVec, true
	case 1 << value.ArrayDict:
		return value.ArrayDict, true
	case 1 << value.ArrayKeyset:
		return value.ArrayKeyset, true
	}
	return 0, false
}

func (s KindSet) String() string {
	if s == KindSetAll {
		return "array"
	}
	out := ""
	for k := value.ArrayVec; k <= value.ArrayKeyset; k++ {
		if s.Has(k) {
			if out != "" {
				out += "|"
			}
			out += k.String()
		}
	}
	if out == "" {
		return "none"
	}
	return out
}
