package value

import "sync"

// NonStaticBit marks string ids that were not interned. Two strings with the
// same content compare equal by identity only when both are static.
const NonStaticBit uint32 = 1 << 31

// StringData is a runtime string. Static strings are deduplicated by the
// StringTable, so identity (id) comparison between two static strings is
// equivalent to content comparison.
type StringData struct {
	s       string
	id      uint32
	color   uint8
	colored bool
}

func (sd *StringData) ID() uint32 { return sd.id }

func (sd *StringData) String() string { return sd.s }

func (sd *StringData) IsStatic() bool { return sd.id&NonStaticBit == 0 }

// Color returns the stored color byte. For strings that were never colored
// the byte is arbitrary and must be masked and verified by the reader.
func (sd *StringData) Color() uint8 { return sd.color }

// HasColor reports whether a color was assigned by a struct layout.
func (sd *StringData) HasColor() bool { return sd.colored }

// StringTable interns static strings and hands out ids for non-static ones.
type StringTable struct {
	static    []*StringData
	nonStatic []*StringData
	byContent map[string]*StringData
	mu        sync.RWMutex
}

// NewStringTable creates an empty table. Id 0 is reserved.
func NewStringTable() *StringTable {
	return &StringTable{
		static:    make([]*StringData, 1, 64),
		nonStatic: make([]*StringData, 1, 16),
		byContent: make(map[string]*StringData),
	}
}

// Intern returns the unique static string with content s.
func (t *StringTable) Intern(s string) *StringData {
	t.mu.RLock()
	sd, ok := t.byContent[s]
	t.mu.RUnlock()
	if ok {
		return sd
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if sd, ok := t.byContent[s]; ok {
		return sd
	}
	sd = &StringData{s: s, id: uint32(len(t.static))}
	t.static = append(t.static, sd)
	t.byContent[s] = sd
	return sd
}

// MakeNonStatic allocates a fresh, non-interned string.
func (t *StringTable) MakeNonStatic(s string) *StringData {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := NonStaticBit | uint32(len(t.nonStatic))
	sd := &StringData{s: s, id: id, color: uint8(id * 0x9b)}
	t.nonStatic = append(t.nonStatic, sd)
	return sd
}

// Lookup resolves a string id.
func (t *StringTable) Lookup(id uint32) (*StringData, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id&NonStaticBit != 0 {
		idx := id &^ NonStaticBit
		if idx == 0 || int(idx) >= len(t.nonStatic) {
			return nil, false
		}
		return t.nonStatic[idx], true
	}
	if id == 0 || int(id) >= len(t.static) {
		return nil, false
	}
	return t.static[id], true
}

// LookupStatic finds the static string with content s, if one was interned.
func (t *StringTable) LookupStatic(s string) (*StringData, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sd, ok := t.byContent[s]
	return sd, ok
}

// Content returns the content of string id, or "" for an unknown id.
func (t *StringTable) Content(id uint32) string {
	if sd, ok := t.Lookup(id); ok {
		return sd.s
	}
	return ""
}

// SameString compares two string ids: identity first, content second.
func (t *StringTable) SameString(a, b uint32) bool {
	if a == b {
		return true
	}
	if a&NonStaticBit == 0 && b&NonStaticBit == 0 {
		return false
	}
	sa, okA := t.Lookup(a)
	sb, okB := t.Lookup(b)
	return okA && okB && sa.s == sb.s
}

// SetColor records the perfect-hash color of a static string. Colors are
// assigned once and never change.
func (t *StringTable) SetColor(sd *StringData, color uint8) bool {
	if !sd.IsStatic() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if sd.colored {
		return sd.color == color
	}
	sd.color = color
	sd.colored = true
	return true
}

// Same reports whether two typed values are the same logical value.
func (t *StringTable) Same(a, b TypedValue) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case KindOfUninit, KindOfNull:
		return true
	case KindOfString:
		return t.SameString(a.StringID(), b.StringID())
	default:
		return a.Data == b.Data
	}
}
