package layout

// NativeFunc implements one operation for one layout.
type NativeFunc func(env *Env, stack []uint64) error

// Entry is one populated vtable slot.
type Entry struct {
	Fn     NativeFunc
	Symbol string
	Op     Op
	Key    KeyKind
}

// VTable is a layout's operation table, indexed by Op and KeyKind. Missing
// entries fall through to the generic implementation.
type VTable struct {
	name    string
	entries [NumOps][NumKeyKinds]Entry
}

// NewVTable creates an empty table whose symbols are prefixed with name.
func NewVTable(name string) *VTable {
	return &VTable{name: name}
}

func (vt *VTable) Name() string { return vt.name }

// Set installs fn for (op, key). Unkeyed ops use KeyNone.
func (vt *VTable) Set(op Op, key KeyKind, fn NativeFunc) *VTable {
	if !op.Keyed() {
		key = KeyNone
	}
	vt.entries[op][key] = Entry{
		Fn:     fn,
		Symbol: vt.name + "::" + op.Symbol(key),
		Op:     op,
		Key:    key,
	}
	return vt
}

// Lookup returns the entry for (op, key), or false when the slot is empty.
func (vt *VTable) Lookup(op Op, key KeyKind) (Entry, bool) {
	if vt == nil || op >= NumOps || key >= NumKeyKinds {
		return Entry{}, false
	}
	if !op.Keyed() {
		key = KeyNone
	}
	e := vt.entries[op][key]
	return e, e.Fn != nil
}

// Entries lists every populated slot in op order.
func (vt *VTable) Entries() []Entry {
	var out []Entry
	for op := Op(0); op < NumOps; op++ {
		for key := KeyKind(0); key < NumKeyKinds; key++ {
			if e := vt.entries[op][key]; e.Fn != nil {
				out = append(out, e)
			}
		}
	}
	return out
}
