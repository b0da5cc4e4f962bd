// Package monotype implements array layouts that hold a single value kind.
//
// The value kind is stored once per container instead of once per element,
// so values are 8 bytes. Memory contracts:
//
//	MonotypeVec   header; value kind u8 @12; capacity u16 @14;
//	              values at 16, 8 bytes each
//	MonotypeDict  header; value kind u8 @12; tombstones u16 @14;
//	              capacity u32 @16; next int key @24;
//	              entries at 32, 16 bytes each (key @0, value @8)
//
// A dict's key kind is encoded in its layout index: indices with the
// IntKeyMask bit set hold integer keys, the others string ids. Removed
// entries keep their position and carry TombstoneKey.
//
// # Addressing
//
// Every element address is computed by one Contract per table:
//
//	addr := monotype.DictEntries.Offset(monotype.Const(5), monotype.DictValOffset)
//	// folded: 32 + 5*16 + 8
//
// Positions only known at run time are scaled with a shift, which is why
// entry sizes are powers of two.
//
// # Escalation
//
// Operations escalate to the vanilla layout of the same kind when a value
// of another kind is stored, a key of the other kind is inserted into a
// non-empty dict, the capacity limit is reached, or an integer key collides
// with the tombstone pattern.
package monotype
