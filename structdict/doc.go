// Package structdict implements struct-shaped dict layouts: string-keyed
// dicts whose key set is known ahead of time, so every key maps to a fixed
// slot.
//
// # Memory Contract
//
// For a layout with n fields:
//
//	0              header; numFields u8 @12; valueOffset/8 u8 @13
//	16             n type bytes, one per slot (uninit = absent)
//	16+n           n position bytes, slot per iteration position
//	align8(16+2n)  n values, 8 bytes each, indexed by slot
//
// # Slot Resolution
//
// Each concrete layout owns a perfect hash table of MaxColor+1 entries in
// the universe's shared table region, at layoutIndex << 9. Field names are
// static strings with a color; a key is looked up by loading its color,
// masking it with MaxColor, and comparing the entry's string id with the
// key's. Non-static strings carry a junk color and are resolved by content
// when the identity check fails.
//
//	plan := u.Plan(structdict.Concrete(l), structdict.KeyInfo{})
//	slot := plan.Exec(env, arr, keyID)
//
// Plans are made once per call site; Exec runs for each array.
//
// # Escalation
//
// Writes check the slot's type mask before storing. A value outside the
// mask, an unknown key, an integer key, an append, or the removal of a
// required field converts the array to a vanilla dict.
package structdict
