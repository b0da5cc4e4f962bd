// Package arrays implements the vanilla array layouts and the generic
// operations that work on arrays of every layout.
//
// # Vanilla Layouts
//
//	Vec     header; capacity u32 @12; typed values at 16, 16 bytes each
//	Dict    header; capacity u32 @12; used u32 @16; next int key @24;
//	        entries at 32, 32 bytes each (key, key type, value, value type)
//	Keyset  header; capacity u32 @12; used u32 @16;
//	        entries at 32, 16 bytes each (key, key type)
//
// Dict and keyset removal leaves a tombstone (key type uninit) so that
// iteration positions stay stable.
//
// # Dispatch Tiers
//
// Three operation tables are exported for the dispatcher:
//
//	VanillaVTable(kind)   dedicated implementations for one vanilla kind
//	BespokeVTable()       specialized-layout fallback: runtime lookup through
//	                      the header's layout index, escalating when the
//	                      layout has no entry
//	GenericVTable()       correct for every array, vanilla or not
//
// # Escalation
//
// Escalate converts a specialized array to the vanilla layout of the same
// kind, preserving order and contents, and reports the reason to the
// profiler. Every specialized layout uses it for operations it cannot
// perform in place.
package arrays
