// Package heap provides the flat linear memory array values live in.
//
// Every array value is a 32-bit address into a Heap. The first 16 bytes at
// that address are the array header shared by all layouts:
//
//	off  size  field
//	  0     4  refcount
//	  4     1  header kind (vec=0, dict=1, keyset=2; +0x80 for specialized layouts)
//	  5     1  flags
//	  6     2  layout index
//	  8     4  size
//	 12     4  aux (layout specific)
//
// Address 0 is never handed out, so it can stand for "no array".
//
// # Backing Memory
//
// A Heap is written against the bespoke.Memory contract. Two backings are
// provided:
//
//	lin := heap.NewLinear(1, 0)                    // slice backed
//	wm, _ := heap.NewWazeroMemory(ctx, 1, 256)     // exported memory of a wazero module
//
// # Faults
//
// Loads and stores outside the backing memory panic with an *errors.Error.
// Operation entry points recover them with Recover:
//
//	func op(...) (err error) {
//		defer heap.Recover(&err)
//		...
//	}
package heap
