// Package layout describes array layouts and the tables their operations
// are dispatched through.
//
// # Descriptors
//
// A Descriptor is one of four sealed variants:
//
//	Generic{Kind}       the vanilla layout of a container kind
//	*Concrete           a specialized layout with a VTable
//	*Abstract           a family of concrete layouts, resolved at run time
//	*Logging            a transparent wrapper that records usage
//
// Specialized descriptors are registered in a Registry keyed by Index. The
// index is also stored in each array's header, which lets code holding only
// an abstract static type find the concrete layout at run time.
//
// # Calling Convention
//
// Every operation implementation is a NativeFunc operating on a uint64 stack,
// the same shape wazero host functions use. Parameters are read from the
// front of the stack and results are written back over them:
//
//	Release      [arr]                  -> []
//	Copy         [arr]                  -> [arr']
//	Get          [arr, key]             -> [data, type]      type 0 means missing
//	GetThrow     [arr, key]             -> [data, type]
//	Set          [arr, key, data, type] -> [arr']
//	Remove       [arr, key]             -> [arr']
//	Append       [arr, data, type]      -> [arr']
//	IterBegin    [arr]                  -> [pos]             also IterLast, IterEnd
//	IterAdvance  [arr, pos]             -> [pos]
//	GetPosKey    [arr, pos]             -> [data, type]      also GetPosVal
//	Elem         [arr, key, throw]      -> [arr', valAddr, typeAddr]
//	Escalate     [arr, reason]          -> [arr']
//
// String keys are passed as string ids. An Elem typeAddr points at the
// element's type byte; writers check the layout's type bound first.
// Mutating operations consume the
// array reference they are given and return the (possibly new) array.
//
// # Registry Lifecycle
//
//	reg := layout.NewRegistry()
//	reg.Register(desc)    // initialization only
//	reg.Finalize()        // read-only from here on
package layout
