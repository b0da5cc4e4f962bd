// Package errors provides structured error types for the bespoke array runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the layout and operation involved, an optional path, and a
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseStorage, errors.KindTypeBound).
//		Layout("struct:user").
//		Op("set").
//		Path("user", "age").
//		Detail("slot %d does not admit %s", 3, "string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeBound("struct:user", 3, "string")
//	err := errors.OutOfBounds(errors.PhaseRuntime, path, 10, 5)
//
// Two classes of failure flow through this package. Invariant violations
// (type-bound mismatch, slot misuse, memory faults) indicate a defect in layout
// assignment or static type reasoning. User-visible throws (missing keys under a
// throwing read, removal from the middle of a vec) are part of an operation's
// contract and are reported identically by every layout.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
