// Package bespoke implements specialized ("bespoke") array layouts for a
// dynamic-language runtime whose arrays live in flat linear memory.
//
// Arrays normally use one of three vanilla layouts (vec, dict, keyset).
// A bespoke layout stores the same logical array in a shape tuned to how
// it is used: a struct dict with fixed field slots, a monotype vec or dict
// holding values of a single type, or a logging wrapper that records
// operations for profiling. Any bespoke array can be escalated back to a
// vanilla one, and every operation stays correct on every layout.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	bespoke/             Root package with the Memory and Allocator interfaces
//	├── runtime/         High-level API assembling heap, layouts and dispatch
//	├── dispatch/        Call-target resolution, sync policy, lowering, interpreter
//	├── layout/          Descriptors, ops, vtables and the layout registry
//	├── arrays/          Vanilla layouts, generic ops and escalation
//	├── structdict/      Struct layouts: slot resolution, perfect hashing, storage
//	├── monotype/        Monotype vec and dict layouts
//	├── logging/         Logging arrays, profiles and the profiling sink
//	├── schema/          Layout declaration from WIT types
//	├── heap/            Flat memory (slice or wazero backed) and allocator
//	├── value/           Typed values and interned strings
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	defer rt.Close(ctx)
//
//	user, err := rt.DeclareStruct("User",
//	    structdict.FieldSpec{Name: "id", Required: true, Types: value.MaskOf(value.KindOfInt64)})
//	rt.Finalize()
//
//	call := rt.Dispatcher().Target(dispatch.Bespoke(user.Descriptor()), layout.OpGet, layout.KeyStr)
//	fmt.Println(call.Symbol) // User::GetStr
//
// # Dispatch Tiers
//
// An operation on an array of static type T resolves, most specific first,
// to the concrete layout's vtable entry, the bespoke fallback that reads the
// layout index from the array header, a dedicated vanilla implementation,
// or the fully generic one. See package dispatch.
//
// # Memory
//
// All layouts are written against the Memory interface in this package.
// heap.Linear backs it with a byte slice; heap.WazeroMemory with the
// exported memory of a wazero module. Offsets are little-endian and every
// array begins with the same 16-byte header.
package bespoke
