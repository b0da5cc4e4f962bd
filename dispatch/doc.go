// Package dispatch picks the native implementation generated code calls for
// every array operation.
//
// # Call Targets
//
// Dispatcher.Target resolves (static type, op, key kind) to a CallSpec in a
// fixed priority order:
//
//  1. the vtable entry of a statically concrete specialized layout
//  2. the specialized-layout fallback, for any specialized layout
//  3. the dedicated vanilla implementation, when the layout is statically
//     vanilla and the container kind is known
//  4. the fully generic implementation
//
// The generic tier implements every op for every key kind, so resolution
// never fails. Destructor and CopyFunc go through the same chain, which keeps
// destroy and clone symmetric for every type.
//
// # Sync Points
//
// Calls that may reach a logging array request a sync point so the profiler
// sees the current call site. Get and EscalateToVanilla sync only when the
// type may be a logging array; iteration never syncs; the remaining mutating
// and throwing ops always do.
//
// # Lowering
//
// Lower turns an instruction into a Call that an Emitter consumes. Interp is
// the reference Emitter: it runs calls against a layout.Env, records sync
// points in Env.Site and turns heap faults into errors.
package dispatch
