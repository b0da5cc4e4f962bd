// Package runtime assembles the layout machinery into one usable unit.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, runtime.WithLoggingSampleRate(16))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Declare struct layouts, then freeze the registry
//	user, err := rt.DeclareStruct("User",
//	    structdict.FieldSpec{Name: "id", Required: true, Types: value.MaskOf(value.KindOfInt64)},
//	    structdict.FieldSpec{Name: "name"})
//	rt.Finalize()
//
//	// Run an array operation through dispatch
//	out, err := rt.Exec(dispatch.Inst{
//	    Op:  layout.OpGet,
//	    Arr: dispatch.Bespoke(user.Descriptor()),
//	    Key: dispatch.StaticStrKey(),
//	}, uint64(arr), uint64(key))
//
// # Memory
//
// Arrays live in one flat heap. By default it is a Go byte slice; with
// WithWazeroMemory it is the exported memory of a wazero module, so the
// same bytes can be handed to guest code. WithMemoryLimitPages bounds
// growth either way.
//
// # Layout Declaration
//
// The registry starts with the reserved layouts: Logging, the bespoke top,
// the monotype vec and dicts. Struct layouts come from DeclareStruct,
// DeclareAbstract or DeclareWIT and must be declared before Finalize.
// Dispatch works before Finalize but only caches targets afterwards.
//
// # Logging Arrays
//
// WithLoggingSampleRate(n) makes every nth candidate passed through
// Logging().MaybeMakeLoggingArray a logging array. Sink() aggregates what
// those arrays see. With a logger installed, every sink event is also
// written at debug level.
package runtime
