// Package logging records how arrays are used so that layouts can be chosen
// from observed behavior.
//
// # Logging Arrays
//
// A logging array is a transparent wrapper around another array:
//
//	0   header (layout LoggingIndex, kind and size mirror the inner array)
//	12  aux: profile id
//	16  inner array address
//
// Every operation is forwarded to the inner array and counted against the
// wrapper's profile. Escalation unwraps the inner array.
//
//	w := logging.NewWrapper(sink)
//	w.Register(reg)
//	arr, err := w.MaybeMakeLoggingArray(env, arr, profile)
//
// Wrapping is sampled: with a sample rate of N every Nth candidate array is
// wrapped, and a rate of 0 disables wrapping.
//
// # Profiles and Events
//
// Profiles live in a handle table; id 0 is reserved and never valid. The
// Sink implements layout.Profiler, counts operations, guard failures,
// specialization outcomes and escalations, and notifies observers:
//
//	sink.Subscribe(observer)
//	stats := sink.Snapshot()
//
// The sink is the only component shared across goroutines; counters and
// observers are guarded by read-write mutexes.
package logging
