// Package schema declares array layouts from WIT types.
//
// A record becomes a concrete struct layout: each field gets a slot in
// declaration order, option<T> fields are optional and everything else is
// required. Field type bounds follow the WIT type (integers, enums, flags
// and handles are ints; floats are doubles; lists and tuples are vecs;
// records are dicts). A list<T> maps to the monotype vec layout, and a
// variant whose cases all carry records becomes an abstract layout over the
// case records.
//
// Declarations happen before the registry is finalized.
package schema
