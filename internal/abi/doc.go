// Package abi holds the overflow-checked arithmetic shared by every layout's
// addressing code: alignment, checked add/multiply, and the power-of-two
// helpers that let a multiply by an entry size be lowered to a shift.
//
// This package is internal to the runtime.
package abi
