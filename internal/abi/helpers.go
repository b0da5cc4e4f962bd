package abi

import (
	"math"
	"math/bits"
)

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// IsPow2 reports whether n is a non-zero power of two.
func IsPow2(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// Log2 returns the shift equivalent to multiplying by n. n must be a power of two.
func Log2(n uint32) uint8 {
	return uint8(bits.Len32(n) - 1)
}

// FitsInt32 reports whether a folded displacement can be encoded as a signed
// 32-bit immediate.
func FitsInt32(v uint64) bool {
	return v <= math.MaxInt32
}
