package counting

import "math"

// PairKey packs two card identifiers into one order-independent key. The
// smaller identifier goes into the high word.
//
// Only the low 32 bits of each identifier are kept, so identifiers above
// math.MaxUint32 alias each other. Use FitsPairKey to detect them.
func PairKey(a, b uint64) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

// DecodePairKey unpacks a key built by PairKey. The smaller identifier comes
// first; the original argument order is not recoverable.
func DecodePairKey(key uint64) (a, b uint64) {
	return key >> 32, key & math.MaxUint32
}

// IsReserved reports whether key is one of the sentinel slot markers that
// a Store rejects.
func IsReserved(key uint64) bool {
	return key == EmptyKey || key == TombstoneKey
}

// FitsPairKey reports whether id survives PairKey without truncation.
func FitsPairKey(id uint64) bool {
	return id <= math.MaxUint32
}
