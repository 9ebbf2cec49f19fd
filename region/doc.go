// Package region provides the contiguous byte store that records are encoded
// into and decoded from.
//
// A Region is append-only while encoding and mutated in place (never resized)
// while decoding. Its base address is always aligned to regioncodec.MaxAlign,
// which is what lets decoded heads be reinterpreted directly as Go values.
//
// Growth is geometric, so repeated encodes are amortized O(1) per byte, and
// Reset keeps the capacity for allocation-free encode/decode cycles. Any
// operation that may invalidate outstanding views (a move of the backing
// array, Reset, Truncate, Load) bumps Generation.
//
// Pool is an explicit, caller-owned free list of regions. There is no
// process-wide region singleton.
package region
