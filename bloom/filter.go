// Package bloom implements a single-hash-family, densely packed Bloom
// filter.
//
// A Bloom filter is a probabilistic data structure that answers set
// membership queries in constant time and space, at the cost of a tunable
// false-positive rate and no false negatives for items that were actually
// added. This implementation deliberately does not chase the cache-line
// and multi-hash tricks found elsewhere in this family of packages: its
// caller, a Bloom filter cascade, needs exactly one hash function per
// filter and computes its own layer sizes ahead of time, so there is
// nothing here to tune beyond m (logical bit count) and k (hash count).
//
// Hash positions are derived from a single SHA-256 digest rather than k
// independent hash functions. For a candidate string s and position index
// i in [0, k), the i-th bit position is:
//
//	H   = SHA-256(s)
//	v_i = big-endian uint32 at byte offset (i*4) mod 29 of H
//	p_i = v_i mod m
//
// The (i*4) mod 29 offset is not a typo: for i = 0..7 it yields the eight
// disjoint windows at offsets 0, 4, ..., 28, but from i = 8 on it wraps to
// offsets 3, 7, 11, ..., so those windows overlap earlier ones instead of
// repeating them exactly as a mod 32 (or mod 28) cycle would. This is preserved exactly for
// interoperability with other implementations of the same hash-position
// algorithm; do not "fix" it without breaking compatibility. It has no
// observable effect for k=1, the only width this package's caller uses.
//
// Data Layout
// ===========
//
// A Filter keeps its bits as a dense slice of 32-bit words:
//
//	bits[0]          bits[1]          ...   bits[ceil(m/32)-1]
//	bit 0 .. bit 31  bit 32 .. bit 63  ...
//
// Bit j of the logical array is bit (j mod 32) of word floor(j/32), where
// bit 0 is the least-significant bit of the word. Bits at index >= m are
// never set. Buckets/SetBuckets expose this array directly for bulk
// serialization and restore at the cascade's wire boundary; this package
// itself has no on-disk format of its own.
package bloom

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// hashOffsetModulus is the deliberate (not corrected) wraparound divisor
// used when selecting the 4-byte window read out of a SHA-256 digest for
// each hash position. See the package doc for why this is 29 and not 28.
const hashOffsetModulus = 32 - 3

// ErrBucketLength is returned by SetBuckets when the supplied word slice
// does not have exactly ceil(m/32) elements.
var ErrBucketLength = errors.New("bloom: bucket slice length does not match m")

// Filter is a packed-bit Bloom filter with m logical bits and k hash
// positions per operation. The zero value is not usable; construct with
// New.
type Filter struct {
	m    uint32
	k    int
	bits []uint32
}

// New creates a Filter with m logical bits and k hash positions per Add/Test
// call. Cascades built by this module always use k=1; larger k is supported
// for callers outside the cascade that want a conventional multi-hash filter.
func New(m uint32, k int) *Filter {
	if m == 0 {
		m = 1
	}
	if k < 1 {
		k = 1
	}
	return &Filter{
		m:    m,
		k:    k,
		bits: make([]uint32, wordCount(m)),
	}
}

// wordCount returns ceil(m/32), the number of 32-bit words needed to back m
// logical bits.
func wordCount(m uint32) uint32 {
	return (m + 31) / 32
}

// M returns the number of logical bits in the filter.
func (f *Filter) M() uint32 {
	return f.m
}

// K returns the number of hash positions computed per Add/Test call.
func (f *Filter) K() int {
	return f.k
}

// Add sets the k bit positions derived from s.
func (f *Filter) Add(s string) {
	for _, pos := range positions(s, f.k, f.m) {
		f.bits[pos/32] |= 1 << (pos % 32)
	}
}

// Test reports whether all k bit positions derived from s are set. It
// never fails: s is an arbitrary byte string.
func (f *Filter) Test(s string) bool {
	for _, pos := range positions(s, f.k, f.m) {
		if f.bits[pos/32]&(1<<(pos%32)) == 0 {
			return false
		}
	}
	return true
}

// Buckets exposes the raw backing word array for serialization. The
// returned slice aliases the filter's storage; callers must treat it as
// read-only unless they intend to mutate the filter directly.
func (f *Filter) Buckets() []uint32 {
	return f.bits
}

// SetBuckets bulk-replaces the backing word array, used when restoring a
// filter from a deserialized layer. words must have exactly ceil(m/32)
// elements.
func (f *Filter) SetBuckets(words []uint32) error {
	if uint32(len(words)) != wordCount(f.m) {
		return ErrBucketLength
	}
	f.bits = words
	return nil
}

// positions computes the k bit positions SHA-256(s) maps to within a
// filter of m logical bits.
func positions(s string, k int, m uint32) []uint32 {
	h := sha256.Sum256([]byte(s))
	out := make([]uint32, k)
	for i := 0; i < k; i++ {
		offset := (i * 4) % hashOffsetModulus
		v := binary.BigEndian.Uint32(h[offset : offset+4])
		out[i] = v % m
	}
	return out
}
