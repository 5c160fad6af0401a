// Package idgen generates the random 256-bit identifiers used to pad a
// Bloom filter cascade to its privacy-uniform target sizes.
//
// Both helpers in this package draw from crypto/rand. Quality of the random
// source is a precondition the caller is trusted to have satisfied by
// running on a real operating system; this package does not reseed or
// fall back to a weaker source on failure.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// idSize is the number of random bytes behind a 256-bit identifier.
const idSize = 32

// Random256Hex returns a cryptographically random 256-bit value as a
// 64-character lowercase hex string. It fails only if the underlying
// entropy source returns an error.
func Random256Hex() (string, error) {
	buf := make([]byte, idSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idgen: read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// PadUnique draws n fresh 256-bit hex identifiers that are absent from
// taken, appending each freshly drawn identifier to taken as it is produced
// so that a single call never returns (or collides with) a duplicate.
//
// This is rejection sampling: at 256 bits of entropy per draw, a collision
// against any realistically sized taken set is astronomically unlikely, so
// the loop is expected to run exactly n times in practice.
func PadUnique(taken map[string]struct{}, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]string, 0, n)
	for len(out) < n {
		id, err := Random256Hex()
		if err != nil {
			return nil, err
		}
		if _, exists := taken[id]; exists {
			continue
		}
		taken[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
