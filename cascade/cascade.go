// Package cascade implements a padded Bloom filter cascade: a layered,
// salted sequence of single-hash Bloom filters (see lopezb.com/cascade/bloom)
// that partitions a set of 256-bit identifiers into a valid class and a
// revoked class with zero error on the identifiers supplied at
// construction.
//
// This is the data-structure core of a revocation mechanism for verifiable
// credentials: an issuer builds a Cascade from its valid and revoked
// identifier sets, serializes it with ToHex, and publishes the result; a
// verifier reconstructs it with FromHex and queries membership with Has.
//
// Construction
// ============
//
// FromSets first pads both input sets to fixed sizes r̂ (valid) and 2r̂
// (revoked) with random identifiers, so the serialized cascade reveals
// nothing about the true sizes of V and R. It then draws a 32-byte salt and
// builds layers iteratively: layer 1 holds the valid set and is sized for
// false-positive rate p_a = sqrt(0.5)/2; every subsequent layer targets rate
// p_b = 0.5 against the false positives leaked by the layer before it,
// swapping which class is "included" each time. Construction terminates
// because each layer's expected false-positive count is a constant factor
// below the size of its included set.
//
// Query
// =====
//
// Has walks the layers in order, hashing x against the level-tagged input
// id ‖ binary8(L) ‖ salt. The first layer that reports "absent" decides the
// answer by the parity of its level: a miss at an odd level means revoked,
// a miss at an even level means valid, because layer 1 always holds the
// valid class. If
// every layer reports "present", the parity of the final layer decides.
//
// Wire Format
// ===========
//
//	0x  ‖  salt (32 bytes)  ‖  layer[0]  ‖  layer[1]  ‖  ...  ‖  layer[n-1]
//
// Each layer is:
//
//	m      big-endian uint32              (4 bytes)
//	words  ceil(m/32) little-endian uint32 words
//
// A reader stops as soon as the next declared m reads as zero or fewer than
// 4 bytes remain, tolerating arbitrary trailing zero padding from transport
// envelopes without producing a spurious empty final layer.
package cascade

import (
	"fmt"
	"math"
	"strconv"

	"lopezb.com/cascade/bloom"
	"lopezb.com/cascade/idgen"
)

// pA is the target false-positive rate for layer 1, the layer built against
// the valid set: sqrt(0.5)/2 ≈ 0.353553.
var pA = math.Sqrt(0.5) / 2

// pB is the target false-positive rate for every layer after the first.
const pB = 0.5

// maxLayers is a sanity cap on cascade depth, guarding against runaway
// construction; a caller whose input has not converged after this many
// layers is treated as a defect in the inputs rather than looped forever.
const maxLayers = 64

// Cascade is an ordered sequence of Bloom filters plus the salt they were
// built with. The zero value is not meaningful; construct with FromSets or
// FromHex. A constructed Cascade is immutable and safe for concurrent reads.
type Cascade struct {
	layers []*bloom.Filter
	salt   string // 64-char lowercase hex, 32 bytes
}

// FromSets builds a Cascade from disjoint valid and revoked identifier
// sets, padding both to the privacy-uniform targets r̂ (valid) and 2r̂
// (revoked) before construction. It fails with ErrRange if |valid| > r̂ or
// |revoked| > 2·r̂.
func FromSets(valid, revoked []string, rHat int) (*Cascade, error) {
	if len(valid) > rHat {
		return nil, fmt.Errorf("%w: |V|=%d exceeds r̂=%d (|R|=%d)", ErrRange, len(valid), rHat, len(revoked))
	}
	sHat := 2 * rHat
	if len(revoked) > sHat {
		return nil, fmt.Errorf("%w: |R|=%d exceeds 2r̂=%d (r̂=%d, |V|=%d)", ErrRange, len(revoked), sHat, rHat, len(valid))
	}

	taken := make(map[string]struct{}, len(valid)+len(revoked))
	paddedV := make([]string, 0, rHat)
	for _, id := range valid {
		taken[id] = struct{}{}
		paddedV = append(paddedV, id)
	}
	paddedR := make([]string, 0, sHat)
	for _, id := range revoked {
		taken[id] = struct{}{}
		paddedR = append(paddedR, id)
	}

	// Padding must happen before salt generation and layering, or the
	// cascade leaks |V| and |R| through layer count and sizing.
	vPad, err := idgen.PadUnique(taken, rHat-len(valid))
	if err != nil {
		return nil, fmt.Errorf("cascade: pad valid set: %w", err)
	}
	paddedV = append(paddedV, vPad...)

	rPad, err := idgen.PadUnique(taken, sHat-len(revoked))
	if err != nil {
		return nil, fmt.Errorf("cascade: pad revoked set: %w", err)
	}
	paddedR = append(paddedR, rPad...)

	salt, err := idgen.Random256Hex()
	if err != nil {
		return nil, fmt.Errorf("cascade: generate salt: %w", err)
	}

	layers, err := buildLayers(paddedV, paddedR, salt)
	if err != nil {
		return nil, err
	}

	return &Cascade{layers: layers, salt: salt}, nil
}

// buildLayers runs the iterative layering algorithm: included set I starts
// as the padded valid set, excluded set E as the padded revoked set. Each
// round builds a filter sized for I at the level's target false-positive
// rate, then collects the false positives E produces against it as the
// next round's included set, swapping roles.
func buildLayers(paddedV, paddedR []string, salt string) ([]*bloom.Filter, error) {
	included := paddedV
	excluded := paddedR
	var layers []*bloom.Filter

	for level := 1; len(included) > 0; level++ {
		if level > maxLayers {
			return nil, fmt.Errorf("%w: exceeded %d layers", ErrLayerCapExceeded, maxLayers)
		}

		p := pB
		if level == 1 {
			p = pA
		}
		m := layerSize(len(included), p)
		tag := binary8(level)

		filter := bloom.New(m, 1)
		for _, id := range included {
			filter.Add(id + tag + salt)
		}

		var falsePositives []string
		for _, id := range excluded {
			if filter.Test(id + tag + salt) {
				falsePositives = append(falsePositives, id)
			}
		}

		layers = append(layers, filter)
		excluded = included
		included = falsePositives
	}

	return layers, nil
}

// layerSize computes the optimal single-hash filter size in bits for n
// items at target false-positive rate p: m = ceil(-n*ln(p) / ln(2)^2).
func layerSize(n int, p float64) uint32 {
	m := math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 1 {
		m = 1
	}
	return uint32(m)
}

// binary8 renders level as an ASCII base-2 string left-padded with '0' to
// 8 characters. For level >= 256 the natural (unpadded) representation is
// used instead, since the pad-to-8 step is a no-op once the representation
// already exceeds 8 characters; the cascade's layer cap keeps this well
// within 8 characters in practice, so the unpadded form is never actually
// produced, but the padding loop is left to fall through naturally rather
// than special-cased away.
func binary8(level int) string {
	s := strconv.FormatInt(int64(level), 2)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}

// Has reports whether x is deemed a member of the cascade's valid class.
// It never fails; for identifiers outside the original V ∪ R the answer is
// a deterministic function of the salt and padding that callers must not
// rely on.
func (c *Cascade) Has(x string) bool {
	n := len(c.layers)
	for level := 1; level <= n; level++ {
		tag := binary8(level)
		if !c.layers[level-1].Test(x + tag + c.salt) {
			return level%2 == 0
		}
	}
	return n%2 == 1
}

// Depth returns the number of layers in the cascade.
func (c *Cascade) Depth() int {
	return len(c.layers)
}

// Layers returns a read-only view of the cascade's filters in order. The
// returned slice is a fresh copy of the layer list; the cascade owns the
// filters themselves and they are not intended to be mutated after
// construction.
func (c *Cascade) Layers() []*bloom.Filter {
	out := make([]*bloom.Filter, len(c.layers))
	copy(out, c.layers)
	return out
}

// Salt returns the cascade's 32-byte salt as a 64-character lowercase hex
// string.
func (c *Cascade) Salt() string {
	return c.salt
}
