package cascade

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"lopezb.com/cascade/bloom"
)

// saltBytes is the length in bytes of the salt at the front of the wire
// format.
const saltBytes = 32

// layerHeaderBytes is the size in bytes of a layer's m field.
const layerHeaderBytes = 4

// ToHex serializes the cascade to its bit-exact wire format: "0x" followed
// by the lowercase hex encoding of the salt followed by each layer in
// order, each as a big-endian uint32 m followed by ceil(m/32)
// little-endian uint32 words.
func (c *Cascade) ToHex() string {
	saltRaw, err := hex.DecodeString(c.salt)
	if err != nil {
		// c.salt is only ever set internally to a value produced by
		// idgen.Random256Hex or decoded from valid hex in FromHex, so this
		// cannot happen for a Cascade obtained through this package's own
		// constructors.
		panic(fmt.Sprintf("cascade: corrupt internal salt: %v", err))
	}

	out := make([]byte, 0, saltBytes+estimatedLayerBytes(c.layers))
	out = append(out, saltRaw...)

	for _, layer := range c.layers {
		var mBuf [layerHeaderBytes]byte
		binary.BigEndian.PutUint32(mBuf[:], layer.M())
		out = append(out, mBuf[:]...)

		for _, word := range layer.Buckets() {
			var wBuf [4]byte
			binary.LittleEndian.PutUint32(wBuf[:], word)
			out = append(out, wBuf[:]...)
		}
	}

	return "0x" + hex.EncodeToString(out)
}

// estimatedLayerBytes sizes the output buffer ToHex builds into, avoiding
// reallocation for the common case of a modest number of layers.
func estimatedLayerBytes(layers []*bloom.Filter) int {
	total := 0
	for _, layer := range layers {
		total += layerHeaderBytes + len(layer.Buckets())*4
	}
	return total
}

// FromHex reconstructs a Cascade from its serialized wire format. It fails
// with ErrFormat if s lacks the "0x" prefix, contains malformed hex, has
// fewer than 32 bytes of payload (missing salt), or declares a layer whose
// size implies more bytes than remain. Trailing zero bytes after the last
// well-formed layer are tolerated, not treated as an error.
func FromHex(s string) (*Cascade, error) {
	if len(s) < 2 || s[0:2] != "0x" {
		return nil, fmt.Errorf("%w: missing 0x prefix", ErrFormat)
	}

	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex: %v", ErrFormat, err)
	}

	if len(raw) < saltBytes {
		return nil, fmt.Errorf("%w: payload shorter than the 32-byte salt", ErrFormat)
	}

	salt := hex.EncodeToString(raw[:saltBytes])
	rest := raw[saltBytes:]

	var layers []*bloom.Filter
	for {
		if len(rest) < layerHeaderBytes {
			break
		}
		m := binary.BigEndian.Uint32(rest[:layerHeaderBytes])
		if m == 0 {
			break
		}
		rest = rest[layerHeaderBytes:]

		wordCount := int((m + 31) / 32)
		byteLen := wordCount * 4
		if len(rest) < byteLen {
			return nil, fmt.Errorf("%w: layer declares %d bytes but only %d remain", ErrFormat, byteLen, len(rest))
		}

		words := make([]uint32, wordCount)
		for i := 0; i < wordCount; i++ {
			words[i] = binary.LittleEndian.Uint32(rest[i*4 : i*4+4])
		}
		rest = rest[byteLen:]

		layer := bloom.New(m, 1)
		if err := layer.SetBuckets(words); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		layers = append(layers, layer)
	}

	return &Cascade{layers: layers, salt: salt}, nil
}
