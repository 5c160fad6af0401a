package cascade

import "errors"

// ErrRange is returned by FromSets when |V| or |R| exceed the padding
// target r̂ permits. Wrapped with fmt.Errorf so the message names the
// concrete sizes involved, letting callers diagnose the violation without
// re-deriving it; use errors.Is(err, ErrRange) to test for this kind.
var ErrRange = errors.New("cascade: size exceeds padding target")

// ErrFormat is returned by FromHex for a missing "0x" prefix, malformed
// hex, or a truncated layer. Wrapped with fmt.Errorf to name the specific
// problem; use errors.Is(err, ErrFormat) to test for this kind.
var ErrFormat = errors.New("cascade: malformed serialized cascade")

// ErrLayerCapExceeded is returned by FromSets if construction does not
// converge within the sanity cap on layer count. A bounded cap guards
// against runaway construction on pathological inputs, mirroring the
// bounded-growth guards used elsewhere in this family of packages.
var ErrLayerCapExceeded = errors.New("cascade: layer cap exceeded")
