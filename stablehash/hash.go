// Package stablehash digests arbitrary structured values into a short,
// deterministic hex string for cache-key derivation.
//
// The digest is order-independent for mapping keys and order-preserving
// for sequences: two values that are deeply equal modulo map-key order
// always hash the same, while reordering a slice changes the hash.
// Collision resistance is sized for cache keys, not for security.
package stablehash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// DigestLen is the hex length of a digest.
const DigestLen = 16

var detMode cbor.EncMode

func init() {
	// RFC 8949 Core Deterministic encoding sorts map keys bytewise and
	// keeps array order, which is exactly the canonical form we need.
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("stablehash: cbor enc mode: %v", err))
	}
	detMode = em
}

// Sum returns the stable digest of v.
//
// v is first normalized through a JSON round-trip so that a struct and
// its equivalent map hash identically (numbers unify to float64, field
// names follow json tags). The normalized form is then encoded with
// deterministic CBOR and hashed with SHA-256, truncated to DigestLen hex
// characters.
func Sum(v any) (string, error) {
	norm, err := normalize(v)
	if err != nil {
		return "", err
	}
	enc, err := detMode.Marshal(norm)
	if err != nil {
		return "", fmt.Errorf("stablehash: encode: %w", err)
	}
	sum := sha256.Sum256(enc)
	return hex.EncodeToString(sum[:])[:DigestLen], nil
}

// MustSum is Sum for values known to be serializable; panics otherwise.
func MustSum(v any) string {
	s, err := Sum(v)
	if err != nil {
		panic(err)
	}
	return s
}

func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("stablehash: normalize: %w", err)
	}
	var norm any
	if err := json.Unmarshal(b, &norm); err != nil {
		return nil, fmt.Errorf("stablehash: normalize: %w", err)
	}
	return norm, nil
}
