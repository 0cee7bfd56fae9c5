// Package checksum computes the single-character integrity digit appended to
// generated identifiers.
//
// The character binds the identifier base string to a content hash and to a
// randomness-beacon value: SHA-256(beacon || base || hash), digest bytes
// summed, reduced modulo 36, mapped onto [0-9A-Z]. With a 36-value alphabet
// this is an anti-tamper signal, not an authentication tag.
package checksum

import (
	"crypto/sha256"

	"idbridge/internal/identifier/codec"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Char returns the check character for baseID bound to the given content
// hash and beacon randomness. Deterministic: identical inputs always yield
// the identical character, which is what makes verification and idempotent
// retries possible.
func Char(baseID, contentHash, beaconRandomness string) byte {
	digest := sha256.Sum256([]byte(beaconRandomness + baseID + contentHash))
	var sum uint32
	for _, b := range digest {
		sum += uint32(b)
	}
	return alphabet[sum%36]
}

// Append returns baseID with its check character attached.
func Append(baseID, contentHash, beaconRandomness string) string {
	return baseID + "-" + string(Char(baseID, contentHash, beaconRandomness))
}

// Verify recomputes the check character of a full identifier and compares it
// to the trailing character. Callers parse first, so a false result means
// "tampered or generated under different inputs", not "malformed".
func Verify(fullID, contentHash, beaconRandomness string) bool {
	base, check := codec.SplitBase(fullID)
	if len(check) != 1 {
		return false
	}
	return Char(base, contentHash, beaconRandomness) == check[0]
}
