// Package fingerprint computes content fingerprints for dedupe.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Compute returns the hex SHA-256 digest of raw file bytes. Filename and
// metadata never participate: identical content always maps to the same
// fingerprint.
func Compute(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
