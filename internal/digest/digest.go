// Package digest fingerprints artifact bytes for tamper-evidence. The digest
// is not a signature: it proves content identity, not authenticity.
package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum returns the lowercase hex SHA-256 digest of data. Same bytes always
// yield the same digest.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether data matches the expected digest. Comparison is
// constant-time.
func Verify(data []byte, expected string) bool {
	got := Sum(data)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
