package engine

import (
	"crypto/sha256"
	"encoding/hex"
)

// ringID computes the §4.8 stable digest: a SHA-256 prefix of the
// pattern-specific identity string.
func ringID(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:16])
}
