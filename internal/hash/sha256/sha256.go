// Package sha256 derives stable hex identifiers for hits.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key hashes parts joined by a NUL byte and returns the hex digest.
// ("ab", "c") and ("a", "bc") produce different keys.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
