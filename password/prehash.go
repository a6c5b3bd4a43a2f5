package password

import (
	"crypto/sha256"
	"encoding/hex"
)

// Prehash returns the lowercase hex SHA-256 of raw.
//
// The fixed 64-byte output bounds the input fed to Argon2 regardless of how long the
// submitted password is.
func Prehash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
