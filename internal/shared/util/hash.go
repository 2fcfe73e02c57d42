package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a stable pseudonym for a user ID so archived payloads
// never carry the raw principal.
func HashUserKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
