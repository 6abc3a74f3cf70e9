package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// rawLen is the entropy of a magic-link token in bytes.
const rawLen = 32

// Generate returns a high-entropy opaque token as a 64-character hex string.
// The raw token goes into the claim email only; storage and comparison use
// Digest.
func Generate() (string, error) {
	b := make([]byte, rawLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Digest returns the SHA-256 hash of a raw token as a hex string. The digest
// is what gets persisted, so a database leak does not expose usable tokens.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
