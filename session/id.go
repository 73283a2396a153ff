package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// idBytes is the amount of entropy in a generated session id (256 bits).
const idBytes = 32

// NewID generates a cryptographically secure session id, encoded as
// unpadded base64url.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
