package memory

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// idBytes gives 192 bits of entropy per state value and session ID
const idBytes = 24

func generateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
