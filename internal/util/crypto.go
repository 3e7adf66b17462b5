package util

import (
	"crypto/rand"
	"encoding/hex"
)

const tokenBytes = 16

// GenerateToken mints an opaque identity token (client, session, wallet
// link ids). Bearers of a token are treated as authorized; there is no
// cryptographic binding beyond unguessability.
func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func MaskCode(code string) string {
	if len(code) <= 4 {
		return "****"
	}
	return code[:4] + "****"
}
