package util

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ChecksumAddress normalizes an Ethereum address to its EIP-55 mixed-case
// form. Notification endpoints are keyed by this form so lookups are
// case-insensitive for callers.
func ChecksumAddress(address string) (string, error) {
	addr := strings.TrimPrefix(strings.TrimSpace(address), "0x")
	addr = strings.ToLower(addr)
	if len(addr) != 40 {
		return "", fmt.Errorf("invalid address length: %q", address)
	}
	if _, err := hex.DecodeString(addr); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(addr))
	hash := hasher.Sum(nil)

	out := []byte(addr)
	for i := range out {
		if out[i] < 'a' || out[i] > 'f' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] -= 'a' - 'A'
		}
	}

	return "0x" + string(out), nil
}

// IsHexAddress reports whether s looks like a 20-byte hex address.
func IsHexAddress(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
