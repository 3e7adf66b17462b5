package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	apperrors "github.com/OriginProtocol/origin-bridge/internal/errors"
	"github.com/OriginProtocol/origin-bridge/internal/repository"
)

const (
	linkCodeChars       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	linkCodeLength      = 9
	linkCodeMaxAttempts = 10
)

// newLinkCode draws short codes until one is free of collisions with the
// currently active set. The attempt bound is a deliberate fail-fast: if the
// code space is that congested something is wrong upstream.
func newLinkCode(ctx context.Context, repo repository.PairingRepository) (string, error) {
	for attempt := 0; attempt < linkCodeMaxAttempts; attempt++ {
		code, err := randomLinkCode()
		if err != nil {
			return "", err
		}
		inUse, err := repo.CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code collision: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}
	return "", apperrors.CodeExhausted()
}

func randomLinkCode() (string, error) {
	chars := []byte(linkCodeChars)
	code := make([]byte, linkCodeLength)
	for i := 0; i < linkCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", fmt.Errorf("draw code character: %w", err)
		}
		code[i] = chars[n.Int64()]
	}
	return string(code), nil
}
