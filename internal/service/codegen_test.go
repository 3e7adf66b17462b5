package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/OriginProtocol/origin-bridge/internal/errors"
)

func TestRandomLinkCode(t *testing.T) {
	t.Run("generates codes of the right length and charset", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			code, err := randomLinkCode()
			assert.NoError(t, err)
			assert.Len(t, code, linkCodeLength)
			for _, c := range code {
				assert.True(t, strings.ContainsRune(linkCodeChars, c), "unexpected character %q", c)
			}
			seen[code] = true
		}
		// 62^9 codes; 100 draws colliding would mean a broken generator.
		assert.Greater(t, len(seen), 95)
	})
}

func TestNewLinkCode(t *testing.T) {
	t.Run("returns the first collision-free code", func(t *testing.T) {
		repo := new(mockPairingRepo)
		repo.On("CodeInUse", mock.Anything, mock.Anything).Return(false, nil).Once()

		code, err := newLinkCode(context.Background(), repo)

		assert.NoError(t, err)
		assert.Len(t, code, linkCodeLength)
		repo.AssertExpectations(t)
	})

	t.Run("retries past collisions", func(t *testing.T) {
		repo := new(mockPairingRepo)
		repo.On("CodeInUse", mock.Anything, mock.Anything).Return(true, nil).Times(3)
		repo.On("CodeInUse", mock.Anything, mock.Anything).Return(false, nil).Once()

		code, err := newLinkCode(context.Background(), repo)

		assert.NoError(t, err)
		assert.Len(t, code, linkCodeLength)
		repo.AssertExpectations(t)
	})

	t.Run("gives up after the attempt bound", func(t *testing.T) {
		repo := new(mockPairingRepo)
		repo.On("CodeInUse", mock.Anything, mock.Anything).Return(true, nil).Times(linkCodeMaxAttempts)

		code, err := newLinkCode(context.Background(), repo)

		assert.Error(t, err)
		assert.Empty(t, code)
		assert.Equal(t, apperrors.ErrCodeCodeExhausted, apperrors.GetCode(err))
		repo.AssertExpectations(t)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		repo := new(mockPairingRepo)
		repo.On("CodeInUse", mock.Anything, mock.Anything).Return(false, assert.AnError).Once()

		_, err := newLinkCode(context.Background(), repo)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "check code collision")
	})
}
