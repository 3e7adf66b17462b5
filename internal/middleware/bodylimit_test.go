package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyLimitMiddleware(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("passes small bodies through", func(t *testing.T) {
		m := NewBodyLimitMiddleware(1024)
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ok":true}`))
		w := httptest.NewRecorder()

		m.Handler(echo).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects oversized content length up front", func(t *testing.T) {
		m := NewBodyLimitMiddleware(8)
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 64)))
		w := httptest.NewRecorder()

		m.Handler(echo).ServeHTTP(w, r)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("defaults the limit when zero", func(t *testing.T) {
		m := NewBodyLimitMiddleware(0)

		assert.Equal(t, int64(DefaultMaxBodySize), m.maxSize)
	})
}
