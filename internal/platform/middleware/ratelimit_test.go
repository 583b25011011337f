package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	t.Run("takes only the first forwarded hop", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
		assert.Equal(t, "203.0.113.7", clientIP(r))
	})

	t.Run("single forwarded hop", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7")
		assert.Equal(t, "203.0.113.7", clientIP(r))
	})

	t.Run("falls back to the remote address", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "198.51.100.4:5123"
		assert.Equal(t, "198.51.100.4", clientIP(r))
	})

	t.Run("blank forwarded header falls back too", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", " , ")
		r.RemoteAddr = "198.51.100.4:5123"
		assert.Equal(t, "198.51.100.4", clientIP(r))
	})
}
