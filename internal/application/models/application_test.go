package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldNotify(t *testing.T) {
	for _, old := range Statuses {
		for _, updated := range Statuses {
			want := old != updated
			assert.Equal(t, want, ShouldNotify(old, updated),
				"old=%s updated=%s", old, updated)
		}
	}
}

func TestParseStatus(t *testing.T) {
	t.Run("accepts every known status", func(t *testing.T) {
		for _, known := range Statuses {
			parsed, err := ParseStatus(string(known))
			require.NoError(t, err)
			assert.Equal(t, known, parsed)
		}
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		for _, raw := range []string{"", "active", "PENDING", "done"} {
			_, err := ParseStatus(raw)
			assert.Error(t, err, "raw=%q", raw)
		}
	})
}

func TestStatusLabel(t *testing.T) {
	for _, known := range Statuses {
		assert.NotEmpty(t, known.Label())
	}
}
