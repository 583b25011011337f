package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "covergate/pkg/domain"
	"covergate/pkg/requestcontext"
)

func TestValidateToken(t *testing.T) {
	validator := NewValidator("test-signing-key")
	userID := id.UserID(uuid.New())

	t.Run("round trip preserves identity and role", func(t *testing.T) {
		signed, err := validator.Sign(userID, requestcontext.RoleAdmin, time.Hour)
		require.NoError(t, err)

		claims, err := validator.ValidateToken(signed)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, requestcontext.RoleAdmin, claims.Role)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		signed, err := validator.Sign(userID, requestcontext.RoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = validator.ValidateToken(signed)
		assert.Error(t, err)
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		other := NewValidator("some-other-key")
		signed, err := other.Sign(userID, requestcontext.RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = validator.ValidateToken(signed)
		assert.Error(t, err)
	})

	t.Run("unknown role claim is rejected", func(t *testing.T) {
		signed, err := validator.Sign(userID, requestcontext.Role("superuser"), time.Hour)
		require.NoError(t, err)

		_, err = validator.ValidateToken(signed)
		assert.Error(t, err)
	})

	t.Run("garbage input is rejected", func(t *testing.T) {
		_, err := validator.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}
