package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDsMarshalAsUUIDStrings(t *testing.T) {
	raw := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	want := `"11111111-2222-3333-4444-555555555555"`

	for name, value := range map[string]any{
		"user":         UserID(raw),
		"product":      ProductID(raw),
		"application":  ApplicationID(raw),
		"contract":     ContractID(raw),
		"claim":        ClaimID(raw),
		"notification": NotificationID(raw),
		"consultation": ConsultationID(raw),
	} {
		t.Run(name, func(t *testing.T) {
			out, err := json.Marshal(value)
			require.NoError(t, err)
			assert.Equal(t, want, string(out))
		})
	}
}

func TestIDsUnmarshalFromUUIDStrings(t *testing.T) {
	in := []byte(`"11111111-2222-3333-4444-555555555555"`)
	want := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	var userID UserID
	require.NoError(t, json.Unmarshal(in, &userID))
	assert.Equal(t, UserID(want), userID)

	var contractID ContractID
	require.NoError(t, json.Unmarshal(in, &contractID))
	assert.Equal(t, ContractID(want), contractID)

	var claimID ClaimID
	require.NoError(t, json.Unmarshal(in, &claimID))
	assert.Equal(t, ClaimID(want), claimID)

	var garbage ApplicationID
	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &garbage))
}

func TestIDsRoundTripInsideStructs(t *testing.T) {
	type envelope struct {
		ID     ContractID `json:"id"`
		Claims []ClaimID  `json:"claims"`
	}

	in := envelope{
		ID:     ContractID(uuid.New()),
		Claims: []ClaimID{ClaimID(uuid.New()), ClaimID(uuid.New())},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.ID.String())

	var out envelope
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
