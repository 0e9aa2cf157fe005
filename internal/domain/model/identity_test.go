package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Identity
		wantErr error
	}{
		{"phone number", "+380501234567", "+380501234567", nil},
		{"trimmed", "  alice \n", "alice", nil},
		{"empty", "   ", "", ErrIdentityMissing},
		{"inner space", "ali ce", "", ErrIdentityMalformed},
		{"control char", "ali\x00ce", "", ErrIdentityMalformed},
		{"too long", strings.Repeat("9", maxIdentityLen+1), "", ErrIdentityMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandshake(t *testing.T) {
	assert.True(t, NewHandshake("bob").Resolved())

	hs := NewHandshake("")
	assert.False(t, hs.Resolved())
	assert.ErrorIs(t, hs.Failure, ErrIdentityMissing)
}

func TestEnvelopeTypePolicy(t *testing.T) {
	assert.True(t, EnvelopeChatMessage.Durable())
	assert.True(t, EnvelopeNewChat.Durable())
	assert.False(t, EnvelopeActivityStatusUpdate.Durable())
	assert.False(t, EnvelopeLastMessages.Durable())

	assert.Equal(t, PriorityHigh, EnvelopeAllChats.Priority())
	assert.Equal(t, PriorityNormal, EnvelopeLastMessages.Priority())
	assert.Equal(t, PriorityLow, EnvelopeActivityStatusUpdate.Priority())
	assert.False(t, EnvelopeType("BOGUS").Valid())
}
