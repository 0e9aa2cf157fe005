package wsmarshaller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func TestMarshallEnvelope_CachesEncoding(t *testing.T) {
	env := model.NewEnvelope(model.EnvelopeActivityStatusUpdate, model.ActivityStatus{Identity: "alice", Active: true})

	first, err := MarshallEnvelope(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ACTIVITY_STATUS_UPDATE","content":{"identity":"alice","active":true}}`, string(first))

	env.Content = "changed"
	second, err := MarshallEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnmarshallClientFrame(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"app prefix", `{"destination":"/app/ack","payload":{"identity":"a"}}`, "/ack", true},
		{"bare", `{"destination":"/lastMessage","payload":{}}`, "/lastMessage", true},
		{"prefix only", `{"destination":"/apple"}`, "/apple", true},
		{"no destination", `{"payload":{}}`, "", false},
		{"garbage", `nope`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := UnmarshallClientFrame([]byte(tt.raw))
			if !tt.ok {
				assert.ErrorIs(t, err, model.ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Destination)
		})
	}
}
