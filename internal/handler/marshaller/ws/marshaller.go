package wsmarshaller

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// AppPrefix is the optional application prefix STOMP-style clients put in
// front of every destination.
const AppPrefix = "/app"

// ClientFrame is one message sent by the client.
type ClientFrame struct {
	Destination string          `json:"destination"`
	Payload     json.RawMessage `json:"payload"`
}

// MarshallEnvelope encodes env as a server frame. The encoding is cached on
// the envelope, so a fan-out to many sessions marshals once.
func MarshallEnvelope(env *model.Envelope) ([]byte, error) {
	if cached := env.GetCached(); cached != nil {
		return cached, nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("ws marshaller: %s: %w", env.Type, err)
	}

	env.SetCached(data)
	return data, nil
}

// UnmarshallClientFrame decodes a client frame and normalizes its
// destination by stripping AppPrefix.
func UnmarshallClientFrame(data []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("ws marshaller: %w: %v", model.ErrMalformedPayload, err)
	}
	if f.Destination == "" {
		return f, fmt.Errorf("ws marshaller: %w: destination is required", model.ErrMalformedPayload)
	}

	if rest, ok := strings.CutPrefix(f.Destination, AppPrefix); ok && strings.HasPrefix(rest, "/") {
		f.Destination = rest
	}
	return f, nil
}
