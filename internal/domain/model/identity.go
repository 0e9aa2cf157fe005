package model

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxIdentityLen = 128

// Identity is the stable key of a user across connections. In the chat
// domain it is the phone number the client presents on handshake.
type Identity string

func (i Identity) String() string { return string(i) }

func (i Identity) IsZero() bool { return i == "" }

// ParseIdentity trims raw and rejects empty, oversized or non-printable values.
func ParseIdentity(raw string) (Identity, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", ErrIdentityMissing
	}
	if len(v) > maxIdentityLen {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrIdentityMalformed, maxIdentityLen)
	}
	for _, r := range v {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return "", fmt.Errorf("%w: unexpected character %q", ErrIdentityMalformed, r)
		}
	}
	return Identity(v), nil
}

// SessionID is an opaque token for one transport connection.
// It is never reused after the connection closes.
type SessionID string

func (s SessionID) String() string { return string(s) }

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Handshake is the result of resolving an identity from connection
// metadata: either Identity is set or Failure explains why it is not.
type Handshake struct {
	Identity Identity
	Failure  error
}

func NewHandshake(raw string) Handshake {
	id, err := ParseIdentity(raw)
	return Handshake{Identity: id, Failure: err}
}

func (h Handshake) Resolved() bool {
	return h.Failure == nil && !h.Identity.IsZero()
}
