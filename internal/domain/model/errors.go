package model

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrSessionNotConnected = errors.New("session not connected")
	ErrDeliveryRejected    = errors.New("delivery rejected by connector")

	ErrIdentityMissing   = errors.New("identity missing")
	ErrIdentityMalformed = errors.New("identity malformed")
	ErrIdentityMismatch  = errors.New("identity does not match session")
	ErrNotParticipant    = errors.New("identity is not a chat participant")

	ErrUnknownDestination = errors.New("unknown destination")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
