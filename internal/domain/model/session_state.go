package model

type SessionState int8

const (
	// StateClosed is also reported for sessions the service never tracked.
	StateClosed SessionState = iota
	StateConnecting
	StateActiveUnacked
	StateActiveReady
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateActiveUnacked:
		return "ACTIVE_UNACKED"
	case StateActiveReady:
		return "ACTIVE_READY"
	default:
		return "CLOSED"
	}
}
