package registry

import (
	"sync"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// Acknowledger tracks which identities have confirmed they are ready to
// receive pushes on their current connection.
type Acknowledger interface {
	// MarkReady flags identity as ready on session. It reports true only on
	// the transition, so the caller runs catch-up exactly once per connection.
	MarkReady(identity model.Identity, session model.SessionID) bool
	// IsReady is true only while the flagged session is still the identity's live one.
	IsReady(identity model.Identity) bool
	// Clear drops the flag if it still belongs to session.
	Clear(identity model.Identity, session model.SessionID)
	Count() int
}

var _ Acknowledger = (*AcknowledgmentGate)(nil)

// AcknowledgmentGate stores the session an identity acknowledged on.
// Binding the flag to the session resets readiness on every new connection
// without an explicit clear racing the old socket.
type AcknowledgmentGate struct {
	presence Presencer
	ready    sync.Map // model.Identity -> model.SessionID
}

func NewAcknowledgmentGate(presence Presencer) *AcknowledgmentGate {
	return &AcknowledgmentGate{presence: presence}
}

func (g *AcknowledgmentGate) MarkReady(identity model.Identity, session model.SessionID) bool {
	for {
		prev, loaded := g.ready.LoadOrStore(identity, session)
		if !loaded {
			return true
		}
		if prev.(model.SessionID) == session {
			return false
		}
		if g.ready.CompareAndSwap(identity, prev, session) {
			return true
		}
	}
}

func (g *AcknowledgmentGate) IsReady(identity model.Identity) bool {
	val, ok := g.ready.Load(identity)
	if !ok {
		return false
	}
	current, live := g.presence.SessionOf(identity)
	return live && current == val.(model.SessionID)
}

func (g *AcknowledgmentGate) Clear(identity model.Identity, session model.SessionID) {
	g.ready.CompareAndDelete(identity, session)
}

// Count returns the number of identities ready on their live session.
func (g *AcknowledgmentGate) Count() int {
	n := 0
	g.ready.Range(func(key, _ any) bool {
		if g.IsReady(key.(model.Identity)) {
			n++
		}
		return true
	})
	return n
}
