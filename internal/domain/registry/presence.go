/*
Package registry keeps the in-memory view of who is connected right now.

Key concepts:
  - Presence: a bidirectional mapping between transport sessions and user
    identities. An identity owns at most one session; attaching a new one
    supersedes the previous session.
  - Readiness: a per-identity gate flipped by the client's acknowledgment.
    Live pushes are only attempted once the gate is set for the current session.
  - Hub: the set of open connectors, addressed by session, which turns an
    identity into a buffered send on the right socket.

All structures are safe for concurrent use and never perform I/O while
holding a lock.
*/
package registry

import (
	"sync"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// Presencer is the session <-> identity registry.
type Presencer interface {
	// Attach binds session to identity. When identity was bound to another
	// session, that session is unbound and returned as superseded.
	Attach(session model.SessionID, identity model.Identity) (superseded model.SessionID, replaced bool)
	// Detach unbinds session. It returns the identity only when session was
	// still the identity's current one.
	Detach(session model.SessionID) (model.Identity, bool)
	IdentityOf(session model.SessionID) (model.Identity, bool)
	SessionOf(identity model.Identity) (model.SessionID, bool)
	IsLive(identity model.Identity) bool
	Count() int
}

var _ Presencer = (*PresenceRegistry)(nil)

type PresenceRegistry struct {
	mu         sync.RWMutex
	bySession  map[model.SessionID]model.Identity
	byIdentity map[model.Identity]model.SessionID
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		bySession:  make(map[model.SessionID]model.Identity),
		byIdentity: make(map[model.Identity]model.SessionID),
	}
}

func (p *PresenceRegistry) Attach(session model.SessionID, identity model.Identity) (model.SessionID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-attaching a session under a new identity releases the old binding.
	if prev, ok := p.bySession[session]; ok && prev != identity {
		if p.byIdentity[prev] == session {
			delete(p.byIdentity, prev)
		}
	}

	var (
		superseded model.SessionID
		replaced   bool
	)
	if old, ok := p.byIdentity[identity]; ok && old != session {
		delete(p.bySession, old)
		superseded, replaced = old, true
	}

	p.bySession[session] = identity
	p.byIdentity[identity] = session

	return superseded, replaced
}

func (p *PresenceRegistry) Detach(session model.SessionID) (model.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	identity, ok := p.bySession[session]
	if !ok {
		return "", false
	}
	delete(p.bySession, session)

	if p.byIdentity[identity] != session {
		return "", false
	}
	delete(p.byIdentity, identity)

	return identity, true
}

func (p *PresenceRegistry) IdentityOf(session model.SessionID) (model.Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	identity, ok := p.bySession[session]
	return identity, ok
}

func (p *PresenceRegistry) SessionOf(identity model.Identity) (model.SessionID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	session, ok := p.byIdentity[identity]
	return session, ok
}

func (p *PresenceRegistry) IsLive(identity model.Identity) bool {
	_, ok := p.SessionOf(identity)
	return ok
}

// Count returns the number of live identities.
func (p *PresenceRegistry) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.byIdentity)
}
