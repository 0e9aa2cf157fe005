// Package memory is an in-process store used for single-node runs and tests.
// Content is kept JSON-encoded so replayed envelopes look exactly like the
// ones read back from a document store.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

type pendingEnvelope struct {
	id      string
	kind    model.EnvelopeType
	content json.RawMessage
}

type Store struct {
	mu       sync.RWMutex
	users    map[model.Identity]model.User
	rooms    map[string]*roomEntry
	messages map[string][]model.ChatMessage
	pending  map[model.Identity][]pendingEnvelope
	seq      int64
}

type roomEntry struct {
	room model.ChatRoom
	seq  int64
}

func New() *Store {
	return &Store{
		users:    make(map[model.Identity]model.User),
		rooms:    make(map[string]*roomEntry),
		messages: make(map[string][]model.ChatMessage),
		pending:  make(map[model.Identity][]pendingEnvelope),
	}
}

// --- UndeliveredMessageStore ---

func (s *Store) Enqueue(ctx context.Context, identity model.Identity, env *model.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := json.Marshal(env.Content)
	if err != nil {
		return fmt.Errorf("memory: encode %s content: %w", env.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[identity] = append(s.pending[identity], pendingEnvelope{
		id:      env.ID,
		kind:    env.Type,
		content: content,
	})
	return nil
}

func (s *Store) Drain(ctx context.Context, identity model.Identity) ([]*model.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	queued := s.pending[identity]
	delete(s.pending, identity)
	s.mu.Unlock()

	out := make([]*model.Envelope, 0, len(queued))
	for _, p := range queued {
		env := model.NewEnvelope(p.kind, p.content)
		env.ID = p.id
		out = append(out, env)
	}
	return out, nil
}

// Pending reports how many envelopes wait for identity.
func (s *Store) Pending(identity model.Identity) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending[identity])
}

// --- IdentityDirectory ---

func (s *Store) FindByIdentity(ctx context.Context, identity model.Identity) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[identity]
	if !ok {
		return nil, fmt.Errorf("memory: user %s: %w", identity, model.ErrNotFound)
	}
	u.ChatIDs = slices.Clone(u.ChatIDs)
	return &u, nil
}

func (s *Store) FindChatRoomsOf(ctx context.Context, identity model.Identity) ([]*model.ChatRoom, error) {
	return s.FindRoomsOf(ctx, identity)
}

func (s *Store) Save(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.Identity.IsZero() {
		return fmt.Errorf("memory: save user: %w", model.ErrIdentityMissing)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	u.ChatIDs = slices.Clone(user.ChatIDs)
	s.users[u.Identity] = u
	return nil
}

// --- ChatRoomDirectory ---

func (s *Store) FindRoom(ctx context.Context, chatID string) (*model.ChatRoom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.rooms[chatID]
	if !ok {
		return nil, fmt.Errorf("memory: room %s: %w", chatID, model.ErrNotFound)
	}
	return cloneRoom(e.room), nil
}

func (s *Store) FindRoomsOf(ctx context.Context, identity model.Identity) ([]*model.ChatRoom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := s.roomsOfLocked(identity)
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *roomEntry) int { return cmp.Compare(a.seq, b.seq) })
	return toRooms(entries), nil
}

func (s *Store) FindRecentRoomsOf(ctx context.Context, identity model.Identity, limit int) ([]*model.ChatRoom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := s.roomsOfLocked(identity)
	s.mu.RUnlock()

	// Newest activity first; rooms without messages by creation, newest first.
	slices.SortFunc(entries, func(a, b *roomEntry) int {
		if c := lastActivity(b).Compare(lastActivity(a)); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return toRooms(entries), nil
}

func (s *Store) SaveRoom(ctx context.Context, room *model.ChatRoom) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.rooms[room.ID]; ok {
		e.room = *cloneRoom(*room)
		return nil
	}
	s.seq++
	s.rooms[room.ID] = &roomEntry{room: *cloneRoom(*room), seq: s.seq}
	return nil
}

func (s *Store) SetLastMessage(ctx context.Context, chatID string, msg *model.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.rooms[chatID]
	if !ok {
		return fmt.Errorf("memory: room %s: %w", chatID, model.ErrNotFound)
	}
	m := *msg
	e.room.LastMessage = &m
	return nil
}

// --- MessageDirectory ---

func (s *Store) SaveMessage(ctx context.Context, msg *model.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	return nil
}

func (s *Store) FindRecentMessages(ctx context.Context, chatID string, limit int) ([]*model.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[chatID]
	out := make([]*model.ChatMessage, 0, min(len(all), max(limit, 0)))
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		m := all[i]
		out = append(out, &m)
	}
	return out, nil
}

// roomsOfLocked snapshots the rooms of identity; the copies are safe to use
// after the lock is released.
func (s *Store) roomsOfLocked(identity model.Identity) []*roomEntry {
	var out []*roomEntry
	for _, e := range s.rooms {
		if e.room.HasParticipant(identity) {
			out = append(out, &roomEntry{room: *cloneRoom(e.room), seq: e.seq})
		}
	}
	return out
}

func lastActivity(e *roomEntry) time.Time {
	if e.room.LastMessage != nil {
		return e.room.LastMessage.Timestamp
	}
	return time.Time{}
}

func toRooms(entries []*roomEntry) []*model.ChatRoom {
	out := make([]*model.ChatRoom, 0, len(entries))
	for _, e := range entries {
		r := e.room
		out = append(out, &r)
	}
	return out
}

func cloneRoom(r model.ChatRoom) *model.ChatRoom {
	r.Users = slices.Clone(r.Users)
	if r.LastMessage != nil {
		m := *r.LastMessage
		r.LastMessage = &m
	}
	return &r
}
