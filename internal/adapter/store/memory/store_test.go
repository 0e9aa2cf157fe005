package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func TestStore_DrainIsExhaustiveAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := New()

	const n = 25
	for i := range n {
		env := model.NewEnvelope(model.EnvelopeChatMessage, map[string]int{"seq": i})
		require.NoError(t, s.Enqueue(ctx, "bob", env))
	}
	require.NoError(t, s.Enqueue(ctx, "carol", model.NewEnvelope(model.EnvelopeNewChat, "x")))

	drained, err := s.Drain(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, drained, n)

	for i, env := range drained {
		assert.Equal(t, model.EnvelopeChatMessage, env.Type)
		raw, ok := env.Content.(json.RawMessage)
		require.True(t, ok)
		assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, i), string(raw))
	}

	again, err := s.Drain(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.NotNil(t, again)

	assert.Equal(t, 1, s.Pending("carol"), "other identities are untouched")
}

func TestStore_DrainEmpty(t *testing.T) {
	drained, err := New().Drain(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, drained)
}

func TestStore_EnqueueHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Enqueue(ctx, "bob", model.NewEnvelope(model.EnvelopeChatMessage, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.FindByIdentity(ctx, "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.Save(ctx, &model.User{Identity: "alice", FirstName: "Alice"}))
	u, err := s.FindByIdentity(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.FirstName)

	u.Active = true
	require.NoError(t, s.Save(ctx, u))
	u, err = s.FindByIdentity(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.Active)

	assert.ErrorIs(t, s.Save(ctx, &model.User{}), model.ErrIdentityMissing)
}

func TestStore_RecentRoomsOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		require.NoError(t, s.SaveRoom(ctx, &model.ChatRoom{
			ID:    id,
			Users: []model.Participant{{UserID: "alice"}, {UserID: "bob"}},
		}))
	}
	require.NoError(t, s.SaveRoom(ctx, &model.ChatRoom{ID: "other", Users: []model.Participant{{UserID: "bob"}}}))

	require.NoError(t, s.SetLastMessage(ctx, "r1", &model.ChatMessage{ID: "m1", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.SetLastMessage(ctx, "r3", &model.ChatMessage{ID: "m3", Timestamp: base}))

	rooms, err := s.FindRecentRoomsOf(ctx, "alice", 3)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "r1", rooms[0].ID)
	assert.Equal(t, "r3", rooms[1].ID)
	assert.Equal(t, "r4", rooms[2].ID, "rooms without messages, newest first")

	all, err := s.FindRoomsOf(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	assert.ErrorIs(t, s.SetLastMessage(ctx, "missing", &model.ChatMessage{}), model.ErrNotFound)
}

func TestStore_RecentMessagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := range 5 {
		require.NoError(t, s.SaveMessage(ctx, &model.ChatMessage{ID: fmt.Sprintf("m%d", i), ChatID: "r1"}))
	}

	msgs, err := s.FindRecentMessages(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m4", msgs[0].ID)
	assert.Equal(t, "m2", msgs[2].ID)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SaveRoom(ctx, &model.ChatRoom{ID: "r1", Users: []model.Participant{{UserID: "alice"}}}))

	room, err := s.FindRoom(ctx, "r1")
	require.NoError(t, err)
	room.Users[0].UserID = "mallory"

	again, err := s.FindRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.Identity("alice"), again.Users[0].UserID)
}
