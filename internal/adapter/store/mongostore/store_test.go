package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/domain/model"
)

// connectTest needs a reachable server in IM_PRESENCE_TEST_MONGO_URI. Each
// test gets its own database, dropped on cleanup.
func connectTest(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("IM_PRESENCE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("IM_PRESENCE_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, config.MongoConfig{
		URI:                uri,
		Database:           "im_presence_test_" + uuid.NewString()[:8],
		Timeout:            5 * time.Second,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndexes(ctx))

	t.Cleanup(func() {
		_ = s.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestStore_UndeliveredRoundTrip(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	for i := range 5 {
		env := model.NewEnvelope(model.EnvelopeChatMessage, map[string]int{"seq": i})
		require.NoError(t, s.Enqueue(ctx, "bob", env))
	}
	require.NoError(t, s.Enqueue(ctx, "carol", model.NewEnvelope(model.EnvelopeNewChat, "hi")))

	drained, err := s.Drain(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, drained, 5)
	for i, env := range drained {
		raw, ok := env.Content.(json.RawMessage)
		require.True(t, ok)
		assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, i), string(raw))
	}

	again, err := s.Drain(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, again)

	carol, err := s.Drain(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, carol, 1)
	assert.Equal(t, model.EnvelopeNewChat, carol[0].Type)
}

func TestStore_UsersAndRooms(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	_, err := s.FindByIdentity(ctx, "alice")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.Save(ctx, &model.User{Identity: "alice", FirstName: "Alice", Active: true}))
	u, err := s.FindByIdentity(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.Active)

	now := time.Now().UTC().Truncate(time.Millisecond)
	older := &model.ChatRoom{ID: "r1", Users: []model.Participant{{UserID: "alice"}, {UserID: "bob"}}, CreatedAt: now}
	newer := &model.ChatRoom{ID: "r2", Users: []model.Participant{{UserID: "alice"}, {UserID: "carol"}}, CreatedAt: now}
	require.NoError(t, s.SaveRoom(ctx, older))
	require.NoError(t, s.SaveRoom(ctx, newer))

	require.NoError(t, s.SetLastMessage(ctx, "r1", &model.ChatMessage{
		ID: "m1", ChatID: "r1", SenderID: "bob", Content: "old", Timestamp: now.Add(time.Minute),
	}))
	require.NoError(t, s.SetLastMessage(ctx, "r2", &model.ChatMessage{
		ID: "m2", ChatID: "r2", SenderID: "carol", Content: "new", Timestamp: now.Add(2 * time.Minute),
	}))
	assert.ErrorIs(t, s.SetLastMessage(ctx, "missing", &model.ChatMessage{ID: "m3"}), model.ErrNotFound)

	recent, err := s.FindRecentRoomsOf(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "r2", recent[0].ID)
	assert.Equal(t, "new", recent[0].LastMessage.Content)

	rooms, err := s.FindChatRoomsOf(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.True(t, rooms[0].HasParticipant("alice"))
}

func TestStore_RecentMessagesNewestFirst(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := range 4 {
		require.NoError(t, s.SaveMessage(ctx, &model.ChatMessage{
			ID:        fmt.Sprintf("m%d", i),
			ChatID:    "r1",
			SenderID:  "alice",
			Content:   fmt.Sprintf("msg %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := s.FindRecentMessages(ctx, "r1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
}
