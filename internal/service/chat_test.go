package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func TestChat_AnnounceRoom(t *testing.T) {
	h := newHarness(t)
	h.user("alice")
	h.user("bob")
	require.NoError(t, h.db.Save(h.ctx, &model.User{Identity: "carol", FirstName: "Carol", LastName: "Doe", Photo: "c.png"}))
	h.room("r1", "alice", "bob")

	_, aliceConn := h.ready("alice")

	// Cached before the new room exists.
	friends, err := h.friends.Friends(h.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []model.Identity{"bob"}, friends)

	room := &model.ChatRoom{ID: "r2", Users: []model.Participant{{UserID: "alice"}, {UserID: "carol"}}}
	require.NoError(t, h.chats.AnnounceRoom(h.ctx, room))

	env := expectEnvelope(t, aliceConn)
	assert.Equal(t, model.EnvelopeNewChat, env.Type)
	announced := env.Content.(*model.ChatRoom)
	assert.Equal(t, "Carol", announced.Users[1].FirstName)
	assert.Equal(t, "c.png", announced.Users[1].Photo)
	assert.True(t, announced.Active)

	assert.Equal(t, 1, h.db.Pending("carol"))

	friends, err = h.friends.Friends(h.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []model.Identity{"bob", "carol"}, friends, "new room invalidates the friend cache")

	stored, err := h.db.FindRoom(h.ctx, "r2")
	require.NoError(t, err)
	assert.Len(t, stored.Users, 2)
}

func TestChat_AnnounceRoomRejectsEmpty(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.chats.AnnounceRoom(h.ctx, &model.ChatRoom{ID: "r1"}), model.ErrMalformedPayload)
}

func TestChat_AnnounceMessage(t *testing.T) {
	h := newHarness(t)
	h.user("alice")
	h.user("bob")
	h.room("r1", "alice", "bob")

	_, aliceConn := h.ready("alice")

	msg := &model.ChatMessage{ID: "m1", ChatID: "r1", SenderID: "bob", Content: "from bus"}
	require.NoError(t, h.chats.AnnounceMessage(h.ctx, msg))

	env := expectEnvelope(t, aliceConn)
	assert.Equal(t, model.EnvelopeChatMessage, env.Type)
	assert.Equal(t, 1, h.db.Pending("bob"), "the sender gets its own copy as well")

	err := h.chats.AnnounceMessage(h.ctx, &model.ChatMessage{ID: "m2", ChatID: "missing"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestChat_PostMessageNotParticipant(t *testing.T) {
	h := newHarness(t)
	h.room("r1", "bob")

	_, err := h.chats.PostMessage(h.ctx, "alice", "r1", "hi")
	assert.ErrorIs(t, err, model.ErrNotParticipant)

	_, err = h.chats.PostMessage(h.ctx, "alice", "missing", "hi")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
