package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// FriendsOf returns every identity sharing at least one room with identity,
// excluding identity itself. The result is de-duplicated and sorted.
func FriendsOf(identity model.Identity, rooms []*model.ChatRoom) []model.Identity {
	seen := make(map[model.Identity]struct{})
	friends := make([]model.Identity, 0)

	for _, r := range rooms {
		for _, p := range r.Users {
			if p.UserID == identity || p.UserID.IsZero() {
				continue
			}
			if _, ok := seen[p.UserID]; ok {
				continue
			}
			seen[p.UserID] = struct{}{}
			friends = append(friends, p.UserID)
		}
	}
	slices.Sort(friends)

	return friends
}

// FriendResolver answers "who shares a room with this identity".
type FriendResolver interface {
	Friends(ctx context.Context, identity model.Identity) ([]model.Identity, error)
	// Invalidate drops cached answers after room membership changed.
	Invalidate(identities ...model.Identity)
}

var _ FriendResolver = (*CachedFriendResolver)(nil)

// CachedFriendResolver keeps recent answers in an expiring LRU so a burst of
// presence flips does not rescan the rooms collection for each.
type CachedFriendResolver struct {
	users IdentityDirectory
	cache *expirable.LRU[model.Identity, []model.Identity]
}

func NewCachedFriendResolver(users IdentityDirectory, size int, ttl time.Duration) *CachedFriendResolver {
	if size <= 0 {
		size = 1024
	}
	return &CachedFriendResolver{
		users: users,
		cache: expirable.NewLRU[model.Identity, []model.Identity](size, nil, ttl),
	}
}

func (r *CachedFriendResolver) Friends(ctx context.Context, identity model.Identity) ([]model.Identity, error) {
	if cached, ok := r.cache.Get(identity); ok {
		return slices.Clone(cached), nil
	}

	rooms, err := r.users.FindChatRoomsOf(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("friends: rooms of %s: %w", identity, err)
	}

	friends := FriendsOf(identity, rooms)
	r.cache.Add(identity, friends)

	return slices.Clone(friends), nil
}

func (r *CachedFriendResolver) Invalidate(identities ...model.Identity) {
	for _, id := range identities {
		r.cache.Remove(id)
	}
}
