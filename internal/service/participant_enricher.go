package service

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// Enricher fills participant profile fields that bus events leave out.
type Enricher interface {
	ResolveParticipants(ctx context.Context, participants []model.Participant) ([]model.Participant, error)
	ResolveParticipant(ctx context.Context, p model.Participant) (model.Participant, error)
}

var _ Enricher = (*ParticipantEnricher)(nil)

type ParticipantEnricher struct {
	users IdentityDirectory
	cache *lru.Cache[model.Identity, model.Participant]
}

func NewParticipantEnricher(users IdentityDirectory) *ParticipantEnricher {
	// Only fails on a non-positive size.
	cache, _ := lru.New[model.Identity, model.Participant](10000)

	return &ParticipantEnricher{
		users: users,
		cache: cache,
	}
}

// ResolveParticipants enriches every participant concurrently. Order is preserved.
func (e *ParticipantEnricher) ResolveParticipants(ctx context.Context, participants []model.Participant) ([]model.Participant, error) {
	out := make([]model.Participant, len(participants))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, p := range participants {
		g.Go(func() error {
			resolved, err := e.ResolveParticipant(gCtx, p)
			if err != nil {
				return err
			}
			out[i] = resolved
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return participants, fmt.Errorf("enricher: parallel resolve: %w", err)
	}
	return out, nil
}

func (e *ParticipantEnricher) ResolveParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	if p.UserID.IsZero() || p.FirstName != "" {
		return p, nil
	}
	if cached, ok := e.cache.Get(p.UserID); ok {
		return cached, nil
	}

	user, err := e.users.FindByIdentity(ctx, p.UserID)
	if errors.Is(err, model.ErrNotFound) {
		// Unknown users keep the bare id; the room is still deliverable.
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("enricher: find %s: %w", p.UserID, err)
	}

	p.FirstName = user.FirstName
	p.LastName = user.LastName
	if p.Photo == "" {
		p.Photo = user.Photo
	}
	e.cache.Add(p.UserID, p)

	return p, nil
}
