package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// EnricherMiddleware adds timing and outcome logging around an Enricher.
type EnricherMiddleware struct {
	Next   Enricher
	Logger *slog.Logger
}

func NewEnricherMiddleware(next Enricher, logger *slog.Logger) Enricher {
	return &EnricherMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *EnricherMiddleware) ResolveParticipants(ctx context.Context, participants []model.Participant) ([]model.Participant, error) {
	start := time.Now()
	res, err := m.Next.ResolveParticipants(ctx, participants)
	duration := time.Since(start)

	if err != nil {
		m.Logger.Error("PARTICIPANT_ENRICHMENT_BATCH_FAILED",
			"err", err,
			"count", len(participants),
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		m.Logger.Debug("PARTICIPANT_ENRICHMENT_BATCH_COMPLETED",
			"count", len(participants),
			"duration_ms", duration.Milliseconds(),
		)
	}

	return res, err
}

func (m *EnricherMiddleware) ResolveParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	start := time.Now()

	res, err := m.Next.ResolveParticipant(ctx, p)
	if err != nil {
		m.Logger.Warn("SINGLE_PARTICIPANT_ENRICHMENT_FAILED",
			"user_id", p.UserID,
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return res, err
}
