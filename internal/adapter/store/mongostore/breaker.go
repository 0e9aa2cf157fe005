package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/domain/model"
)

func newBreaker(cfg config.MongoConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mongostore",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("STORE_BREAKER_STATE_CHANGED",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// guard runs fn through the breaker. A missing document is a normal answer
// and does not count as a failure.
func guard[T any](ctx context.Context, s *Store, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		zero    T
		missing bool
	)
	res, err := s.breaker.Execute(func() (interface{}, error) {
		v, err := fn(ctx)
		if errors.Is(err, mongo.ErrNoDocuments) {
			missing = true
			return v, nil
		}
		return v, err
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return zero, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	case err != nil:
		return zero, err
	case missing:
		return zero, mongo.ErrNoDocuments
	}

	v, _ := res.(T)
	return v, nil
}

// exec is guard for calls without a result.
func exec(ctx context.Context, s *Store, fn func(ctx context.Context) error) error {
	_, err := guard(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
