package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/webitel/im-presence-service/internal/domain/model"
	"github.com/webitel/im-presence-service/internal/domain/registry"
)

const instrumentationName = "github.com/webitel/im-presence-service/internal/service"

// Router decides per recipient between a live push and the durable queue.
type Router interface {
	// Route delivers env to each distinct recipient in order. Enqueue
	// failures are joined and returned; live push drops are not errors.
	Route(ctx context.Context, recipients []model.Identity, env *model.Envelope) error
	// BroadcastActivity routes an ACTIVITY_STATUS_UPDATE to every friend of identity.
	BroadcastActivity(ctx context.Context, identity model.Identity, active bool) error
}

var _ Router = (*BroadcastRouter)(nil)

type BroadcastRouter struct {
	presence registry.Presencer
	gate     registry.Acknowledger
	pusher   Pusher
	store    UndeliveredMessageStore
	friends  FriendResolver
	tracer   trace.Tracer

	pushed   metric.Int64Counter
	enqueued metric.Int64Counter
	dropped  metric.Int64Counter
}

func NewBroadcastRouter(
	presence registry.Presencer,
	gate registry.Acknowledger,
	pusher Pusher,
	store UndeliveredMessageStore,
	friends FriendResolver,
) *BroadcastRouter {
	meter := otel.Meter(instrumentationName)

	// Instrument creation only fails on invalid names; noop counters are returned then.
	pushed, _ := meter.Int64Counter("im_presence.router.pushed",
		metric.WithDescription("Envelopes pushed to a live session"))
	enqueued, _ := meter.Int64Counter("im_presence.router.enqueued",
		metric.WithDescription("Envelopes persisted for later delivery"))
	dropped, _ := meter.Int64Counter("im_presence.router.dropped",
		metric.WithDescription("Envelopes neither pushed nor persisted"))

	return &BroadcastRouter{
		presence: presence,
		gate:     gate,
		pusher:   pusher,
		store:    store,
		friends:  friends,
		tracer:   otel.Tracer(instrumentationName),
		pushed:   pushed,
		enqueued: enqueued,
		dropped:  dropped,
	}
}

func (r *BroadcastRouter) Route(ctx context.Context, recipients []model.Identity, env *model.Envelope) error {
	ctx, span := r.tracer.Start(ctx, "router.route", trace.WithAttributes(
		attribute.String("envelope.type", string(env.Type)),
		attribute.Int("envelope.recipients", len(recipients)),
	))
	defer span.End()

	var errs []error
	for _, recipient := range distinct(recipients) {
		if err := r.deliver(ctx, recipient, env); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
	}
	return err
}

func (r *BroadcastRouter) deliver(ctx context.Context, recipient model.Identity, env *model.Envelope) error {
	kind := metric.WithAttributes(attribute.String("type", string(env.Type)))

	if r.presence.IsLive(recipient) && r.gate.IsReady(recipient) {
		if err := r.pusher.Push(recipient, env); err == nil {
			r.pushed.Add(ctx, 1, kind)
			return nil
		}
		// Either the session went away between the check and the push or its
		// connector is saturated. Durable kinds wait for the next catch-up.
	}

	if !env.Type.Durable() {
		r.dropped.Add(ctx, 1, kind)
		return nil
	}

	if err := r.store.Enqueue(ctx, recipient, env); err != nil {
		return fmt.Errorf("router: enqueue %s for %s: %w", env.Type, recipient, err)
	}
	r.enqueued.Add(ctx, 1, kind)

	return nil
}

func (r *BroadcastRouter) BroadcastActivity(ctx context.Context, identity model.Identity, active bool) error {
	friends, err := r.friends.Friends(ctx, identity)
	if err != nil {
		return fmt.Errorf("router: broadcast activity of %s: %w", identity, err)
	}

	env := model.NewEnvelope(model.EnvelopeActivityStatusUpdate, model.ActivityStatus{
		Identity: identity,
		Active:   active,
	})
	return r.Route(ctx, friends, env)
}

func distinct(ids []model.Identity) []model.Identity {
	seen := make(map[model.Identity]struct{}, len(ids))
	out := make([]model.Identity, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
