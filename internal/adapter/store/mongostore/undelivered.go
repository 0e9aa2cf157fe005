package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func (s *Store) Enqueue(ctx context.Context, identity model.Identity, env *model.Envelope) error {
	content, err := json.Marshal(env.Content)
	if err != nil {
		return fmt.Errorf("mongostore: encode %s content: %w", env.Type, err)
	}

	doc := undeliveredDoc{
		EnvelopeID: env.ID,
		UserID:     identity.String(),
		Type:       string(env.Type),
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	err = exec(ctx, s, func(ctx context.Context) error {
		_, err := s.coll(collUndelivered).InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return notFound(err, "enqueue for "+identity.String())
	}
	return nil
}

// Drain reads the queue of identity in insertion order, then deletes exactly
// the documents it read. Entries enqueued in between survive for the next drain.
func (s *Store) Drain(ctx context.Context, identity model.Identity) ([]*model.Envelope, error) {
	docs, err := guard(ctx, s, func(ctx context.Context) ([]undeliveredDoc, error) {
		cur, err := s.coll(collUndelivered).Find(ctx,
			bson.M{"user_id": identity.String()},
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return nil, err
		}
		var docs []undeliveredDoc
		if err := cur.All(ctx, &docs); err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return docs, nil
		}

		ids := make([]primitive.ObjectID, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		_, err = s.coll(collUndelivered).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		return docs, err
	})
	if err != nil {
		return nil, notFound(err, "drain "+identity.String())
	}

	out := make([]*model.Envelope, 0, len(docs))
	for _, d := range docs {
		env := model.NewEnvelope(model.EnvelopeType(d.Type), json.RawMessage(d.Content))
		env.ID = d.EnvelopeID
		out = append(out, env)
	}
	return out, nil
}
