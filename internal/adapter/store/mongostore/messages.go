package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func (s *Store) SaveMessage(ctx context.Context, msg *model.ChatMessage) error {
	doc := newMessageDoc(msg)
	err := exec(ctx, s, func(ctx context.Context) error {
		_, err := s.coll(collMessages).InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return notFound(err, "save message "+doc.ID)
	}
	return nil
}

func (s *Store) FindRecentMessages(ctx context.Context, chatID string, limit int) ([]*model.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	docs, err := guard(ctx, s, func(ctx context.Context) ([]messageDoc, error) {
		cur, err := s.coll(collMessages).Find(ctx, bson.M{"chat_id": chatID}, opts)
		if err != nil {
			return nil, err
		}
		var docs []messageDoc
		err = cur.All(ctx, &docs)
		return docs, err
	})
	if err != nil {
		return nil, notFound(err, "messages of "+chatID)
	}

	out := make([]*model.ChatMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
