package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func (s *Store) FindRoom(ctx context.Context, chatID string) (*model.ChatRoom, error) {
	doc, err := guard(ctx, s, func(ctx context.Context) (roomDoc, error) {
		var doc roomDoc
		err := s.coll(collRooms).FindOne(ctx, bson.M{"_id": chatID}).Decode(&doc)
		return doc, err
	})
	if err != nil {
		return nil, notFound(err, "room "+chatID)
	}
	return doc.toDomain(), nil
}

func (s *Store) FindRoomsOf(ctx context.Context, identity model.Identity) ([]*model.ChatRoom, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return s.findRooms(ctx, identity, opts)
}

func (s *Store) FindRecentRoomsOf(ctx context.Context, identity model.Identity, limit int) ([]*model.ChatRoom, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "last_message.timestamp", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return s.findRooms(ctx, identity, opts)
}

func (s *Store) findRooms(ctx context.Context, identity model.Identity, opts *options.FindOptions) ([]*model.ChatRoom, error) {
	docs, err := guard(ctx, s, func(ctx context.Context) ([]roomDoc, error) {
		cur, err := s.coll(collRooms).Find(ctx, bson.M{"users.userId": identity.String()}, opts)
		if err != nil {
			return nil, err
		}
		var docs []roomDoc
		err = cur.All(ctx, &docs)
		return docs, err
	})
	if err != nil {
		return nil, notFound(err, "rooms of "+identity.String())
	}

	rooms := make([]*model.ChatRoom, 0, len(docs))
	for _, d := range docs {
		rooms = append(rooms, d.toDomain())
	}
	return rooms, nil
}

func (s *Store) SaveRoom(ctx context.Context, room *model.ChatRoom) error {
	doc := newRoomDoc(room)
	err := exec(ctx, s, func(ctx context.Context) error {
		_, err := s.coll(collRooms).ReplaceOne(ctx,
			bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
		return err
	})
	if err != nil {
		return notFound(err, "save room "+doc.ID)
	}
	return nil
}

func (s *Store) SetLastMessage(ctx context.Context, chatID string, msg *model.ChatMessage) error {
	last := newMessageDoc(msg)
	err := exec(ctx, s, func(ctx context.Context) error {
		res, err := s.coll(collRooms).UpdateByID(ctx, chatID, bson.M{"$set": bson.M{"last_message": last}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return mongo.ErrNoDocuments
		}
		return nil
	})
	if err != nil {
		return notFound(err, "room "+chatID)
	}
	return nil
}
