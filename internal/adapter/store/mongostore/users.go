package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func (s *Store) FindByIdentity(ctx context.Context, identity model.Identity) (*model.User, error) {
	doc, err := guard(ctx, s, func(ctx context.Context) (userDoc, error) {
		var doc userDoc
		err := s.coll(collUsers).FindOne(ctx, bson.M{"_id": identity.String()}).Decode(&doc)
		return doc, err
	})
	if err != nil {
		return nil, notFound(err, "user "+identity.String())
	}
	return doc.toDomain(), nil
}

func (s *Store) FindChatRoomsOf(ctx context.Context, identity model.Identity) ([]*model.ChatRoom, error) {
	return s.FindRoomsOf(ctx, identity)
}

func (s *Store) Save(ctx context.Context, user *model.User) error {
	if user.Identity.IsZero() {
		return notFound(model.ErrIdentityMissing, "save user")
	}

	doc := newUserDoc(user)
	err := exec(ctx, s, func(ctx context.Context) error {
		_, err := s.coll(collUsers).ReplaceOne(ctx,
			bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
		return err
	})
	if err != nil {
		return notFound(err, "save user "+doc.ID)
	}
	return nil
}
