package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	linkCollection = "url"
	userCollection = "user"

	tokenIndex    = "token_unique"
	urlOwnerIndex = "url_userid_unique"
	userIDIndex   = "userid_unique"

	duplicateKeyCode = 11000
)

type MongoLinkStorage struct {
	links *mongo.Collection
}

func NewMongoLinkStorage(client *mongo.Client, database string) *MongoLinkStorage {
	return &MongoLinkStorage{links: client.Database(database).Collection(linkCollection)}
}

// EnsureIndexes creates the unique indexes the link invariants rely on.
func (s *MongoLinkStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.links.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(tokenIndex),
		},
		{
			Keys:    bson.D{{Key: "url", Value: 1}, {Key: "userid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(urlOwnerIndex),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create link indexes: %w", err)
	}
	return nil
}

func (s *MongoLinkStorage) Insert(ctx context.Context, link *Link) error {
	_, err := s.links.InsertOne(ctx, link)
	if err == nil {
		return nil
	}
	if index, ok := duplicateKeyIndex(err); ok {
		if index == urlOwnerIndex {
			return ErrDuplicateLink
		}
		return ErrDuplicateToken
	}
	return err
}

// duplicateKeyIndex reports whether err is a duplicate key error and, if so,
// which of the known indexes it names.
func duplicateKeyIndex(err error) (string, bool) {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code != duplicateKeyCode {
				continue
			}
			for _, name := range []string{urlOwnerIndex, tokenIndex, userIDIndex} {
				if strings.Contains(e.Message, name) {
					return name, true
				}
			}
			return "", true
		}
	}
	if mongo.IsDuplicateKeyError(err) {
		return "", true
	}
	return "", false
}

func (s *MongoLinkStorage) GetByToken(ctx context.Context, token string) (*Link, error) {
	return s.findOne(ctx, bson.D{{Key: "token", Value: token}})
}

func (s *MongoLinkStorage) GetByTokenAndOwner(ctx context.Context, token, ownerID string) (*Link, error) {
	return s.findOne(ctx, bson.D{{Key: "token", Value: token}, {Key: "userid", Value: ownerID}})
}

func (s *MongoLinkStorage) findOne(ctx context.Context, filter bson.D) (*Link, error) {
	var link Link
	if err := s.links.FindOne(ctx, filter).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (s *MongoLinkStorage) ExistsByURLAndOwner(ctx context.Context, longURL, ownerID string) (bool, error) {
	return s.exists(ctx, bson.D{{Key: "url", Value: longURL}, {Key: "userid", Value: ownerID}})
}

func (s *MongoLinkStorage) ExistsByTokenAndOwner(ctx context.Context, token, ownerID string) (bool, error) {
	return s.exists(ctx, bson.D{{Key: "token", Value: token}, {Key: "userid", Value: ownerID}})
}

func (s *MongoLinkStorage) exists(ctx context.Context, filter bson.D) (bool, error) {
	n, err := s.links.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoLinkStorage) Delete(ctx context.Context, token string) error {
	_, err := s.links.DeleteOne(ctx, bson.D{{Key: "token", Value: token}})
	return err
}

func (s *MongoLinkStorage) IncrementClickCount(ctx context.Context, token string) error {
	_, err := s.links.UpdateOne(ctx,
		bson.D{{Key: "token", Value: token}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "clickcount", Value: 1}}}},
	)
	return err
}

func (s *MongoLinkStorage) GetClickCount(ctx context.Context, token string) (*int64, error) {
	var doc struct {
		ClickCount int64 `bson:"clickcount"`
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "clickcount", Value: 1}})
	if err := s.links.FindOne(ctx, bson.D{{Key: "token", Value: token}}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc.ClickCount, nil
}

type MongoUserStorage struct {
	users *mongo.Collection
}

func NewMongoUserStorage(client *mongo.Client, database string) *MongoUserStorage {
	return &MongoUserStorage{users: client.Database(database).Collection(userCollection)}
}

func (s *MongoUserStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userid", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(userIDIndex),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (s *MongoUserStorage) Insert(ctx context.Context, user *User) error {
	_, err := s.users.InsertOne(ctx, user)
	if err != nil {
		if _, ok := duplicateKeyIndex(err); ok {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *MongoUserStorage) GetByID(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := s.users.FindOne(ctx, bson.D{{Key: "userid", Value: userID}}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStorage) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.D{{Key: "userid", Value: userID}}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
