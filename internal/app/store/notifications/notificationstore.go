package notificationstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("notification not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Item is a notification as seen by one reader.
type Item struct {
	models.Notification
	Read bool `json:"read"`
}

func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now().UTC()
	n.ReadBy = nil
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Notification, error) {
	var n models.Notification
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Notification{}, ErrNotFound
	}
	return n, err
}

// audienceFilter matches notifications addressed to the role or directly
// to the account.
func audienceFilter(role, accountID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"audience_roles": role},
		bson.M{"recipient_ids": accountID},
	}}
}

// ListFor returns the notifications visible to an account, newest first.
// An empty role lists everything (administrators).
func (s *Store) ListFor(ctx context.Context, role, accountID string, limit int64) ([]Item, error) {
	q := bson.M{}
	if role != "" {
		q = audienceFilter(role, accountID)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []models.Notification
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(rows))
	for _, n := range rows {
		out = append(out, Item{Notification: n, Read: slices.Contains(n.ReadBy, accountID)})
	}
	return out, nil
}

// MarkRead records that accountID has read the notification. The
// notification must be visible to the reader.
func (s *Store) MarkRead(ctx context.Context, id primitive.ObjectID, role, accountID string) error {
	q := audienceFilter(role, accountID)
	q["_id"] = id
	res, err := s.c.UpdateOne(ctx, q, bson.M{"$addToSet": bson.M{"read_by": accountID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
