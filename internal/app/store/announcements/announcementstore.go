package announcementstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("announcement not found")

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("announcements"), now: time.Now}
}

// Create stores a. A zero PublishedAt publishes immediately.
func (s *Store) Create(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	now := s.now().UTC()
	a.ID = primitive.NewObjectID()
	if a.PublishedAt.IsZero() {
		a.PublishedAt = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Announcement, error) {
	var a models.Announcement
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Announcement{}, ErrNotFound
	}
	return a, err
}

// ListFor returns published announcements visible to role, newest first.
// An announcement with no audience is visible to everyone. An empty role
// lists everything including scheduled posts (administrators).
func (s *Store) ListFor(ctx context.Context, role string, limit int64) ([]models.Announcement, error) {
	q := bson.M{}
	if role != "" {
		q = bson.M{
			"published_at": bson.M{"$lte": s.now().UTC()},
			"$or": bson.A{
				bson.M{"audience_roles": role},
				bson.M{"audience_roles": bson.M{"$exists": false}},
				bson.M{"audience_roles": bson.A{}},
			},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Announcement{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes title, body, audience and publish time. Zero values are
// left alone; a non-nil empty audience clears it.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, a models.Announcement) (models.Announcement, error) {
	set := bson.M{"updated_at": s.now().UTC()}
	if a.Title != "" {
		set["title"] = a.Title
	}
	if a.Body != "" {
		set["body"] = a.Body
	}
	if a.AudienceRoles != nil {
		set["audience_roles"] = a.AudienceRoles
	}
	if !a.PublishedAt.IsZero() {
		set["published_at"] = a.PublishedAt
	}
	var out models.Announcement
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Announcement{}, ErrNotFound
	}
	return out, err
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
