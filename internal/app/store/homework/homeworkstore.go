package homeworkstore

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

var ErrNotFound = errors.New("homework not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("homework")}
}

func (s *Store) Create(ctx context.Context, h models.Homework) (models.Homework, error) {
	now := time.Now().UTC()
	h.ID = primitive.NewObjectID()
	h.CreatedAt = now
	h.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, h); err != nil {
		return models.Homework{}, err
	}
	return h, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Homework, error) {
	var h models.Homework
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Homework{}, ErrNotFound
	}
	return h, err
}

// Filter narrows List. Zero fields are ignored. A SectionID also matches
// homework set for the whole class.
type Filter struct {
	ClassID   string
	SectionID string
	SubjectID string
	CreatedBy string
	DueAfter  *time.Time
	Limit     int64
	Skip      int64
}

// List returns homework ordered by due date, soonest first, with the
// unpaged total.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Homework, int64, error) {
	q := bson.M{}
	if f.ClassID != "" {
		q["class_id"] = f.ClassID
	}
	if f.SectionID != "" {
		q["section_id"] = bson.M{"$in": bson.A{f.SectionID, "", nil}}
	}
	if f.SubjectID != "" {
		q["subject_id"] = f.SubjectID
	}
	if f.CreatedBy != "" {
		q["created_by"] = f.CreatedBy
	}
	if f.DueAfter != nil {
		q["due_date"] = bson.M{"$gte": *f.DueAfter}
	}
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Homework{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update replaces the editable fields. Zero values are left alone.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, h models.Homework) (models.Homework, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if h.Title != "" {
		set["title"] = h.Title
	}
	if h.Description != "" {
		set["description"] = h.Description
	}
	if !h.DueDate.IsZero() {
		set["due_date"] = h.DueDate
	}
	if h.SubjectID != "" {
		set["subject_id"] = h.SubjectID
	}
	if h.SectionID != "" {
		set["section_id"] = h.SectionID
	}
	var out models.Homework
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Homework{}, ErrNotFound
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
