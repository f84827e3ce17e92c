package subjectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound         = errors.New("subject not found")
	ErrDuplicateSubject = errors.New("a subject with this name already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("subjects")}
}

func (s *Store) Create(ctx context.Context, sub models.Subject) (models.Subject, error) {
	now := time.Now().UTC()
	sub.ID = primitive.NewObjectID()
	sub.NameCI = text.Fold(sub.Name)
	if sub.Status == "" {
		sub.Status = status.Active
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Subject{}, ErrDuplicateSubject
		}
		return models.Subject{}, err
	}
	return sub, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Subject, error) {
	var sub models.Subject
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Subject{}, ErrNotFound
	}
	return sub, err
}

// List returns subjects ordered by name. An empty st returns all.
func (s *Store) List(ctx context.Context, st string) ([]models.Subject, error) {
	q := bson.M{}
	if st != "" {
		q["status"] = st
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Subject{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes name, code and status. Empty values are left alone.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, sub models.Subject) (models.Subject, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if sub.Name != "" {
		set["name"] = sub.Name
		set["name_ci"] = text.Fold(sub.Name)
	}
	if sub.Code != "" {
		set["code"] = sub.Code
	}
	if sub.Status != "" {
		set["status"] = sub.Status
	}
	var out models.Subject
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Subject{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.Subject{}, ErrDuplicateSubject
	case err != nil:
		return models.Subject{}, err
	}
	return out, nil
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

// NamesByIDs resolves hex subject ids to names, preserving input order.
// Unknown or malformed ids are skipped.
func (s *Store) NamesByIDs(ctx context.Context, ids []string) ([]string, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []string{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	byID := map[primitive.ObjectID]string{}
	for cur.Next(ctx) {
		var sub models.Subject
		if err := cur.Decode(&sub); err != nil {
			return nil, err
		}
		byID[sub.ID] = sub.Name
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byID))
	for _, oid := range oids {
		if n, ok := byID[oid]; ok {
			names = append(names, n)
		}
	}
	return names, nil
}
