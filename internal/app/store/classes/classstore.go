package classstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("class not found")
	ErrDuplicateClass = errors.New("a class with this name already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("classes")}
}

// assignSectionIDs gives every section without an id a fresh one.
func assignSectionIDs(sections []models.Section) []models.Section {
	for i := range sections {
		if sections[i].ID == "" {
			sections[i].ID = uuid.NewString()
		}
	}
	return sections
}

func (s *Store) Create(ctx context.Context, c models.Class) (models.Class, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.Sections = assignSectionIDs(c.Sections)
	if c.Status == "" {
		c.Status = status.Active
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Class{}, ErrDuplicateClass
		}
		return models.Class{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Class, error) {
	var c models.Class
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Class{}, ErrNotFound
	}
	return c, err
}

// GetByHex is GetByID for identifiers stored as strings on other documents.
func (s *Store) GetByHex(ctx context.Context, hex string) (models.Class, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return models.Class{}, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) List(ctx context.Context, st string) ([]models.Class, error) {
	q := bson.M{}
	if st != "" {
		q["status"] = st
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Class{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces name, status and, when non-nil, the section list.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, c models.Class) (models.Class, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if c.Name != "" {
		set["name"] = c.Name
		set["name_ci"] = text.Fold(c.Name)
	}
	if c.Status != "" {
		set["status"] = c.Status
	}
	if c.Sections != nil {
		set["sections"] = assignSectionIDs(c.Sections)
	}
	var out models.Class
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Class{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.Class{}, ErrDuplicateClass
	case err != nil:
		return models.Class{}, err
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
