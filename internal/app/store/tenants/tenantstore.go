// Package tenantstore reads and writes the global tenant directory
// ("tenants"). Records are never deleted; they are deactivated.
package tenantstore

import (
	"context"
	"errors"
	"regexp"
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
	ErrNotFound        = errors.New("tenant not found")
	ErrDuplicateSchool = errors.New("a school with this id or database already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tenants")}
}

// Create inserts a tenant record. SchoolID and DatabaseName must be set.
func (s *Store) Create(ctx context.Context, t models.Tenant) (models.Tenant, error) {
	now := time.Now().UTC()
	t.NameCI = text.Fold(t.Name)
	if t.Status == "" {
		t.Status = status.Active
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	t.ID = primitive.NewObjectID()
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Tenant{}, ErrDuplicateSchool
		}
		return models.Tenant{}, err
	}
	return t, nil
}

// GetBySchoolID returns the tenant or ErrNotFound.
func (s *Store) GetBySchoolID(ctx context.Context, schoolID string) (models.Tenant, error) {
	var t models.Tenant
	err := s.c.FindOne(ctx, bson.M{"school_id": schoolID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Tenant{}, ErrNotFound
	}
	if err != nil {
		return models.Tenant{}, err
	}
	return t, nil
}

// ListFilter narrows List. Zero fields are ignored.
type ListFilter struct {
	Status string
	Search string // case-insensitive name prefix
	Limit  int64
	Skip   int64
}

func (f ListFilter) bson() bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Search != "" {
		q["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(f.Search))}
	}
	return q
}

// List returns tenants ordered by name together with the unpaged total.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Tenant, int64, error) {
	q := f.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "school_id", Value: 1}})
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
	out := []models.Tenant{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DatabaseNames returns the database of every tenant, active or not.
func (s *Store) DatabaseNames(ctx context.Context) ([]string, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"database_name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var names []string
	for cur.Next(ctx) {
		var t models.Tenant
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		if t.DatabaseName != "" {
			names = append(names, t.DatabaseName)
		}
	}
	return names, cur.Err()
}

// SetStatus flips a tenant between active and inactive.
func (s *Store) SetStatus(ctx context.Context, schoolID, st string) (models.Tenant, error) {
	var t models.Tenant
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"school_id": schoolID},
		bson.M{"$set": bson.M{"status": st, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Tenant{}, ErrNotFound
	}
	if err != nil {
		return models.Tenant{}, err
	}
	return t, nil
}

// Delete removes a tenant record. Only used to roll back a failed
// provisioning; live tenants are deactivated instead.
func (s *Store) Delete(ctx context.Context, schoolID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"school_id": schoolID})
	return err
}
