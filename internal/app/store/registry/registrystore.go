// Package registrystore maintains the global e-mail registry: the single
// place that maps a login e-mail to the role and school holding the account.
package registrystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound       = errors.New("registry entry not found")
	ErrDuplicateEmail = errors.New("this e-mail is already registered to an active account")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("email_registry")}
}

// FindActive returns the active entry for an already-normalized e-mail.
func (s *Store) FindActive(ctx context.Context, email string) (models.RegistryEntry, error) {
	var e models.RegistryEntry
	err := s.c.FindOne(ctx, bson.M{"email": email, "status": status.Active}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RegistryEntry{}, ErrNotFound
	}
	if err != nil {
		return models.RegistryEntry{}, err
	}
	return e, nil
}

// Register inserts an active entry. The partial unique index on email
// turns a second active registration into ErrDuplicateEmail.
func (s *Store) Register(ctx context.Context, e models.RegistryEntry) (models.RegistryEntry, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.Status = status.Active
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		if wafflemongo.IsDup(err) {
			return models.RegistryEntry{}, ErrDuplicateEmail
		}
		return models.RegistryEntry{}, err
	}
	return e, nil
}

// EmailInUse reports whether an active entry exists for email.
func (s *Store) EmailInUse(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email": email, "status": status.Active})
	return n > 0, err
}

// Deactivate retires the active entry for an account so its e-mail can be
// reused and logins stop at the registry step. Account ids are only unique
// within a school, so schoolID is part of the key (empty for super admins).
func (s *Store) Deactivate(ctx context.Context, role, schoolID, accountID string) error {
	res, err := s.c.UpdateMany(ctx,
		ownerFilter(role, schoolID, accountID, bson.E{Key: "status", Value: status.Active}),
		bson.M{"$set": bson.M{"status": status.Inactive, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes the entries for an account. Used to undo a registration
// whose account insert failed.
func (s *Store) Remove(ctx context.Context, role, schoolID, accountID string) error {
	_, err := s.c.DeleteMany(ctx, ownerFilter(role, schoolID, accountID))
	return err
}

func ownerFilter(role, schoolID, accountID string, extra ...bson.E) bson.D {
	f := bson.D{{Key: "role", Value: role}, {Key: "account_id", Value: accountID}}
	if schoolID == "" {
		f = append(f, bson.E{Key: "school_id", Value: bson.M{"$exists": false}})
	} else {
		f = append(f, bson.E{Key: "school_id", Value: schoolID})
	}
	return append(f, extra...)
}
