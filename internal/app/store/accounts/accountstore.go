// Package accountstore persists login-capable accounts. One Store serves
// one role's collection: super_admins and school_admins in the platform
// database, teachers, students and parents in a school database.
package accountstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
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
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("an active account with this e-mail or id already exists")
)

var collections = map[string]string{
	models.RoleSuperAdmin:  "super_admins",
	models.RoleSchoolAdmin: "school_admins",
	models.RoleTeacher:     "teachers",
	models.RoleStudent:     "students",
	models.RoleParent:      "parents",
}

// CollectionFor returns the collection holding accounts of role.
func CollectionFor(role string) (string, bool) {
	c, ok := collections[role]
	return c, ok
}

type Store struct {
	c    *mongo.Collection
	role string
}

// New returns the store for role inside db. db must be the platform
// database for admin roles and a school database for tenant roles.
func New(db *mongo.Database, role string) *Store {
	return &Store{c: db.Collection(collections[role]), role: role}
}

// FindByEmail returns the account registered under an already-normalized
// e-mail. When deactivated copies exist, the active one wins.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}})
	return s.findOne(ctx, bson.M{"email": email}, opts)
}

func (s *Store) GetByAccountID(ctx context.Context, accountID string) (models.Account, error) {
	return s.findOne(ctx, bson.M{"account_id": accountID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (models.Account, error) {
	var a models.Account
	err := s.c.FindOne(ctx, filter, opts...).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return a, nil
}

// Create inserts a. AccountID, Email and PasswordHash must already be set.
func (s *Store) Create(ctx context.Context, a models.Account) (models.Account, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.Role = s.role
	a.FullNameCI = text.Fold(a.FullName())
	if a.Status == "" {
		a.Status = status.Active
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, ErrDuplicate
		}
		return models.Account{}, err
	}
	return a, nil
}

// Update holds the mutable fields of an account. Nil fields are untouched.
type Update struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	PasswordHash *string

	SubjectIDs *[]string
	ClassIDs   *[]string

	ClassID    *string
	SectionID  *string
	RollNumber *string
	ParentID   *string

	StudentIDs *[]string
}

// Update applies u and returns the updated account.
func (s *Store) Update(ctx context.Context, accountID string, u Update) (models.Account, error) {
	current, err := s.GetByAccountID(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	str := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	list := func(field string, v *[]string) {
		if v != nil {
			set[field] = *v
		}
	}
	str("first_name", u.FirstName)
	str("last_name", u.LastName)
	str("phone", u.Phone)
	str("password_hash", u.PasswordHash)
	list("subjects", u.SubjectIDs)
	list("classes", u.ClassIDs)
	str("class_id", u.ClassID)
	str("section_id", u.SectionID)
	str("roll_number", u.RollNumber)
	str("parent_id", u.ParentID)
	list("student_ids", u.StudentIDs)

	if u.FirstName != nil || u.LastName != nil {
		first, last := current.FirstName, current.LastName
		if u.FirstName != nil {
			first = *u.FirstName
		}
		if u.LastName != nil {
			last = *u.LastName
		}
		set["full_name_ci"] = text.Fold(models.Account{FirstName: first, LastName: last}.FullName())
	}

	var out models.Account
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return out, nil
}

// Deactivate marks the account inactive.
func (s *Store) Deactivate(ctx context.Context, accountID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$set": bson.M{"status": status.Inactive, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an account outright. Used only to undo a half-finished
// creation.
func (s *Store) Delete(ctx context.Context, accountID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"account_id": accountID})
	return err
}

// ListFilter narrows List. Zero fields are ignored.
type ListFilter struct {
	SchoolID  string
	Status    string
	Search    string // folded name prefix, or e-mail prefix when it contains "@"
	ClassID   string
	SectionID string
	Limit     int64
	Skip      int64
}

func (f ListFilter) bson() bson.M {
	q := bson.M{}
	if f.SchoolID != "" {
		q["school_id"] = f.SchoolID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.ClassID != "" {
		q["class_id"] = f.ClassID
	}
	if f.SectionID != "" {
		q["section_id"] = f.SectionID
	}
	if f.Search != "" {
		if strings.Contains(f.Search, "@") {
			q["email"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Search)}
		} else {
			q["full_name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(f.Search))}
		}
	}
	return q
}

// List returns accounts ordered by name together with the unpaged total.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Account, int64, error) {
	q := f.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "account_id", Value: 1}})
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
	out := []models.Account{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ExistingIDs returns the subset of ids that name accounts in this
// collection.
func (s *Store) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := map[string]bool{}
	if len(ids) == 0 {
		return found, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"account_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"account_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var a models.Account
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		found[a.AccountID] = true
	}
	return found, cur.Err()
}
