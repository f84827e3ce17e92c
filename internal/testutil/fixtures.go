package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test data directly, bypassing stores and validation.
// Platform is the global database (tenants, registry, admins).
type Fixtures struct {
	platform *mongo.Database
	t        *testing.T
}

// NewFixtures creates a new Fixtures instance for the given platform database.
func NewFixtures(t *testing.T, platform *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{platform: platform, t: t}
}

// DB returns the platform database.
func (f *Fixtures) DB() *mongo.Database {
	return f.platform
}

// CreateTenant inserts a directory record for a school.
func (f *Fixtures) CreateTenant(ctx context.Context, schoolID, name, databaseName, status string) models.Tenant {
	f.t.Helper()

	now := time.Now().UTC()
	t := models.Tenant{
		ID:           primitive.NewObjectID(),
		SchoolID:     schoolID,
		Name:         name,
		NameCI:       text.Fold(name),
		DatabaseName: databaseName,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.platform.Collection("tenants").InsertOne(ctx, t); err != nil {
		f.t.Fatalf("failed to create test tenant: %v", err)
	}
	return t
}

// AccountSpec describes a fixture account. Home is the database that holds
// the role's collection: the platform database for admins, a school
// database for tenant roles.
type AccountSpec struct {
	Home      *mongo.Database
	Role      string
	AccountID string
	SchoolID  string // registry scope; empty for super_admin
	Email     string
	Password  string
	Status    string
	Account   models.Account // optional profile / role fields
}

var collections = map[string]string{
	models.RoleSuperAdmin:  "super_admins",
	models.RoleSchoolAdmin: "school_admins",
	models.RoleTeacher:     "teachers",
	models.RoleStudent:     "students",
	models.RoleParent:      "parents",
}

// CreateAccount inserts an account and its active registry entry. The
// password is hashed at bcrypt.MinCost to keep tests fast.
func (f *Fixtures) CreateAccount(ctx context.Context, spec AccountSpec) models.Account {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}
	now := time.Now().UTC()
	a := spec.Account
	a.ID = primitive.NewObjectID()
	a.AccountID = spec.AccountID
	a.Role = spec.Role
	a.Email = spec.Email
	a.PasswordHash = string(hash)
	a.Status = spec.Status
	a.FullNameCI = text.Fold(a.FullName())
	if spec.Role == models.RoleSchoolAdmin {
		a.SchoolID = spec.SchoolID
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := spec.Home.Collection(collections[spec.Role]).InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test %s: %v", spec.Role, err)
	}

	entry := models.RegistryEntry{
		ID:        primitive.NewObjectID(),
		Email:     spec.Email,
		Role:      spec.Role,
		SchoolID:  spec.SchoolID,
		AccountID: spec.AccountID,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.platform.Collection("email_registry").InsertOne(ctx, entry); err != nil {
		f.t.Fatalf("failed to register test %s: %v", spec.Role, err)
	}
	return a
}

// CreateClass inserts a class with the given sections into a school database.
func (f *Fixtures) CreateClass(ctx context.Context, school *mongo.Database, name string, sections ...models.Section) models.Class {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Class{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Sections:  sections,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := school.Collection("classes").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test class: %v", err)
	}
	return c
}

// CreateSubject inserts a subject into a school database.
func (f *Fixtures) CreateSubject(ctx context.Context, school *mongo.Database, name string) models.Subject {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Subject{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := school.Collection("subjects").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test subject: %v", err)
	}
	return s
}
