// Package enroll creates and retires login accounts. An account lives in
// two places, its role's collection and the e-mail registry, and this
// package keeps the pair consistent: registration happens first so the
// registry's unique index arbitrates races, and a failed account insert
// removes the registration again.
package enroll

import (
	"context"
	"errors"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	counterstore "github.com/dalemusser/schoolhub/internal/app/store/counters"
	registrystore "github.com/dalemusser/schoolhub/internal/app/store/registry"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/passwords"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Enroller is safe for concurrent use.
type Enroller struct {
	platform *mongo.Database
	registry *registrystore.Store
	log      *zap.Logger
}

// New returns an Enroller whose registry and admin collections live in
// the platform database.
func New(platform *mongo.Database, log *zap.Logger) *Enroller {
	return &Enroller{platform: platform, registry: registrystore.New(platform), log: log}
}

// Request describes a new account. Account carries the profile and the
// role-specific fields; its AccountID, Email and PasswordHash are filled in.
type Request struct {
	Role     string
	SchoolID string
	Email    string
	Password string
	Account  models.Account

	// DB is the school database for tenant roles. Ignored for admins.
	DB *mongo.Database
}

// home returns the database that holds role's accounts and counters.
func (e *Enroller) home(role string, tenantDB *mongo.Database) (*mongo.Database, error) {
	if models.IsTenantRole(role) {
		if tenantDB == nil {
			return nil, apierr.New(apierr.Internal, "")
		}
		return tenantDB, nil
	}
	return e.platform, nil
}

// Create provisions the account and its registry entry.
func (e *Enroller) Create(ctx context.Context, req Request) (models.Account, error) {
	email := normalize.Email(req.Email)
	if email == "" {
		return models.Account{}, invalid("email", "Email is required.")
	}
	if !models.IsValidRole(req.Role) {
		return models.Account{}, invalid("role", "Unknown role.")
	}
	if req.Role != models.RoleSuperAdmin && req.SchoolID == "" {
		return models.Account{}, invalid("schoolId", "School id is required.")
	}
	hash, err := passwords.Hash(req.Password)
	if errors.Is(err, passwords.ErrTooShort) {
		return models.Account{}, invalid("password", "Password must be at least 8 characters.")
	}
	if errors.Is(err, passwords.ErrTooLong) {
		return models.Account{}, invalid("password", "Password must be at most 72 bytes.")
	}
	if err != nil {
		return models.Account{}, apierr.Wrap(apierr.Internal, "", err)
	}

	db, err := e.home(req.Role, req.DB)
	if err != nil {
		return models.Account{}, err
	}
	seq, _ := counterstore.SeqForRole(req.Role)
	accountID, err := counterstore.New(db).NextID(ctx, seq)
	if err != nil {
		return models.Account{}, apierr.FromStore(err)
	}

	schoolID := req.SchoolID
	if req.Role == models.RoleSuperAdmin {
		schoolID = ""
	}
	if _, err := e.registry.Register(ctx, models.RegistryEntry{
		Email:     email,
		Role:      req.Role,
		SchoolID:  schoolID,
		AccountID: accountID,
	}); err != nil {
		if errors.Is(err, registrystore.ErrDuplicateEmail) {
			return models.Account{}, apierr.Wrap(apierr.Conflict, "This email is already in use.", err)
		}
		return models.Account{}, apierr.FromStore(err)
	}

	a := req.Account
	a.AccountID = accountID
	a.Email = email
	a.PasswordHash = hash
	if req.Role == models.RoleSchoolAdmin {
		a.SchoolID = schoolID
	} else {
		a.SchoolID = ""
	}

	created, err := accountstore.New(db, req.Role).Create(ctx, a)
	if err != nil {
		if rmErr := e.registry.Remove(context.WithoutCancel(ctx), req.Role, schoolID, accountID); rmErr != nil {
			e.log.Error("failed to undo registry entry after account insert failure",
				zap.String("account_id", accountID),
				zap.String("school_id", schoolID),
				zap.Error(rmErr))
		}
		if errors.Is(err, accountstore.ErrDuplicate) {
			return models.Account{}, apierr.Wrap(apierr.Conflict, "This email is already in use.", err)
		}
		return models.Account{}, apierr.FromStore(err)
	}
	return created, nil
}

// Deactivate soft-deletes an account and frees its e-mail.
func (e *Enroller) Deactivate(ctx context.Context, role, schoolID, accountID string, tenantDB *mongo.Database) error {
	db, err := e.home(role, tenantDB)
	if err != nil {
		return err
	}
	if err := accountstore.New(db, role).Deactivate(ctx, accountID); err != nil {
		if errors.Is(err, accountstore.ErrNotFound) {
			return apierr.Wrap(apierr.NotFound, "Account not found.", err)
		}
		return apierr.FromStore(err)
	}
	if role == models.RoleSuperAdmin {
		schoolID = ""
	}
	err = e.registry.Deactivate(ctx, role, schoolID, accountID)
	if err != nil && !errors.Is(err, registrystore.ErrNotFound) {
		return apierr.FromStore(err)
	}
	return nil
}

func invalid(field, msg string) error {
	err := apierr.New(apierr.InvalidArgument, msg)
	err.Fields = map[string]string{field: msg}
	return err
}
