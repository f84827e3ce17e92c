package registrystore_test

import (
	"errors"
	"testing"

	registrystore "github.com/dalemusser/schoolhub/internal/app/store/registry"
	"github.com/dalemusser/schoolhub/internal/app/system/indexes"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/schoolhub/internal/testutil"
)

func TestStore_RegisterAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureGlobal(ctx, db); err != nil {
		t.Fatalf("EnsureGlobal: %v", err)
	}
	store := registrystore.New(db)

	_, err := store.Register(ctx, models.RegistryEntry{
		Email:     "teacher@school.com",
		Role:      models.RoleTeacher,
		SchoolID:  "SCHL00001",
		AccountID: "TCH00001",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	e, err := store.FindActive(ctx, "teacher@school.com")
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if e.Role != models.RoleTeacher || e.SchoolID != "SCHL00001" {
		t.Errorf("entry = %+v", e)
	}

	_, err = store.Register(ctx, models.RegistryEntry{Email: "teacher@school.com", Role: models.RoleParent, SchoolID: "SCHL00002", AccountID: "PAR00001"})
	if !errors.Is(err, registrystore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_DeactivateFreesEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureGlobal(ctx, db); err != nil {
		t.Fatalf("EnsureGlobal: %v", err)
	}
	store := registrystore.New(db)

	_, _ = store.Register(ctx, models.RegistryEntry{Email: "s@school.com", Role: models.RoleStudent, SchoolID: "SCHL00001", AccountID: "STU00001"})
	if err := store.Deactivate(ctx, models.RoleStudent, "SCHL00002", "STU00001"); !errors.Is(err, registrystore.ErrNotFound) {
		t.Errorf("another school's STU00001: expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindActive(ctx, "s@school.com"); err != nil {
		t.Fatalf("entry should still be active: %v", err)
	}
	if err := store.Deactivate(ctx, models.RoleStudent, "SCHL00001", "STU00001"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := store.FindActive(ctx, "s@school.com"); !errors.Is(err, registrystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after deactivation, got %v", err)
	}
	inUse, _ := store.EmailInUse(ctx, "s@school.com")
	if inUse {
		t.Error("deactivated e-mail should be free")
	}
	if _, err := store.Register(ctx, models.RegistryEntry{Email: "s@school.com", Role: models.RoleStudent, SchoolID: "SCHL00001", AccountID: "STU00002"}); err != nil {
		t.Errorf("re-registering a freed e-mail failed: %v", err)
	}
	if err := store.Deactivate(ctx, models.RoleStudent, "SCHL00001", "STU09999"); !errors.Is(err, registrystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
