package enroll_test

import (
	"strings"
	"testing"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	registrystore "github.com/dalemusser/schoolhub/internal/app/store/registry"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/enroll"
	"github.com/dalemusser/schoolhub/internal/app/system/indexes"
	"github.com/dalemusser/schoolhub/internal/app/system/passwords"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"go.uber.org/zap"
)

func TestCreate_TenantAccount(t *testing.T) {
	client := testutil.SetupTestClient(t)
	platform := testutil.NewTestDatabase(t, client)
	school := testutil.NewTestDatabase(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureGlobal(ctx, platform); err != nil {
		t.Fatal(err)
	}
	if err := indexes.EnsureTenant(ctx, school); err != nil {
		t.Fatal(err)
	}

	e := enroll.New(platform, zap.NewNop())
	a, err := e.Create(ctx, enroll.Request{
		Role:     models.RoleTeacher,
		SchoolID: "SCHL00001",
		Email:    " T1@School.com ",
		Password: "correct-horse",
		Account:  models.Account{FirstName: "Tara", LastName: "Ng"},
		DB:       school,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.AccountID != "TCH00001" || a.Email != "t1@school.com" || a.Status != "active" {
		t.Errorf("account = %+v", a)
	}
	if !passwords.Check(a.PasswordHash, "correct-horse") {
		t.Error("password hash does not verify")
	}

	entry, err := registrystore.New(platform).FindActive(ctx, "t1@school.com")
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if entry.Role != models.RoleTeacher || entry.SchoolID != "SCHL00001" || entry.AccountID != "TCH00001" {
		t.Errorf("entry = %+v", entry)
	}

	// Same e-mail in any role or school is refused.
	_, err = e.Create(ctx, enroll.Request{
		Role: models.RoleSchoolAdmin, SchoolID: "SCHL00002", Email: "t1@school.com", Password: "another-pass",
	})
	if !apierr.Is(err, apierr.Conflict) {
		t.Errorf("duplicate e-mail err = %v, want Conflict", err)
	}

	if err := e.Deactivate(ctx, models.RoleTeacher, "SCHL00001", "TCH00001", school); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := registrystore.New(platform).FindActive(ctx, "t1@school.com"); err == nil {
		t.Error("registry entry should be inactive")
	}
	got, _ := accountstore.New(school, models.RoleTeacher).GetByAccountID(ctx, "TCH00001")
	if got.Status != "inactive" {
		t.Errorf("account status = %q", got.Status)
	}
}

func TestCreate_Validation(t *testing.T) {
	client := testutil.SetupTestClient(t)
	platform := testutil.NewTestDatabase(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := enroll.New(platform, zap.NewNop())
	tests := []struct {
		name string
		req  enroll.Request
	}{
		{"no email", enroll.Request{Role: models.RoleSuperAdmin, Password: "long-enough"}},
		{"bad role", enroll.Request{Role: "janitor", Email: "x@y.z", Password: "long-enough"}},
		{"short password", enroll.Request{Role: models.RoleSuperAdmin, Email: "x@y.z", Password: "short"}},
		{"password over 72 bytes", enroll.Request{Role: models.RoleSuperAdmin, Email: "x@y.z", Password: strings.Repeat("p", 73)}},
		{"admin without school", enroll.Request{Role: models.RoleSchoolAdmin, Email: "x@y.z", Password: "long-enough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Create(ctx, tt.req); !apierr.Is(err, apierr.InvalidArgument) {
				t.Errorf("err = %v, want InvalidArgument", err)
			}
		})
	}
}

func TestCreate_SchoolAdminLivesInPlatform(t *testing.T) {
	client := testutil.SetupTestClient(t)
	platform := testutil.NewTestDatabase(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureGlobal(ctx, platform); err != nil {
		t.Fatal(err)
	}

	e := enroll.New(platform, zap.NewNop())
	a, err := e.Create(ctx, enroll.Request{
		Role: models.RoleSchoolAdmin, SchoolID: "SCHL00001", Email: "head@school.com", Password: "long-enough",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.AccountID != "ADM00001" || a.SchoolID != "SCHL00001" {
		t.Errorf("account = %+v", a)
	}
	if _, err := accountstore.New(platform, models.RoleSchoolAdmin).FindByEmail(ctx, "head@school.com"); err != nil {
		t.Errorf("FindByEmail: %v", err)
	}
}

func TestDeactivate_Missing(t *testing.T) {
	client := testutil.SetupTestClient(t)
	platform := testutil.NewTestDatabase(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := enroll.New(platform, zap.NewNop())
	if err := e.Deactivate(ctx, models.RoleSchoolAdmin, "SCHL00001", "ADM09999", nil); !apierr.Is(err, apierr.NotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}
