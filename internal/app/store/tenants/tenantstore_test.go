package tenantstore_test

import (
	"errors"
	"testing"

	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/indexes"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/schoolhub/internal/testutil"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := tenantstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Tenant{
		SchoolID:     "SCHL00001",
		Name:         "Greenfield High",
		DatabaseName: "school_schl00001",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != status.Active {
		t.Errorf("Status = %q, want active", created.Status)
	}
	if created.NameCI != "greenfield high" {
		t.Errorf("NameCI = %q", created.NameCI)
	}

	got, err := store.GetBySchoolID(ctx, "SCHL00001")
	if err != nil {
		t.Fatalf("GetBySchoolID: %v", err)
	}
	if got.DatabaseName != "school_schl00001" {
		t.Errorf("DatabaseName = %q", got.DatabaseName)
	}

	if _, err := store.GetBySchoolID(ctx, "SCHL99999"); !errors.Is(err, tenantstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_CreateDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureGlobal(ctx, db); err != nil {
		t.Fatalf("EnsureGlobal: %v", err)
	}
	store := tenantstore.New(db)

	if _, err := store.Create(ctx, models.Tenant{SchoolID: "SCHL00001", Name: "A", DatabaseName: "a"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := store.Create(ctx, models.Tenant{SchoolID: "SCHL00001", Name: "B", DatabaseName: "b"})
	if !errors.Is(err, tenantstore.ErrDuplicateSchool) {
		t.Errorf("expected ErrDuplicateSchool, got %v", err)
	}
}

func TestStore_SetStatusAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := tenantstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, tn := range []models.Tenant{
		{SchoolID: "SCHL00001", Name: "Alpha Academy", DatabaseName: "a"},
		{SchoolID: "SCHL00002", Name: "Beta School", DatabaseName: "b"},
	} {
		if _, err := store.Create(ctx, tn); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	updated, err := store.SetStatus(ctx, "SCHL00002", status.Inactive)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.IsActive() {
		t.Error("expected tenant to be inactive")
	}

	active, total, err := store.List(ctx, tenantstore.ListFilter{Status: status.Active})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(active) != 1 || active[0].SchoolID != "SCHL00001" {
		t.Errorf("active list = %+v (total %d)", active, total)
	}

	found, _, _ := store.List(ctx, tenantstore.ListFilter{Search: "bet"})
	if len(found) != 1 || found[0].SchoolID != "SCHL00002" {
		t.Errorf("search result = %+v", found)
	}

	names, err := store.DatabaseNames(ctx)
	if err != nil {
		t.Fatalf("DatabaseNames: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("DatabaseNames = %v", names)
	}

	if _, err := store.SetStatus(ctx, "SCHL00404", status.Active); !errors.Is(err, tenantstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
