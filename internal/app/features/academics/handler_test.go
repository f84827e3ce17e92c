package academics_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/features/academics"
	"github.com/dalemusser/schoolhub/internal/app/system/indexes"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const school = "SCHL00001"

func setup(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureTenant(ctx, db); err != nil {
		t.Fatalf("EnsureTenant: %v", err)
	}
	return db
}

func TestSubjects_CRUD(t *testing.T) {
	db := setup(t)
	routes := academics.SubjectRoutes(academics.NewHandler(zap.NewNop()))
	admin := testutil.SchoolAdmin(school)

	rec := testutil.ServeScoped(t, routes, admin, school, db, http.MethodPost, "/", map[string]string{"name": "Mathematics", "code": "MATH"})
	rec.AssertStatus(t, http.StatusCreated)
	var math models.Subject
	rec.DecodeData(t, &math)
	if math.Name != "Mathematics" || math.Status != "active" {
		t.Fatalf("subject = %+v", math)
	}

	// Names are unique case-insensitively.
	testutil.ServeScoped(t, routes, admin, school, db, http.MethodPost, "/", map[string]string{"name": "MATHEMATICS"}).
		AssertStatus(t, http.StatusConflict)

	rec = testutil.ServeScoped(t, routes, admin, school, db, http.MethodPut, "/"+math.ID.Hex(), map[string]string{"status": "inactive"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"Mathematics"`)
	rec.AssertContains(t, `"status":"inactive"`)

	rec = testutil.ServeScoped(t, routes, testutil.Student(school), school, db, http.MethodGet, "/?status=inactive", nil)
	rec.AssertStatus(t, http.StatusOK)
	var rows []models.Subject
	rec.DecodeData(t, &rows)
	if len(rows) != 1 {
		t.Errorf("inactive subjects = %d, want 1", len(rows))
	}

	testutil.ServeScoped(t, routes, admin, school, db, http.MethodDelete, "/"+math.ID.Hex(), nil).AssertStatus(t, http.StatusOK)
	testutil.ServeScoped(t, routes, admin, school, db, http.MethodGet, "/"+math.ID.Hex(), nil).AssertStatus(t, http.StatusNotFound)
	testutil.ServeScoped(t, routes, admin, school, db, http.MethodGet, "/not-an-id", nil).AssertStatus(t, http.StatusBadRequest)
}

func TestSubjects_WritesNeedSchoolAdmin(t *testing.T) {
	db := setup(t)
	routes := academics.SubjectRoutes(academics.NewHandler(zap.NewNop()))

	body := map[string]string{"name": "Art"}
	testutil.ServeScoped(t, routes, testutil.Teacher(school), school, db, http.MethodPost, "/", body).AssertStatus(t, http.StatusForbidden)
	testutil.ServeScoped(t, routes, testutil.Parent(school), school, db, http.MethodPost, "/", body).AssertStatus(t, http.StatusForbidden)
	testutil.ServeScoped(t, routes, nil, school, db, http.MethodPost, "/", body).AssertStatus(t, http.StatusUnauthorized)
	testutil.ServeScoped(t, routes, testutil.SuperAdmin(), school, db, http.MethodPost, "/", body).AssertStatus(t, http.StatusCreated)
	testutil.ServeScoped(t, routes, testutil.SchoolAdmin(school), school, db, http.MethodPost, "/", map[string]string{"name": " "}).
		AssertStatus(t, http.StatusBadRequest)
}

func TestClasses_Sections(t *testing.T) {
	db := setup(t)
	routes := academics.ClassRoutes(academics.NewHandler(zap.NewNop()))
	admin := testutil.SchoolAdmin(school)

	rec := testutil.ServeScoped(t, routes, admin, school, db, http.MethodPost, "/", map[string]any{
		"name":     "Grade 5",
		"sections": []map[string]string{{"name": "A"}, {"name": "B"}},
	})
	rec.AssertStatus(t, http.StatusCreated)
	var class models.Class
	rec.DecodeData(t, &class)
	if len(class.Sections) != 2 || class.Sections[0].ID == "" || class.Sections[0].ID == class.Sections[1].ID {
		t.Fatalf("sections = %+v", class.Sections)
	}
	keep := class.Sections[0]

	// Renaming without a sections array keeps them.
	rec = testutil.ServeScoped(t, routes, admin, school, db, http.MethodPut, "/"+class.ID.Hex(), map[string]any{"name": "Grade Five"})
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeData(t, &class)
	if class.Name != "Grade Five" || len(class.Sections) != 2 {
		t.Errorf("after rename: %+v", class)
	}

	// Replacing the list keeps ids that are sent back.
	rec = testutil.ServeScoped(t, routes, admin, school, db, http.MethodPut, "/"+class.ID.Hex(), map[string]any{
		"sections": []map[string]string{{"id": keep.ID, "name": keep.Name}, {"name": "C"}},
	})
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeData(t, &class)
	if len(class.Sections) != 2 || class.Sections[0].ID != keep.ID || class.Sections[1].Name != "C" {
		t.Errorf("after replace: %+v", class.Sections)
	}

	testutil.ServeScoped(t, routes, admin, school, db, http.MethodPost, "/", map[string]any{
		"name":     "Grade 6",
		"sections": []map[string]string{{"name": ""}},
	}).AssertStatus(t, http.StatusBadRequest)

	rec = testutil.ServeScoped(t, routes, testutil.Teacher(school), school, db, http.MethodGet, "/", nil)
	rec.AssertStatus(t, http.StatusOK)
	var rows []models.Class
	rec.DecodeData(t, &rows)
	if len(rows) != 1 {
		t.Errorf("classes = %d, want 1", len(rows))
	}
}
