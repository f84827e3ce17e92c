package examstore_test

import (
	"errors"
	"testing"
	"time"

	examstore "github.com/dalemusser/schoolhub/internal/app/store/exams"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResultsFor(t *testing.T) {
	e := models.Exam{Results: []models.ExamResult{
		{StudentID: "STU00001", Marks: 80},
		{StudentID: "STU00002", Marks: 65},
		{StudentID: "STU00003", Marks: 90},
	}}
	got := examstore.ResultsFor(e, "STU00003", "STU00001")
	if len(got) != 2 || got[0].StudentID != "STU00001" || got[1].StudentID != "STU00003" {
		t.Errorf("ResultsFor = %+v", got)
	}
	if got := examstore.ResultsFor(e); len(got) != 0 {
		t.Errorf("expected no results, got %+v", got)
	}
}

func TestStore_SetResults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := examstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	exam, err := store.Create(ctx, models.Exam{Name: "Midterm", ClassID: "c1", SubjectID: "s1", Date: time.Now().UTC(), MaxMarks: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := store.SetResults(ctx, exam.ID, []models.ExamResult{{StudentID: "STU00001", Marks: 72, Remarks: "Good"}})
	if err != nil {
		t.Fatalf("SetResults: %v", err)
	}
	if len(updated.Results) != 1 || updated.Results[0].Marks != 72 {
		t.Errorf("results = %+v", updated.Results)
	}
	if _, err := store.SetResults(ctx, primitive.NewObjectID(), nil); !errors.Is(err, examstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
