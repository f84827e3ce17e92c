// Package coursework serves a school's homework and exams. Staff set and
// mark them; students and parents see only what applies to one student.
package coursework

import (
	"context"
	"errors"

	classstore "github.com/dalemusser/schoolhub/internal/app/store/classes"
	examstore "github.com/dalemusser/schoolhub/internal/app/store/exams"
	homeworkstore "github.com/dalemusser/schoolhub/internal/app/store/homework"
	subjectstore "github.com/dalemusser/schoolhub/internal/app/store/subjects"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, homeworkstore.ErrNotFound):
		return apierr.Wrap(apierr.NotFound, "Homework not found.", err)
	case errors.Is(err, examstore.ErrNotFound):
		return apierr.Wrap(apierr.NotFound, "Exam not found.", err)
	}
	return apierr.FromStore(err)
}

func invalid(field, msg string) error {
	e := apierr.New(apierr.InvalidArgument, msg)
	e.Fields = map[string]string{field: msg}
	return e
}

// canModify reports whether c may change an item created by createdBy.
// Teachers may only change their own; admins may change anything.
func canModify(c *auth.Claims, createdBy string) bool {
	if c == nil {
		return false
	}
	if c.Role == models.RoleTeacher {
		return c.AccountID == createdBy
	}
	return c.Role == models.RoleSchoolAdmin || c.Role == models.RoleSuperAdmin
}

// checkPlacement verifies that classID names a class and, when given,
// that sectionID is one of its sections.
func checkPlacement(ctx context.Context, db *mongo.Database, classID, sectionID string) error {
	class, err := classstore.New(db).GetByHex(ctx, classID)
	if errors.Is(err, classstore.ErrNotFound) {
		return invalid("classId", "classId does not name a class.")
	}
	if err != nil {
		return apierr.FromStore(err)
	}
	if sectionID != "" {
		if _, ok := class.SectionName(sectionID); !ok {
			return invalid("sectionId", "sectionId is not a section of this class.")
		}
	}
	return nil
}

func checkSubject(ctx context.Context, db *mongo.Database, subjectID string) error {
	id, err := primitive.ObjectIDFromHex(subjectID)
	if err != nil {
		return invalid("subjectId", "subjectId does not name a subject.")
	}
	if _, err := subjectstore.New(db).GetByID(ctx, id); err != nil {
		if errors.Is(err, subjectstore.ErrNotFound) {
			return invalid("subjectId", "subjectId does not name a subject.")
		}
		return apierr.FromStore(err)
	}
	return nil
}
