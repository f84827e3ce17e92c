// Package learner works out which student a student or parent request is
// about, so homework and exam views can be narrowed to that student.
package learner

import (
	"context"
	"errors"
	"slices"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Placement is a student and the class section they sit in.
type Placement struct {
	StudentID string
	ClassID   string
	SectionID string
}

// Resolve returns the student c is looking through. Staff are not narrowed
// and get ok == false. A student is always themselves; a parent names a
// linked child with studentID, which may be omitted when there is only one.
// Class and section come from the stored record, not the token.
func Resolve(ctx context.Context, db *mongo.Database, c *auth.Claims, studentID string) (p Placement, ok bool, err error) {
	if c == nil {
		return Placement{}, false, apierr.New(apierr.Unauthorized, "")
	}
	if authz.IsStaff(c) {
		return Placement{}, false, nil
	}

	var id string
	switch c.Role {
	case models.RoleStudent:
		id = c.AccountID
	case models.RoleParent:
		children, err := Children(ctx, db, c)
		if err != nil {
			return Placement{}, false, err
		}
		id = normalize.AccountID(studentID)
		if id == "" {
			if len(children) != 1 {
				return Placement{}, false, apierr.New(apierr.InvalidArgument, "studentId is required.")
			}
			id = children[0]
		}
		if !slices.Contains(children, id) {
			return Placement{}, false, apierr.New(apierr.Forbidden, "")
		}
	default:
		return Placement{}, false, apierr.New(apierr.Forbidden, "")
	}

	s, err := accountstore.New(db, models.RoleStudent).GetByAccountID(ctx, id)
	if errors.Is(err, accountstore.ErrNotFound) {
		return Placement{}, false, apierr.Wrap(apierr.NotFound, "Student not found.", err)
	}
	if err != nil {
		return Placement{}, false, apierr.FromStore(err)
	}
	return Placement{StudentID: s.AccountID, ClassID: s.ClassID, SectionID: s.SectionID}, true, nil
}

// Children returns the students linked to parent c, read from the stored
// parent record so that unlinking takes effect before the token expires.
// A missing or inactive parent record has no children.
func Children(ctx context.Context, db *mongo.Database, c *auth.Claims) ([]string, error) {
	if c == nil || c.Role != models.RoleParent {
		return nil, nil
	}
	p, err := accountstore.New(db, models.RoleParent).GetByAccountID(ctx, c.AccountID)
	if errors.Is(err, accountstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.FromStore(err)
	}
	if p.Status != "" && p.Status != status.Active {
		return nil, nil
	}
	return p.StudentIDs, nil
}

// Linked reports whether parent c is currently linked to studentID.
func Linked(ctx context.Context, db *mongo.Database, c *auth.Claims, studentID string) (bool, error) {
	children, err := Children(ctx, db, c)
	if err != nil {
		return false, err
	}
	return slices.Contains(children, studentID), nil
}

// Sees reports whether p may see an item set for classID / sectionID. An
// item with no section is for the whole class.
func (p Placement) Sees(classID, sectionID string) bool {
	if p.ClassID == "" || p.ClassID != classID {
		return false
	}
	return sectionID == "" || sectionID == p.SectionID
}
