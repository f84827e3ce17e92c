package roster

import (
	"context"
	"errors"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	classstore "github.com/dalemusser/schoolhub/internal/app/store/classes"
	subjectstore "github.com/dalemusser/schoolhub/internal/app/store/subjects"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// refs checks that identifiers on an account name real records in the
// school database.
type refs struct {
	db *mongo.Database
}

func (r refs) subjects(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ids = uniq(ids)
	names, err := subjectstore.New(r.db).NamesByIDs(ctx, ids)
	if err != nil {
		return apierr.FromStore(err)
	}
	if len(names) != len(ids) {
		return invalid("subjects", "subjects contains an unknown subject.")
	}
	return nil
}

func (r refs) classes(ctx context.Context, ids []string) error {
	store := classstore.New(r.db)
	for _, id := range ids {
		if _, err := store.GetByHex(ctx, id); err != nil {
			if errors.Is(err, classstore.ErrNotFound) {
				return invalid("classes", "classes contains an unknown class.")
			}
			return apierr.FromStore(err)
		}
	}
	return nil
}

// placement checks a student's class and section.
func (r refs) placement(ctx context.Context, classID, sectionID string) error {
	if classID == "" {
		if sectionID != "" {
			return invalid("sectionId", "sectionId requires classId.")
		}
		return nil
	}
	class, err := classstore.New(r.db).GetByHex(ctx, classID)
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

func (r refs) accounts(ctx context.Context, role, field string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := accountstore.New(r.db, role).ExistingIDs(ctx, ids)
	if err != nil {
		return apierr.FromStore(err)
	}
	for _, id := range ids {
		if !found[id] {
			return invalid(field, field+" contains an unknown "+role+" ("+id+").")
		}
	}
	return nil
}

func (r refs) parent(ctx context.Context, parentID string) error {
	if parentID == "" {
		return nil
	}
	return r.accounts(ctx, models.RoleParent, "parentId", []string{parentID})
}

func uniq(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
