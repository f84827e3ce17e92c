// Package timetable serves a school's weekly timetable and reports
// scheduling conflicts.
package timetable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	classstore "github.com/dalemusser/schoolhub/internal/app/store/classes"
	subjectstore "github.com/dalemusser/schoolhub/internal/app/store/subjects"
	timetablestore "github.com/dalemusser/schoolhub/internal/app/store/timetable"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
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

type entryRequest struct {
	ClassID   string `json:"classId" validate:"notblank"`
	SectionID string `json:"sectionId"`
	SubjectID string `json:"subjectId" validate:"notblank"`
	TeacherID string `json:"teacherId" validate:"notblank"`
	Day       string `json:"day" validate:"weekday"`
	Start     string `json:"start" validate:"hhmm"`
	End       string `json:"end" validate:"hhmm"`
	Room      string `json:"room" validate:"max=50"`
}

// List handles GET /timetable?day=&classId=&sectionId=&teacherId=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	f := timetablestore.Filter{
		Day:       strings.ToLower(normalize.QueryParam(query.Get(r, "day"))),
		ClassID:   normalize.QueryParam(query.Get(r, "classId")),
		SectionID: normalize.QueryParam(query.Get(r, "sectionId")),
		TeacherID: normalize.QueryParam(query.Get(r, "teacherId")),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list timetable")
	defer cancel()

	rows, err := timetablestore.New(db).List(ctx, f)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	httpx.List(w, rows, int64(len(rows)))
}

// Create handles POST /timetable. The entry must reference an existing
// class (and section), subject and teacher, and must not overlap another
// entry of the same teacher, class section or room.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req entryRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	e := models.TimetableEntry{
		ClassID:   normalize.QueryParam(req.ClassID),
		SectionID: normalize.QueryParam(req.SectionID),
		SubjectID: normalize.QueryParam(req.SubjectID),
		TeacherID: normalize.QueryParam(req.TeacherID),
		Day:       strings.ToLower(strings.TrimSpace(req.Day)),
		Start:     req.Start,
		End:       req.End,
		Room:      normalize.Name(req.Room),
	}
	if e.Start >= e.End {
		apierr.Write(w, r, h.Log, invalid("end", "end must be after start."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create timetable entry")
	defer cancel()

	if err := checkReferences(ctx, db, e); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	store := timetablestore.New(db)
	sameDay, err := store.List(ctx, timetablestore.Filter{Day: e.Day})
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	if conflicts := timetablestore.ConflictsWith(e, sameDay); len(conflicts) > 0 {
		apierr.Write(w, r, h.Log, conflictErr(conflicts))
		return
	}

	created, err := store.Create(ctx, e)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	httpx.Created(w, created)
}

// Delete handles DELETE /timetable/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete timetable entry")
	defer cancel()

	if err := timetablestore.New(db).Delete(ctx, id); err != nil {
		if errors.Is(err, timetablestore.ErrNotFound) {
			apierr.Write(w, r, h.Log, apierr.Wrap(apierr.NotFound, "Timetable entry not found.", err))
			return
		}
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	httpx.Done(w)
}

// Conflicts handles GET /timetable/conflicts: every clashing pair in the
// current timetable.
func (h *Handler) Conflicts(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "timetable conflicts")
	defer cancel()

	all, err := timetablestore.New(db).List(ctx, timetablestore.Filter{})
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	conflicts := timetablestore.FindConflicts(all)
	httpx.List(w, conflicts, int64(len(conflicts)))
}

func checkReferences(ctx context.Context, db *mongo.Database, e models.TimetableEntry) error {
	class, err := classstore.New(db).GetByHex(ctx, e.ClassID)
	if errors.Is(err, classstore.ErrNotFound) {
		return invalid("classId", "classId does not name a class.")
	}
	if err != nil {
		return apierr.FromStore(err)
	}
	if e.SectionID != "" {
		if _, ok := class.SectionName(e.SectionID); !ok {
			return invalid("sectionId", "sectionId is not a section of this class.")
		}
	}

	subjectID, err := primitive.ObjectIDFromHex(e.SubjectID)
	if err != nil {
		return invalid("subjectId", "subjectId does not name a subject.")
	}
	if _, err := subjectstore.New(db).GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, subjectstore.ErrNotFound) {
			return invalid("subjectId", "subjectId does not name a subject.")
		}
		return apierr.FromStore(err)
	}

	found, err := accountstore.New(db, models.RoleTeacher).ExistingIDs(ctx, []string{e.TeacherID})
	if err != nil {
		return apierr.FromStore(err)
	}
	if !found[e.TeacherID] {
		return invalid("teacherId", "teacherId does not name a teacher.")
	}
	return nil
}

// conflictErr summarizes the clash reasons, e.g. "teacher, room".
func conflictErr(conflicts []timetablestore.Conflict) error {
	seen := map[string]bool{}
	var reasons []string
	for _, c := range conflicts {
		if !seen[c.Reason] {
			seen[c.Reason] = true
			reasons = append(reasons, c.Reason)
		}
	}
	sort.Strings(reasons)
	joined := strings.Join(reasons, ", ")
	e := apierr.New(apierr.Conflict, fmt.Sprintf("This period overlaps an existing entry (%s).", joined))
	e.Fields = map[string]string{"conflicts": joined}
	return e
}

func invalid(field, msg string) error {
	e := apierr.New(apierr.InvalidArgument, msg)
	e.Fields = map[string]string{field: msg}
	return e
}
