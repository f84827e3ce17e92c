package coursework

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	examstore "github.com/dalemusser/schoolhub/internal/app/store/exams"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/learner"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type examRequest struct {
	Name      string    `json:"name" validate:"notblank,max=200"`
	ClassID   string    `json:"classId" validate:"notblank"`
	SubjectID string    `json:"subjectId" validate:"notblank"`
	Date      time.Time `json:"date" validate:"required"`
	MaxMarks  float64   `json:"maxMarks" validate:"gt=0"`
}

type examUpdate struct {
	Name     string    `json:"name" validate:"omitempty,notblank,max=200"`
	Date     time.Time `json:"date"`
	MaxMarks float64   `json:"maxMarks" validate:"gte=0"`
}

type resultRequest struct {
	StudentID string  `json:"studentId" validate:"notblank"`
	Marks     float64 `json:"marks" validate:"gte=0"`
	Remarks   string  `json:"remarks" validate:"max=500"`
}

type resultsRequest struct {
	Results []resultRequest `json:"results" validate:"dive"`
}

// ListExams handles GET /exams?classId=&subjectId=. Students and parents
// see their class's exams with only their own (or their child's) results.
func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)
	classID := normalize.QueryParam(query.Get(r, "classId"))
	subjectID := normalize.QueryParam(query.Get(r, "subjectId"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list exams")
	defer cancel()

	p, narrowed, err := learner.Resolve(ctx, db, c, query.Get(r, "studentId"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if narrowed {
		if p.ClassID == "" {
			httpx.List(w, []models.Exam{}, 0)
			return
		}
		classID = p.ClassID
	}

	rows, err := examstore.New(db).List(ctx, classID, subjectID)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if narrowed {
		for i := range rows {
			rows[i].Results = examstore.ResultsFor(rows[i], p.StudentID)
		}
	}
	httpx.List(w, rows, int64(len(rows)))
}

// GetExam handles GET /exams/{id}.
func (h *Handler) GetExam(w http.ResponseWriter, r *http.Request) {
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
	c, _ := auth.CurrentClaims(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get exam")
	defer cancel()

	e, err := examstore.New(db).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	p, narrowed, err := learner.Resolve(ctx, db, c, query.Get(r, "studentId"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if narrowed {
		if !p.Sees(e.ClassID, "") {
			apierr.Write(w, r, h.Log, storeErr(examstore.ErrNotFound))
			return
		}
		e.Results = examstore.ResultsFor(e, p.StudentID)
	}
	httpx.OK(w, e)
}

// CreateExam handles POST /exams.
func (h *Handler) CreateExam(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req examRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)
	e := models.Exam{
		Name:      strings.TrimSpace(req.Name),
		ClassID:   strings.TrimSpace(req.ClassID),
		SubjectID: strings.TrimSpace(req.SubjectID),
		Date:      req.Date.UTC(),
		MaxMarks:  req.MaxMarks,
	}
	if c != nil {
		e.CreatedBy = c.AccountID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create exam")
	defer cancel()

	if err := checkPlacement(ctx, db, e.ClassID, ""); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := checkSubject(ctx, db, e.SubjectID); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	out, err := examstore.New(db).Create(ctx, e)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Created(w, out)
}

// UpdateExam handles PUT /exams/{id}. maxMarks may not drop below a mark
// already recorded.
func (h *Handler) UpdateExam(w http.ResponseWriter, r *http.Request) {
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
	var req examUpdate
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update exam")
	defer cancel()

	store := examstore.New(db)
	cur, err := store.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if !canModify(c, cur.CreatedBy) {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Forbidden, "Only the teacher who created this exam may change it."))
		return
	}
	if req.MaxMarks > 0 {
		for _, res := range cur.Results {
			if res.Marks > req.MaxMarks {
				apierr.Write(w, r, h.Log, invalid("maxMarks", "maxMarks is below a recorded mark."))
				return
			}
		}
	}

	upd := models.Exam{Name: strings.TrimSpace(req.Name), MaxMarks: req.MaxMarks}
	if !req.Date.IsZero() {
		upd.Date = req.Date.UTC()
	}
	out, err := store.Update(ctx, id, upd)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, out)
}

// SetResults handles PUT /exams/{id}/results, replacing every recorded
// mark. Each student must belong to the exam's class and appear once;
// marks run from 0 to the exam's maxMarks.
func (h *Handler) SetResults(w http.ResponseWriter, r *http.Request) {
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
	var req resultsRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "set exam results")
	defer cancel()

	store := examstore.New(db)
	e, err := store.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if !canModify(c, e.CreatedBy) {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Forbidden, "Only the teacher who created this exam may record results."))
		return
	}

	students, _, err := accountstore.New(db, models.RoleStudent).List(ctx, accountstore.ListFilter{ClassID: e.ClassID})
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	inClass := make(map[string]bool, len(students))
	for _, s := range students {
		inClass[s.AccountID] = true
	}

	results := make([]models.ExamResult, 0, len(req.Results))
	seen := make(map[string]bool, len(req.Results))
	for _, res := range req.Results {
		sid := normalize.AccountID(res.StudentID)
		switch {
		case seen[sid]:
			apierr.Write(w, r, h.Log, invalid("results", fmt.Sprintf("%s appears more than once.", sid)))
			return
		case !inClass[sid]:
			apierr.Write(w, r, h.Log, invalid("results", fmt.Sprintf("%s is not a student of this class.", sid)))
			return
		case res.Marks > e.MaxMarks:
			apierr.Write(w, r, h.Log, invalid("results", fmt.Sprintf("Marks for %s exceed %g.", sid, e.MaxMarks)))
			return
		}
		seen[sid] = true
		results = append(results, models.ExamResult{
			StudentID: sid,
			Marks:     res.Marks,
			Remarks:   strings.TrimSpace(res.Remarks),
		})
	}

	out, err := store.SetResults(ctx, id, results)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, out)
}

// DeleteExam handles DELETE /exams/{id}.
func (h *Handler) DeleteExam(w http.ResponseWriter, r *http.Request) {
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
	c, _ := auth.CurrentClaims(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete exam")
	defer cancel()

	store := examstore.New(db)
	e, err := store.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if !canModify(c, e.CreatedBy) {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Forbidden, "Only the teacher who created this exam may delete it."))
		return
	}
	if err := store.Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Done(w)
}
