package coursework

import (
	"net/http"
	"strings"
	"time"

	homeworkstore "github.com/dalemusser/schoolhub/internal/app/store/homework"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/learner"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type homeworkRequest struct {
	ClassID     string    `json:"classId" validate:"notblank"`
	SectionID   string    `json:"sectionId"`
	SubjectID   string    `json:"subjectId" validate:"notblank"`
	Title       string    `json:"title" validate:"notblank,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
}

type homeworkUpdate struct {
	SectionID   string    `json:"sectionId"`
	SubjectID   string    `json:"subjectId"`
	Title       string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	DueDate     time.Time `json:"dueDate"`
}

// ListHomework handles GET /homework. Staff filter with classId, sectionId,
// subjectId and mine=true; students see their own section, parents the
// section of the child named by studentId. upcoming=true drops homework
// that was due before today.
func (h *Handler) ListHomework(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)
	page := paging.Parse(r)
	f := homeworkstore.Filter{
		ClassID:   normalize.QueryParam(query.Get(r, "classId")),
		SectionID: normalize.QueryParam(query.Get(r, "sectionId")),
		SubjectID: normalize.QueryParam(query.Get(r, "subjectId")),
		Limit:     page.Limit,
		Skip:      page.Skip,
	}
	if query.Get(r, "mine") == "true" && c != nil {
		f.CreatedBy = c.AccountID
	}
	if query.Get(r, "upcoming") == "true" {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		f.DueAfter = &today
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list homework")
	defer cancel()

	p, narrowed, err := learner.Resolve(ctx, db, c, query.Get(r, "studentId"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if narrowed {
		if p.ClassID == "" {
			httpx.List(w, []models.Homework{}, 0)
			return
		}
		f.ClassID, f.SectionID, f.CreatedBy = p.ClassID, p.SectionID, ""
	}

	rows, total, err := homeworkstore.New(db).List(ctx, f)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.List(w, rows, total)
}

// GetHomework handles GET /homework/{id}. Homework outside the viewing
// student's section reads as not found.
func (h *Handler) GetHomework(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get homework")
	defer cancel()

	hw, err := homeworkstore.New(db).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	p, narrowed, err := learner.Resolve(ctx, db, c, query.Get(r, "studentId"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if narrowed && !p.Sees(hw.ClassID, hw.SectionID) {
		apierr.Write(w, r, h.Log, storeErr(homeworkstore.ErrNotFound))
		return
	}
	httpx.OK(w, hw)
}

// CreateHomework handles POST /homework. The description is sanitized.
func (h *Handler) CreateHomework(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req homeworkRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)
	hw := models.Homework{
		ClassID:     strings.TrimSpace(req.ClassID),
		SectionID:   strings.TrimSpace(req.SectionID),
		SubjectID:   strings.TrimSpace(req.SubjectID),
		Title:       strings.TrimSpace(req.Title),
		Description: htmlsanitize.Sanitize(req.Description),
		DueDate:     req.DueDate.UTC(),
	}
	if c != nil {
		hw.CreatedBy = c.AccountID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create homework")
	defer cancel()

	if err := checkPlacement(ctx, db, hw.ClassID, hw.SectionID); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := checkSubject(ctx, db, hw.SubjectID); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	out, err := homeworkstore.New(db).Create(ctx, hw)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Created(w, out)
}

// UpdateHomework handles PUT /homework/{id}. Omitted fields are unchanged.
func (h *Handler) UpdateHomework(w http.ResponseWriter, r *http.Request) {
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
	var req homeworkUpdate
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update homework")
	defer cancel()

	store := homeworkstore.New(db)
	cur, err := store.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if !canModify(c, cur.CreatedBy) {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Forbidden, "Only the teacher who set this homework may change it."))
		return
	}

	upd := models.Homework{
		SectionID:   strings.TrimSpace(req.SectionID),
		SubjectID:   strings.TrimSpace(req.SubjectID),
		Title:       strings.TrimSpace(req.Title),
		Description: htmlsanitize.Sanitize(req.Description),
	}
	if !req.DueDate.IsZero() {
		upd.DueDate = req.DueDate.UTC()
	}
	if upd.SectionID != "" {
		if err := checkPlacement(ctx, db, cur.ClassID, upd.SectionID); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}
	if upd.SubjectID != "" {
		if err := checkSubject(ctx, db, upd.SubjectID); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}
	out, err := store.Update(ctx, id, upd)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, out)
}

// DeleteHomework handles DELETE /homework/{id}.
func (h *Handler) DeleteHomework(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete homework")
	defer cancel()

	store := homeworkstore.New(db)
	cur, err := store.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if !canModify(c, cur.CreatedBy) {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Forbidden, "Only the teacher who set this homework may delete it."))
		return
	}
	if err := store.Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Done(w)
}
