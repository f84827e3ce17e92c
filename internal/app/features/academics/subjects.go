package academics

import (
	"net/http"

	subjectstore "github.com/dalemusser/schoolhub/internal/app/store/subjects"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type subjectRequest struct {
	Name   string `json:"name" validate:"omitempty,notblank,max=100"`
	Code   string `json:"code" validate:"max=20"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ListSubjects handles GET /subjects?status=.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	st := normalize.Status(query.Get(r, "status"))
	if st != "" && !status.IsValid(st) {
		apierr.Write(w, r, h.Log, apierr.New(apierr.InvalidArgument, "status must be active or inactive."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list subjects")
	defer cancel()

	rows, err := subjectstore.New(db).List(ctx, st)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.List(w, rows, int64(len(rows)))
}

// GetSubject handles GET /subjects/{id}.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get subject")
	defer cancel()

	sub, err := subjectstore.New(db).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, sub)
}

// CreateSubject handles POST /subjects.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req subjectRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if normalize.Name(req.Name) == "" {
		apierr.Write(w, r, h.Log, apierr.New(apierr.InvalidArgument, "name is required."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create subject")
	defer cancel()

	sub, err := subjectstore.New(db).Create(ctx, models.Subject{
		Name:   normalize.Name(req.Name),
		Code:   normalize.QueryParam(req.Code),
		Status: req.Status,
	})
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Created(w, sub)
}

// UpdateSubject handles PUT /subjects/{id}. Omitted fields are unchanged.
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
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
	var req subjectRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update subject")
	defer cancel()

	sub, err := subjectstore.New(db).Update(ctx, id, models.Subject{
		Name:   normalize.Name(req.Name),
		Code:   normalize.QueryParam(req.Code),
		Status: req.Status,
	})
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, sub)
}

// DeleteSubject handles DELETE /subjects/{id}.
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete subject")
	defer cancel()

	if err := subjectstore.New(db).Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Done(w)
}
