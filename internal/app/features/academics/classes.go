package academics

import (
	"net/http"

	classstore "github.com/dalemusser/schoolhub/internal/app/store/classes"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type sectionRequest struct {
	ID   string `json:"id" validate:"max=64"`
	Name string `json:"name" validate:"notblank,max=50"`
}

type classRequest struct {
	Name     string            `json:"name" validate:"omitempty,notblank,max=100"`
	Status   string            `json:"status" validate:"omitempty,oneof=active inactive"`
	Sections *[]sectionRequest `json:"sections" validate:"omitempty,dive"`
}

// sections converts the request list; nil means "leave unchanged".
func (req classRequest) sections() []models.Section {
	if req.Sections == nil {
		return nil
	}
	out := make([]models.Section, 0, len(*req.Sections))
	for _, s := range *req.Sections {
		out = append(out, models.Section{ID: normalize.QueryParam(s.ID), Name: normalize.Name(s.Name)})
	}
	return out
}

// ListClasses handles GET /classes?status=.
func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list classes")
	defer cancel()

	rows, err := classstore.New(db).List(ctx, st)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.List(w, rows, int64(len(rows)))
}

// GetClass handles GET /classes/{id}.
func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get class")
	defer cancel()

	c, err := classstore.New(db).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, c)
}

// CreateClass handles POST /classes. Sections without an id get one.
func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req classRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if normalize.Name(req.Name) == "" {
		apierr.Write(w, r, h.Log, apierr.New(apierr.InvalidArgument, "name is required."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create class")
	defer cancel()

	c, err := classstore.New(db).Create(ctx, models.Class{
		Name:     normalize.Name(req.Name),
		Status:   req.Status,
		Sections: req.sections(),
	})
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Created(w, c)
}

// UpdateClass handles PUT /classes/{id}. A sections array replaces the
// existing list; existing section ids should be sent back to keep them.
func (h *Handler) UpdateClass(w http.ResponseWriter, r *http.Request) {
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
	var req classRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update class")
	defer cancel()

	c, err := classstore.New(db).Update(ctx, id, models.Class{
		Name:     normalize.Name(req.Name),
		Status:   req.Status,
		Sections: req.sections(),
	})
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, c)
}

// DeleteClass handles DELETE /classes/{id}.
func (h *Handler) DeleteClass(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete class")
	defer cancel()

	if err := classstore.New(db).Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Done(w)
}
