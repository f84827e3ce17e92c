package platform

import (
	"net/http"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/enroll"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type adminRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"notblank,max=100"`
	LastName  string `json:"lastName" validate:"notblank,max=100"`
	Phone     string `json:"phone" validate:"max=40"`
}

// CreateAdmin handles POST /platform/schools/{schoolId}/admins.
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create school admin")
	defer cancel()

	t, err := h.school(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	a, err := h.Enroll.Create(ctx, enroll.Request{
		Role:     models.RoleSchoolAdmin,
		SchoolID: t.SchoolID,
		Email:    req.Email,
		Password: req.Password,
		Account: models.Account{
			FirstName: normalize.Name(req.FirstName),
			LastName:  normalize.Name(req.LastName),
			Phone:     normalize.QueryParam(req.Phone),
		},
	})
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("school admin created",
		zap.String("school_id", t.SchoolID),
		zap.String("account_id", a.AccountID))
	h.AuditLog.AdminAction(ctx, r, audit.EventSchoolAdminCreated, actorID(r), t.SchoolID, a.AccountID, nil)

	httpx.Created(w, a)
}

// ListAdmins handles GET /platform/schools/{schoolId}/admins.
func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	st, err := statusParam(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	page := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list school admins")
	defer cancel()

	t, err := h.school(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	rows, total, err := accountstore.New(h.DB, models.RoleSchoolAdmin).List(ctx, accountstore.ListFilter{
		SchoolID: t.SchoolID,
		Status:   st,
		Search:   normalize.QueryParam(query.Get(r, "q")),
		Limit:    page.Limit,
		Skip:     page.Skip,
	})
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	httpx.List(w, rows, total)
}
