package platform

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	counterstore "github.com/dalemusser/schoolhub/internal/app/store/counters"
	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/indexes"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/app/system/validators"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type provisionRequest struct {
	Name         string `json:"name" validate:"notblank,max=200"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email"`
	Address      string `json:"address" validate:"max=500"`
}

// ProvisionSchool handles POST /platform/schools. It allocates the next
// SCHL id, records the tenant and prepares the school database. A school
// whose database cannot be prepared is removed again.
func (h *Handler) ProvisionSchool(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "provision school")
	defer cancel()

	schoolID, err := counterstore.New(h.DB).NextID(ctx, counterstore.SeqSchool)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	dbName := h.DBPrefix + strings.ToLower(schoolID)

	t, err := h.Tenants.Create(ctx, models.Tenant{
		SchoolID:     schoolID,
		Name:         normalize.Name(req.Name),
		DatabaseName: dbName,
		ContactEmail: normalize.Email(req.ContactEmail),
		Address:      strings.TrimSpace(req.Address),
	})
	if errors.Is(err, tenantstore.ErrDuplicateSchool) {
		apierr.Write(w, r, h.Log, apierr.Wrap(apierr.Conflict, "A school with this id already exists.", err))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}

	if err := h.prepareDatabase(ctx, dbName); err != nil {
		if rbErr := h.Tenants.Delete(context.WithoutCancel(ctx), schoolID); rbErr != nil {
			h.Log.Error("failed to roll back tenant after provisioning failure",
				zap.String("school_id", schoolID), zap.Error(rbErr))
		}
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}

	h.Log.Info("school provisioned",
		zap.String("school_id", schoolID),
		zap.String("database", dbName))
	h.AuditLog.AdminAction(ctx, r, audit.EventTenantProvisioned, actorID(r), schoolID, "",
		map[string]string{"database": dbName, "name": t.Name})

	httpx.Created(w, t)
}

func (h *Handler) prepareDatabase(ctx context.Context, dbName string) error {
	db, err := h.Pool.Handle(dbName)
	if err != nil {
		return err
	}
	if err := validators.EnsureTenant(ctx, db); err != nil {
		return err
	}
	return indexes.EnsureTenant(ctx, db)
}

// ListSchools handles GET /platform/schools?status=&q=&limit=&offset=.
func (h *Handler) ListSchools(w http.ResponseWriter, r *http.Request) {
	st, err := statusParam(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	page := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list schools")
	defer cancel()

	rows, total, err := h.Tenants.List(ctx, tenantstore.ListFilter{
		Status: st,
		Search: normalize.QueryParam(query.Get(r, "q")),
		Limit:  page.Limit,
		Skip:   page.Skip,
	})
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	httpx.List(w, rows, total)
}

// GetSchool handles GET /platform/schools/{schoolId}.
func (h *Handler) GetSchool(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get school")
	defer cancel()

	t, err := h.school(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	httpx.OK(w, t)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// SetSchoolStatus handles PATCH /platform/schools/{schoolId}/status.
// Deactivating a school blocks new logins by its members; tokens already
// issued stay valid until they expire.
func (h *Handler) SetSchoolStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	schoolID := normalize.SchoolID(chi.URLParam(r, "schoolId"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set school status")
	defer cancel()

	t, err := h.Tenants.SetStatus(ctx, schoolID, req.Status)
	if errors.Is(err, tenantstore.ErrNotFound) {
		apierr.Write(w, r, h.Log, apierr.Wrap(apierr.TenantNotFound, "", err))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}

	h.AuditLog.AdminAction(ctx, r, audit.EventTenantStatusChanged, actorID(r), schoolID, "",
		map[string]string{"status": req.Status})
	httpx.OK(w, t)
}

// ClearCaches handles POST /platform/cache/clear.
func (h *Handler) ClearCaches(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.Caches {
		c.Clear()
	}
	h.Log.Info("tenant caches cleared", zap.String("actor", actorID(r)))
	h.AuditLog.AdminAction(r.Context(), r, audit.EventCachesCleared, actorID(r), "", "", nil)
	httpx.Done(w)
}

// school loads the tenant named in the path.
func (h *Handler) school(ctx context.Context, r *http.Request) (models.Tenant, error) {
	schoolID := normalize.SchoolID(chi.URLParam(r, "schoolId"))
	if schoolID == "" {
		return models.Tenant{}, apierr.New(apierr.InvalidArgument, "School id is required.")
	}
	t, err := h.Tenants.GetBySchoolID(ctx, schoolID)
	if errors.Is(err, tenantstore.ErrNotFound) {
		return models.Tenant{}, apierr.Wrap(apierr.TenantNotFound, "", err)
	}
	if err != nil {
		return models.Tenant{}, apierr.FromStore(err)
	}
	return t, nil
}

func statusParam(r *http.Request) (string, error) {
	raw := query.Get(r, "status")
	if raw == "" {
		return "", nil
	}
	st := normalize.Status(raw)
	if !status.IsValid(st) {
		return "", apierr.New(apierr.InvalidArgument, "status must be active or inactive.")
	}
	return st, nil
}

func actorID(r *http.Request) string {
	if c, ok := auth.CurrentClaims(r); ok {
		return c.AccountID
	}
	return ""
}
