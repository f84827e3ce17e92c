// Package auditlog lets a school administrator read the audit trail of
// their own school: sign-ins to it and administrative changes inside it.
package auditlog

import (
	"net/http"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Audit *audit.Store
	Log   *zap.Logger
}

// NewHandler reads events from the audit collection in platformDB.
func NewHandler(platformDB *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Audit: audit.New(platformDB), Log: logger}
}

// List handles GET /school/{schoolId}/audit.
//
// The school is always taken from the route; accountId, category,
// eventType, since and until (RFC 3339) narrow further.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := tenant.FromRequest(r)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Internal, ""))
		return
	}
	page := paging.Parse(r)
	f := audit.QueryFilter{
		SchoolID:  sc.SchoolID,
		AccountID: normalize.QueryParam(query.Get(r, "accountId")),
		Category:  normalize.QueryParam(query.Get(r, "category")),
		EventType: normalize.QueryParam(query.Get(r, "eventType")),
		Limit:     page.Limit,
		Offset:    page.Skip,
	}
	var err error
	if f.StartTime, err = timeParam(r, "since"); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if f.EndTime, err = timeParam(r, "until"); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		apierr.Write(w, r, h.Log, apierr.New(apierr.InvalidArgument, "until must not be before since."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "school audit log")
	defer cancel()

	events, err := h.Audit.Query(ctx, f)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	total, err := h.Audit.Count(ctx, f)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	httpx.List(w, events, total)
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	raw := query.Get(r, name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apierr.New(apierr.InvalidArgument, name+" must be an RFC 3339 timestamp.")
	}
	return &t, nil
}
