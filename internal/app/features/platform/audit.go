package platform

import (
	"net/http"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

// ListAudit handles GET /platform/audit.
//
// Filters: schoolId, accountId, category (auth|admin), eventType, since and
// until (RFC 3339), plus limit/offset paging. Newest first.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	page := paging.Parse(r)
	f := audit.QueryFilter{
		SchoolID:  normalize.SchoolID(query.Get(r, "schoolId")),
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "query audit log")
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
