// Package announcements serves school-wide posts. School admins write them;
// everyone else reads the published posts addressed to their role.
package announcements

import (
	"errors"
	"net/http"
	"strings"
	"time"

	announcementstore "github.com/dalemusser/schoolhub/internal/app/store/announcements"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

type createRequest struct {
	Title         string    `json:"title" validate:"notblank,max=200"`
	Body          string    `json:"body" validate:"notblank,max=50000"`
	AudienceRoles []string  `json:"audienceRoles" validate:"dive,role"`
	PublishedAt   time.Time `json:"publishedAt"`
}

type updateRequest struct {
	Title         string    `json:"title" validate:"omitempty,notblank,max=200"`
	Body          string    `json:"body" validate:"max=50000"`
	AudienceRoles *[]string `json:"audienceRoles" validate:"omitempty,dive,role"`
	PublishedAt   time.Time `json:"publishedAt"`
}

func storeErr(err error) error {
	if errors.Is(err, announcementstore.ErrNotFound) {
		return apierr.Wrap(apierr.NotFound, "Announcement not found.", err)
	}
	return apierr.FromStore(err)
}

// audience is the role filter for c; admins see every post, scheduled
// ones included.
func audience(c *auth.Claims) string {
	if c == nil || auth.Authorize(c, authz.SchoolAdmins...) == nil {
		return ""
	}
	return c.Role
}

// visible reports whether a reader in role sees a at now.
func visible(a models.Announcement, role string, now time.Time) bool {
	if role == "" {
		return true
	}
	if a.PublishedAt.After(now) {
		return false
	}
	if len(a.AudienceRoles) == 0 {
		return true
	}
	for _, r := range a.AudienceRoles {
		if r == role {
			return true
		}
	}
	return false
}

func roles(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		out = append(out, strings.TrimSpace(r))
	}
	return out
}

// List handles GET /announcements?limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, _ := auth.CurrentClaims(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list announcements")
	defer cancel()

	rows, err := announcementstore.New(db).ListFor(ctx, audience(c), paging.Parse(r).Limit)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.List(w, rows, int64(len(rows)))
}

// Get handles GET /announcements/{id}. Posts the reader cannot see yet
// read as not found.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get announcement")
	defer cancel()

	a, err := announcementstore.New(db).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if !visible(a, audience(c), time.Now().UTC()) {
		apierr.Write(w, r, h.Log, storeErr(announcementstore.ErrNotFound))
		return
	}
	httpx.OK(w, a)
}

// Create handles POST /announcements. The body is sanitized HTML; a body
// that sanitizes to nothing is rejected.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req createRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	body := strings.TrimSpace(htmlsanitize.Sanitize(req.Body))
	if body == "" {
		apierr.Write(w, r, h.Log, apierr.New(apierr.InvalidArgument, "body has no allowed content."))
		return
	}
	c, _ := auth.CurrentClaims(r)
	a := models.Announcement{
		Title:         strings.TrimSpace(req.Title),
		Body:          body,
		AudienceRoles: roles(req.AudienceRoles),
		PublishedAt:   req.PublishedAt.UTC(),
	}
	if c != nil {
		a.CreatedBy = c.AccountID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create announcement")
	defer cancel()

	out, err := announcementstore.New(db).Create(ctx, a)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Created(w, out)
}

// Update handles PUT /announcements/{id}. An audienceRoles array replaces
// the audience; an empty one addresses everyone.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
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
	var req updateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	upd := models.Announcement{Title: strings.TrimSpace(req.Title)}
	if req.Body != "" {
		upd.Body = strings.TrimSpace(htmlsanitize.Sanitize(req.Body))
		if upd.Body == "" {
			apierr.Write(w, r, h.Log, apierr.New(apierr.InvalidArgument, "body has no allowed content."))
			return
		}
	}
	if req.AudienceRoles != nil {
		upd.AudienceRoles = roles(*req.AudienceRoles)
	}
	if !req.PublishedAt.IsZero() {
		upd.PublishedAt = req.PublishedAt.UTC()
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update announcement")
	defer cancel()

	out, err := announcementstore.New(db).Update(ctx, id, upd)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.OK(w, out)
}

// Delete handles DELETE /announcements/{id}.
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete announcement")
	defer cancel()

	if err := announcementstore.New(db).Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Done(w)
}
