// Package notifications serves short messages addressed to roles or to
// individual accounts within a school.
package notifications

import (
	"context"
	"errors"
	"net/http"
	"strings"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	notificationstore "github.com/dalemusser/schoolhub/internal/app/store/notifications"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

type createRequest struct {
	Title         string   `json:"title" validate:"notblank,max=200"`
	Message       string   `json:"message" validate:"notblank,max=2000"`
	AudienceRoles []string `json:"audienceRoles" validate:"dive,oneof=school_admin teacher student parent"`
	RecipientIDs  []string `json:"recipientIds" validate:"max=500,dive,notblank"`
}

func storeErr(err error) error {
	if errors.Is(err, notificationstore.ErrNotFound) {
		return apierr.Wrap(apierr.NotFound, "Notification not found.", err)
	}
	return apierr.FromStore(err)
}

// checkRecipients verifies every id names a teacher, student or parent of
// the school.
func checkRecipients(ctx context.Context, db *mongo.Database, ids []string) error {
	missing := make(map[string]bool, len(ids))
	for _, id := range ids {
		missing[id] = true
	}
	for _, role := range models.TenantRoles {
		found, err := accountstore.New(db, role).ExistingIDs(ctx, ids)
		if err != nil {
			return apierr.FromStore(err)
		}
		for id := range found {
			delete(missing, id)
		}
	}
	for _, id := range ids {
		if missing[id] {
			e := apierr.New(apierr.InvalidArgument, "recipientIds contains an unknown account ("+id+").")
			e.Fields = map[string]string{"recipientIds": e.Message}
			return e
		}
	}
	return nil
}

// List handles GET /notifications?limit=. School admins see every
// notification; everyone else sees those addressed to their role or to
// them, each marked read or unread.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	db, err := tenant.DB(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, ok := auth.CurrentClaims(r)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Unauthorized, ""))
		return
	}
	role := c.Role
	if auth.Authorize(c, authz.SchoolAdmins...) == nil {
		role = ""
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list notifications")
	defer cancel()

	rows, err := notificationstore.New(db).ListFor(ctx, role, c.AccountID, paging.Parse(r).Limit)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.List(w, rows, int64(len(rows)))
}

// Create handles POST /notifications. At least one audience role or
// recipient is required.
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
	if len(req.AudienceRoles) == 0 && len(req.RecipientIDs) == 0 {
		apierr.Write(w, r, h.Log, apierr.New(apierr.InvalidArgument, "audienceRoles or recipientIds is required."))
		return
	}
	n := models.Notification{
		Title:         strings.TrimSpace(req.Title),
		Message:       strings.TrimSpace(req.Message),
		AudienceRoles: req.AudienceRoles,
	}
	seen := map[string]bool{}
	for _, id := range req.RecipientIDs {
		id = normalize.AccountID(id)
		if !seen[id] {
			seen[id] = true
			n.RecipientIDs = append(n.RecipientIDs, id)
		}
	}
	if c, ok := auth.CurrentClaims(r); ok {
		n.CreatedBy = c.AccountID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create notification")
	defer cancel()

	if err := checkRecipients(ctx, db, n.RecipientIDs); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	out, err := notificationstore.New(db).Create(ctx, n)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Created(w, out)
}

// MarkRead handles POST /notifications/{id}/read. Marking a notification
// not addressed to the caller reads as not found.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
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
	c, ok := auth.CurrentClaims(r)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Unauthorized, ""))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark notification read")
	defer cancel()

	if err := notificationstore.New(db).MarkRead(ctx, id, c.Role, c.AccountID); err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Done(w)
}

// Delete handles DELETE /notifications/{id}. Teachers may only delete
// their own.
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
	c, _ := auth.CurrentClaims(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete notification")
	defer cancel()

	store := notificationstore.New(db)
	n, err := store.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	if c != nil && c.Role == models.RoleTeacher && c.AccountID != n.CreatedBy {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Forbidden, "Only the sender may delete this notification."))
		return
	}
	if err := store.Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, storeErr(err))
		return
	}
	httpx.Done(w)
}
