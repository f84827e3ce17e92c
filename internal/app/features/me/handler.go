// Package me serves the signed-in caller's own account record.
package me

import (
	"errors"
	"net/http"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Platform *mongo.Database
	Log      *zap.Logger
}

func NewHandler(platformDB *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Platform: platformDB, Log: logger}
}

// Get handles GET /school/{schoolId}/me.
//
// The record is read fresh, so profile edits made after sign-in show up
// without a new token. Admin accounts come from the platform database,
// everyone else from the school's.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := auth.CurrentClaims(r)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.New(apierr.Unauthorized, ""))
		return
	}
	db := h.Platform
	if models.IsTenantRole(c.Role) {
		var err error
		if db, err = tenant.DB(r); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load own account")
	defer cancel()

	a, err := accountstore.New(db, c.Role).GetByAccountID(ctx, c.AccountID)
	if errors.Is(err, accountstore.ErrNotFound) {
		apierr.Write(w, r, h.Log, apierr.Wrap(apierr.NotFound, "Account not found.", err))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.FromStore(err))
		return
	}
	httpx.OK(w, a)
}
