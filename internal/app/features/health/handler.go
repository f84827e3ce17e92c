// Package health reports whether the primary database answers and how
// many schools the process currently holds in its caches.
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger checks the primary database. *tenantdb.Primary satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sizer reports a cache's entry count. *tenantdir.Directory and
// *tenantdb.Pool satisfy it.
type Sizer interface {
	Len() int
}

type Handler struct {
	DB        Pinger
	Directory Sizer
	Pool      Sizer
	Log       *zap.Logger
}

// NewHandler constructs a health Handler. dir and pool may be nil.
func NewHandler(db Pinger, dir, pool Sizer, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Directory: dir, Pool: pool, Log: logger}
}

type healthResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Message       string `json:"message,omitempty"`
	CachedSchools int    `json:"cachedSchools"`
	OpenDatabases int    `json:"openDatabases"`
}

// Serve handles GET /health: 200 with "status":"ok" while the primary
// answers a ping, 503 with "status":"error" otherwise. Cache sizes are
// reported either way.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "connected"}
	if h.Directory != nil {
		resp.CachedSchools = h.Directory.Len()
	}
	if h.Pool != nil {
		resp.OpenDatabases = h.Pool.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Error("primary ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
