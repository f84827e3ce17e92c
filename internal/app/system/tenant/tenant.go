// Package tenant attaches the caller's school database to requests under
// /school/{schoolId}. A request only reaches tenant data once its verified
// identity has been matched against the school in the path.
package tenant

import (
	"context"
	"net/http"

	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// URLParam is the route parameter holding the school id.
const URLParam = "schoolId"

type ctxKey string

const scopeKey ctxKey = "tenant"

// Scope is the tenant a request operates on.
type Scope struct {
	SchoolID     string
	DatabaseName string
	DB           *mongo.Database
}

// Resolver maps a school id to its database name.
type Resolver interface {
	ResolveDatabaseName(ctx context.Context, schoolID string) (string, error)
}

// Handles yields database handles by name.
type Handles interface {
	Handle(databaseName string) (*mongo.Database, error)
}

// Middleware resolves the school in the URL and stores its Scope on the
// request. It must run after auth.RequireSignedIn.
//
//   - no claims: 401
//   - claims for another school (unless super_admin): 403
//   - unknown school: 404 TenantNotFound
//   - primary down: 503 NotConnected
func Middleware(dir Resolver, pool Handles, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.CurrentClaims(r)
			if !ok {
				apierr.Write(w, r, logger, apierr.New(apierr.Unauthorized, ""))
				return
			}

			schoolID := normalize.SchoolID(chi.URLParam(r, URLParam))
			if schoolID == "" {
				apierr.Write(w, r, logger, apierr.New(apierr.InvalidArgument, "School id is required."))
				return
			}
			if !authz.CanEnterSchool(claims, schoolID) {
				logger.Warn("cross-school access refused",
					zap.String("account_id", claims.AccountID),
					zap.String("token_school", claims.SchoolID),
					zap.String("path_school", schoolID))
				apierr.Write(w, r, logger, apierr.New(apierr.Forbidden, ""))
				return
			}

			name, err := dir.ResolveDatabaseName(r.Context(), schoolID)
			if err != nil {
				apierr.Write(w, r, logger, err)
				return
			}
			db, err := pool.Handle(name)
			if err != nil {
				apierr.Write(w, r, logger, err)
				return
			}

			sc := &Scope{SchoolID: schoolID, DatabaseName: name, DB: db}
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), sc)))
		})
	}
}

// WithScope returns ctx carrying sc.
func WithScope(ctx context.Context, sc *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, sc)
}

// FromRequest returns the Scope stored by Middleware.
func FromRequest(r *http.Request) (*Scope, bool) {
	sc, ok := r.Context().Value(scopeKey).(*Scope)
	return sc, ok && sc != nil
}

// DB returns the school database attached by Middleware.
func DB(r *http.Request) (*mongo.Database, error) {
	sc, ok := FromRequest(r)
	if !ok {
		return nil, apierr.New(apierr.Internal, "")
	}
	return sc.DB, nil
}
