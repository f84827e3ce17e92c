package auth

import (
	"context"
	"net/http"

	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"go.uber.org/zap"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// WithClaims returns ctx carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// CurrentClaims returns the verified claims attached by RequireSignedIn.
func CurrentClaims(r *http.Request) (*Claims, bool) {
	c, ok := r.Context().Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// Middleware verifies bearer tokens on incoming requests.
type Middleware struct {
	issuer *Issuer
	log    *zap.Logger
}

func NewMiddleware(issuer *Issuer, log *zap.Logger) *Middleware {
	return &Middleware{issuer: issuer, log: log}
}

// RequireSignedIn rejects requests without a valid bearer token and
// attaches the claims to the request context otherwise.
func (m *Middleware) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			apierr.Write(w, r, m.log, err)
			return
		}
		claims, err := m.issuer.Verify(token)
		if err != nil {
			m.log.Debug("token rejected", zap.Error(err), zap.String("path", r.URL.Path))
			apierr.Write(w, r, m.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole allows the request through only when the signed-in role is
// one of allowed. It must run after RequireSignedIn.
func RequireRole(log *zap.Logger, allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := CurrentClaims(r)
			if !ok {
				apierr.Write(w, r, log, apierr.New(apierr.Unauthorized, ""))
				return
			}
			if err := Authorize(c, allowed...); err != nil {
				log.Info("role not allowed",
					zap.String("role", c.Role),
					zap.String("account_id", c.AccountID),
					zap.String("path", r.URL.Path))
				apierr.Write(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
