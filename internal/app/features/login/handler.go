// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authn"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Authenticator performs the credential check. *authn.Service satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (authn.Result, error)
}

// Verifier checks a session token. *auth.Issuer satisfies it.
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Handler serves sign-in and token verification.
type Handler struct {
	Auth     Authenticator
	Verifier Verifier
	Limiter  *ratelimit.LoginLimiter
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(a Authenticator, v Verifier, limiter *ratelimit.LoginLimiter, al *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:     a,
		Verifier: v,
		Limiter:  limiter,
		AuditLog: al,
		Log:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool          `json:"success"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      authn.Summary `json:"user"`
}

// HandleLogin serves POST /login.
//
//	200 {success, token, expiresAt, user}
//	400 MissingCredentials · 401 InvalidCredentials · 403 TenantInactive
//	429 TooManyRequests · 503 ServiceUnavailable / NotConnected
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)

	if h.Limiter != nil {
		if ok, reason, wait := h.Limiter.Check(ratelimit.ClientIP(r), email); !ok {
			h.AuditLog.LoginFailed(r.Context(), r, audit.EventLoginFailedRateLimit, email, reason)
			w.Header().Set("Retry-After", ratelimit.RetryAfterSeconds(wait))
			apierr.Write(w, r, h.Log, apierr.New(apierr.TooManyRequests, reason))
			return
		}
	}

	res, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var f *authn.Failure
		if errors.As(err, &f) {
			h.AuditLog.LoginFailed(r.Context(), r, f.Event, email, f.Reason)
		}
		apierr.Write(w, r, h.Log, err)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSucceeded(r.Context(), r, res.User.AccountID, res.User.SchoolID, res.User.Role)

	httpx.JSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.User,
	})
}

type verifyResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	SchoolID string `json:"schoolId,omitempty"`
}

// VerifyToken serves GET /verify-token.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token, err := auth.ParseBearer(r.Header.Get("Authorization"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, err := h.Verifier.Verify(token)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, verifyResponse{
		Success:  true,
		UserID:   c.AccountID,
		Email:    c.Email,
		Role:     c.Role,
		SchoolID: c.SchoolID,
	})
}
