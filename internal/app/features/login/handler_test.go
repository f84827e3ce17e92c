package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authn"
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fakeAuth struct {
	issuer *auth.Issuer
	calls  int
}

// Login accepts t1@school.com / right-password and rejects everything else
// through the same failure type the real service uses.
func (f *fakeAuth) Login(_ context.Context, email, password string) (authn.Result, error) {
	f.calls++
	if email == "" || password == "" {
		return authn.Result{}, apierr.New(apierr.MissingCredentials, "")
	}
	if email != "t1@school.com" || password != "right-password" {
		return authn.Result{}, authn.Fail(audit.EventLoginFailedWrongPassword, "password mismatch",
			apierr.New(apierr.InvalidCredentials, apierr.InvalidCredentialsMessage))
	}
	c := auth.Claims{AccountID: "TCH00001", Email: email, Role: models.RoleTeacher, SchoolID: "SCHL00001"}
	token, exp, err := f.issuer.Sign(c)
	if err != nil {
		return authn.Result{}, err
	}
	return authn.Result{
		Token:     token,
		ExpiresAt: exp,
		Claims:    &c,
		User:      authn.Summary{AccountID: "TCH00001", Email: email, Role: models.RoleTeacher, SchoolID: "SCHL00001"},
	}, nil
}

type memRecorder struct{ events []audit.Event }

func (m *memRecorder) Log(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

func newHandler(t *testing.T, cfg ratelimit.LoginConfig) (*Handler, *fakeAuth, *memRecorder, http.Handler) {
	t.Helper()
	issuer := auth.NewIssuer("test-secret-at-least-thirty-two-chars!", "schoolhub", time.Hour)
	fa := &fakeAuth{issuer: issuer}
	rec := &memRecorder{}
	al := auditlog.New(rec, zap.NewNop(), auditlog.Config{Auth: auditlog.DB, Admin: auditlog.DB})
	h := NewHandler(fa, issuer, ratelimit.NewLoginLimiter(cfg), al, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/login", Routes(h))
	r.Get("/verify-token", h.VerifyToken)
	return h, fa, rec, r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:5000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLogin_Success(t *testing.T) {
	_, _, events, r := newHandler(t, ratelimit.DefaultLoginConfig)
	rec := post(r, `{"email":"t1@school.com","password":"right-password"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Token == "" || body.User.Role != models.RoleTeacher {
		t.Errorf("body = %+v", body)
	}
	if len(events.events) != 1 || events.events[0].EventType != audit.EventLoginSuccess {
		t.Errorf("audit = %+v", events.events)
	}
}

func TestLogin_FailureIsAudited(t *testing.T) {
	_, _, events, r := newHandler(t, ratelimit.DefaultLoginConfig)
	rec := post(r, `{"email":"t1@school.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	var body apierr.Body
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Success || body.ErrorKind != apierr.InvalidCredentials || body.Message != apierr.InvalidCredentialsMessage {
		t.Errorf("body = %+v", body)
	}
	if len(events.events) != 1 || events.events[0].EventType != audit.EventLoginFailedWrongPassword {
		t.Fatalf("audit = %+v", events.events)
	}
	if events.events[0].Details["attempted_email"] != "t1@school.com" {
		t.Errorf("details = %v", events.events[0].Details)
	}
}

func TestLogin_BadBodies(t *testing.T) {
	_, fa, _, r := newHandler(t, ratelimit.DefaultLoginConfig)
	for _, body := range []string{"", "{", `{"email":"a@b.c","password":"x","extra":1}`} {
		if rec := post(r, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
	if rec := post(r, `{"email":"t1@school.com"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing password: status = %d", rec.Code)
	}
	if fa.calls != 1 {
		t.Errorf("authenticator calls = %d, want 1", fa.calls)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	_, fa, events, r := newHandler(t, ratelimit.LoginConfig{IPLimit: 100, IPPeriod: time.Minute, EmailLimit: 2, EmailPeriod: 5 * time.Minute})
	for i := 0; i < 2; i++ {
		post(r, `{"email":"t1@school.com","password":"wrong"}`)
	}
	rec := post(r, `{"email":"T1@school.com","password":"right-password"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	// The e-mail window blocked the attempt, so the wait is its remainder,
	// not the one-minute IP window.
	if secs, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || secs <= 60 || secs > 300 {
		t.Errorf("Retry-After = %q, want the rest of the 5m e-mail window", rec.Header().Get("Retry-After"))
	}
	if fa.calls != 2 {
		t.Errorf("authenticator should not run once limited; calls = %d", fa.calls)
	}
	last := events.events[len(events.events)-1]
	if last.EventType != audit.EventLoginFailedRateLimit {
		t.Errorf("last audit event = %q", last.EventType)
	}
}

func TestLogin_SuccessResetsEmailWindow(t *testing.T) {
	_, _, _, r := newHandler(t, ratelimit.LoginConfig{IPLimit: 100, IPPeriod: time.Minute, EmailLimit: 2, EmailPeriod: time.Minute})
	post(r, `{"email":"t1@school.com","password":"wrong"}`)
	if rec := post(r, `{"email":"t1@school.com","password":"right-password"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	post(r, `{"email":"t1@school.com","password":"wrong"}`)
	if rec := post(r, `{"email":"t1@school.com","password":"right-password"}`); rec.Code != http.StatusOK {
		t.Errorf("window should have been reset; status = %d", rec.Code)
	}
}

func TestVerifyToken(t *testing.T) {
	h, _, _, r := newHandler(t, ratelimit.DefaultLoginConfig)
	token, _, _ := h.Verifier.(*auth.Issuer).Sign(auth.Claims{
		AccountID: "TCH00001", Email: "t1@school.com", Role: models.RoleTeacher, SchoolID: "SCHL00001",
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Token " + token, http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/verify-token", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			var body verifyResponse
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if body.UserID != "TCH00001" || body.Role != models.RoleTeacher || body.SchoolID != "SCHL00001" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}
