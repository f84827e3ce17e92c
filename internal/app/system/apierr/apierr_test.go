package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{InvalidArgument, http.StatusBadRequest},
		{MissingCredentials, http.StatusBadRequest},
		{InvalidCredentials, http.StatusUnauthorized},
		{TenantInactive, http.StatusForbidden},
		{TenantNotFound, http.StatusNotFound},
		{NotConnected, http.StatusServiceUnavailable},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{ServiceUnavailable, http.StatusServiceUnavailable},
		{Conflict, http.StatusConflict},
		{TooManyRequests, http.StatusTooManyRequests},
		{Kind("Bogus"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", New(TenantNotFound, ""))
	if got := KindOf(wrapped); got != TenantNotFound {
		t.Errorf("wrapped kind = %s, want TenantNotFound", got)
	}
	if got := KindOf(context.DeadlineExceeded); got != ServiceUnavailable {
		t.Errorf("deadline kind = %s, want ServiceUnavailable", got)
	}
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Errorf("plain kind = %s, want Internal", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("nil kind = %q, want empty", got)
	}
}

func TestFromStore(t *testing.T) {
	if FromStore(nil) != nil {
		t.Fatal("FromStore(nil) should be nil")
	}
	err := FromStore(fmt.Errorf("find: %w", context.DeadlineExceeded))
	if !Is(err, ServiceUnavailable) {
		t.Errorf("expected ServiceUnavailable, got %s", KindOf(err))
	}
	typed := New(Conflict, "dup")
	if FromStore(typed) != error(typed) {
		t.Error("typed errors should pass through unchanged")
	}
}

func TestWrite_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	Write(rec, req, nil, New(InvalidCredentials, ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Error("success should be false")
	}
	if body.Message != InvalidCredentialsMessage {
		t.Errorf("message = %q", body.Message)
	}
	if body.ErrorKind != InvalidCredentials {
		t.Errorf("errorKind = %q", body.ErrorKind)
	}
}

func TestWrite_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	Write(rec, req, nil, errors.New("connection string mongodb://secret"))

	var body Body
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Message != defaultMessages[Internal] {
		t.Errorf("internal cause leaked: %q", body.Message)
	}
}
