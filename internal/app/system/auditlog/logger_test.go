package auditlog_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memRecorder struct {
	events []audit.Event
	err    error
}

func (m *memRecorder) Log(_ context.Context, e audit.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	req := httptest.NewRequest("POST", "/login", nil)

	logger.Log(context.Background(), audit.Event{EventType: "test"})
	logger.LoginSucceeded(context.Background(), req, "TCH00001", "SCHL00001", "teacher")
	logger.LoginFailed(context.Background(), req, audit.EventLoginFailedWrongPassword, "a@b.c", "wrong password")
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int
		wantLog int
	}{
		{auditlog.All, 1, 1},
		{auditlog.DB, 1, 0},
		{auditlog.Log, 0, 1},
		{auditlog.Off, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			rec := &memRecorder{}
			l := auditlog.New(rec, zap.New(core), auditlog.Config{Auth: tt.setting, Admin: auditlog.Off})

			req := httptest.NewRequest("POST", "/login", nil)
			req.RemoteAddr = "10.1.2.3:4444"
			l.LoginSucceeded(context.Background(), req, "ADM00001", "SCHL00001", "sch_admin")

			if len(rec.events) != tt.wantDB {
				t.Errorf("db events = %d, want %d", len(rec.events), tt.wantDB)
			}
			if logs.Len() != tt.wantLog {
				t.Errorf("log entries = %d, want %d", logs.Len(), tt.wantLog)
			}
			if tt.wantDB == 1 && rec.events[0].IP != "10.1.2.3" {
				t.Errorf("IP = %q", rec.events[0].IP)
			}
		})
	}
}

func TestLogger_AdminUsesAdminSetting(t *testing.T) {
	rec := &memRecorder{}
	l := auditlog.New(rec, zap.NewNop(), auditlog.Config{Auth: auditlog.Off, Admin: auditlog.DB})

	l.AdminAction(context.Background(), nil, audit.EventTenantProvisioned, "SUP00001", "SCHL00002", "", nil)
	l.LoginFailed(context.Background(), nil, audit.EventLoginFailedUnknownEmail, "x@y.z", "unknown email")

	if len(rec.events) != 1 {
		t.Fatalf("expected only the admin event, got %d", len(rec.events))
	}
	if rec.events[0].ActorID != "SUP00001" {
		t.Errorf("ActorID = %q", rec.events[0].ActorID)
	}
}

func TestLogger_StoreErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := &memRecorder{err: errors.New("write failed")}
	l := auditlog.New(rec, zap.New(core), auditlog.Config{Auth: auditlog.DB})

	l.LoginFailed(context.Background(), nil, audit.EventLoginFailedWrongPassword, "a@b.c", "wrong password")

	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected store failure to be logged")
	}
}
