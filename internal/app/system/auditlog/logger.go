package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config selects a destination per category.
type Config struct {
	Auth  string
	Admin string
}

// Recorder persists events. *audit.Store satisfies it.
type Recorder interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger fans audit events out to the store and to zap. A nil *Logger is a
// valid no-op.
type Logger struct {
	store  Recorder
	zapLog *zap.Logger
	config Config
}

func New(store Recorder, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) setting(category string) string {
	switch category {
	case audit.CategoryAuth:
		return l.config.Auth
	case audit.CategoryAdmin:
		return l.config.Admin
	}
	return All
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.AccountID != "" {
		fields = append(fields, zap.String("account_id", event.AccountID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.SchoolID != "" {
		fields = append(fields, zap.String("school_id", event.SchoolID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's configured destination.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := l.setting(event.Category)
	if setting == Off || setting == "" {
		return
	}
	if (setting == All || setting == Log) && l.zapLog != nil {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil && l.zapLog != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func fromRequest(r *http.Request) (ip, ua string) {
	if r == nil {
		return "", ""
	}
	return ratelimit.ClientIP(r), r.UserAgent()
}

// LoginSucceeded records a successful login.
func (l *Logger) LoginSucceeded(ctx context.Context, r *http.Request, accountID, schoolID, role string) {
	ip, ua := fromRequest(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		AccountID: accountID,
		SchoolID:  schoolID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// LoginFailed records a rejected login. email is the normalized attempted
// address; eventType is one of the audit.EventLoginFailed* constants.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, email, reason string) {
	ip, ua := fromRequest(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		IP:            ip,
		UserAgent:     ua,
		FailureReason: reason,
		Details:       map[string]string{"attempted_email": email},
	})
}

// AdminAction records a successful administrative change made by actorID.
func (l *Logger) AdminAction(ctx context.Context, r *http.Request, eventType, actorID, schoolID, accountID string, details map[string]string) {
	ip, ua := fromRequest(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   actorID,
		SchoolID:  schoolID,
		AccountID: accountID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details:   details,
	})
}
