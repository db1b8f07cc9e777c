package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLoginSuccess    = "login_success"
	EventLoginFailed     = "login_failed"
	EventUserRegistered  = "user_registered"
	EventTokenRefreshed  = "token_refreshed"
	EventLogout          = "logout"
	EventUserCreated     = "user_created"
	EventUserUpdated     = "user_updated"
	EventStatusChanged   = "status_changed"
	EventRoleChanged     = "role_changed"
	EventEmailVerified   = "email_verified"
	EventUserDeactivated = "user_deactivated"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	ActorID       string
	Email         string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through slog with an audit_type marker
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt records login, registration, refresh and logout outcomes.
// Failures are logged at warn level.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := al.baseAttrs("auth", event)
	attrs = append(attrs, slog.Bool("success", event.Success))

	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAccountAction records administrative changes to an account
func (al *AuditLogger) LogAccountAction(ctx context.Context, event AuditEvent) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", al.baseAttrs("account", event)...)
}

func (al *AuditLogger) baseAttrs(auditType string, event AuditEvent) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.ActorID != "" && event.ActorID != event.UserID {
		attrs = append(attrs, slog.String("actor_id", event.ActorID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	return attrs
}
