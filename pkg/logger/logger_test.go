package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"admin@relativitydevhub.com", "a****@****************.com"},
		{"a@b.com", "a@*.com"},
		{"user@localhost", "u***@localhost"},
		{"not-an-email", "[invalid-email]"},
		{"@example.com", "[invalid-email]"},
		{"a@b@c.com", "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.True(t, SanitizeQueryString("Email=a%40b.com"))
	assert.True(t, SanitizeQueryString("next=1&Password=x"))
	assert.False(t, SanitizeQueryString("limit=10&offset=20"))
	assert.False(t, SanitizeQueryString(""))
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(New(&buf, "debug"))

	audit.LogAuthAttempt(context.Background(), AuditEvent{
		EventType:     EventLoginFailed,
		Email:         "someone@example.com",
		Success:       false,
		FailureReason: "invalid_credentials",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "auth", record["audit_type"])
	assert.Equal(t, EventLoginFailed, record["event_type"])
	assert.Equal(t, false, record["success"])
	assert.Equal(t, "invalid_credentials", record["failure_reason"])
	assert.Equal(t, "s******@*******.com", record["email"])
	assert.NotContains(t, buf.String(), "someone@example.com")
}

func TestAuditLogger_LogAccountAction(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(New(&buf, "info"))

	audit.LogAccountAction(context.Background(), AuditEvent{
		EventType: EventRoleChanged,
		UserID:    "target-id",
		ActorID:   "admin-id",
		Metadata:  map[string]string{"new_role": "reviewer"},
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "account", record["audit_type"])
	assert.Equal(t, "target-id", record["user_id"])
	assert.Equal(t, "admin-id", record["actor_id"])
	assert.Equal(t, "reviewer", record["new_role"])
}
