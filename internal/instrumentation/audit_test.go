package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail  = "jane@example.com"
	testDomain = "example.com"
)

func attrsByKey(attrs []slog.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr.Value.String()
	}
	return m
}

func TestSessionIDContext(t *testing.T) {
	assert.Empty(t, SessionIDFromContext(context.Background()))

	ctx := ContextWithSessionID(context.Background(), "sess-1")
	assert.Equal(t, "sess-1", SessionIDFromContext(ctx))
}

func TestToolInvocation_Complete(t *testing.T) {
	ti := NewToolInvocation("list_bookings")
	require.False(t, ti.StartTime.IsZero())

	ti.CompleteSuccess()
	assert.True(t, ti.Success)
	assert.Equal(t, StatusSuccess, ti.Status())
	assert.GreaterOrEqual(t, ti.Duration, time.Duration(0))
	assert.Empty(t, ti.Error)

	ti = NewToolInvocation("create_booking").CompleteWithError(errors.New("HTTP 400: slot no longer available"))
	assert.False(t, ti.Success)
	assert.Equal(t, StatusError, ti.Status())
	assert.Equal(t, "HTTP 400: slot no longer available", ti.Error)
}

func TestToolInvocation_WithContext(t *testing.T) {
	ctx := ContextWithSessionID(context.Background(), "sess-1")
	ctx, span := StartToolSpan(ctx, "cancel_booking")
	defer span.End()

	ti := NewToolInvocation("cancel_booking").WithContext(ctx)
	assert.Equal(t, "sess-1", ti.SessionID)
	// Without an installed tracer provider the span context is invalid.
	if span.SpanContext().IsValid() {
		assert.Equal(t, span.SpanContext().TraceID().String(), ti.TraceID)
	} else {
		assert.Empty(t, ti.TraceID)
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation("reschedule_booking").
		WithUser(testEmail).
		WithOrigin("chat").
		WithService(ServiceCalcom, OperationReschedule)
	ti.SessionID = "sess-1"
	ti.CompleteWithError(errors.New("no matching booking"))

	anonymized := attrsByKey(ti.LogAttrs(false))
	assert.Equal(t, "reschedule_booking", anonymized["tool"])
	assert.Equal(t, testDomain, anonymized["user_domain"])
	assert.NotContains(t, anonymized, "user")
	assert.Equal(t, "chat", anonymized["origin"])
	assert.Equal(t, "sess-1", anonymized["session_id"])
	assert.Equal(t, ServiceCalcom, anonymized["service"])
	assert.Equal(t, OperationReschedule, anonymized["operation"])
	assert.Equal(t, "no matching booking", anonymized["error"])
	assert.Equal(t, "false", anonymized["success"])

	withPII := attrsByKey(ti.LogAttrs(true))
	assert.Equal(t, testEmail, withPII["user"])
	assert.NotContains(t, withPII, "user_domain")
}

func TestToolInvocation_LogAttrs_MinimalFields(t *testing.T) {
	attrs := attrsByKey(NewToolInvocation("list_bookings").CompleteSuccess().LogAttrs(false))

	for _, key := range []string{"origin", "session_id", "service", "operation", "trace_id", "span_id", "error"} {
		assert.NotContains(t, attrs, key)
	}
	assert.Len(t, attrs, 4)
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	tests := []struct {
		name      string
		config    AuditLoggingConfig
		success   bool
		want      []string
		wantEmpty bool
		notWant   []string
	}{
		{
			name:    "success without PII",
			config:  AuditLoggingConfig{Enabled: true},
			success: true,
			want:    []string{"level=INFO", "msg=tool_executed", "log_type=audit", "user_domain=example.com"},
			notWant: []string{testEmail},
		},
		{
			name:    "success with PII",
			config:  AuditLoggingConfig{Enabled: true, IncludePII: true},
			success: true,
			want:    []string{"user=" + testEmail},
			notWant: []string{"user_domain="},
		},
		{
			name:    "failure is at least warn",
			config:  AuditLoggingConfig{Enabled: true, LogLevel: "debug"},
			success: false,
			want:    []string{"level=WARN", "msg=tool_failed"},
		},
		{
			name:    "configured level",
			config:  AuditLoggingConfig{Enabled: true, LogLevel: "debug"},
			success: true,
			want:    []string{"level=DEBUG", "msg=tool_executed"},
		},
		{
			name:      "disabled",
			config:    AuditLoggingConfig{Enabled: false},
			success:   true,
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			audit := NewAuditLoggerWithConfig(logger, tt.config)

			ti := NewToolInvocation("cancel_booking").WithUser(testEmail)
			ti.Complete(tt.success, nil)
			audit.LogToolInvocation(ti)

			out := buf.String()
			if tt.wantEmpty {
				assert.Empty(t, out)
				return
			}
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, out, notWant)
			}
		})
	}
}

func TestAuditLogger_Nil(t *testing.T) {
	var audit *AuditLogger
	assert.NotPanics(t, func() {
		audit.LogToolInvocation(NewToolInvocation("list_bookings").CompleteSuccess())
	})
	assert.NotNil(t, NewAuditLoggerWithConfig(nil, AuditLoggingConfig{}))
}
