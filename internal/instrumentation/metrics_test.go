package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestProvider(t *testing.T, ctx context.Context, detailedLabels bool) *Provider {
	t.Helper()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailedLabels,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "POST", "/chat", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "GET", "/sessions/{id}", 404, 5*time.Millisecond)
}

func TestMetrics_RecordCalAPIRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordCalAPIRequest(ctx, OperationList, 200, 200*time.Millisecond)
	metrics.RecordCalAPIRequest(ctx, OperationCreate, 400, 150*time.Millisecond)
	metrics.RecordCalAPIRequest(ctx, OperationSlots, 0, time.Second)
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordToolInvocation(ctx, "list_bookings", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "create_booking", StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordToolInvocationWithUser(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		metrics := newTestProvider(t, ctx, detailed).Metrics()

		// Should not panic; the domain label is only added with detailed labels
		metrics.RecordToolInvocationWithUser(ctx, "cancel_booking", StatusSuccess, "jane@example.com", 100*time.Millisecond)
		metrics.RecordToolInvocationWithUser(ctx, "cancel_booking", StatusSuccess, "", 100*time.Millisecond)
		cancel()
	}
}

func TestMetrics_RecordLLMRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordLLMRequest(ctx, "openai", "gpt-4o", StatusSuccess, 812, 64, 2*time.Second)
	metrics.RecordLLMRequest(ctx, "anthropic", "claude-sonnet-4-5", StatusError, 0, 0, time.Second)
}

func TestMetrics_ChatTurnsAndSessions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordChatTurn(ctx, StatusSuccess)
	metrics.RecordChatTurn(ctx, StatusError)
	metrics.RecordSessionCreated(ctx)
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying metrics
	metrics.RecordHTTPRequest(ctx, "GET", "/", 200, 100*time.Millisecond)
	metrics.RecordCalAPIRequest(ctx, OperationList, 200, 200*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "test_tool", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocationWithUser(ctx, "test_tool", StatusSuccess, "user@example.com", 100*time.Millisecond)
	metrics.RecordLLMRequest(ctx, "openai", "gpt-4o", StatusSuccess, 1, 1, time.Second)
	metrics.RecordChatTurn(ctx, StatusSuccess)
	metrics.RecordSessionCreated(ctx)
}

func TestMetrics_SessionsCreatedIsMonotonic(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	metrics.RecordSessionCreated(ctx)
	metrics.RecordSessionCreated(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "chat_sessions_created_total" {
				continue
			}
			found = true
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "expected int64 sum, got %T", m.Data)
			assert.True(t, sum.IsMonotonic)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(2), sum.DataPoints[0].Value)
		}
	}
	assert.True(t, found, "chat_sessions_created_total not collected")
}
