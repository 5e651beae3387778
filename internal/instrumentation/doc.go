// Package instrumentation provides OpenTelemetry instrumentation for calchat.
//
// It covers:
//   - OpenTelemetry metrics for HTTP requests, booking tools, Cal.com calls and model requests
//   - Distributed tracing for chat turns, tool invocations and outbound API calls
//   - Prometheus metrics export via a /metrics endpoint on a dedicated port
//   - OTLP export support for modern observability platforms
//   - Structured audit logging of tool invocations
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - chat_sessions_created_total: Counter of chat sessions created
//
// Scheduling API Metrics:
//   - calcom_api_requests_total: Counter of Cal.com requests by operation and status code
//   - calcom_api_request_duration_seconds: Histogram of Cal.com request durations
//
// Tool Metrics:
//   - tool_invocations_total: Counter of booking tool invocations by tool and status
//   - tool_duration_seconds: Histogram of booking tool execution durations
//
// Language Model Metrics:
//   - llm_requests_total: Counter of completion requests by provider, model and status
//   - llm_request_duration_seconds: Histogram of completion latency
//   - llm_tokens_total: Counter of input and output tokens
//   - chat_turns_total: Counter of finished chat turns by status
//
// # Tracing
//
// Spans are created for:
//   - MCP and chat tool invocations (tool.<name>)
//   - Cal.com calls (calcom.<operation>)
//   - Language model requests (llm.<provider>.generate)
//
// # Configuration
//
// The calchat command fills Config from these environment variables or the
// matching keys in calchat.yaml:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces and metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calchat)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII, AUDIT_LOGGING_LEVEL
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordCalAPIRequest(ctx, instrumentation.OperationSlots, 200, time.Since(start))
//	metrics.RecordToolInvocation(ctx, "get_available_slots", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
