// Package server wires the HTTP surfaces of calchat.
//
// ServerContext carries the booking service and the shared observability
// handles (metrics, audit logger, logger) that tool handlers need.
//
// ChatServer is a chi router serving:
//   - GET / : the embedded chat page
//   - POST /chat : one agent turn, with transcripts kept per session id
//   - GET and DELETE /sessions/{id} : stored transcripts
//   - /healthz, /readyz, /healthz/detailed : HealthChecker probes
//   - /mcp : the streamable HTTP MCP endpoint, when configured
//
// MetricsServer exposes Prometheus metrics on a separate port.
package server
