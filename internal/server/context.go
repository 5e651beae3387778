package server

import (
	"fmt"
	"sync"

	"github.com/teemow/calchat/internal/booking"
	"github.com/teemow/calchat/internal/instrumentation"
)

// ServerContext holds the dependencies shared by the MCP tools and the chat server.
type ServerContext struct {
	bookings    *booking.Service
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	mu          sync.RWMutex
	shutdown    bool
}

// ServerContextOption configures optional ServerContext dependencies.
type ServerContextOption func(*ServerContext)

// WithMetrics enables tool and scheduling metrics.
func WithMetrics(m *instrumentation.Metrics) ServerContextOption {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger enables audit logging of tool invocations.
func WithAuditLogger(al *instrumentation.AuditLogger) ServerContextOption {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// NewServerContext creates a new server context around the booking service.
func NewServerContext(bookings *booking.Service, opts ...ServerContextOption) (*ServerContext, error) {
	if bookings == nil {
		return nil, fmt.Errorf("booking service is required")
	}

	sc := &ServerContext{bookings: bookings}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Bookings returns the booking service.
func (sc *ServerContext) Bookings() *booking.Service {
	return sc.bookings
}

// Metrics returns the metrics recorder, nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	return nil
}
