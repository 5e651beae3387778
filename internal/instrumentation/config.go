package instrumentation

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config controls metrics, tracing and audit logging.
type Config struct {
	// ServiceName is reported as service.name (default: calchat).
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname, which is the pod name in
	// Kubernetes.
	ServiceInstanceID string
	K8sNamespace      string
	K8sPodName        string

	// Enabled turns metrics and tracing on. A disabled provider hands out a
	// Metrics value that records nothing.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without scheme.
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector. Spans carry
	// attendee domains, so keep this off outside development.
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of new traces that are sampled.
	TraceSamplingRate float64

	// DetailedLabels adds the attendee email domain to tool metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the audit log of booking tool calls.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs full attendee emails instead of their domain.
	IncludePII bool

	// LogLevel is the level of successful tool calls: debug, info, warn or
	// error. Failed calls are always logged at warn or above.
	LogLevel string
}

// Level parses LogLevel, falling back to info.
func (c AuditLoggingConfig) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DefaultConfig returns the defaults for calchat. The cmd package overlays
// flags, environment and config file values.
func DefaultConfig() Config {
	return Config{
		ServiceName:       DefaultServiceName,
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		AuditLogging: AuditLoggingConfig{
			Enabled:  true,
			LogLevel: "info",
		},
	}
}

// Validate checks exporter names, the sampling rate and the OTLP endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter")
	}

	return nil
}

// Constants for metric label values.
const (
	DefaultServiceName = "calchat"

	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// ServiceCalcom is the only upstream scheduling service.
	ServiceCalcom = "calcom"

	TokenKindInput  = "input"
	TokenKindOutput = "output"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
