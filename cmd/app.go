package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calchat/internal/agent"
	"github.com/teemow/calchat/internal/booking"
	"github.com/teemow/calchat/internal/calcom"
	"github.com/teemow/calchat/internal/instrumentation"
	"github.com/teemow/calchat/internal/logging"
	"github.com/teemow/calchat/internal/server"
	"github.com/teemow/calchat/internal/tools"
	"github.com/teemow/calchat/internal/tools/booking_tools"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	sc       *server.ServerContext
	registry *tools.Registry
}

type appOptions struct {
	// instrumentation starts the OpenTelemetry provider.
	instrumentation bool
}

// newApp builds the booking stack from cfg. Logs go to stderr so stdout
// stays free for MCP stdio and command output.
func newApp(ctx context.Context, cfg *Config, opts appOptions) (*app, error) {
	logger := logging.NewLogger(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if opts.instrumentation {
		provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation)
		if err != nil {
			return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
		}
		a.provider = provider

		if provider.Enabled() {
			metrics = provider.Metrics()
			audit = instrumentation.NewAuditLoggerWithConfig(logger, cfg.Instrumentation.AuditLogging)
		}
	}

	client, err := calcom.NewClient(cfg.Cal,
		calcom.WithLogger(logging.NewSlogAdapter(logger)),
		calcom.WithMetrics(metrics),
	)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to create cal.com client: %w", err)
	}

	if cfg.Cal.EventTypeID == 0 {
		logger.Warn("CAL_EVENT_TYPE_ID is not set, slot lookups and new bookings will fail")
	}

	scOpts := []server.ServerContextOption{server.WithMetrics(metrics)}
	if audit != nil {
		scOpts = append(scOpts, server.WithAuditLogger(audit))
	}
	sc, err := server.NewServerContext(booking.NewService(client, cfg.Cal.EventTypeID, logger), scOpts...)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	a.sc = sc
	a.registry = tools.NewRegistry(booking_tools.Tools(sc)...)

	logger.Debug("configuration loaded", cfg.LogAttrs()...)
	return a, nil
}

func (a *app) metrics() *instrumentation.Metrics {
	if a.sc == nil {
		return nil
	}
	return a.sc.Metrics()
}

// newAgent creates the chat agent for the configured provider.
func (a *app) newAgent() (*agent.Agent, error) {
	model, err := a.cfg.newModel()
	if err != nil {
		return nil, err
	}
	a.logger.Info("using language model", logging.Model(model.ID()))

	return agent.New(model, a.registry, a.cfg.Agent,
		agent.WithLogger(a.logger),
		agent.WithMetrics(a.metrics()),
	)
}

// newMCPServer creates an MCP server exposing the booking tools.
func (a *app) newMCPServer() (*mcpserver.MCPServer, error) {
	s := mcpserver.NewMCPServer("calchat", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := a.registry.Register(s); err != nil {
		return nil, fmt.Errorf("failed to register booking tools: %w", err)
	}
	return s, nil
}

func (a *app) close(ctx context.Context) {
	if a.sc != nil {
		if err := a.sc.Shutdown(); err != nil {
			a.logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}
}
