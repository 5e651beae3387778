package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/calchat/internal/logging"
	"github.com/teemow/calchat/internal/server"
	"github.com/teemow/calchat/internal/session"
)

const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

func newServeCmd() *cobra.Command {
	var (
		transport        string
		disableStreaming bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Long: `Start calchat.

With the http transport (default) the server provides:
  - GET  /             chat page
  - POST /chat         chat API, one agent turn per request
  - GET  /sessions/ID  stored transcript of a chat session
  - /mcp               MCP streamable HTTP endpoint with the booking tools
  - /healthz, /readyz  health probes

Prometheus metrics are served on a separate port (--metrics-addr).

With the stdio transport only the MCP server runs, for AI assistants that
launch calchat as a subprocess. No language model key is needed then.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(transport == transportHTTP); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			switch transport {
			case transportStdio:
				return runStdio(ctx, cfg)
			case transportHTTP:
				return runHTTP(ctx, cfg, disableStreaming)
			default:
				return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().String("http-addr", server.DefaultChatAddr, "HTTP listen address. Can also use HTTP_ADDR env var.")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable SSE streaming on the MCP endpoint")
	cmd.Flags().Bool("metrics-enabled", true, "Serve Prometheus metrics. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", server.DefaultMetricsAddr, "Metrics listen address. Can also use METRICS_ADDR env var.")
	addAgentFlags(cmd.Flags())
	addSessionFlags(cmd.Flags())

	return cmd
}

func runStdio(ctx context.Context, cfg *Config) error {
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	mcpSrv, err := a.newMCPServer()
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

func runHTTP(ctx context.Context, cfg *Config, disableStreaming bool) error {
	a, err := newApp(ctx, cfg, appOptions{instrumentation: true})
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	logger := a.logger

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && a.provider.ServesPrometheus() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: a.provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan string, 1)
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case addr := <-metricsReady:
			logger.Info("metrics server started", "addr", addr)
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error shutting down metrics server", logging.Err(err))
			}
		}()
	}

	store, err := session.NewStore(cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("error closing session store", logging.Err(err))
		}
	}()

	chatAgent, err := a.newAgent()
	if err != nil {
		return err
	}

	mcpSrv, err := a.newMCPServer()
	if err != nil {
		return err
	}
	mcpSessions := server.NewSessionIDManager(cfg.Session.TTL, logger)
	defer mcpSessions.Stop()

	mcpOpts := []mcpserver.StreamableHTTPOption{mcpserver.WithSessionIdManager(mcpSessions)}
	if disableStreaming {
		mcpOpts = append(mcpOpts, mcpserver.WithDisableStreaming(true))
	}

	health := server.NewHealthChecker(a.sc)
	health.SetVersion(version)
	if pinger, ok := store.(session.Pinger); ok {
		health.AddReadinessCheck("session_store", pinger.Ping)
	}

	chatServer, err := server.NewChatServer(server.ChatServerConfig{
		Agent:      chatAgent,
		Sessions:   store,
		MCPHandler: mcpserver.NewStreamableHTTPServer(mcpSrv, mcpOpts...),
		Health:     health,
		Metrics:    a.metrics(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := chatServer.Start(cfg.HTTPAddr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := chatServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
