package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/drivelog/internal/geocode"
	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/logging"
	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tools/account_tools"
	"github.com/teemow/drivelog/internal/tools/calendar_tools"
)

// Transports accepted by serve.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// serveOptions holds the serve command's flags.
type serveOptions struct {
	Transport        string
	HTTPAddr         string
	DisableStreaming bool
	Metrics          MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server so AI assistants can log
drives and list calendars.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport with health and metrics endpoints

The server never prompts. Sign in with 'drivelog account login' first, or use
the account_auth_url and account_save_auth_code tools.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Transport == transportStreamableHTTP && !cmd.Flags().Changed("log-format") {
				logger = logging.New(cmd.ErrOrStderr(), logging.FormatJSON, debugMode)
				slog.SetDefault(logger)
			}
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.DisableStreaming, "disable-streaming", false, "Disable SSE streaming responses (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.Metrics.Enabled, "metrics", true, "Serve Prometheus metrics (for streamable-http transport)")
	cmd.Flags().StringVar(&opts.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

func runServe(opts serveOptions) error {
	if opts.Transport != transportStdio && opts.Transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.Transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if addr := os.Getenv("METRICS_ADDR"); addr != "" && opts.Metrics.Addr == server.DefaultMetricsAddr {
		opts.Metrics.Addr = addr
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	geocoder, err := newGeocoder(cfg.Geocode, "", metrics, logger)
	if err != nil {
		logger.Warn("Reverse geocoding disabled; tracked drives will have no address", logging.Err(err))
		geocoder = geocode.NewFixed("")
	}

	// Nobody can be prompted: the chooser and interactor are unavailable.
	a, err := newApp(shutdownCtx, cfg, logger, appOptions{Geocoder: geocoder, Metrics: metrics})
	if err != nil {
		return err
	}
	defer a.Close()

	serverContext, err := server.NewServerContext(shutdownCtx, a.tracker, a.creds, logger)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("Error during server context shutdown", logging.Err(err))
		}
	}()
	serverContext.SetAuthorizer(a.tokens)
	serverContext.SetMetrics(metrics)
	serverContext.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging))

	mcpSrv := mcpserver.NewMCPServer("drivelog", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	if opts.Transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	if opts.Metrics.Enabled && provider.Enabled() && provider.PrometheusHandler() != nil {
		metricsServer, err := startMetricsServer(opts.Metrics.Addr, provider)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("Error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts)
}

// startMetricsServer starts the metrics server and waits until it listens.
func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  logging.NewSlogAdapter(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("Metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers every MCP tool group.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{name: "Calendar", register: func() error { return calendar_tools.RegisterCalendarTools(mcpSrv, sc) }},
		{name: "Account", register: func() error { return account_tools.RegisterAccountTools(mcpSrv, sc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		Health:           server.NewHealthChecker(sc),
		Metrics:          sc.Metrics(),
		DisableStreaming: opts.DisableStreaming,
		Logger:           logging.NewSlogAdapter(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.HTTPAddr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
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
