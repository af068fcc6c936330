package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/logging"
)

// MCPEndpoint is the path of the streamable HTTP transport.
const MCPEndpoint = "/mcp"

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Health adds /healthz, /readyz and /healthz/detailed when set.
	Health *HealthChecker
	// Metrics records http_requests_total when set.
	Metrics *instrumentation.Metrics
	// DisableStreaming turns off SSE responses for clients that cannot
	// handle them.
	DisableStreaming bool
	Logger           logging.Logger
}

// HTTPServer serves an MCP server over the streamable HTTP transport.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	config     HTTPServerConfig
	httpServer *http.Server
	logger     logging.Logger
}

// NewHTTPServer wraps mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("mcp server is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &HTTPServer{mcpServer: mcpServer, config: config, logger: logger}, nil
}

// Handler returns the routed and instrumented handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(MCPEndpoint)}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	mux.Handle(MCPEndpoint, mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...))

	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}

	return instrumentHTTP(mux, s.config.Metrics)
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting MCP HTTP server", "addr", ln.Addr().String(), "endpoint", MCPEndpoint)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.config.Health != nil {
		s.config.Health.SetReady(false)
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func instrumentHTTP(next http.Handler, metrics *instrumentation.Metrics) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, routeLabel(r.URL.Path), rec.status, time.Since(start))
	})
}

// routeLabel keeps the path label bounded to the registered routes.
func routeLabel(path string) string {
	switch path {
	case MCPEndpoint, "/healthz", "/readyz", "/healthz/detailed":
		return path
	default:
		return "other"
	}
}
