// Package instrumentation wires OpenTelemetry metrics and tracing into
// drivelog.
//
// # Metrics
//
// Google API:
//   - google_api_operations_total: calls by service, operation and status
//   - google_api_operation_duration_seconds: call latency
//
// Authentication:
//   - auth_events_total: credential transitions by event (session_bound,
//     token_cleared, token_granted, reauthenticated, cancelled)
//   - oauth_token_refresh_total: refresh attempts by result
//
// Tracking:
//   - drives_tracked_total: finished track operations by outcome
//
// Serve mode:
//   - http_requests_total, http_request_duration_seconds
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// The prometheus exporter writes to a registry owned by the Provider;
// PrometheusHandler exposes it.
//
// # Tracing
//
// Spans are named google.<service>.<operation> for API calls,
// tool.<name> for MCP tools and tracker.track for a whole tracking run.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: enable/disable (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: drivelog)
package instrumentation
