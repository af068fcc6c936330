// Package server provides the MCP server context and the HTTP surfaces of
// drivelog serve.
//
// ServerContext carries the drive tracker, the credential source and the
// optional metrics and audit logger into every tool handler.
//
// HTTPServer exposes the MCP server over the streamable HTTP transport at
// /mcp together with the health endpoints:
//   - /healthz: liveness
//   - /readyz: readiness, fails while shutting down
//   - /healthz/detailed: uptime and whether an account is signed in
//
// MetricsServer serves Prometheus metrics on a dedicated port so operational
// data is not exposed on the MCP listener.
package server
