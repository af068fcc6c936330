// Package logging provides structured logging utilities for drivelog.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Handler construction for the CLI (text) and the server (JSON)
//   - PII sanitization (account anonymization)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list")
//	logger.Info("listing calendars",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("token stored",
//	    logging.UserHash(account),
//	    slog.String("token", logging.SanitizeToken(token)))
//
// # Security Considerations
//
//   - Account names are hashed to prevent PII leakage while allowing correlation
//   - Auth tokens and session ids are never logged directly
package logging
