// Package batch provides helpers for MCP tools that apply one operation to
// several items.
//
// This package includes helpers for:
//   - Parsing parameters that accept one object or an array of objects
//   - Processing items in order while tolerating partial failures
//   - Formatting the per-item results in a consistent JSON structure
package batch
