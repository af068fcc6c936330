// Package cmd implements the command-line interface for drivelog.
//
// This package provides the following commands:
//   - track: Log a drive as an all-day event in the Driving calendar
//   - calendars: List the account's calendars and mark the Driving one
//   - account: Sign in (login), inspect (status) or forget (logout) the account
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The track command is the default command when no subcommand is specified.
package cmd
