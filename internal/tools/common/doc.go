// Package common provides helpers shared by the MCP tool packages: account
// argument handling and the instrumented handler wrapper.
package common
