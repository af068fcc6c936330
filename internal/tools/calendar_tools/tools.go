package calendar_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivelog/internal/server"
)

// RegisterCalendarTools registers all Calendar-related tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterCalendarListTools(s, sc); err != nil {
		return fmt.Errorf("failed to register calendar list tools: %w", err)
	}

	if err := RegisterTrackTools(s, sc); err != nil {
		return fmt.Errorf("failed to register track tools: %w", err)
	}

	if err := RegisterBatchTrackTools(s, sc); err != nil {
		return fmt.Errorf("failed to register batch track tools: %w", err)
	}

	return nil
}
