package calendar_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tools/common"
)

// ToolListCalendars lists the calendars of an account.
const ToolListCalendars = "calendar_list_calendars"

// RegisterCalendarListTools registers calendar list tools with the MCP server
func RegisterCalendarListTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listCalendarsTool := mcp.NewTool(ToolListCalendars,
		mcp.WithDescription("List all calendars accessible to the account and mark the one drives are logged to"),
		mcp.WithString(common.ArgAccount,
			mcp.Description("Google account (email). Defaults to the signed-in account."),
		),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandler(ToolListCalendars, "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, sc)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(request.GetArguments())
	tr := sc.Tracker()

	calendars, err := tr.Calendars(ctx, account)
	if err != nil {
		return common.ErrorResult("Failed to list calendars", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d calendar(s):\n\n", len(calendars))
	found := false
	for i, cal := range calendars {
		fmt.Fprintf(&b, "%d. %s\n", i+1, cal.Summary)
		fmt.Fprintf(&b, "   ID: %s\n", cal.ID)
		if cal.AccessRole != "" {
			fmt.Fprintf(&b, "   Access Role: %s\n", cal.AccessRole)
		}
		if cal.Primary {
			b.WriteString("   [PRIMARY]\n")
		}
		if cal.Summary == tr.CalendarTitle() && !found {
			found = true
			b.WriteString("   [DRIVES]\n")
		}
		if cal.TimeZone != "" {
			fmt.Fprintf(&b, "   Time Zone: %s\n", cal.TimeZone)
		}
		b.WriteString("\n")
	}
	if !found {
		fmt.Fprintf(&b, "No calendar titled %q; create one to log drives.\n", tr.CalendarTitle())
	}

	return mcp.NewToolResultText(b.String()), nil
}
