package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tools/common"
	"github.com/teemow/drivelog/internal/tracker"
)

// ToolTrackDrive logs a drive to the driving calendar.
const ToolTrackDrive = "calendar_track_drive"

const dateLayout = "2006-01-02"

// RegisterTrackTools registers the drive tracking tool with the MCP server
func RegisterTrackTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	trackTool := mcp.NewTool(ToolTrackDrive,
		mcp.WithDescription("Log a drive as an all-day event titled '<km> km, <address>' in the driving calendar. The address is looked up from the position."),
		mcp.WithString(common.ArgAccount,
			mcp.Description("Google account (email). Defaults to the signed-in account."),
		),
		mcp.WithNumber("km",
			mcp.Required(),
			mcp.Description("Distance driven in kilometres"),
		),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("Latitude of the position to reverse geocode"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("Longitude of the position to reverse geocode"),
		),
		mcp.WithString("date",
			mcp.Description("Date of the drive (YYYY-MM-DD). Defaults to today."),
		),
	)

	s.AddTool(trackTool, common.InstrumentedToolHandler(ToolTrackDrive, "track", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTrackDrive(ctx, request, sc)
		}))

	return nil
}

func handleTrackDrive(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	drive, err := driveFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sc.Tracker().Track(ctx, drive)
	if err != nil {
		return common.ErrorResult("Failed to track drive", err), nil
	}

	title := sc.Tracker().CalendarTitle()
	switch result.Outcome {
	case tracker.OutcomeCreated:
		text := fmt.Sprintf("Drive logged to %q: %s", result.Calendar.Summary, result.Title)
		if result.Event != nil && result.Event.HTMLLink != "" {
			text += "\nLink: " + result.Event.HTMLLink
		}
		return mcp.NewToolResultText(text), nil
	case tracker.OutcomeNotFound:
		return mcp.NewToolResultError(fmt.Sprintf("No calendar titled %q was found. Create it and try again.", title)), nil
	case tracker.OutcomeNoAddress:
		return mcp.NewToolResultError("No address found for the position; the drive was not logged."), nil
	case tracker.OutcomeCancelled:
		return mcp.NewToolResultError("Authorization was cancelled; the drive was not logged."), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Unexpected outcome %q", result.Outcome)), nil
	}
}

func driveFromArgs(args map[string]interface{}) (tracker.Drive, error) {
	drive := tracker.Drive{Account: common.GetAccountFromArgs(args)}

	var ok bool
	if drive.Kilometers, ok = args["km"].(float64); !ok {
		return tracker.Drive{}, fmt.Errorf("km is required")
	}
	if drive.Latitude, ok = args["latitude"].(float64); !ok {
		return tracker.Drive{}, fmt.Errorf("latitude is required")
	}
	if drive.Longitude, ok = args["longitude"].(float64); !ok {
		return tracker.Drive{}, fmt.Errorf("longitude is required")
	}

	if date, _ := args["date"].(string); date != "" {
		parsed, err := time.ParseInLocation(dateLayout, date, time.Local)
		if err != nil {
			return tracker.Drive{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		drive.Date = parsed
	}
	return drive, nil
}
