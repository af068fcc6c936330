package calendar_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tools/batch"
	"github.com/teemow/drivelog/internal/tools/common"
	"github.com/teemow/drivelog/internal/tracker"
)

// ToolTrackDrives logs several drives in one call.
const ToolTrackDrives = "calendar_track_drives"

// RegisterBatchTrackTools registers the batch drive tracking tool.
func RegisterBatchTrackTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	tool := mcp.NewTool(ToolTrackDrives,
		mcp.WithDescription(fmt.Sprintf("Log up to %d drives at once. Each drive is handled like %s; one failing drive does not stop the others.", batch.MaxItems, ToolTrackDrive)),
		mcp.WithString(common.ArgAccount,
			mcp.Description("Google account (email) for drives that name none. Defaults to the signed-in account."),
		),
		mcp.WithString("drives",
			mcp.Required(),
			mcp.Description(`JSON array of drives, e.g. [{"km": 42, "latitude": 52.52, "longitude": 13.405, "date": "2026-03-01"}]`),
		),
	)

	s.AddTool(tool, common.InstrumentedToolHandler(ToolTrackDrives, "track_batch", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTrackDrives(ctx, request, sc)
		}))

	return nil
}

func handleTrackDrives(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	objects, err := batch.ParseObjects(args["drives"], "drives")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fallback := common.GetAccountFromArgs(args)
	title := sc.Tracker().CalendarTitle()

	results := batch.Process(ctx, objects, func(ctx context.Context, obj map[string]any) (string, error) {
		drive, err := driveFromArgs(obj)
		if err != nil {
			return "", err
		}
		if drive.Account == "" {
			drive.Account = fallback
		}

		res, err := sc.Tracker().Track(ctx, drive)
		if err != nil {
			return "", err
		}
		if res.Outcome != tracker.OutcomeCreated {
			return "", outcomeError(res.Outcome, title)
		}
		return res.Title, nil
	})

	out := batch.FormatResults(results)
	if batch.Summarize(results).Successful == 0 {
		return mcp.NewToolResultError(out), nil
	}
	return mcp.NewToolResultText(out), nil
}

// outcomeError describes why a drive was not logged.
func outcomeError(outcome tracker.Outcome, title string) error {
	switch outcome {
	case tracker.OutcomeNotFound:
		return fmt.Errorf("no calendar titled %q", title)
	case tracker.OutcomeNoAddress:
		return fmt.Errorf("no address found for the position")
	case tracker.OutcomeCancelled:
		return fmt.Errorf("authorization was cancelled")
	default:
		return fmt.Errorf("unexpected outcome %q", outcome)
	}
}
