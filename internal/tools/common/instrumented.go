package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/logging"
	"github.com/teemow/drivelog/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. operation names the drivelog operation the tool performs.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", "track", sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account := EffectiveAccount(sc, request.GetArguments())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrOperation, operation))
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithOperation(operation).
			WithAccount(account).
			WithSpanContext(ctx)

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(resultText(result))
		}
		invocation.Complete(failure)

		if failure != nil {
			instrumentation.SetSpanError(span, failure)
			sc.Logger().Debug("Tool failed", logging.Tool(toolName), logging.UserHash(account), logging.Err(failure))
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), account, duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

// resultText joins the text content of a tool result.
func resultText(result *mcp.CallToolResult) string {
	var text string
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			if text != "" {
				text += "\n"
			}
			text += tc.Text
		}
	}
	if text == "" {
		return "tool returned an error result"
	}
	return text
}
