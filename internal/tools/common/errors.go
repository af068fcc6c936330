package common

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/tracker"
)

// authHint is appended when a tool needs an interactive authorization the
// server cannot perform itself.
const authHint = "Call account_auth_url to authorize the account, then account_save_auth_code with the code."

// ErrorResult renders err as a tool error result prefixed with what failed.
func ErrorResult(what string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s: %v", what, err)
	switch {
	case errors.Is(err, account.ErrInteractionUnavailable):
		msg += "\n\n" + authHint
	case errors.Is(err, tracker.ErrInvalidDrive):
		// The message already names the bad argument.
	case tracker.IsTransportError(err):
		msg += "\n\nThe Google service could not be reached or rejected the request; try again later."
	}
	return mcp.NewToolResultError(msg)
}
