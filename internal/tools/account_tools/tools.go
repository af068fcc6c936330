package account_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tools/common"
)

// Tool names.
const (
	ToolStatus       = "account_status"
	ToolAuthURL      = "account_auth_url"
	ToolSaveAuthCode = "account_save_auth_code"
)

// RegisterAccountTools registers the account tools with the MCP server. The
// authorization tools are only registered when sc has an Authorizer.
func RegisterAccountTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	statusTool := mcp.NewTool(ToolStatus,
		mcp.WithDescription("Show the signed-in Google account and whether it is authorized"),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandler(ToolStatus, "status", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStatus(ctx, request, sc)
		}))

	if sc.Authorizer() == nil {
		return nil
	}

	authURLTool := mcp.NewTool(ToolAuthURL,
		mcp.WithDescription("Get the URL where the user authorizes drivelog to access Google Calendar for an account"),
		mcp.WithString(common.ArgAccount,
			mcp.Description("Google account (email). Defaults to the signed-in account."),
		),
	)
	s.AddTool(authURLTool, common.InstrumentedToolHandler(ToolAuthURL, "auth_url", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAuthURL(ctx, request, sc)
		}))

	saveAuthCodeTool := mcp.NewTool(ToolSaveAuthCode,
		mcp.WithDescription("Complete the authorization started by account_auth_url with the code Google showed"),
		mcp.WithString(common.ArgAccount,
			mcp.Description("Google account (email). Defaults to the signed-in account."),
		),
		mcp.WithString("state",
			mcp.Required(),
			mcp.Description("The state value returned by account_auth_url"),
		),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler(ToolSaveAuthCode, "save_auth_code", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	return nil
}

func handleStatus(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cred := sc.Credential()
	if !cred.HasAccount() {
		return mcp.NewToolResultText("No account is signed in."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s\n", cred.AccountName)
	fmt.Fprintf(&b, "Auth token: %s\n", yesNo(cred.HasToken()))
	fmt.Fprintf(&b, "Session bound: %s\n", yesNo(cred.HasSession()))
	fmt.Fprintf(&b, "Driving calendar: %s\n", sc.Tracker().CalendarTitle())
	return mcp.NewToolResultText(b.String()), nil
}

// useAccount switches the stored account when args name a different one and
// returns the account to authorize.
func useAccount(ctx context.Context, sc *server.ServerContext, args map[string]interface{}) (string, error) {
	acct := common.EffectiveAccount(sc, args)
	if acct == "" {
		return "", fmt.Errorf("account is required when no account is signed in")
	}
	if acct != sc.Credential().AccountName {
		if err := sc.Credentials().SetAccount(ctx, acct); err != nil {
			return "", err
		}
	}
	return acct, nil
}

func handleAuthURL(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	acct, err := useAccount(ctx, sc, request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	grant, err := sc.Authorizer().GetToken(ctx, acct, account.DefaultTokenScope)
	if err != nil {
		return common.ErrorResult("Failed to start authorization", err), nil
	}
	if grant.Intent == nil {
		if grant.Token != "" {
			if err := sc.Credentials().SetAuthToken(ctx, grant.Token); err != nil {
				return common.ErrorResult("Failed to store auth token", err), nil
			}
		}
		return mcp.NewToolResultText(fmt.Sprintf("Account %s is already authorized.", acct)), nil
	}

	result := fmt.Sprintf(`To authorize Google Calendar access for %s:

1. Visit this URL in your browser:
   %s

2. Sign in and grant access
3. Copy the authorization code

4. Call %s with state=%q and the code`, acct, grant.Intent.URL, ToolSaveAuthCode, grant.Intent.State)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	state, _ := args["state"].(string)
	if state == "" {
		return mcp.NewToolResultError("state is required"), nil
	}
	authCode, _ := args["authCode"].(string)
	if authCode = strings.TrimSpace(authCode); authCode == "" {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	acct, err := useAccount(ctx, sc, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	intent := account.Intent{Account: acct, State: state}
	if err := sc.Authorizer().Exchange(ctx, intent, authCode); err != nil {
		return common.ErrorResult(fmt.Sprintf("Failed to save authorization code for %s", acct), err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Authorization successful for %s. Drives can now be logged.", acct)), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
