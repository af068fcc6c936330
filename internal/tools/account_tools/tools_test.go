package account_tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tracker"
)

type stubTracker struct{}

func (stubTracker) Track(context.Context, tracker.Drive) (tracker.Result, error) {
	return tracker.Result{}, nil
}

func (stubTracker) Calendars(context.Context, string) ([]calendar.CalendarInfo, error) {
	return nil, nil
}

func (stubTracker) CalendarTitle() string { return calendar.DrivingCalendarTitle }

type fakeAuthorizer struct {
	grant     account.Grant
	exchanged []account.Intent
	codes     []string
	err       error
}

func (f *fakeAuthorizer) GetToken(_ context.Context, acct, _ string) (account.Grant, error) {
	if f.grant.Intent != nil {
		f.grant.Intent.Account = acct
	}
	return f.grant, f.err
}

func (f *fakeAuthorizer) Exchange(_ context.Context, intent account.Intent, code string) error {
	f.exchanged = append(f.exchanged, intent)
	f.codes = append(f.codes, code)
	return f.err
}

func newContext(t *testing.T, cred credential.Credential, auth server.Authorizer) (*server.ServerContext, *credential.Manager) {
	t.Helper()
	values := map[string]string{}
	if cred.AccountName != "" {
		values[credential.KeyAccountName] = cred.AccountName
	}
	if cred.AuthToken != "" {
		values[credential.KeyAuthToken] = cred.AuthToken
	}
	mgr, err := credential.NewManager(context.Background(), credential.NewMemoryStore(values), nil)
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(), stubTracker{}, mgr, nil)
	require.NoError(t, err)
	if auth != nil {
		sc.SetAuthorizer(auth)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, mgr
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return tc.Text
}

func listTools(t *testing.T, s *mcpserver.MCPServer) string {
	t.Helper()
	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(raw)
}

func TestRegisterAccountTools(t *testing.T) {
	t.Run("without authorizer", func(t *testing.T) {
		s := mcpserver.NewMCPServer("drivelog-test", "1.0.0", mcpserver.WithToolCapabilities(true))
		sc, _ := newContext(t, credential.Credential{}, nil)
		require.NoError(t, RegisterAccountTools(s, sc))

		tools := listTools(t, s)
		assert.Contains(t, tools, ToolStatus)
		assert.NotContains(t, tools, ToolAuthURL)
	})

	t.Run("with authorizer", func(t *testing.T) {
		s := mcpserver.NewMCPServer("drivelog-test", "1.0.0", mcpserver.WithToolCapabilities(true))
		sc, _ := newContext(t, credential.Credential{}, &fakeAuthorizer{})
		require.NoError(t, RegisterAccountTools(s, sc))

		tools := listTools(t, s)
		assert.Contains(t, tools, ToolAuthURL)
		assert.Contains(t, tools, ToolSaveAuthCode)
	})
}

func TestHandleStatus(t *testing.T) {
	sc, _ := newContext(t, credential.Credential{}, nil)
	result, err := handleStatus(context.Background(), request(nil), sc)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "No account is signed in")

	sc, _ = newContext(t, credential.Credential{AccountName: "me@example.com", AuthToken: "tok"}, nil)
	result, err = handleStatus(context.Background(), request(nil), sc)
	require.NoError(t, err)
	out := text(t, result)
	assert.Contains(t, out, "Account: me@example.com")
	assert.Contains(t, out, "Auth token: yes")
	assert.Contains(t, out, "Session bound: no")
	assert.NotContains(t, out, "tok\n")
}

func TestHandleAuthURL(t *testing.T) {
	t.Run("consent needed", func(t *testing.T) {
		auth := &fakeAuthorizer{grant: account.Grant{Intent: &account.Intent{URL: "https://consent.example.com", State: "st-1"}}}
		sc, mgr := newContext(t, credential.Credential{AccountName: "old@example.com", AuthToken: "t"}, auth)

		result, err := handleAuthURL(context.Background(), request(map[string]interface{}{"account": "new@example.com"}), sc)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		out := text(t, result)
		assert.Contains(t, out, "https://consent.example.com")
		assert.Contains(t, out, `state="st-1"`)

		snap := mgr.Snapshot()
		assert.Equal(t, "new@example.com", snap.AccountName)
		assert.Empty(t, snap.AuthToken, "switching accounts drops the old token")
	})

	t.Run("already authorized", func(t *testing.T) {
		sc, mgr := newContext(t, credential.Credential{AccountName: "me@example.com"}, &fakeAuthorizer{grant: account.Grant{Token: "tok"}})

		result, err := handleAuthURL(context.Background(), request(nil), sc)
		require.NoError(t, err)
		assert.Contains(t, text(t, result), "already authorized")
		assert.Equal(t, "tok", mgr.Snapshot().AuthToken, "the minted token is kept")
	})

	t.Run("no account", func(t *testing.T) {
		sc, _ := newContext(t, credential.Credential{}, &fakeAuthorizer{})

		result, err := handleAuthURL(context.Background(), request(nil), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleSaveAuthCode(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		err       error
		wantError bool
		wantText  string
	}{
		{name: "saved", args: map[string]interface{}{"state": "st-1", "authCode": " code \n"}, wantText: "Authorization successful"},
		{name: "missing state", args: map[string]interface{}{"authCode": "code"}, wantError: true, wantText: "state is required"},
		{name: "missing code", args: map[string]interface{}{"state": "st-1", "authCode": "  "}, wantError: true, wantText: "authCode is required"},
		{name: "exchange fails", args: map[string]interface{}{"state": "st-1", "authCode": "code"}, err: errors.New("invalid_grant"), wantError: true, wantText: "invalid_grant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuthorizer{err: tt.err}
			sc, _ := newContext(t, credential.Credential{AccountName: "me@example.com"}, auth)

			result, err := handleSaveAuthCode(context.Background(), request(tt.args), sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantError, result.IsError)
			assert.Contains(t, text(t, result), tt.wantText)

			if tt.name == "saved" {
				require.Len(t, auth.exchanged, 1)
				assert.Equal(t, account.Intent{Account: "me@example.com", State: "st-1"}, auth.exchanged[0])
				assert.Equal(t, []string{"code"}, auth.codes)
			}
		})
	}
}
