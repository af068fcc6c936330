package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tracker"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// docsTracker satisfies server.DriveTracker so tools can be registered
// without credentials; its methods are never called.
type docsTracker struct{}

func (docsTracker) Track(context.Context, tracker.Drive) (tracker.Result, error) {
	return tracker.Result{}, errDocsOnly
}

func (docsTracker) Calendars(context.Context, string) ([]calendar.CalendarInfo, error) {
	return nil, errDocsOnly
}

func (docsTracker) CalendarTitle() string { return calendar.DrivingCalendarTitle }

// docsAuthorizer makes the authorization tools visible in the reference.
type docsAuthorizer struct{}

func (docsAuthorizer) GetToken(context.Context, string, string) (account.Grant, error) {
	return account.Grant{}, errDocsOnly
}

func (docsAuthorizer) Exchange(context.Context, account.Intent, string) error {
	return errDocsOnly
}

var errDocsOnly = errors.New("not available while generating docs")

// newDocsServerContext builds a ServerContext that can register every tool
// without network access.
func newDocsServerContext(creds server.CredentialSource) (*server.ServerContext, error) {
	sc, err := server.NewServerContext(context.Background(), docsTracker{}, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	sc.SetAuthorizer(docsAuthorizer{})
	return sc, nil
}

// registeredTools registers every tool group and returns the tool
// definitions.
func registeredTools(sc *server.ServerContext) ([]mcp.Tool, error) {
	mcpSrv := mcpserver.NewMCPServer("drivelog", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(mcpSrv, sc); err != nil {
		return nil, err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func runGenerateDocs(outputFile string) error {
	creds, err := credential.NewManager(context.Background(), credential.NewMemoryStore(nil), logger)
	if err != nil {
		return err
	}
	serverContext, err := newDocsServerContext(creds)
	if err != nil {
		return err
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	tools, err := registeredTools(serverContext)
	if err != nil {
		return err
	}

	// Generate markdown documentation
	markdown := generateToolsMarkdown(tools)

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running drivelog as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Group tools by category
	toolsByCategory := groupToolsByCategory(tools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	// Account note
	sb.WriteString("## Accounts\n\n")
	sb.WriteString("Tools that talk to Google accept an optional `account` parameter:\n\n")
	sb.WriteString("- **Default behavior:** If `account` is not specified, the stored account is used\n")
	sb.WriteString("- **Switching:** Passing a different account switches the stored account and drops its tokens and session\n")
	sb.WriteString("- **Authorization:** The server never prompts; use `account_auth_url` and `account_save_auth_code` to authorize an account\n\n")

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) == 0 {
		return "Other"
	}

	prefix := parts[0]
	switch prefix {
	case "calendar":
		return "Calendar Tools"
	case "account":
		return "Account Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	// Tool name
	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	// Input schema
	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]
			isRequired := contains(tool.InputSchema.Required, name)

			requiredStr := "optional"
			if isRequired {
				requiredStr = "required"
			}

			// Get property type and description from the property map
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}

			propType := getPropertyType(propMap)

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))

			// Get description
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	return slices.Contains(slice, item)
}
