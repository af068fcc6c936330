package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/drivelog/internal/config"
	"github.com/teemow/drivelog/internal/logging"
)

// Global flags shared by every command.
var (
	configPath string
	debugMode  bool
	logFormat  string

	cfg    config.Config
	logger *slog.Logger
)

// rootCmd represents the base command for the drivelog application
var rootCmd = &cobra.Command{
	Use:   "drivelog",
	Short: "Logs car drives to a Google calendar",
	Long: `drivelog records a drive as an all-day event in your "Driving" Google
calendar, titled with the distance and the address where the drive ended.

It can run as:
  - A standalone CLI tool (default: drivelog track)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "drivelog version %s\n" .Version}}`)

	// If no subcommand is provided, run the track command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "track")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "Path to the YAML config file")
	pf.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	pf.StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")

	pf.String("account", "", "Google account to use (default: the stored account)")
	pf.String("storage", config.StorageFile, "Credential storage: file, sqlite or memory")
	pf.String("storage-path", "", "Directory for stored credentials (default: the config directory)")
	pf.String("calendar", "", `Title of the calendar drives are logged to (default "Driving")`)
	pf.String("auth-scheme", "", "Authorization header scheme: bearer or googlelogin")
	pf.Int("max-reauth", 0, "Re-authentications after a 401 (0: default, negative: none)")
	pf.String("client-id", "", "Google OAuth client ID")
	pf.String("geocode-api-key", "", "Google Geocoding API key")

	rootCmd.AddCommand(newTrackCmd())
	rootCmd.AddCommand(newCalendarsCmd())
	rootCmd.AddCommand(newAccountCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// loadConfig fills cfg and logger from the config file, the environment and
// the flags of cmd.
func loadConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	logger = logging.New(cmd.ErrOrStderr(), logFormat, debugMode)
	slog.SetDefault(logger)
	return nil
}
