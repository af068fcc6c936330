// Package config loads drivelog's configuration from a YAML file, DRIVELOG_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teemow/drivelog/internal/session"
)

// EnvPrefix prefixes every environment variable, e.g. DRIVELOG_GEOCODE_API_KEY.
const EnvPrefix = "DRIVELOG"

// Storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config defines the application configuration structure
type Config struct {
	// Account is the Google account to use; empty means the stored one.
	Account string `mapstructure:"account"`
	// Accounts are offered by the interactive account chooser.
	Accounts []string       `mapstructure:"accounts"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Google   GoogleConfig   `mapstructure:"google"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

// AuthConfig controls how requests are authorized.
type AuthConfig struct {
	Scheme     string `mapstructure:"scheme"`
	TokenScope string `mapstructure:"token_scope"`
	// MaxReauth: 0 uses the default, negative disables re-authentication.
	MaxReauth int `mapstructure:"max_reauth"`
}

// GoogleConfig holds the OAuth client and API endpoints.
type GoogleConfig struct {
	ClientID         string `mapstructure:"client_id"`
	ClientSecret     string `mapstructure:"client_secret"`
	RedirectURL      string `mapstructure:"redirect_url"`
	CalendarEndpoint string `mapstructure:"calendar_endpoint"`
}

// StorageConfig selects where credentials are persisted.
type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
	// EncryptionKey is a base64 encoded 32-byte AES key.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// GeocodeConfig configures the reverse geocoder.
type GeocodeConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Language string `mapstructure:"language"`
}

// CalendarConfig names the calendar drives are logged to.
type CalendarConfig struct {
	Title string `mapstructure:"title"`
}

// keys lists every configuration key so each can be read from the
// environment.
var keys = []string{
	"account",
	"accounts",
	"auth.scheme",
	"auth.token_scope",
	"auth.max_reauth",
	"google.client_id",
	"google.client_secret",
	"google.redirect_url",
	"google.calendar_endpoint",
	"storage.type",
	"storage.path",
	"storage.namespace",
	"storage.encryption_key",
	"geocode.api_key",
	"geocode.endpoint",
	"geocode.language",
	"calendar.title",
}

// flagKeys maps configuration keys to the flag that overrides them.
var flagKeys = map[string]string{
	"account":          "account",
	"storage.type":     "storage",
	"storage.path":     "storage-path",
	"geocode.api_key":  "geocode-api-key",
	"calendar.title":   "calendar",
	"auth.scheme":      "auth-scheme",
	"auth.max_reauth":  "max-reauth",
	"google.client_id": "client-id",
}

// DefaultDir returns <user config dir>/drivelog.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".drivelog"
	}
	return filepath.Join(dir, "drivelog")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads the config file at path (a missing file is not an error),
// overlays DRIVELOG_* environment variables and then any flags in flags that
// were set explicitly. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Accounts = splitAccounts(cfg.Accounts)

	applyDefaults(&cfg)
	return cfg, nil
}

// splitAccounts accepts both a YAML list and a comma separated env value.
func splitAccounts(in []string) []string {
	var out []string
	for _, item := range in {
		for _, a := range strings.Split(item, ",") {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}
	}
	return out
}

// applyDefaults sets default values for any config values not set from file,
// environment or flags.
func applyDefaults(cfg *Config) {
	if cfg.Auth.Scheme == "" {
		cfg.Auth.Scheme = string(session.SchemeBearer)
	}
	if cfg.Auth.TokenScope == "" {
		cfg.Auth.TokenScope = "cl"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageFile
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultDir()
	}
	if cfg.Storage.Namespace == "" {
		cfg.Storage.Namespace = "drivelog"
	}
	if cfg.Geocode.Language == "" {
		cfg.Geocode.Language = "en"
	}
	if cfg.Calendar.Title == "" {
		cfg.Calendar.Title = "Driving"
	}
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if _, err := session.ParseScheme(c.Auth.Scheme); err != nil {
		return err
	}
	switch c.Storage.Type {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown storage type %q (want file, sqlite or memory)", c.Storage.Type)
	}
	if _, err := c.Storage.Key(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Calendar.Title) == "" {
		return fmt.Errorf("calendar title cannot be empty")
	}
	return nil
}

// Key decodes EncryptionKey. It returns nil when no key is configured.
func (s StorageConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("storage encryption key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("storage encryption key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// HasGoogleClient reports whether an OAuth client is configured.
func (g GoogleConfig) HasGoogleClient() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}
