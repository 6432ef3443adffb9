package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the root configuration for timescribe, stored in
// ~/.timescribe/config.yaml.
type Config struct {
	// DataDir holds the database and the Outlook token cache.
	DataDir string        `mapstructure:"data_dir"`
	DBPath  string        `mapstructure:"db_path"`
	Log     LogConfig     `mapstructure:"log"`
	Outlook OutlookConfig `mapstructure:"outlook"`
}

// LogConfig holds defaults for the log command and diagnostics.
type LogConfig struct {
	// Source is the provenance tag stamped on logged intervals.
	Source string `mapstructure:"source"`
	// Level is the slog level: debug, info, warn or error.
	Level string `mapstructure:"level"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar sync settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `mapstructure:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `mapstructure:"client_id"`
	// DefaultProject is the project name assigned to imported Outlook events.
	DefaultProject string `mapstructure:"default_project"`
	// Timezone is the IANA timezone for event times (e.g. "Europe/Berlin"). Empty = local.
	Timezone string `mapstructure:"timezone"`
}

const (
	// EnvPrefix prefixes environment overrides, e.g. TIMESCRIBE_LOG_SOURCE.
	EnvPrefix = "TIMESCRIBE"
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration. Replace with your own registered app ID for
	// organisational or production deployments.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultProject is the project name used for imported events when none is specified.
	DefaultProject = "Meetings"
	// DefaultSource tags intervals logged from the command line.
	DefaultSource = "cli"
	// DefaultLevel is the default diagnostic log level.
	DefaultLevel = "info"

	dbFileName = "timescribe.db"
)

// configTemplate is the annotated config written on first run.
const configTemplate = `# timescribe configuration – ~/.timescribe/config.yaml
#
# All settings are optional; the built-in defaults shown below work out of
# the box. Every key can also be set through the environment, e.g.
# TIMESCRIBE_LOG_SOURCE=laptop or TIMESCRIBE_OUTLOOK_TIMEZONE=Europe/Berlin.

# Directory holding the database and the Outlook token cache.
# data_dir: ~/.timescribe

# SQLite database file. Defaults to <data_dir>/timescribe.db.
# db_path: ~/.timescribe/timescribe.db

log:
  # Provenance tag stored with every interval logged by "timescribe log".
  # Can be overridden per call with: timescribe log --source <tag>
  source: cli
  # Diagnostic log level: debug, info, warn, error. --verbose forces debug.
  level: info

# Microsoft Graph / Outlook calendar sync
outlook:
  # Azure AD tenant ID.
  #   "common"  – personal Microsoft accounts and any organisation (default)
  #   Your organisation's tenant GUID
  tenant_id: common

  # Azure application (client) ID used for the OAuth2 device code flow.
  # The built-in value is the public Azure CLI app – no app registration needed.
  client_id: 04b07795-8542-4c4a-95af-30b2c573d5ab

  # Default project assigned to imported calendar events.
  # Can be overridden per-sync with: timescribe outlook sync --project <name>
  default_project: Meetings

  # IANA timezone for interpreting calendar event times, e.g. "Europe/Berlin".
  # Leave empty to use the local zone.
  timezone: ""
`

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", "")
	v.SetDefault("db_path", "")
	v.SetDefault("log.source", DefaultSource)
	v.SetDefault("log.level", DefaultLevel)
	v.SetDefault("outlook.tenant_id", DefaultTenantID)
	v.SetDefault("outlook.client_id", DefaultClientID)
	v.SetDefault("outlook.default_project", DefaultProject)
	v.SetDefault("outlook.timezone", "")
	return v
}

// DefaultDir returns ~/.timescribe.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	return filepath.Join(home, ".timescribe"), nil
}

// Load reads the config file at path into v, creating it with annotated
// defaults on first run. An empty path means ~/.timescribe/config.yaml.
// Empty values are filled with built-in defaults so callers always get a
// usable Config even if the user only partially fills in the file.
func Load(v *viper.Viper, path string) (Config, bool, error) {
	created := false
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return Config{}, false, err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	_, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		if err := writeDefault(path); err != nil {
			return Config{}, false, err
		}
		created = true
	case statErr != nil:
		return Config{}, false, errors.Wrapf(statErr, "reading config file %s", path)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, created, errors.Wrapf(err, "parsing config file %s (delete it to regenerate defaults)", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, created, errors.Wrap(err, "decoding config")
	}
	if err := cfg.fill(); err != nil {
		return Config{}, created, err
	}
	return cfg, created, nil
}

func (c *Config) fill() error {
	if c.DataDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	c.DataDir = expandHome(c.DataDir)
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, dbFileName)
	}
	c.DBPath = expandHome(c.DBPath)
	if c.Log.Source == "" {
		c.Log.Source = DefaultSource
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLevel
	}
	if c.Outlook.TenantID == "" {
		c.Outlook.TenantID = DefaultTenantID
	}
	if c.Outlook.ClientID == "" {
		c.Outlook.ClientID = DefaultClientID
	}
	if c.Outlook.DefaultProject == "" {
		c.Outlook.DefaultProject = DefaultProject
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return errors.Wrap(err, "writing default config")
	}
	return nil
}
