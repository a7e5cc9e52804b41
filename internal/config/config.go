// Package config loads the YAML configuration file. A missing file yields
// the defaults; command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/dayledger/internal/constants"
	"github.com/julianstephens/dayledger/internal/keyring"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/shell"
	"github.com/julianstephens/dayledger/internal/storage/sqlstore"
	"github.com/julianstephens/dayledger/internal/utils"
)

type SchedulerConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval"`
	ReviewWeekday string        `yaml:"review_weekday"`
	ReviewHour    int           `yaml:"review_hour"`
	SummaryHour   int           `yaml:"summary_hour"`
	RetryBase     time.Duration `yaml:"retry_base"`
	RetryMax      time.Duration `yaml:"retry_max"`
}

type NotificationsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Tray forwards notifications to the desktop tray app when it is running.
	Tray bool `yaml:"tray"`
}

type Config struct {
	// Backend is one of sqlite, postgres or badger.
	Backend string `yaml:"backend"`
	// Database is the sqlite file, the badger directory or a postgres
	// connection string without a password. Empty means the backend's
	// default location under the config directory.
	Database      string              `yaml:"database,omitempty"`
	Timezone      string              `yaml:"timezone"`
	Debug         bool                `yaml:"debug"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationsConfig `yaml:"notifications"`

	// path is where the config was loaded from.
	path string
}

func Default() Config {
	return Config{
		Backend:  constants.DefaultBackend,
		Timezone: constants.DefaultTimezone,
		Scheduler: SchedulerConfig{
			TickInterval:  constants.DefaultTickInterval,
			ReviewWeekday: strings.ToLower(constants.DefaultReviewWeekday.String()),
			ReviewHour:    constants.DefaultReviewHour,
			SummaryHour:   constants.DefaultSummaryHour,
			RetryBase:     constants.DefaultRetryBase,
			RetryMax:      constants.DefaultRetryMax,
		},
		Notifications: NotificationsConfig{
			Enabled: constants.DefaultNotificationsEnabled,
			Tray:    true,
		},
	}
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// DefaultPath is $DAYLEDGER_CONFIG or ~/.config/dayledger/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(constants.EnvConfigPath); p != "" {
		return ExpandPath(p)
	}
	return ExpandPath(filepath.Join(constants.DefaultConfigDir, constants.DefaultConfigFile))
}

// Load reads the file at path over the defaults. A missing file is not an
// error. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	expanded, err := ExpandPath(path)
	if err != nil {
		return Config{}, err
	}
	cfg.path = expanded

	data, err := os.ReadFile(expanded)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("No config file, using defaults", "path", expanded)
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", expanded, err)
		}
	}

	if v := os.Getenv(constants.EnvDebug); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", expanded, err)
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c Config) Save(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(expanded, data, 0600)
}

// Path returns the file the config was loaded from.
func (c Config) Path() string {
	return c.path
}

// Dir is the directory holding the config file; default store locations
// live beside it.
func (c Config) Dir() string {
	if c.path != "" {
		return filepath.Dir(c.path)
	}
	dir, err := ExpandPath(constants.DefaultConfigDir)
	if err != nil {
		return constants.DefaultConfigDir
	}
	return dir
}

func (c Config) Validate() error {
	switch c.Backend {
	case constants.BackendSQLite, constants.BackendBadger:
	case constants.BackendPostgres:
		if c.Database != "" {
			if err := sqlstore.ValidateConnString(c.Database); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown backend %q (expected sqlite, postgres or badger)", c.Backend)
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	if _, err := ParseWeekday(c.Scheduler.ReviewWeekday); err != nil {
		return err
	}
	for name, hour := range map[string]int{"review_hour": c.Scheduler.ReviewHour, "summary_hour": c.Scheduler.SummaryHour} {
		if hour < 0 || hour > 23 {
			return fmt.Errorf("scheduler.%s must be within [0, 23], got %d", name, hour)
		}
	}
	if c.Scheduler.TickInterval < time.Second {
		return fmt.Errorf("scheduler.tick_interval must be at least 1s, got %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.RetryBase <= 0 || c.Scheduler.RetryMax < c.Scheduler.RetryBase {
		return fmt.Errorf("scheduler.retry_base must be positive and no larger than retry_max")
	}
	return nil
}

// ParseWeekday accepts a full or three-letter English day name, or 0-6
// with 0 as Sunday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Timezone)
}

// Shell converts the scheduler section for the scheduling shell.
func (c Config) Shell() shell.Config {
	weekday, _ := ParseWeekday(c.Scheduler.ReviewWeekday)
	return shell.Config{
		TickInterval:  c.Scheduler.TickInterval,
		ReviewWeekday: weekday,
		ReviewHour:    c.Scheduler.ReviewHour,
		SummaryHour:   c.Scheduler.SummaryHour,
		RetryBase:     c.Scheduler.RetryBase,
		RetryMax:      c.Scheduler.RetryMax,
	}
}

// DatabasePath returns the store location for file-based backends,
// defaulting to the config directory.
func (c Config) DatabasePath() (string, error) {
	if c.Database != "" {
		return ExpandPath(c.Database)
	}
	switch c.Backend {
	case constants.BackendBadger:
		return filepath.Join(c.Dir(), constants.DefaultKVDir), nil
	default:
		return filepath.Join(c.Dir(), constants.DefaultDBFile), nil
	}
}

// ConnectionString resolves the postgres connection string: the
// environment first, then the OS keyring, then the config file. Only the
// config file value is forbidden from carrying a password.
func (c Config) ConnectionString() (string, error) {
	if v := os.Getenv(constants.EnvDBConnection); v != "" {
		return v, nil
	}
	connStr, err := keyring.GetConnectionString()
	switch {
	case err == nil:
		return connStr, nil
	case errors.Is(err, keyring.ErrNotFound):
	default:
		logger.Debug("Keyring lookup failed", "error", err)
	}
	if c.Database == "" {
		return "", fmt.Errorf("no postgres connection string: set %s, store one with 'dayledger keyring set', or set database in %s",
			constants.EnvDBConnection, c.Path())
	}
	return c.Database, nil
}
