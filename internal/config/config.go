package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: YAML-based load/save with first-run config creation and 0600
// permissions.

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "UTC"
	defaultLogLevel       = "info"
	defaultMaxOccurrences = 5000
	defaultExportSchedule = "*/15 * * * *"
)

// CalendarConfig describes a calendar created at startup.
type CalendarConfig struct {
	Name string `yaml:"name" json:"name"`
	// Timezone is an IANA zone name. Empty means the top-level timezone.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	// Import lists ICS files or http(s) URLs loaded into the calendar.
	Import []string `yaml:"import,omitempty" json:"import,omitempty"`
}

// ExportConfig controls the scheduled ICS export. An empty Dir disables it.
type ExportConfig struct {
	Dir string `yaml:"dir" json:"dir"`
	// Schedule is a standard 5-field cron expression.
	Schedule string `yaml:"schedule" json:"schedule"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the default IANA zone for calendars without their own.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// AutoDecline is the default for adds that do not say otherwise.
	AutoDecline bool `yaml:"auto_decline" json:"auto_decline"`

	// MaxOccurrences caps a single recurring expansion.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`

	// Active names the calendar in use at startup.
	Active string `yaml:"active,omitempty" json:"active,omitempty"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`

	// CacheDir holds conditional-request caches for imported URLs.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`

	Export ExportConfig `yaml:"export" json:"export"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		LogLevel:       defaultLogLevel,
		AutoDecline:    false,
		MaxOccurrences: defaultMaxOccurrences,
		Active:         "Default",
		Calendars:      []CalendarConfig{{Name: "Default"}},
		Export:         ExportConfig{Schedule: defaultExportSchedule},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = defaultMaxOccurrences
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	if c.Export.Schedule == "" {
		c.Export.Schedule = defaultExportSchedule
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	seen := make(map[string]bool)
	for i, cal := range c.Calendars {
		if strings.TrimSpace(cal.Name) == "" {
			errs = append(errs, fmt.Errorf("calendars[%d]: empty name", i))
			continue
		}
		if seen[cal.Name] {
			errs = append(errs, fmt.Errorf("calendars[%d]: duplicate name %q", i, cal.Name))
		}
		seen[cal.Name] = true
		if cal.Timezone != "" {
			if _, err := time.LoadLocation(cal.Timezone); err != nil {
				errs = append(errs, fmt.Errorf("calendars[%d] timezone: %w", i, err))
			}
		}
	}
	if c.Active != "" && !seen[c.Active] {
		errs = append(errs, fmt.Errorf("active: no calendar named %q", c.Active))
	}
	if _, err := cron.ParseStandard(c.Export.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("export.schedule: %w", err))
	}
	return errors.Join(errs...)
}

// Location resolves the zone of a configured calendar.
func (c *Config) Location(cal CalendarConfig) (*time.Location, error) {
	name := cal.Timezone
	if name == "" {
		name = c.Timezone
	}
	return time.LoadLocation(name)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config with 0600 perms
//     and return it.
//   - Otherwise unmarshal the YAML and normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calmgr-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
