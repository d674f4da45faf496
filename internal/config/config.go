package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// HolidayFeed describes a single ICS subscription whose all-day events are
// shown as holidays.
type HolidayFeed struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" toml:"url" json:"url"`
	// ID is an internal identifier used for cache file names and logging.
	ID string `yaml:"id" toml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" toml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// Timezone is the IANA timezone that decides what "today" is.
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" toml:"week_start" json:"week_start"`

	// DataPath is the JSON file (file backend) or database file (sqlite backend).
	DataPath string `yaml:"data_path" toml:"data_path" json:"data_path"`

	// Backend selects the storage provider: "file" or "sqlite".
	Backend string `yaml:"backend" toml:"backend" json:"backend"`

	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	// DueSoonDays is how many days ahead a day with open tasks counts as due soon.
	DueSoonDays int `yaml:"due_soon_days" toml:"due_soon_days" json:"due_soon_days"`

	// HighDensity is the occurrence count above which a day is flagged busy.
	HighDensity int `yaml:"high_density" toml:"high_density" json:"high_density"`

	// DefaultCategories seeds the registry when nothing is persisted yet.
	DefaultCategories []string `yaml:"default_categories" toml:"default_categories" json:"default_categories"`

	HolidayFeeds []HolidayFeed `yaml:"holiday_feeds" toml:"holiday_feeds" json:"holiday_feeds"`

	// HolidayRefresh is a cron spec (e.g. "0 */6 * * *") for re-fetching feeds.
	HolidayRefresh string `yaml:"holiday_refresh" toml:"holiday_refresh" json:"holiday_refresh"`

	// ICSCacheDir stores fetched feeds with their ETag/Last-Modified metadata.
	ICSCacheDir string `yaml:"ics_cache_dir" toml:"ics_cache_dir" json:"ics_cache_dir"`

	// RefSecret signs occurrence references handed out by the API. When
	// empty a random secret is generated per process.
	RefSecret string `yaml:"ref_secret" toml:"ref_secret" json:"ref_secret"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "sunday"
	}
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		c.Backend = BackendFile
	}
	if c.DataPath == "" {
		if c.Backend == BackendSQLite {
			c.DataPath = "./data/taskcal.db"
		} else {
			c.DataPath = "./data/taskcal.json"
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DueSoonDays <= 0 {
		c.DueSoonDays = 7
	}
	if c.HighDensity <= 0 {
		c.HighDensity = 5
	}
	if len(c.DefaultCategories) == 0 {
		c.DefaultCategories = []string{"General", "Work", "Personal"}
	}
	if c.HolidayFeeds == nil {
		c.HolidayFeeds = []HolidayFeed{}
	}
	if c.HolidayRefresh == "" {
		c.HolidayRefresh = "0 */6 * * *"
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = "./cache/ics"
	}
}

// Location resolves Timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FirstWeekday returns the first day of the week for calendar grids.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func marshal(path string, cfg *Config) ([]byte, error) {
	if isTOML(path) {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}

// Load loads configuration from path. Files ending in ".toml" are TOML,
// everything else is YAML.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the file is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := unmarshal(path, data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, ensuring the
// parent directory exists (0700) and the final file is 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := marshal(path, cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".taskcal-config-*.tmp")
}

// WriteFileAtomic writes data next to path under a temp name and renames it
// into place with 0600 permissions.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
