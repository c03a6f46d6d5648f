// Package config loads boomic's settings: defaults, then a YAML file,
// then BOOMIC_* environment variables.
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

	"github.com/kevink2022/Boomic-sub000/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	Music       MusicConfig       `yaml:"music"`
	Scanner     ScannerConfig     `yaml:"scanner"`
	Backup      BackupConfig      `yaml:"backup"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logging     logging.Config    `yaml:"logging"`
}

// LogConfig selects where committed transactions are stored.
type LogConfig struct {
	// Backend is sqlite, file or memory.
	Backend string `yaml:"backend"`
	// Dir holds the file backend's logs.
	Dir       string `yaml:"dir"`
	Namespace string `yaml:"namespace"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MusicConfig describes the music library on disk.
type MusicConfig struct {
	LibraryPath string `yaml:"library_path"`
	Watch       bool   `yaml:"watch"`
	// Debounce is how long the library must be quiet before a rescan.
	Debounce time.Duration `yaml:"debounce"`
	// MinRescanInterval is the minimum time between two rescans.
	MinRescanInterval time.Duration `yaml:"min_rescan_interval"`
	// PollInterval is used where file notifications are unavailable.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ScannerConfig controls which files a scan picks up.
type ScannerConfig struct {
	Extensions []string `yaml:"extensions"`
	Exclusions []string `yaml:"exclusions"`
}

// BackupConfig controls scheduled snapshots of the SQLite log.
type BackupConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir defaults to a backups directory next to the database.
	Dir        string        `yaml:"dir"`
	Interval   time.Duration `yaml:"interval"`
	Retention  int           `yaml:"retention"`
	MaxAgeDays int           `yaml:"max_age_days"`
}

// MaintenanceConfig controls scheduled optimization of the SQLite log.
type MaintenanceConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Backend:   "sqlite",
			Dir:       "/data/log",
			Namespace: "library",
		},
		Database: DatabaseConfig{
			Path: "/data/boomic.db",
		},
		Music: MusicConfig{
			LibraryPath:       "/music",
			Watch:             true,
			Debounce:          2 * time.Second,
			MinRescanInterval: 30 * time.Second,
			PollInterval:      time.Minute,
		},
		Scanner: ScannerConfig{
			Extensions: []string{".mp3", ".flac", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".aiff", ".alac"},
			Exclusions: []string{"@eaDir", "#recycle", "lost+found"},
		},
		Backup: BackupConfig{
			Enabled:   true,
			Interval:  24 * time.Hour,
			Retention: 7,
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Interval: 24 * time.Hour,
		},
		Logging: logging.DefaultConfig(),
	}
}

// BackupDir returns the backup directory, defaulting to "backups" beside
// the database file.
func (c *Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(filepath.Dir(c.Database.Path), "backups")
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	str := map[string]*string{
		"BOOMIC_LOG_BACKEND":   &c.Log.Backend,
		"BOOMIC_LOG_DIR":       &c.Log.Dir,
		"BOOMIC_LOG_NAMESPACE": &c.Log.Namespace,
		"BOOMIC_DB_PATH":       &c.Database.Path,
		"BOOMIC_MUSIC_PATH":    &c.Music.LibraryPath,
		"BOOMIC_LOG_LEVEL":     &c.Logging.Level,
		"BOOMIC_LOG_FORMAT":    &c.Logging.Format,
		"BOOMIC_LOG_FILE":      &c.Logging.FilePath,
		"BOOMIC_BACKUP_DIR":    &c.Backup.Dir,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"BOOMIC_DEBOUNCE":             &c.Music.Debounce,
		"BOOMIC_MIN_RESCAN_INTERVAL":  &c.Music.MinRescanInterval,
		"BOOMIC_POLL_INTERVAL":        &c.Music.PollInterval,
		"BOOMIC_BACKUP_INTERVAL":      &c.Backup.Interval,
		"BOOMIC_MAINTENANCE_INTERVAL": &c.Maintenance.Interval,
	}
	var errs []error
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = d
		}
	}

	bools := map[string]*bool{
		"BOOMIC_WATCH":               &c.Music.Watch,
		"BOOMIC_BACKUP_ENABLED":      &c.Backup.Enabled,
		"BOOMIC_MAINTENANCE_ENABLED": &c.Maintenance.Enabled,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = b
		}
	}

	if v := os.Getenv("BOOMIC_BACKUP_RETENTION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BOOMIC_BACKUP_RETENTION: %w", err))
		} else {
			c.Backup.Retention = n
		}
	}
	if v := os.Getenv("BOOMIC_EXTENSIONS"); v != "" {
		c.Scanner.Extensions = splitList(v)
	}
	if v := os.Getenv("BOOMIC_EXCLUSIONS"); v != "" {
		c.Scanner.Exclusions = splitList(v)
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Log.Backend {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite log")
		}
	case "file":
		if c.Log.Dir == "" {
			return fmt.Errorf("log dir is required for the file log")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid log backend %q", c.Log.Backend)
	}
	if c.Log.Namespace == "" {
		return fmt.Errorf("log namespace is required")
	}
	if c.Music.LibraryPath == "" {
		return fmt.Errorf("music library path is required")
	}
	if c.Music.Debounce < 0 || c.Music.MinRescanInterval < 0 || c.Music.PollInterval < 0 {
		return fmt.Errorf("watch intervals must not be negative")
	}
	if c.Backup.Enabled {
		if c.Backup.Interval <= 0 {
			return fmt.Errorf("backup interval must be positive")
		}
		if c.Backup.Retention < 1 {
			return fmt.Errorf("backup retention must be at least 1")
		}
	}
	if c.Backup.MaxAgeDays < 0 {
		return fmt.Errorf("backup max age must not be negative")
	}
	if c.Maintenance.Enabled && c.Maintenance.Interval <= 0 {
		return fmt.Errorf("maintenance interval must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}
