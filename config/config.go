// backend/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultCSVURL is the clinic's published appointment sheet.
const DefaultCSVURL = "https://docs.google.com/spreadsheets/d/1MBDBHQ08XGuf5LxVHCFhHDagIazFkpBnxwqyEQIBJrQ/export?format=csv&gid=0"

// DefaultFallbackCSVURL is the same export without the sheet gid.
const DefaultFallbackCSVURL = "https://docs.google.com/spreadsheets/d/1MBDBHQ08XGuf5LxVHCFhHDagIazFkpBnxwqyEQIBJrQ/export?format=csv"

type ServerConfig struct {
	Port               string   `yaml:"port"`
	CORSOrigins        []string `yaml:"cors_origins"`
	ShutdownTimeoutStr string   `yaml:"shutdown_timeout"`
	ShutdownTimeout    time.Duration
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Path     string `yaml:"path"` // sqlite only
}

type SheetConfig struct {
	CSVURL          string `yaml:"csv_url"`
	FallbackCSVURL  string `yaml:"fallback_csv_url"`
	SourceTag       string `yaml:"source_tag"`
	FetchTimeoutStr string `yaml:"fetch_timeout"`
	FetchTimeout    time.Duration
}

type SyncConfig struct {
	IntervalStr     string `yaml:"interval"`
	RetryBackoffStr string `yaml:"retry_backoff"`
	AutoStart       bool   `yaml:"auto_start"`
	Interval        time.Duration
	RetryBackoff    time.Duration
}

type ArchiveConfig struct {
	Mode       string `yaml:"mode"` // "none", "local" or "s3"
	LocalDir   string `yaml:"local_dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"` // MinIO or other S3-compatible endpoint
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ClinicConfig struct {
	Timezone string `yaml:"timezone"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Sheet    SheetConfig    `yaml:"sheet"`
	Sync     SyncConfig     `yaml:"sync"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
	Clinic   ClinicConfig   `yaml:"clinic"`
}

// Location resolves the clinic time zone. "Today" is computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Clinic.Timezone == "" || c.Clinic.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Clinic.Timezone)
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:               "8001",
			CORSOrigins:        []string{"*"},
			ShutdownTimeoutStr: "10s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Host:   "127.0.0.1",
			Port:   "3306",
			DBName: "dentalportal",
			Path:   "dentalportal.db",
		},
		Sheet: SheetConfig{
			CSVURL:          DefaultCSVURL,
			FallbackCSVURL:  DefaultFallbackCSVURL,
			SourceTag:       "google_sheets",
			FetchTimeoutStr: "30s",
		},
		Sync: SyncConfig{
			IntervalStr:     "5m",
			RetryBackoffStr: "60s",
			AutoStart:       true,
		},
		Archive: ArchiveConfig{Mode: "none", LocalDir: "./temp_data/snapshots", S3Prefix: "snapshots/"},
		Logging: LoggingConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		Clinic:  ClinicConfig{Timezone: "Local"},
	}
}

// LoadConfig reads .env, then the YAML file, then environment overrides.
// An empty configPath searches the usual locations and falls back to defaults.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configPath == "" {
		potentialPaths := []string{
			"config.yaml",
			"./config/config.yaml",
			"../config/config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"PORT":                   &cfg.Server.Port,
		"DB_DRIVER":              &cfg.Database.Driver,
		"DB_HOST":                &cfg.Database.Host,
		"DB_PORT":                &cfg.Database.Port,
		"DB_USER":                &cfg.Database.User,
		"DB_PASSWORD":            &cfg.Database.Password,
		"DB_NAME":                &cfg.Database.DBName,
		"DB_PATH":                &cfg.Database.Path,
		"SHEET_CSV_URL":          &cfg.Sheet.CSVURL,
		"SHEET_FALLBACK_CSV_URL": &cfg.Sheet.FallbackCSVURL,
		"LOG_LEVEL":              &cfg.Logging.Level,
		"CLINIC_TIMEZONE":        &cfg.Clinic.Timezone,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) parseDurations() error {
	var err error
	if c.Server.ShutdownTimeout, err = parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeoutStr, 10*time.Second); err != nil {
		return err
	}
	if c.Sheet.FetchTimeout, err = parseDuration("sheet.fetch_timeout", c.Sheet.FetchTimeoutStr, 30*time.Second); err != nil {
		return err
	}
	if c.Sync.Interval, err = parseDuration("sync.interval", c.Sync.IntervalStr, 5*time.Minute); err != nil {
		return err
	}
	if c.Sync.RetryBackoff, err = parseDuration("sync.retry_backoff", c.Sync.RetryBackoffStr, 60*time.Second); err != nil {
		return err
	}
	return nil
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql":
		if c.Database.DBName == "" {
			return fmt.Errorf("database.dbname is required for mysql")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Sheet.CSVURL == "" {
		return fmt.Errorf("sheet.csv_url is required")
	}
	if c.Sheet.SourceTag == "" {
		return fmt.Errorf("sheet.source_tag is required")
	}

	switch c.Archive.Mode {
	case "", "none":
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir is required for local archiving")
		}
	case "s3":
		if c.Archive.S3Bucket == "" {
			return fmt.Errorf("archive.s3_bucket is required for s3 archiving")
		}
	default:
		return fmt.Errorf("unsupported archive mode %q", c.Archive.Mode)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid clinic.timezone: %w", err)
	}
	return nil
}
