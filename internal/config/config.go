package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server       ServerConfig
	InventoryAPI InventoryAPIConfig
	Dashboard    DashboardConfig
	Scheduler    SchedulerConfig
	Sheets       SheetsConfig
	MongoDB      MongoDBConfig
	Export       ExportConfig
	Metrics      MetricsConfig
	Log          LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// InventoryAPIConfig points at the shop backend.
type InventoryAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DashboardConfig tunes the in-memory view-model.
type DashboardConfig struct {
	PerPage           int
	LowStockThreshold int
	NotificationLimit int
}

// SchedulerConfig holds cron expressions for background jobs.
type SchedulerConfig struct {
	RefreshCron    string
	SnapshotCron   string
	SheetsSyncCron string
	Timezone       string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// The export target is disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	Range           string
}

// Enabled reports whether the Sheets export target is configured.
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != ""
}

// MongoDBConfig holds settings for MongoDB. Snapshot history is disabled when URI is empty.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether snapshot history is configured.
func (m MongoDBConfig) Enabled() bool {
	return m.URI != ""
}

// ExportConfig controls where downloaded exports are written.
type ExportConfig struct {
	Dir string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	timeout, err := getenvDuration("INVENTORY_API_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	perPage, err := getenvInt("INVENTORY_PER_PAGE", 6)
	if err != nil {
		return nil, err
	}
	threshold, err := getenvInt("LOW_STOCK_THRESHOLD", 10)
	if err != nil {
		return nil, err
	}
	notifications, err := getenvInt("NOTIFICATION_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	metricsEnabled, err := getenvBool("METRICS_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		InventoryAPI: InventoryAPIConfig{
			BaseURL: getenvWithDefault("INVENTORY_API_URL", "http://127.0.0.1:5000/api"),
			Timeout: timeout,
		},
		Dashboard: DashboardConfig{
			PerPage:           perPage,
			LowStockThreshold: threshold,
			NotificationLimit: notifications,
		},
		Scheduler: SchedulerConfig{
			RefreshCron:    getenvWithDefault("REFRESH_CRON", "*/5 * * * *"),
			SnapshotCron:   getenvWithDefault("SNAPSHOT_CRON", "0 20 * * *"),
			SheetsSyncCron: getenvWithDefault("SHEETS_SYNC_CRON", "30 20 * * *"),
			Timezone:       getenvWithDefault("TIMEZONE", "UTC"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			Range:           getenvWithDefault("GOOGLE_SHEET_RANGE", "Inventory!A:G"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "partsdesk"),
		},
		Export: ExportConfig{
			Dir: getenvWithDefault("EXPORT_DIR", "exports"),
		},
		Metrics: MetricsConfig{
			Enabled: metricsEnabled,
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.InventoryAPI.BaseURL == "" {
		return errors.New("INVENTORY_API_URL must be provided")
	}

	if c.InventoryAPI.Timeout <= 0 {
		return errors.New("INVENTORY_API_TIMEOUT must be positive")
	}

	if c.Dashboard.PerPage <= 0 {
		return errors.New("INVENTORY_PER_PAGE must be positive")
	}

	if c.Dashboard.LowStockThreshold <= 0 {
		return errors.New("LOW_STOCK_THRESHOLD must be positive")
	}

	if c.Dashboard.NotificationLimit <= 0 {
		// Provide a default value when the limit is not usable
		c.Dashboard.NotificationLimit = 50
	}

	switch {
	case c.Scheduler.RefreshCron == "":
		return errors.New("REFRESH_CRON must be provided")
	case c.Scheduler.SnapshotCron == "":
		return errors.New("SNAPSHOT_CRON must be provided")
	case c.Scheduler.Timezone == "":
		return errors.New("TIMEZONE must be provided")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.Sheets.Enabled() {
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.Range == "" {
			return errors.New("GOOGLE_SHEET_RANGE must not be empty")
		}
		if c.Scheduler.SheetsSyncCron == "" {
			return errors.New("SHEETS_SYNC_CRON must be provided")
		}
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
