package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_PORT", "INVENTORY_API_URL", "INVENTORY_API_TIMEOUT", "INVENTORY_PER_PAGE",
	"LOW_STOCK_THRESHOLD", "NOTIFICATION_LIMIT", "REFRESH_CRON", "SNAPSHOT_CRON",
	"SHEETS_SYNC_CRON", "TIMEZONE", "MONGODB_URI", "MONGODB_DB_NAME",
	"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID", "GOOGLE_SHEET_RANGE",
	"EXPORT_DIR", "METRICS_ENABLED", "LOG_LEVEL",
}

// clearEnv blanks every key so values from the host do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:5000/api", cfg.InventoryAPI.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.InventoryAPI.Timeout)
	assert.Equal(t, 6, cfg.Dashboard.PerPage)
	assert.Equal(t, 10, cfg.Dashboard.LowStockThreshold)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.RefreshCron)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.MongoDB.Enabled())
	assert.Equal(t, "partsdesk", cfg.MongoDB.DBName)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "INVENTORY_API_URL=http://shop.internal/api\nINVENTORY_PER_PAGE=12\nINVENTORY_API_TIMEOUT=3s\nMETRICS_ENABLED=false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv never overrides variables already present, even empty ones.
	for _, key := range []string{"INVENTORY_API_URL", "INVENTORY_PER_PAGE", "INVENTORY_API_TIMEOUT", "METRICS_ENABLED"} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://shop.internal/api", cfg.InventoryAPI.BaseURL)
	assert.Equal(t, 12, cfg.Dashboard.PerPage)
	assert.Equal(t, 3*time.Second, cfg.InventoryAPI.Timeout)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"INVENTORY_PER_PAGE":    "six",
		"INVENTORY_API_TIMEOUT": "soon",
		"METRICS_ENABLED":       "maybe",
		"TIMEZONE":              "Mars/Olympus",
		"LOW_STOCK_THRESHOLD":   "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidate_SheetsNeedCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "sheet-123")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_SHEETS_CREDENTIALS_PATH")

	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/secrets/sa.json")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Sheets.Enabled())
	assert.Equal(t, "Inventory!A:G", cfg.Sheets.Range)
}

func TestValidate_NotificationLimitDefault(t *testing.T) {
	cfg := &Config{
		Server:       ServerConfig{Port: "8080"},
		InventoryAPI: InventoryAPIConfig{BaseURL: "http://x", Timeout: time.Second},
		Dashboard:    DashboardConfig{PerPage: 6, LowStockThreshold: 10},
		Scheduler:    SchedulerConfig{RefreshCron: "* * * * *", SnapshotCron: "* * * * *", Timezone: "UTC"},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.Dashboard.NotificationLimit)

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}
