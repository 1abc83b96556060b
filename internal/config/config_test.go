package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 30*time.Second, cfg.OverdueSweepInterval)
	assert.Equal(t, 15*time.Minute, cfg.NotificationScanInterval)
	assert.Equal(t, 120, cfg.RateLimitRead)
	assert.Empty(t, Validate(cfg))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("OVERDUE_SWEEP_INTERVAL", "45s")
	t.Setenv("RATE_LIMIT_WRITE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 45*time.Second, cfg.OverdueSweepInterval)
	assert.Equal(t, 5, cfg.RateLimitWrite)
	assert.Contains(t, cfg.DSN(), "host=db.internal")
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_driver: sqlite\ndb_name: tasks\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "tasks.db", cfg.DSN())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad driver", func(c *Config) { c.DBDriver = "oracle" }, true},
		{"bad session store", func(c *Config) { c.SessionStore = "memcached" }, true},
		{"zero sweep interval", func(c *Config) { c.OverdueSweepInterval = 0 }, true},
		{"negative rate limit", func(c *Config) { c.RateLimitRead = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DBDriver:                 "mysql",
				SessionStore:             "cookie",
				OverdueSweepInterval:     time.Minute,
				NotificationScanInterval: time.Minute,
				RateLimitRead:            10,
				RateLimitWrite:           10,
				RateLimitWindow:          time.Minute,
			}
			tt.mutate(cfg)
			assert.Equal(t, tt.wantErr, len(Validate(cfg)) > 0)
		})
	}
}

func TestDSN_MySQLDefault(t *testing.T) {
	cfg := &Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "n"}
	assert.Equal(t, "u:p@tcp(h:3306)/n?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())

	cfg.DBDSN = "custom"
	assert.Equal(t, "custom", cfg.DSN())
}
