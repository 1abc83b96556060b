package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr string `mapstructure:"server_addr"`

	DBDriver   string `mapstructure:"db_driver"`
	DBDSN      string `mapstructure:"db_dsn"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBLogLevel string `mapstructure:"db_log_level"`

	SessionStore  string `mapstructure:"session_store"`
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	SessionSecret string `mapstructure:"session_secret"`

	GinMode  string `mapstructure:"gin_mode"`
	LogLevel string `mapstructure:"log_level"`

	OpenAIAPIKey            string `mapstructure:"openai_api_key"`
	FirebaseCredentialsJSON string `mapstructure:"firebase_credentials_json"`

	OverdueSweepInterval     time.Duration `mapstructure:"overdue_sweep_interval"`
	NotificationScanInterval time.Duration `mapstructure:"notification_scan_interval"`
	NotificationDedupeAt     string        `mapstructure:"notification_dedupe_at"`

	RateLimitRead   int           `mapstructure:"rate_limit_read"`
	RateLimitWrite  int           `mapstructure:"rate_limit_write"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

var defaults = map[string]interface{}{
	"server_addr":                ":8080",
	"db_driver":                  "mysql",
	"db_dsn":                     "",
	"db_host":                    "localhost",
	"db_port":                    "3306",
	"db_user":                    "taskuser",
	"db_password":                "taskpassword",
	"db_name":                    "task_insights",
	"db_log_level":               "warn",
	"session_store":              "redis",
	"redis_host":                 "localhost",
	"redis_port":                 "6379",
	"session_secret":             "default-secret-key-change-me",
	"gin_mode":                   "debug",
	"log_level":                  "info",
	"openai_api_key":             "",
	"firebase_credentials_json":  "",
	"overdue_sweep_interval":     "30s",
	"notification_scan_interval": "15m",
	"notification_dedupe_at":     "03:00",
	"rate_limit_read":            120,
	"rate_limit_write":           30,
	"rate_limit_window":          "1m",
}

// Load reads configuration from the environment, optionally layered over
// the YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	validDrivers := map[string]bool{
		"mysql": true, "postgres": true, "sqlite": true,
	}
	if !validDrivers[cfg.DBDriver] {
		errs = append(errs, fmt.Errorf("invalid db driver: %s", cfg.DBDriver))
	}

	validStores := map[string]bool{
		"redis": true, "cookie": true,
	}
	if !validStores[cfg.SessionStore] {
		errs = append(errs, fmt.Errorf("invalid session store: %s", cfg.SessionStore))
	}

	if cfg.OverdueSweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("overdue sweep interval must be positive"))
	}
	if cfg.NotificationScanInterval <= 0 {
		errs = append(errs, fmt.Errorf("notification scan interval must be positive"))
	}
	if cfg.RateLimitRead <= 0 || cfg.RateLimitWrite <= 0 {
		errs = append(errs, fmt.Errorf("rate limits must be positive"))
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate limit window must be positive"))
	}

	return errs
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}

	switch c.DBDriver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	case "sqlite":
		return c.DBName + ".db"
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
}

// RedisAddr returns host:port of the session store.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
