package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
)

// ConfigEnv names the environment variable pointing at an optional YAML
// config file.
const ConfigEnv = "TASKFLOW_CONFIG"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	AppName string `yaml:"app_name"` // Shown in mail and used as the session issuer (default: TaskFlow)
	AppURL  string `yaml:"app_url"`  // Base of links in verification and reset mail (default: http://localhost:8080)

	Env       string `yaml:"env"`        // Environment (dev, staging, prod) (default: dev)
	LogLevel  string `yaml:"log_level"`  // Log level (debug, info, warn, error) (default: info)
	LogFormat string `yaml:"log_format"` // Log format (json, text) (default: json)
	Port      int    `yaml:"port"`       // HTTP server port (default: 8080)

	DBDriver     string `yaml:"db_driver"`     // sqlite or postgres (default: sqlite)
	DatabaseFile string `yaml:"database_file"` // SQLite database file (default: taskflow.db)
	DatabaseURL  string `yaml:"database_url"`  // PostgreSQL DSN, required for postgres
	PepperFile   string `yaml:"pepper_file"`   // Password pepper file, created if missing (default: pepper)

	SessionSecret    string        `yaml:"session_secret"`    // HMAC key for the session cookie; random per process when empty
	SessionLifetime  time.Duration `yaml:"session_lifetime"`  // Idle session lifetime (default: 120m)
	RememberLifetime time.Duration `yaml:"remember_lifetime"` // Remember-me token lifetime (default: 30 days)
	CookieSecure     bool          `yaml:"cookie_secure"`     // Mark cookies Secure (default: false)

	TrustProxyHeaders bool `yaml:"trust_proxy_headers"` // Take the client IP from X-Forwarded-For / X-Real-IP (default: false)

	MailFromAddress string `yaml:"mail_from_address"` // (default: noreply@taskflow.local)
	MailFromName    string `yaml:"mail_from_name"`    // (default: AppName)

	ShutdownGracePeriod   time.Duration `yaml:"shutdown_grace_period"`   // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval  time.Duration `yaml:"housekeeping_interval"`   // Housekeeping interval (default: 1h)
	TrashRetention        time.Duration `yaml:"trash_retention"`         // Purge trashed tasks after this long, 0 keeps them (default: 30 days)
	LoginAttemptRetention time.Duration `yaml:"login_attempt_retention"` // (default: 30 days)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		AppName:               "TaskFlow",
		AppURL:                "http://localhost:8080",
		Env:                   "dev",
		LogLevel:              "info",
		LogFormat:             "json",
		Port:                  8080,
		DBDriver:              DriverSQLite,
		DatabaseFile:          "taskflow.db",
		PepperFile:            "pepper",
		SessionLifetime:       session.DefaultLifetime,
		RememberLifetime:      service.DefaultRememberTTL,
		MailFromAddress:       "noreply@taskflow.local",
		ShutdownGracePeriod:   10 * time.Second,
		HousekeepingInterval:  service.DefaultHousekeepingInterval,
		TrashRetention:        service.DefaultTrashRetention,
		LoginAttemptRetention: service.DefaultLoginAttemptRetention,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path (or $TASKFLOW_CONFIG when path is empty), then environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = applyEnv(cfg)
	if cfg.MailFromName == "" {
		cfg.MailFromName = cfg.AppName
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables; whatever cfg already holds is
// the fallback.
func applyEnv(cfg Config) Config {
	cfg.AppName = getEnvOrDefault("APP_NAME", cfg.AppName)
	cfg.AppURL = strings.TrimRight(getEnvOrDefault("APP_URL", cfg.AppURL), "/")
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)

	cfg.DBDriver = strings.ToLower(getEnvOrDefault("DB_DRIVER", cfg.DBDriver))
	cfg.DatabaseFile = getEnvOrDefault("DATABASE_FILE", cfg.DatabaseFile)
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.PepperFile = getEnvOrDefault("PEPPER_FILE", cfg.PepperFile)

	cfg.SessionSecret = getEnvOrDefault("SESSION_SECRET", cfg.SessionSecret)
	cfg.SessionLifetime = getEnvDurationOrDefault("SESSION_LIFETIME", cfg.SessionLifetime)
	cfg.RememberLifetime = getEnvDurationOrDefault("REMEMBER_LIFETIME", cfg.RememberLifetime)
	cfg.CookieSecure = getEnvBoolOrDefault("COOKIE_SECURE", cfg.CookieSecure)
	cfg.TrustProxyHeaders = getEnvBoolOrDefault("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)

	cfg.MailFromAddress = getEnvOrDefault("MAIL_FROM_ADDRESS", cfg.MailFromAddress)
	cfg.MailFromName = getEnvOrDefault("MAIL_FROM_NAME", cfg.MailFromName)

	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)
	cfg.TrashRetention = getEnvDurationOrDefault("TRASH_RETENTION", cfg.TrashRetention)
	cfg.LoginAttemptRetention = getEnvDurationOrDefault("LOGIN_ATTEMPT_RETENTION", cfg.LoginAttemptRetention)
	return cfg
}

// Validate reports settings the application cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q (want sqlite or postgres)", c.DBDriver))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < jwtx.MinSecretSize {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", jwtx.MinSecretSize))
	}
	if c.SessionLifetime <= 0 {
		errs = append(errs, errors.New("SESSION_LIFETIME must be positive"))
	}
	if c.RememberLifetime <= 0 {
		errs = append(errs, errors.New("REMEMBER_LIFETIME must be positive"))
	}
	if c.TrashRetention < 0 {
		errs = append(errs, errors.New("TRASH_RETENTION must not be negative"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
