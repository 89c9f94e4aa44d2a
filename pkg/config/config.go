package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatsentry/chatsentry/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Auth configuration
	Auth AuthConfig

	// Bot configuration
	Bot BotConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Audit configuration
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig selects and parameterizes the user directory store
type StorageConfig struct {
	// Type is one of "file", "sqlite", "postgres"
	Type string

	// FilePath is the directory snapshot path for file storage
	FilePath string

	// WatchEnabled reloads the directory when the file changes on disk
	// (file storage only)
	WatchEnabled bool

	// SQLitePath is the database file path for sqlite storage
	SQLitePath string

	// PostgresURL is the connection string for postgres storage
	PostgresURL string
}

// AuthConfig holds directory bootstrap and session settings
type AuthConfig struct {
	BootstrapAdminID    string
	BootstrapAdminName  string
	BootstrapAdminEmail string

	// SessionTimeout is the idle cutoff for session sweeping
	SessionTimeout time.Duration

	// SweepSchedule is a cron expression for the idle-session sweep
	SweepSchedule string
}

// BotConfig holds message pipeline settings
type BotConfig struct {
	CommandPrefix string

	// BackendURL enables the query handler when set
	BackendURL     string
	BackendTimeout time.Duration

	DedupeSize int
	DedupeTTL  time.Duration
}

// RateLimitConfig holds the Redis-backed per-user rate limit settings
type RateLimitConfig struct {
	Enabled           bool
	MessagesPerWindow int
	WindowDuration    time.Duration

	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled bool
	Dir     string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from defaults, an optional YAML file
// named by CHATSENTRY_CONFIG_FILE, and CHATSENTRY_* environment
// variables, in that order of precedence.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := getEnv("CHATSENTRY_CONFIG_FILE", ""); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: StorageConfig{
			Type:         "file",
			FilePath:     "data/authorized_users.json",
			WatchEnabled: true,
			SQLitePath:   "data/chatsentry.db",
		},
		Auth: AuthConfig{
			SessionTimeout: 24 * time.Hour,
			SweepSchedule:  "*/10 * * * *",
		},
		Bot: BotConfig{
			CommandPrefix:  "/admin",
			BackendTimeout: 30 * time.Second,
			DedupeSize:     4096,
			DedupeTTL:      5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			MessagesPerWindow: 30,
			WindowDuration:    time.Minute,
			RedisURL:          "localhost:6379",
		},
		Audit: AuditConfig{
			Enabled: true,
			Dir:     "data/audit",
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
		},
	}
}

// fileConfig mirrors Config for the YAML overlay. Durations are strings
// in time.ParseDuration syntax; absent fields leave the default alone.
type fileConfig struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		HealthPort      string `yaml:"health_port"`
	} `yaml:"server"`
	Storage struct {
		Type         string `yaml:"type"`
		FilePath     string `yaml:"file_path"`
		WatchEnabled *bool  `yaml:"watch_enabled"`
		SQLitePath   string `yaml:"sqlite_path"`
		PostgresURL  string `yaml:"postgres_url"`
	} `yaml:"storage"`
	Auth struct {
		BootstrapAdminID    string `yaml:"bootstrap_admin_id"`
		BootstrapAdminName  string `yaml:"bootstrap_admin_name"`
		BootstrapAdminEmail string `yaml:"bootstrap_admin_email"`
		SessionTimeout      string `yaml:"session_timeout"`
		SweepSchedule       string `yaml:"sweep_schedule"`
	} `yaml:"auth"`
	Bot struct {
		CommandPrefix  string `yaml:"command_prefix"`
		BackendURL     string `yaml:"backend_url"`
		BackendTimeout string `yaml:"backend_timeout"`
		DedupeSize     int    `yaml:"dedupe_size"`
		DedupeTTL      string `yaml:"dedupe_ttl"`
	} `yaml:"bot"`
	RateLimit struct {
		Enabled           *bool  `yaml:"enabled"`
		MessagesPerWindow int    `yaml:"messages_per_window"`
		WindowDuration    string `yaml:"window_duration"`
		RedisURL          string `yaml:"redis_url"`
		RedisPassword     string `yaml:"redis_password"`
		RedisDB           *int   `yaml:"redis_db"`
	} `yaml:"rate_limit"`
	Audit struct {
		Enabled *bool  `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"audit"`
	Observability struct {
		LogLevel       string `yaml:"log_level"`
		MetricsEnabled *bool  `yaml:"metrics_enabled"`
	} `yaml:"observability"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	setString(&cfg.Server.Host, fc.Server.Host)
	setString(&cfg.Server.Port, fc.Server.Port)
	if err := setDuration(&cfg.Server.ReadTimeout, fc.Server.ReadTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.WriteTimeout, fc.Server.WriteTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.IdleTimeout, fc.Server.IdleTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.ShutdownTimeout, fc.Server.ShutdownTimeout); err != nil {
		return err
	}
	setString(&cfg.Server.HealthPort, fc.Server.HealthPort)

	setString(&cfg.Storage.Type, fc.Storage.Type)
	setString(&cfg.Storage.FilePath, fc.Storage.FilePath)
	if fc.Storage.WatchEnabled != nil {
		cfg.Storage.WatchEnabled = *fc.Storage.WatchEnabled
	}
	setString(&cfg.Storage.SQLitePath, fc.Storage.SQLitePath)
	setString(&cfg.Storage.PostgresURL, fc.Storage.PostgresURL)

	setString(&cfg.Auth.BootstrapAdminID, fc.Auth.BootstrapAdminID)
	setString(&cfg.Auth.BootstrapAdminName, fc.Auth.BootstrapAdminName)
	setString(&cfg.Auth.BootstrapAdminEmail, fc.Auth.BootstrapAdminEmail)
	if err := setDuration(&cfg.Auth.SessionTimeout, fc.Auth.SessionTimeout); err != nil {
		return err
	}
	setString(&cfg.Auth.SweepSchedule, fc.Auth.SweepSchedule)

	setString(&cfg.Bot.CommandPrefix, fc.Bot.CommandPrefix)
	setString(&cfg.Bot.BackendURL, fc.Bot.BackendURL)
	if err := setDuration(&cfg.Bot.BackendTimeout, fc.Bot.BackendTimeout); err != nil {
		return err
	}
	if fc.Bot.DedupeSize > 0 {
		cfg.Bot.DedupeSize = fc.Bot.DedupeSize
	}
	if err := setDuration(&cfg.Bot.DedupeTTL, fc.Bot.DedupeTTL); err != nil {
		return err
	}

	if fc.RateLimit.Enabled != nil {
		cfg.RateLimit.Enabled = *fc.RateLimit.Enabled
	}
	if fc.RateLimit.MessagesPerWindow > 0 {
		cfg.RateLimit.MessagesPerWindow = fc.RateLimit.MessagesPerWindow
	}
	if err := setDuration(&cfg.RateLimit.WindowDuration, fc.RateLimit.WindowDuration); err != nil {
		return err
	}
	setString(&cfg.RateLimit.RedisURL, fc.RateLimit.RedisURL)
	setString(&cfg.RateLimit.RedisPassword, fc.RateLimit.RedisPassword)
	if fc.RateLimit.RedisDB != nil {
		cfg.RateLimit.RedisDB = *fc.RateLimit.RedisDB
	}

	if fc.Audit.Enabled != nil {
		cfg.Audit.Enabled = *fc.Audit.Enabled
	}
	setString(&cfg.Audit.Dir, fc.Audit.Dir)

	if fc.Observability.LogLevel != "" {
		cfg.Observability.LogLevel = parseLogLevel(fc.Observability.LogLevel)
	}
	if fc.Observability.MetricsEnabled != nil {
		cfg.Observability.MetricsEnabled = *fc.Observability.MetricsEnabled
	}

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("CHATSENTRY_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("CHATSENTRY_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("CHATSENTRY_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("CHATSENTRY_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("CHATSENTRY_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("CHATSENTRY_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("CHATSENTRY_HEALTH_PORT", cfg.Server.HealthPort)

	cfg.Storage.Type = getEnv("CHATSENTRY_STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.FilePath = getEnv("CHATSENTRY_STORAGE_FILE_PATH", cfg.Storage.FilePath)
	cfg.Storage.WatchEnabled = getEnvBool("CHATSENTRY_STORAGE_WATCH", cfg.Storage.WatchEnabled)
	cfg.Storage.SQLitePath = getEnv("CHATSENTRY_SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.PostgresURL = getEnv("CHATSENTRY_POSTGRES_URL", cfg.Storage.PostgresURL)

	cfg.Auth.BootstrapAdminID = getEnv("CHATSENTRY_BOOTSTRAP_ADMIN_ID", cfg.Auth.BootstrapAdminID)
	cfg.Auth.BootstrapAdminName = getEnv("CHATSENTRY_BOOTSTRAP_ADMIN_NAME", cfg.Auth.BootstrapAdminName)
	cfg.Auth.BootstrapAdminEmail = getEnv("CHATSENTRY_BOOTSTRAP_ADMIN_EMAIL", cfg.Auth.BootstrapAdminEmail)
	cfg.Auth.SessionTimeout = getEnvDuration("CHATSENTRY_SESSION_TIMEOUT", cfg.Auth.SessionTimeout)
	cfg.Auth.SweepSchedule = getEnv("CHATSENTRY_SWEEP_SCHEDULE", cfg.Auth.SweepSchedule)

	cfg.Bot.CommandPrefix = getEnv("CHATSENTRY_COMMAND_PREFIX", cfg.Bot.CommandPrefix)
	cfg.Bot.BackendURL = getEnv("CHATSENTRY_BACKEND_URL", cfg.Bot.BackendURL)
	cfg.Bot.BackendTimeout = getEnvDuration("CHATSENTRY_BACKEND_TIMEOUT", cfg.Bot.BackendTimeout)
	cfg.Bot.DedupeSize = getEnvInt("CHATSENTRY_DEDUPE_SIZE", cfg.Bot.DedupeSize)
	cfg.Bot.DedupeTTL = getEnvDuration("CHATSENTRY_DEDUPE_TTL", cfg.Bot.DedupeTTL)

	cfg.RateLimit.Enabled = getEnvBool("CHATSENTRY_RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.MessagesPerWindow = getEnvInt("CHATSENTRY_RATELIMIT_MESSAGES", cfg.RateLimit.MessagesPerWindow)
	cfg.RateLimit.WindowDuration = getEnvDuration("CHATSENTRY_RATELIMIT_WINDOW", cfg.RateLimit.WindowDuration)
	cfg.RateLimit.RedisURL = getEnv("CHATSENTRY_REDIS_URL", cfg.RateLimit.RedisURL)
	cfg.RateLimit.RedisPassword = getEnv("CHATSENTRY_REDIS_PASSWORD", cfg.RateLimit.RedisPassword)
	cfg.RateLimit.RedisDB = getEnvInt("CHATSENTRY_REDIS_DB", cfg.RateLimit.RedisDB)

	cfg.Audit.Enabled = getEnvBool("CHATSENTRY_AUDIT_ENABLED", cfg.Audit.Enabled)
	cfg.Audit.Dir = getEnv("CHATSENTRY_AUDIT_DIR", cfg.Audit.Dir)

	if level := getEnv("CHATSENTRY_LOG_LEVEL", ""); level != "" {
		cfg.Observability.LogLevel = parseLogLevel(level)
	}
	cfg.Observability.MetricsEnabled = getEnvBool("CHATSENTRY_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "file":
		if c.Storage.FilePath == "" {
			return fmt.Errorf("file path is required for file storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be file, sqlite, or postgres)", c.Storage.Type)
	}

	if c.Auth.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}

	if c.Bot.CommandPrefix == "" {
		return fmt.Errorf("command prefix is required")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("redis URL is required when rate limiting is enabled")
		}
		if c.RateLimit.MessagesPerWindow <= 0 {
			return fmt.Errorf("rate limit messages per window must be positive")
		}
		if c.RateLimit.WindowDuration <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("audit directory is required when audit is enabled")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", v, err)
	}
	*dst = d
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
