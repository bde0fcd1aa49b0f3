// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string `mapstructure:"migrations_path"`
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DispatchConfig contains assignment dispatch settings.
type DispatchConfig struct {
	// ScoreCacheTTL is how long cached SME scores stay valid, in seconds.
	ScoreCacheTTL int `mapstructure:"score_cache_ttl"`
	// ZipCodeSeedFile is an optional YAML file of zip -> lat/lon rows
	// loaded at startup.
	ZipCodeSeedFile string `mapstructure:"zip_code_seed_file"`
}

// SchedulerConfig contains daily reminder scheduler settings.
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Time         string `mapstructure:"time"`
	Timezone     string `mapstructure:"timezone"`
	SkipWeekends bool   `mapstructure:"skip_weekends"`
	// MinAgeHours filters out assignments assigned less than this many
	// hours ago from the daily unanswered-assignment digest.
	MinAgeHours int `mapstructure:"min_age_hours"`
}

// NotifyConfig contains webhook notification settings.
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Enabled    bool   `mapstructure:"enabled"`
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sme-dispatch/")
	}

	// Bind specific environment variables (explicit bindings for 12-factor app compliance)
	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.postgres.migrations_path", "POSTGRES_MIGRATIONS_PATH")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Dispatch configuration
	_ = v.BindEnv("dispatch.score_cache_ttl", "DISPATCH_SCORE_CACHE_TTL")
	_ = v.BindEnv("dispatch.zip_code_seed_file", "DISPATCH_ZIP_CODE_SEED_FILE")

	// Notify configuration
	_ = v.BindEnv("notify.webhook_url", "NOTIFY_WEBHOOK_URL")
	_ = v.BindEnv("notify.channel", "NOTIFY_CHANNEL")
	_ = v.BindEnv("notify.enabled", "NOTIFY_ENABLED")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.time", "SCHEDULER_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = v.BindEnv("scheduler.skip_weekends", "SCHEDULER_SKIP_WEEKENDS")
	_ = v.BindEnv("scheduler.min_age_hours", "SCHEDULER_MIN_AGE_HOURS")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("dispatch.score_cache_ttl", 300)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.min_age_hours", 4)
	v.SetDefault("metrics.prometheus.path", "/metrics")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify.webhook_url is required when notify is enabled")
	}
	if c.Scheduler.Enabled && c.Scheduler.Time == "" {
		return fmt.Errorf("scheduler.time is required when scheduler is enabled")
	}

	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ScoreCacheTTLDuration returns the score cache TTL as a duration.
func (c *DispatchConfig) ScoreCacheTTLDuration() time.Duration {
	return time.Duration(c.ScoreCacheTTL) * time.Second
}
