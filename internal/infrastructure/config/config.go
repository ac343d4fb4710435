package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Line     LineConfig     `mapstructure:"line"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StorageConfig holds the embedded store configuration
type StorageConfig struct {
	// BasePath is the directory holding database.json and backups/.
	BasePath      string        `mapstructure:"base_path"`
	RetentionDays int           `mapstructure:"retention_days"`
	StrictStatus  bool          `mapstructure:"strict_status"`
	Retention     time.Duration `mapstructure:"-"`
}

// LineConfig holds LINE Messaging API configuration
type LineConfig struct {
	ChannelSecret string `mapstructure:"channel_secret"`
	ChannelToken  string `mapstructure:"channel_token"`
	APIEndpoint   string `mapstructure:"api_endpoint"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
	Issuer    string        `mapstructure:"issuer"`
}

// AdminConfig holds the management API credentials
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Storage.Retention = time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "shiftbot")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.base_url", "http://localhost:8080")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")

	// Storage defaults
	viper.SetDefault("storage.base_path", "./data")
	viper.SetDefault("storage.retention_days", 30)
	viper.SetDefault("storage.strict_status", false)

	// LINE defaults
	viper.SetDefault("line.channel_secret", "")
	viper.SetDefault("line.channel_token", "")
	viper.SetDefault("line.api_endpoint", "https://api.line.me")

	// JWT defaults
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.expires_in", "24h")
	viper.SetDefault("jwt.issuer", "shiftbot")

	// Admin defaults
	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.password_hash", "")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output", "stdout")
	viper.SetDefault("logger.filename", "logs/shiftbot.log")
	viper.SetDefault("logger.max_size_mb", 50)
	viper.SetDefault("logger.max_backups", 5)
	viper.SetDefault("logger.max_age_days", 30)

	// Security defaults
	viper.SetDefault("security.cors_allowed_origins", "*")
	viper.SetDefault("security.rate_limit_requests", 20)
	viper.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}

func bindEnvVars() {
	_ = viper.BindEnv("app.environment", "APP_ENV")
	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("storage.base_path", "STORAGE_BASE_PATH")
	_ = viper.BindEnv("storage.retention_days", "STORAGE_RETENTION_DAYS")
	_ = viper.BindEnv("storage.strict_status", "STORAGE_STRICT_STATUS")
	_ = viper.BindEnv("line.channel_secret", "LINE_CHANNEL_SECRET")
	_ = viper.BindEnv("line.channel_token", "LINE_CHANNEL_ACCESS_TOKEN")
	_ = viper.BindEnv("line.api_endpoint", "LINE_API_ENDPOINT")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("admin.username", "ADMIN_USERNAME")
	_ = viper.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH")
	_ = viper.BindEnv("logger.level", "LOG_LEVEL")
	_ = viper.BindEnv("logger.format", "LOG_FORMAT")
	_ = viper.BindEnv("logger.output", "LOG_OUTPUT")
	_ = viper.BindEnv("app.base_url", "BASE_URL")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if cfg.Storage.BasePath == "" {
		return fmt.Errorf("storage base path is required")
	}
	if cfg.Storage.RetentionDays < 1 {
		return fmt.Errorf("storage retention must be at least one day")
	}
	if cfg.App.Environment == "production" {
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("JWT secret is required in production")
		}
		if cfg.Line.ChannelSecret == "" {
			return fmt.Errorf("LINE channel secret is required in production")
		}
	}
	return nil
}
