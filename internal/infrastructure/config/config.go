// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/alchemorsel/recipe-remix/pkg/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment override, e.g. REMIX_AI_API_KEY
const EnvPrefix = "REMIX"

// ErrNoConfigFile is returned by Watch when no configuration file was found
var ErrNoConfigFile = stderrors.New("no configuration file to watch")

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	MealDB     MealDBConfig     `mapstructure:"mealdb"`
	AI         AIConfig         `mapstructure:"ai"`
	Session    SessionConfig    `mapstructure:"session"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment" validate:"oneof=development staging production test"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format" validate:"oneof=json console"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	CompressionLevel  int           `mapstructure:"compression_level" validate:"min=0,max=11"`
}

// MealDBConfig points at the random recipe catalogue
type MealDBConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AIConfig contains the chat completion provider configuration
type AIConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Provider   string        `mapstructure:"provider"`
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	APIKey     string        `mapstructure:"api_key"`
	APIKeyFile string        `mapstructure:"api_key_file"`
	Model      string        `mapstructure:"model" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Themes     []string      `mapstructure:"themes" validate:"min=1"`
}

// SessionConfig controls the per-browser page sessions
type SessionConfig struct {
	CookieName      string        `mapstructure:"cookie_name" validate:"required"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Secure          bool          `mapstructure:"secure"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics  bool          `mapstructure:"enable_metrics"`
	MetricsPath    string        `mapstructure:"metrics_path"`
	EnableTracing  bool          `mapstructure:"enable_tracing"`
	TraceExporter  string        `mapstructure:"trace_exporter" validate:"oneof=otlp jaeger"`
	OTLPEndpoint   string        `mapstructure:"otlp_endpoint"`
	OTLPInsecure   bool          `mapstructure:"otlp_insecure"`
	JaegerEndpoint string        `mapstructure:"jaeger_endpoint"`
	SamplingRate   float64       `mapstructure:"sampling_rate" validate:"min=0,max=1"`
	HealthCacheTTL time.Duration `mapstructure:"health_cache_ttl"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	// It's okay if the config file doesn't exist, we have defaults
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

// Watch re-reads the configuration file whenever it changes and passes every
// valid result to onChange. Invalid edits are logged and skipped.
func Watch(configPath string, log *zap.Logger, onChange func(*Config)) error {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) {
			return ErrNoConfigFile
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Warn("Ignoring invalid configuration change",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		log.Info("Configuration reloaded",
			zap.String("file", e.Name),
			zap.String("op", e.Op.String()),
		)
		onChange(cfg)
	})
	v.WatchConfig()

	log.Info("Watching configuration file", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/recipe-remix")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.resolveSecrets(); err != nil {
		return nil, err
	}
	if config.IsProduction() {
		config.Session.Secure = true
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
// Every key needs a default so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Recipe Remix")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "45s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.compression_level", 5)

	// Upstream defaults
	v.SetDefault("mealdb.base_url", "https://www.themealdb.com/api/json/v1/1")
	v.SetDefault("mealdb.timeout", "10s")

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.api_key_file", "")
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.themes", []string{"pirate", "spicy", "vegan", "fancy", "kid-friendly", "medieval feast"})

	// Session defaults
	v.SetDefault("session.cookie_name", "remix-session")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cleanup_interval", "10m")
	v.SetDefault("session.secure", false)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.trace_exporter", "otlp")
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_cache_ttl", "5s")
}

// resolveSecrets reads the API key from its secret file when no key was given directly
func (c *Config) resolveSecrets() error {
	if c.AI.APIKey != "" || c.AI.APIKeyFile == "" {
		return nil
	}

	data, err := os.ReadFile(c.AI.APIKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read ai.api_key_file: %w", err)
	}
	c.AI.APIKey = strings.TrimSpace(string(data))
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			return err
		}
		details := make([]apperrors.ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, apperrors.ValidationError{
				Field:   fe.Namespace(),
				Tag:     fe.Tag(),
				Message: fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()),
			})
		}
		return apperrors.NewValidationErrors(details)
	}

	if c.AI.Enabled && c.AI.APIKey == "" {
		return apperrors.NewValidationErrors([]apperrors.ValidationError{{
			Field:   "ai.api_key",
			Tag:     "required",
			Message: "ai.api_key or ai.api_key_file is required when ai.enabled is true",
		}})
	}

	if c.Monitoring.EnableTracing && c.Monitoring.TraceExporter == "otlp" && c.Monitoring.OTLPEndpoint == "" {
		return apperrors.NewValidationErrors([]apperrors.ValidationError{{
			Field:   "monitoring.otlp_endpoint",
			Tag:     "required",
			Message: "monitoring.otlp_endpoint is required when tracing exports over OTLP",
		}})
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// Address returns the host:port the web server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
