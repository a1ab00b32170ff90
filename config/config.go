// Package config loads the service configuration from YAML files and
// BUQ_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openlmis/buq/internal/observability"
	"github.com/openlmis/buq/internal/referencedata"
	"github.com/openlmis/buq/internal/security"
)

type Config struct {
	Server        ServerConfig         `mapstructure:"server"`
	Database      DatabaseConfig       `mapstructure:"database"`
	ReferenceData referencedata.Config `mapstructure:"reference_data"`
	Observability observability.Config `mapstructure:"observability"`
	Security      SecurityConfig       `mapstructure:"security"`
	Environment   string               `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

type SecurityConfig struct {
	RateLimit security.RateLimitConfig `mapstructure:"rate_limit"`
}

func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("buq")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/buq/")
		viper.AddConfigPath("$HOME/.buq/")
	}

	viper.SetEnvPrefix("BUQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "buq")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.migrate_on_start", true)

	viper.SetDefault("reference_data.base_url", "http://localhost:8081")
	viper.SetDefault("reference_data.timeout", "10s")
	viper.SetDefault("reference_data.max_retries", 3)
	viper.SetDefault("reference_data.initial_delay", "100ms")
	viper.SetDefault("reference_data.max_delay", "2s")
	viper.SetDefault("reference_data.failure_threshold", 5)
	viper.SetDefault("reference_data.breaker_timeout", "30s")

	viper.SetDefault("observability.logging.level", "info")
	viper.SetDefault("observability.logging.format", "console")
	viper.SetDefault("observability.logging.output", "stdout")
	viper.SetDefault("observability.metrics.enabled", true)
	viper.SetDefault("observability.metrics.path", "/metrics")
	viper.SetDefault("observability.tracing.enabled", false)
	viper.SetDefault("observability.tracing.jaeger_url", "http://localhost:14268/api/traces")
	viper.SetDefault("observability.tracing.sample_rate", 1.0)

	viper.SetDefault("security.rate_limit.enabled", true)
	viper.SetDefault("security.rate_limit.requests_per_second", 100)
	viper.SetDefault("security.rate_limit.burst_size", 200)
	viper.SetDefault("security.rate_limit.cleanup_interval", "5m")
	viper.SetDefault("security.rate_limit.ip_limit_enabled", true)
	viper.SetDefault("security.rate_limit.ip_requests_per_second", 20)
	viper.SetDefault("security.rate_limit.ip_burst_size", 40)

	viper.SetDefault("environment", "development")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Port <= 0 || config.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", config.Database.Port)
	}

	if config.ReferenceData.BaseURL == "" {
		return fmt.Errorf("reference-data base URL is required")
	}

	validLevels := map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
	if _, ok := validLevels[config.Observability.Logging.Level]; !ok {
		return fmt.Errorf("invalid logging level: %s", config.Observability.Logging.Level)
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
