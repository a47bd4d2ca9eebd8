package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	DataAPI     DataAPIConfig   `mapstructure:"data_api"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
	Session     SessionConfig   `mapstructure:"session"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Catalog     CatalogConfig   `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
	// AdminAPIKey enables the /api/v1/admin routes when set.
	AdminAPIKey string `mapstructure:"admin_api_key" json:"-" yaml:"-"`
}

type DatabaseConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int    `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DataAPIConfig configures the hosted time-series data API.
type DataAPIConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key" json:"-" yaml:"-"`
	Timeout     int    `mapstructure:"timeout"`
	ValueColumn string `mapstructure:"value_column"`
	// BreakerFailures consecutive outages open the circuit for BreakerCooldown.
	BreakerFailures int    `mapstructure:"breaker_failures"`
	BreakerCooldown string `mapstructure:"breaker_cooldown"`
}

type ForecastConfig struct {
	Method         string `mapstructure:"method"`
	Level          int    `mapstructure:"level"`
	MaxHorizon     int    `mapstructure:"max_horizon"`
	DefaultHorizon int    `mapstructure:"default_horizon"`
	EMAPeriod      int    `mapstructure:"ema_period"`
	LookbackMonths int    `mapstructure:"lookback_months"`
}

type SessionConfig struct {
	Secret          string `mapstructure:"secret" json:"-" yaml:"-"`
	TTL             string `mapstructure:"ttl"`
	JanitorInterval string `mapstructure:"janitor_interval"`
	MaxSessions     int    `mapstructure:"max_sessions"`
}

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Exporter       string  `mapstructure:"exporter"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// CatalogConfig is the label table offered to the UI selectors when the
// catalog is not loaded from Postgres.
type CatalogConfig struct {
	Sources []SourceConfig `mapstructure:"sources"`
	Periods []PeriodConfig `mapstructure:"periods"`
}

// SourceConfig is one data source. An empty Periods list means the source
// supports every configured granularity.
type SourceConfig struct {
	Label   string   `mapstructure:"label"`
	ID      string   `mapstructure:"id"`
	Periods []string `mapstructure:"periods"`
}

type PeriodConfig struct {
	Label string `mapstructure:"label"`
	ID    string `mapstructure:"id"`
	Unit  string `mapstructure:"unit"`
}

// SessionTTL returns the parsed idle timeout for sessions.
func (c SessionConfig) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// Interval returns the parsed janitor sweep interval.
func (c SessionConfig) Interval() time.Duration {
	d, err := time.ParseDuration(c.JanitorInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// GetTimeout returns the request timeout as a duration.
func (c DataAPIConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// Cooldown returns how long the circuit stays open after an outage.
func (c DataAPIConfig) Cooldown() time.Duration {
	d, err := time.ParseDuration(c.BreakerCooldown)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ShutdownGrace returns the parsed graceful shutdown timeout.
func (c ServerConfig) ShutdownGrace() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("session.secret", "SESSION_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind SESSION_SECRET environment variable: %w", err)
	}
	if err := v.BindEnv("server.admin_api_key", "ADMIN_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ADMIN_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("data_api.api_key", "DATA_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind DATA_API_KEY environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	if c.Environment != "development" && c.Session.Secret == "" {
		return errors.New("SESSION_SECRET environment variable is required in non-development environments")
	}

	for key, value := range map[string]string{
		"session.ttl":               c.Session.TTL,
		"session.janitor_interval":  c.Session.JanitorInterval,
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"data_api.breaker_cooldown": c.DataAPI.BreakerCooldown,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s duration: %w", key, err)
		}
	}

	if c.Forecast.Level != 80 && c.Forecast.Level != 95 {
		return fmt.Errorf("forecast level must be 80 or 95, got %d", c.Forecast.Level)
	}
	if c.Forecast.MaxHorizon < 1 || c.Forecast.MaxHorizon > 1000 {
		return fmt.Errorf("forecast max_horizon must be between 1 and 1000, got %d", c.Forecast.MaxHorizon)
	}
	if c.Forecast.DefaultHorizon < 1 || c.Forecast.DefaultHorizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast default_horizon must be between 1 and %d, got %d",
			c.Forecast.MaxHorizon, c.Forecast.DefaultHorizon)
	}
	if c.Forecast.LookbackMonths < 0 {
		return fmt.Errorf("forecast lookback_months must not be negative, got %d", c.Forecast.LookbackMonths)
	}
	if c.DataAPI.BaseURL == "" {
		return errors.New("data_api.base_url is required")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.admin_api_key", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "foresight")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("data_api.base_url", "https://data.nasdaq.com")
	v.SetDefault("data_api.api_key", "")
	v.SetDefault("data_api.timeout", 30)
	v.SetDefault("data_api.value_column", "")
	v.SetDefault("data_api.breaker_failures", 5)
	v.SetDefault("data_api.breaker_cooldown", "30s")

	v.SetDefault("forecast.method", "drift")
	v.SetDefault("forecast.level", 95)
	v.SetDefault("forecast.max_horizon", 100)
	v.SetDefault("forecast.default_horizon", 6)
	v.SetDefault("forecast.ema_period", 12)
	v.SetDefault("forecast.lookback_months", 6)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.janitor_interval", "1m")
	v.SetDefault("session.max_sessions", 1000)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "otlp")
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "foresight")
	v.SetDefault("telemetry.service_version", "1.0.0")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("catalog.sources", []map[string]interface{}{
		{"label": "WTI oil", "id": "FRED/DCOILWTICO"},
		{"label": "Brent oil", "id": "FRED/DCOILBRENTEU"},
		{"label": "Henry Hub gas", "id": "FRED/DHHNGSP"},
		{"label": "Gold (London PM)", "id": "LBMA/GOLD", "periods": []string{"daily", "weekly", "monthly", "quarterly", "annual"}},
	})
	v.SetDefault("catalog.periods", []map[string]interface{}{
		{"label": "Days", "id": "daily", "unit": "days"},
		{"label": "Weeks", "id": "weekly", "unit": "weeks"},
		{"label": "Months", "id": "monthly", "unit": "months"},
		{"label": "Quarters", "id": "quarterly", "unit": "quarters"},
		{"label": "Years", "id": "annual", "unit": "years"},
	})
}
