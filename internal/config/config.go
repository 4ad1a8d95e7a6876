package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every environment variable the service reads.
const Prefix = "SM_"

// Config holds all configuration for the strategy manager.
type Config struct {
	Database DatabaseConfig `envPrefix:"DB_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	GRPC     GRPCConfig     `envPrefix:"GRPC_"`
	HTTP     HTTPConfig     `envPrefix:"HTTP_"`
	Log      LogConfig      `envPrefix:"LOG_"`
	Tracing  TracingConfig  `envPrefix:"TRACING_"`
	Manifest string         `env:"MANIFEST"`
}

// DatabaseConfig holds PostgreSQL connection parameters. An empty Host
// disables persistence.
type DatabaseConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"      envDefault:"5432"`
	Name     string `env:"NAME"      envDefault:"algomatic"`
	User     string `env:"USER"      envDefault:"algomatic"`
	Password string `env:"PASSWORD"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
	MinConns int32  `env:"MIN_CONNS" envDefault:"2"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// ConnString builds a PostgreSQL connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// RedisConfig holds Redis pub/sub parameters. An empty Addr disables the bus.
type RedisConfig struct {
	Addr          string `env:"ADDR"`
	Password      string `env:"PASSWORD"`
	DB            int    `env:"DB"             envDefault:"0"`
	ChannelPrefix string `env:"CHANNEL_PREFIX" envDefault:"strategy_manager"`
}

// Enabled reports whether a Redis bus is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// GRPCConfig holds gRPC server parameters.
type GRPCConfig struct {
	Port int `env:"PORT" envDefault:"50061"`
}

// HTTPConfig holds HTTP API parameters.
type HTTPConfig struct {
	Port int `env:"PORT" envDefault:"8081"`
}

// LogConfig holds logging parameters.
type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

// TracingConfig holds OpenTelemetry parameters.
type TracingConfig struct {
	Enabled     bool    `env:"ENABLED"      envDefault:"false"`
	Exporter    string  `env:"EXPORTER"     envDefault:"stdout"`
	SampleRate  float64 `env:"SAMPLE_RATE"  envDefault:"1.0"`
	ServiceName string  `env:"SERVICE_NAME" envDefault:"strategy-manager"`
}

// Load reads configuration from environment variables with the SM_ prefix.
func Load() (*Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads configuration from vars instead of the process environment.
// Keys carry the SM_ prefix.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", cfg.Log.Level)
	}

	if cfg.Database.Enabled() && cfg.Database.MaxConns < 1 {
		return fmt.Errorf("SM_DB_MAX_CONNS must be >= 1, got %d", cfg.Database.MaxConns)
	}

	if cfg.GRPC.Port <= 0 || cfg.GRPC.Port > 65535 {
		return fmt.Errorf("SM_GRPC_PORT out of range: %d", cfg.GRPC.Port)
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("SM_HTTP_PORT out of range: %d", cfg.HTTP.Port)
	}
	if cfg.GRPC.Port == cfg.HTTP.Port {
		return fmt.Errorf("SM_GRPC_PORT and SM_HTTP_PORT must differ, both are %d", cfg.GRPC.Port)
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "stdout", "none":
		default:
			return fmt.Errorf("invalid tracing exporter %q: must be stdout or none", cfg.Tracing.Exporter)
		}
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			return fmt.Errorf("SM_TRACING_SAMPLE_RATE must be within [0, 1], got %v", cfg.Tracing.SampleRate)
		}
	}

	return nil
}
