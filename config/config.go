// Package config holds the daemon configuration, loaded from a YAML file
// with AGORA_* environment overrides layered on top.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for the agora daemon.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	API      APIConfig      `yaml:"api"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Journal  JournalConfig  `yaml:"journal"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig holds settlement-engine parameters.
type EngineConfig struct {
	CustodyAccount string        `yaml:"custody_account"`
	Admin          string        `yaml:"admin"`
	ClaimTimeout   time.Duration `yaml:"claim_timeout"`
	EventBuffer    int           `yaml:"event_buffer"`
}

// APIConfig holds REST API server configuration.
type APIConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	RateLimit       int      `yaml:"rate_limit"`
	CORSOrigins     []string `yaml:"cors_origins"`
	JWTSecret       string   `yaml:"jwt_secret"`
	EnableWebSocket bool     `yaml:"enable_websocket"`
}

// RedisConfig holds the discovery read-cache configuration.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// PostgresConfig holds the optional persistent discovery mirror store.
type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// JournalConfig holds the pebble event journal configuration.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// KafkaConfig holds the optional event sink for downstream indexers.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// MetricsConfig holds the Prometheus exposition server configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the configuration file at path (optional: an empty path yields
// pure defaults) and applies AGORA_* environment overrides, e.g.
// AGORA_API_PORT for api.port.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Engine: EngineConfig{
			CustodyAccount: v.GetString("engine.custody_account"),
			Admin:          v.GetString("engine.admin"),
			ClaimTimeout:   v.GetDuration("engine.claim_timeout"),
			EventBuffer:    v.GetInt("engine.event_buffer"),
		},
		API: APIConfig{
			Host:            v.GetString("api.host"),
			Port:            v.GetInt("api.port"),
			RateLimit:       v.GetInt("api.rate_limit"),
			CORSOrigins:     v.GetStringSlice("api.cors_origins"),
			JWTSecret:       v.GetString("api.jwt_secret"),
			EnableWebSocket: v.GetBool("api.enable_websocket"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Postgres: PostgresConfig{
			Enabled: v.GetBool("postgres.enabled"),
			DSN:     v.GetString("postgres.dsn"),
		},
		Journal: JournalConfig{
			Enabled: v.GetBool("journal.enabled"),
			Path:    v.GetString("journal.path"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Port:    v.GetInt("metrics.port"),
			Path:    v.GetString("metrics.path"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.custody_account", "escrow-custody")
	v.SetDefault("engine.claim_timeout", 24*time.Hour)
	v.SetDefault("engine.event_buffer", 1024)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.enable_websocket", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.prefix", "agora")
	v.SetDefault("redis.cache_ttl", 30*time.Second)
	v.SetDefault("journal.path", "data/journal")
	v.SetDefault("kafka.topic", "agora.market.events")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("log.level", "info")
}

// Validate checks cross-field sanity.
func (c *Config) Validate() error {
	if c.Engine.CustodyAccount == "" {
		return fmt.Errorf("engine.custody_account must not be empty")
	}
	if c.Engine.ClaimTimeout <= 0 {
		return fmt.Errorf("engine.claim_timeout must be positive, got %s", c.Engine.ClaimTimeout)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.enabled requires at least one broker")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.enabled requires journal.path")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.enabled requires postgres.dsn")
	}
	return nil
}

// Dump renders the effective configuration as YAML.
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
