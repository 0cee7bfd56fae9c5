// Package config builds service configuration from the environment, with an
// optional YAML file layered underneath so deployments can keep stable
// settings in a file and override per-instance values via env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything cmd/server needs to wire the service.
type Config struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "text"

	// ServiceSecret seeds HKDF derivation of the provenance signing key.
	ServiceSecret string `yaml:"service_secret"`
	// RequiredPipeline is the ordered upstream stage sequence the provenance
	// gate enforces on generation calls.
	RequiredPipeline []string `yaml:"required_pipeline"`

	DefaultJurisdiction string `yaml:"default_jurisdiction"`
	// DefaultTrustLevel is a pointer so an explicit 0 is distinguishable
	// from unset.
	DefaultTrustLevel *int `yaml:"default_trust_level"`

	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

// PostgresConfig configures the pgx pool. Empty URL means in-memory stores.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig configures the registry cache client. Empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// KafkaConfig configures the audit publisher. Empty brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads the optional YAML file named by IDBRIDGE_CONFIG, then applies
// environment overrides, then fills defaults.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("IDBRIDGE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Addr, "IDBRIDGE_ADDR")
	setString(&c.LogLevel, "IDBRIDGE_LOG_LEVEL")
	setString(&c.LogFormat, "IDBRIDGE_LOG_FORMAT")
	setString(&c.ServiceSecret, "IDBRIDGE_SERVICE_SECRET")
	setString(&c.DefaultJurisdiction, "IDBRIDGE_DEFAULT_JURISDICTION")
	setString(&c.Postgres.URL, "IDBRIDGE_POSTGRES_URL")
	setString(&c.Redis.URL, "IDBRIDGE_REDIS_URL")
	setString(&c.Kafka.Topic, "IDBRIDGE_KAFKA_TOPIC")

	if v := os.Getenv("IDBRIDGE_REQUIRED_PIPELINE"); v != "" {
		c.RequiredPipeline = splitAndTrim(v)
	}
	if v := os.Getenv("IDBRIDGE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitAndTrim(v)
	}
	if v := os.Getenv("IDBRIDGE_DEFAULT_TRUST_LEVEL"); v != "" {
		if lvl, err := strconv.Atoi(v); err == nil {
			c.DefaultTrustLevel = &lvl
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.ServiceSecret == "" {
		// Development fallback; deployments must override.
		c.ServiceSecret = "dev-secret-change-in-production"
	}
	if len(c.RequiredPipeline) == 0 {
		c.RequiredPipeline = []string{"intake", "classify", "anchor", "mint"}
	}
	if c.DefaultJurisdiction == "" {
		c.DefaultJurisdiction = "USA"
	}
	if c.DefaultTrustLevel == nil {
		lvl := 3
		c.DefaultTrustLevel = &lvl
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 5 * time.Minute
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "idbridge.audit"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
