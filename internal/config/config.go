// Package config loads service settings from an optional YAML file and
// HHSYNTH_* environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "HHSYNTH_"

type Config struct {
	Port        string `yaml:"port"`
	DBPath      string `yaml:"db_path"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Provider    string `yaml:"provider"`
	DatabaseURL string `yaml:"database_url"`
	WagesPeriod string `yaml:"wages_period"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPInsecure bool    `yaml:"otlp_insecure"`
	SampleRate   float64 `yaml:"sample_rate"`
	Environment  string  `yaml:"environment"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	RequireAPIKey  bool    `yaml:"require_api_key"`
	// AllowedOrigins is a comma-separated list of websocket origin patterns.
	AllowedOrigins string `yaml:"allowed_origins"`

	MaxBatch      int    `yaml:"max_batch"`
	Workers       int    `yaml:"workers"`
	DefaultRegion string `yaml:"default_region"`
	DefaultPeriod string `yaml:"default_period"`

	ArchiveEndpoint   string `yaml:"archive_endpoint"`
	ArchiveBucket     string `yaml:"archive_bucket"`
	ArchiveRegion     string `yaml:"archive_region"`
	ArchiveAccessKey  string `yaml:"archive_access_key"`
	ArchiveSecretKey  string `yaml:"archive_secret_key"`
	ArchivePrefix     string `yaml:"archive_prefix"`
	ArchivePassphrase string `yaml:"archive_passphrase"`
}

func Default() Config {
	return Config{
		Port:           "8080",
		DBPath:         "hhsynth.db",
		LogLevel:       "info",
		LogFormat:      "text",
		Provider:       "sqlite",
		CacheTTL:       time.Hour,
		SampleRate:     1.0,
		Environment:    "development",
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		MaxBatch:       100,
		Workers:        4,
		DefaultRegion:  "HI",
		DefaultPeriod:  "2023",
	}
}

// Load reads HHSYNTH_CONFIG (if set) and then the environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv(envPrefix + "CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("DB_PATH", &cfg.DBPath)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("PROVIDER", &cfg.Provider)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("WAGES_PERIOD", &cfg.WagesPeriod)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	str("OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	str("ENVIRONMENT", &cfg.Environment)
	str("DEFAULT_REGION", &cfg.DefaultRegion)
	str("DEFAULT_PERIOD", &cfg.DefaultPeriod)
	str("ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	str("ARCHIVE_ENDPOINT", &cfg.ArchiveEndpoint)
	str("ARCHIVE_BUCKET", &cfg.ArchiveBucket)
	str("ARCHIVE_REGION", &cfg.ArchiveRegion)
	str("ARCHIVE_ACCESS_KEY", &cfg.ArchiveAccessKey)
	str("ARCHIVE_SECRET_KEY", &cfg.ArchiveSecretKey)
	str("ARCHIVE_PREFIX", &cfg.ArchivePrefix)
	str("ARCHIVE_PASSPHRASE", &cfg.ArchivePassphrase)

	var errs []string
	parse := func(name string, fn func(string) error) {
		if v := getenv(envPrefix + name); v != "" {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, name, err))
			}
		}
	}
	parse("CACHE_TTL", func(v string) (err error) { cfg.CacheTTL, err = time.ParseDuration(v); return })
	parse("OTLP_INSECURE", func(v string) (err error) { cfg.OTLPInsecure, err = strconv.ParseBool(v); return })
	parse("SAMPLE_RATE", func(v string) (err error) { cfg.SampleRate, err = strconv.ParseFloat(v, 64); return })
	parse("RATE_LIMIT_RPS", func(v string) (err error) { cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64); return })
	parse("RATE_LIMIT_BURST", func(v string) (err error) { cfg.RateLimitBurst, err = strconv.Atoi(v); return })
	parse("REQUIRE_API_KEY", func(v string) (err error) { cfg.RequireAPIKey, err = strconv.ParseBool(v); return })
	parse("MAX_BATCH", func(v string) (err error) { cfg.MaxBatch, err = strconv.Atoi(v); return })
	parse("WORKERS", func(v string) (err error) { cfg.Workers, err = strconv.Atoi(v); return })

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OriginPatterns splits AllowedOrigins.
func (c Config) OriginPatterns() []string {
	var out []string
	for _, p := range strings.Split(c.AllowedOrigins, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.Provider {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("provider postgres requires %sDATABASE_URL", envPrefix)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.MaxBatch < 1 {
		return fmt.Errorf("max batch must be positive, got %d", c.MaxBatch)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}
