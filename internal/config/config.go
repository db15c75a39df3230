package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Status StatusConfig `yaml:"status" mapstructure:"status"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Eval   EvalConfig   `yaml:"eval" mapstructure:"eval"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// APIConfig points at the deal-extraction backend.
type APIConfig struct {
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	FunctionsURL       string `yaml:"functions_url" mapstructure:"functions_url"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// RequestTimeout returns the per-request bound.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// StatusConfig configures status polling.
type StatusConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	ListIntervalMs int `yaml:"list_interval_ms" mapstructure:"list_interval_ms"`
	Retries        int `yaml:"retries" mapstructure:"retries"` // retries after the first attempt
	RetryDelayMs   int `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
}

// BatchConfig configures the batched status fan-out.
type BatchConfig struct {
	Concurrency         int     `yaml:"concurrency" mapstructure:"concurrency"`
	UpstreamTimeoutSecs int     `yaml:"upstream_timeout_secs" mapstructure:"upstream_timeout_secs"`
	RatePerSec          float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs    int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	MaxDealsPerRequest  int     `yaml:"max_deals_per_request" mapstructure:"max_deals_per_request"`
}

// EvalConfig configures evaluation runs.
type EvalConfig struct {
	TimeoutMins  int `yaml:"timeout_mins" mapstructure:"timeout_mins"`
	NumQuestions int `yaml:"num_questions" mapstructure:"num_questions"`
}

// CacheConfig configures the in-memory query cache.
type CacheConfig struct {
	TTLSecs         int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	OntologyTTLSecs int `yaml:"ontology_ttl_secs" mapstructure:"ontology_ttl_secs"`
	MaxEntries      int `yaml:"max_entries" mapstructure:"max_entries"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VALENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "https://valencev3-production.up.railway.app")
	v.SetDefault("api.functions_url", "")
	v.SetDefault("api.request_timeout_secs", 60)
	v.SetDefault("status.poll_interval_ms", 2000)
	v.SetDefault("status.list_interval_ms", 5000)
	v.SetDefault("status.retries", 3)
	v.SetDefault("status.retry_delay_ms", 1000)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.upstream_timeout_secs", 10)
	v.SetDefault("batch.rate_per_sec", 0)
	v.SetDefault("batch.breaker_threshold", 5)
	v.SetDefault("batch.breaker_reset_secs", 30)
	v.SetDefault("batch.max_deals_per_request", 500)
	v.SetDefault("eval.timeout_mins", 15)
	v.SetDefault("eval.num_questions", 15)
	v.SetDefault("cache.ttl_secs", 30)
	v.SetDefault("cache.ontology_ttl_secs", 3600)
	v.SetDefault("cache.max_entries", 512)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is the command
// name; "serve" additionally checks the server block.
func (c *Config) Validate(mode string) error {
	var problems []string

	if u, err := url.Parse(c.API.BaseURL); c.API.BaseURL == "" || err != nil || u.Host == "" {
		problems = append(problems, "api.base_url must be an absolute URL")
	}
	if c.API.FunctionsURL != "" {
		if u, err := url.Parse(c.API.FunctionsURL); err != nil || u.Host == "" {
			problems = append(problems, "api.functions_url must be an absolute URL")
		}
	}
	if c.Status.PollIntervalMs <= 0 {
		problems = append(problems, "status.poll_interval_ms must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		problems = append(problems, "batch.concurrency must be positive")
	}
	if c.Eval.TimeoutMins <= 0 {
		problems = append(problems, "eval.timeout_mins must be positive")
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
