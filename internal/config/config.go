package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	AlphaVantage AlphaVantageConfig `yaml:"alphavantage" mapstructure:"alphavantage"`
	Yahoo        YahooConfig        `yaml:"yahoo" mapstructure:"yahoo"`
	Validation   ValidationConfig   `yaml:"validation" mapstructure:"validation"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the report history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// KeepLatest is the number of reports retained per ticker. 0 keeps all.
	KeepLatest int `yaml:"keep_latest" mapstructure:"keep_latest"`
}

// AlphaVantageConfig holds the secondary provider settings.
type AlphaVantageConfig struct {
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	TimeoutSecs       int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retry             RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit           CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig configures backoff for provider calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures the provider circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// YahooConfig holds the primary provider settings.
type YahooConfig struct {
	HistoryDays int `yaml:"history_days" mapstructure:"history_days"`
}

// ValidationConfig points at optional vocabulary and tolerance overrides.
type ValidationConfig struct {
	VocabularyFile        string `yaml:"vocabulary_file" mapstructure:"vocabulary_file"`
	TolerancesFile        string `yaml:"tolerances_file" mapstructure:"tolerances_file"`
	ReviewOnLowConfidence bool   `yaml:"review_on_low_confidence" mapstructure:"review_on_low_confidence"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EQUITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The bare provider variable is honored for compatibility with existing setups.
	if err := v.BindEnv("alphavantage.api_key", "EQUITY_ALPHAVANTAGE_API_KEY", "ALPHA_VANTAGE_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "equity.db")
	v.SetDefault("store.keep_latest", 10)
	v.SetDefault("alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("alphavantage.requests_per_minute", 5)
	v.SetDefault("alphavantage.timeout_secs", 30)
	v.SetDefault("alphavantage.retry.max_attempts", 3)
	v.SetDefault("alphavantage.retry.initial_backoff_ms", 1000)
	v.SetDefault("alphavantage.retry.max_backoff_ms", 15000)
	v.SetDefault("alphavantage.retry.multiplier", 2.0)
	v.SetDefault("alphavantage.retry.jitter_fraction", 0.25)
	v.SetDefault("alphavantage.circuit.failure_threshold", 5)
	v.SetDefault("alphavantage.circuit.reset_timeout_secs", 60)
	v.SetDefault("yahoo.history_days", 400)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs. mode is one of "validate",
// "serve" or "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Store.KeepLatest < 0 {
		errs = append(errs, "store.keep_latest must be >= 0")
	}

	switch mode {
	case "runs":
	case "validate", "serve":
		if c.AlphaVantage.RequestsPerMinute <= 0 {
			errs = append(errs, "alphavantage.requests_per_minute must be > 0")
		}
		if c.Yahoo.HistoryDays < 0 {
			errs = append(errs, "yahoo.history_days must be >= 0")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
