package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/weijianneo/find-house/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	OneMap   OneMapConfig   `yaml:"onemap" mapstructure:"onemap"`
	Google   GoogleConfig   `yaml:"google" mapstructure:"google"`
	HDB      HDBConfig      `yaml:"hdb" mapstructure:"hdb"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Pricing  cost.Rates     `yaml:"pricing" mapstructure:"pricing"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns" validate:"gte=0"`
}

// OneMapConfig configures the OneMap search client.
type OneMapConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gt=0"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
}

// GoogleConfig configures the Distance Matrix client. Key takes precedence
// over KeyFile.
type GoogleConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	KeyFile     string  `yaml:"key_file" mapstructure:"key_file"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Region      string  `yaml:"region" mapstructure:"region"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gt=0"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
}

// HDBConfig configures the lease-information client.
type HDBConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gt=0"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
}

// RetryConfig configures the retry policy shared by every external client.
type RetryConfig struct {
	MaxAttempts      int    `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`
	InitialBackoffMs int    `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms" validate:"gte=0"`
	MaxBackoffMs     int    `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms" validate:"gte=0"`
	JitterCeilingMs  int    `yaml:"jitter_ceiling_ms" mapstructure:"jitter_ceiling_ms" validate:"gte=0"`
	Backoff          string `yaml:"backoff" mapstructure:"backoff" validate:"oneof=fibonacci exponential"`
}

// PipelineConfig configures the enrichment worker pool. Zero workers means
// twice the CPU count.
type PipelineConfig struct {
	Workers              int    `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	WorkLocation         string `yaml:"work_location" mapstructure:"work_location" validate:"required"`
	ProgressIntervalSecs int    `yaml:"progress_interval_secs" mapstructure:"progress_interval_secs" validate:"gte=0"`
}

// InputConfig names the input files.
type InputConfig struct {
	Listings string `yaml:"listings" mapstructure:"listings"`
	Column   string `yaml:"column" mapstructure:"column" validate:"required"`
	Stations string `yaml:"stations" mapstructure:"stations" validate:"required"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FINDHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "timings.sqlite")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("onemap.base_url", "https://developers.onemap.sg")
	v.SetDefault("onemap.rate_limit", 4)
	v.SetDefault("onemap.timeout_secs", 30)
	v.SetDefault("google.key", "")
	v.SetDefault("google.key_file", ".google_api_key")
	v.SetDefault("google.base_url", "https://maps.googleapis.com")
	v.SetDefault("google.region", "SG")
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("google.timeout_secs", 30)
	v.SetDefault("hdb.base_url", "https://services2.hdb.gov.sg")
	v.SetDefault("hdb.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.113 Safari/537.36")
	v.SetDefault("hdb.rate_limit", 2)
	v.SetDefault("hdb.timeout_secs", 30)
	v.SetDefault("retry.max_attempts", 8)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 60000)
	v.SetDefault("retry.jitter_ceiling_ms", 10000)
	v.SetDefault("retry.backoff", "fibonacci")
	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("pipeline.work_location", "GOOGLE SINGAPORE")
	v.SetDefault("pipeline.progress_interval_secs", 10)
	v.SetDefault("input.listings", "hdb_listings.csv")
	v.SetDefault("input.column", "listing-location")
	v.SetDefault("input.stations", "mrt_stations.csv")
	v.SetDefault("pricing.distance_matrix.per_thousand", 5.0)
	v.SetDefault("pricing.onemap.per_thousand", 0.0)
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

// Validate checks field constraints and the requirements of the given
// command mode ("enrich", "lease", "export" or "nearest").
func (c *Config) Validate(mode string) error {
	var errs []string

	if err := newValidator().Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return eris.Wrap(err, "config: validate")
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}
	if c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns {
		errs = append(errs, "store.min_conns must be <= store.max_conns")
	}

	switch mode {
	case "enrich":
		if c.Google.Key == "" && c.Google.KeyFile == "" {
			errs = append(errs, "google.key or google.key_file is required")
		}
	case "lease", "export", "nearest":
	default:
		errs = append(errs, "unknown mode: "+mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// APIKey returns the configured key, reading KeyFile when Key is empty.
func (g GoogleConfig) APIKey() (string, error) {
	if key := strings.TrimSpace(g.Key); key != "" {
		return key, nil
	}
	if g.KeyFile == "" {
		return "", eris.New("config: google api key not configured")
	}
	b, err := os.ReadFile(g.KeyFile)
	if err != nil {
		return "", eris.Wrapf(err, "config: read google key file %s", g.KeyFile)
	}
	key := strings.TrimSpace(string(b))
	if key == "" {
		return "", eris.Errorf("config: google key file %s is empty", g.KeyFile)
	}
	return key, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// describe renders a field error as "section.key must ...".
func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of [" + fe.Param() + "]"
	case "gt":
		return field + " must be > " + fe.Param()
	case "gte":
		return field + " must be >= " + fe.Param()
	case "url":
		return field + " must be a valid URL"
	default:
		return field + " failed " + fe.Tag()
	}
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
