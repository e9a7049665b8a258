package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/funnel-cli/pkg/hubspot"
)

// Config holds the full application configuration.
type Config struct {
	HubSpot  HubSpotConfig `yaml:"hubspot" mapstructure:"hubspot"`
	Fetch    FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig  `yaml:"server" mapstructure:"server"`
	Log      LogConfig     `yaml:"log" mapstructure:"log"`
	Timezone string        `yaml:"timezone" mapstructure:"timezone"`
}

// HubSpotConfig holds CRM API credentials and client settings.
type HubSpotConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// FetchConfig configures pagination pacing and rate-limit retry behavior.
type FetchConfig struct {
	PageDelayMS        int `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	MaxRetries         int `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffSecs int `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
}

// ServerConfig configures the dashboard API server.
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
	v.SetEnvPrefix("FUNNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The empty token default also registers the key with viper,
	// so FUNNEL_HUBSPOT_TOKEN reaches Unmarshal via AutomaticEnv.
	v.SetDefault("hubspot.token", "")
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.rate_limit", 4)
	v.SetDefault("fetch.page_delay_ms", 200)
	v.SetDefault("fetch.max_retries", 5)
	v.SetDefault("fetch.initial_backoff_secs", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("timezone", "Asia/Kolkata")

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

// Validate checks the hard preconditions for any CRM fetch. A missing or
// malformed token is fatal; no fetch is ever attempted with one.
func (c *Config) Validate() error {
	if c.HubSpot.Token == "" {
		return eris.New("config: hubspot.token is required (set FUNNEL_HUBSPOT_TOKEN)")
	}
	if !hubspot.ValidToken(c.HubSpot.Token) {
		return eris.Errorf("config: hubspot.token must start with %q", hubspot.TokenPrefix)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return eris.Wrap(err, "config: invalid timezone")
	}
	return nil
}

// Location returns the configured reporting time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, eris.Wrap(err, "config: load timezone")
	}
	return loc, nil
}

// PageDelay returns the inter-page pacing delay.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Fetch.PageDelayMS) * time.Millisecond
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
