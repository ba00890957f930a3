package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DelayPolicyNone        = "none"
	DelayPolicyFixed       = "fixed"
	DelayPolicyExponential = "exponential"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// GatewayConfig carries the resilience policy constants. They are tunable
// configuration, not product requirements baked into code.
type GatewayConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	Cooldown         string `mapstructure:"cooldown"`
	ChatAttempts     int    `mapstructure:"chat_attempts"`
	MediaAttempts    int    `mapstructure:"media_attempts"`
	DelayPolicy      string `mapstructure:"delay_policy"`
	DelayBase        string `mapstructure:"delay_base"`
}

type HealthConfig struct {
	ProbeTimeout string `mapstructure:"probe_timeout"`
	CacheTTL     string `mapstructure:"cache_ttl"`
}

type BackendConfig struct {
	URL     string `mapstructure:"url"`
	Timeout string `mapstructure:"timeout"`
}

type MoonshotConfig struct {
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout string `mapstructure:"timeout"`
}

type BackendsConfig struct {
	Ollama   BackendConfig  `mapstructure:"ollama"`
	Image    BackendConfig  `mapstructure:"image"`
	Video    BackendConfig  `mapstructure:"video"`
	Moonshot MoonshotConfig `mapstructure:"moonshot"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Health   HealthConfig   `mapstructure:"health"`
	Backends BackendsConfig `mapstructure:"backends"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8765")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetDefault("gateway.failure_threshold", 3)
	viper.SetDefault("gateway.success_threshold", 1)
	viper.SetDefault("gateway.cooldown", "30s")
	viper.SetDefault("gateway.chat_attempts", 2)
	viper.SetDefault("gateway.media_attempts", 1)
	viper.SetDefault("gateway.delay_policy", DelayPolicyNone)
	viper.SetDefault("gateway.delay_base", "250ms")

	viper.SetDefault("health.probe_timeout", "1800ms")
	viper.SetDefault("health.cache_ttl", "3s")

	viper.SetDefault("backends.ollama.url", "http://127.0.0.1:11434")
	viper.SetDefault("backends.ollama.timeout", "180s")
	viper.SetDefault("backends.image.url", "http://127.0.0.1:7860")
	viper.SetDefault("backends.image.timeout", "90s")
	viper.SetDefault("backends.video.url", "http://127.0.0.1:8000")
	viper.SetDefault("backends.video.timeout", "120s")
	viper.SetDefault("backends.moonshot.url", "https://api.moonshot.ai/v1")
	viper.SetDefault("backends.moonshot.timeout", "300s")

	viper.SetDefault("metrics.buffer_size", 256)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Gateway,
			validation.Required,
			validation.By(validateGatewayConfig),
		),
		validation.Field(&c.Health,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.ProbeTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&hc.CacheTTL, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Backends,
			validation.Required,
			validation.By(validateBackendsConfig),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
	)
}

func validateGatewayConfig(value interface{}) error {
	gc, ok := value.(GatewayConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a GatewayConfig")
	}
	return validation.ValidateStruct(&gc,
		validation.Field(&gc.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&gc.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&gc.Cooldown, validation.Required, validation.By(validateDuration)),
		validation.Field(&gc.ChatAttempts, validation.Required, validation.Min(1)),
		validation.Field(&gc.MediaAttempts, validation.Required, validation.Min(1)),
		validation.Field(&gc.DelayPolicy,
			validation.Required,
			validation.In(DelayPolicyNone, DelayPolicyFixed, DelayPolicyExponential),
		),
		validation.Field(&gc.DelayBase, validation.Required, validation.By(validateDuration)),
	)
}

func validateBackendsConfig(value interface{}) error {
	bc, ok := value.(BackendsConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BackendsConfig")
	}
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.Ollama, validation.By(validateBackendConfig)),
		validation.Field(&bc.Image, validation.By(validateBackendConfig)),
		validation.Field(&bc.Video, validation.By(validateBackendConfig)),
		validation.Field(&bc.Moonshot,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MoonshotConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MoonshotConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.URL, validation.Required, validation.By(validateServerURL)),
					validation.Field(&mc.Timeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
	)
}

func validateBackendConfig(value interface{}) error {
	bc, ok := value.(BackendConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BackendConfig")
	}
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.URL, validation.Required, validation.By(validateServerURL)),
		validation.Field(&bc.Timeout, validation.Required, validation.By(validateDuration)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "backend URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

// MustDuration parses a duration string that already passed validation.
// It falls back to the given default if parsing fails anyway.
func MustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
