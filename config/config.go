// Package config loads chatguard settings from an optional YAML file and
// CHATGUARD_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/bootstrap"
	"github.com/jonwraymond/chatguard/guard"
	"github.com/jonwraymond/chatguard/observe"
)

// EnvPrefix prefixes every environment override, e.g. CHATGUARD_API_BASE_URL.
const EnvPrefix = "CHATGUARD"

// Config is the root configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Health    HealthConfig    `mapstructure:"health"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Status    StatusConfig    `mapstructure:"status"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type AuthConfig struct {
	Token     string   `mapstructure:"token"`
	TokenEnv  []string `mapstructure:"token_env"`
	TokenFile string   `mapstructure:"token_file"`
}

type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type BootstrapConfig struct {
	MaxAttempts          int           `mapstructure:"max_attempts"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	ControllerRetries    int           `mapstructure:"controller_retries"`
	ControllerRetryDelay time.Duration `mapstructure:"controller_retry_delay"`
	ErrorRetriggerDelay  time.Duration `mapstructure:"error_retrigger_delay"`
	AuthCheckInterval    time.Duration `mapstructure:"auth_check_interval"`
	StageTimeout         time.Duration `mapstructure:"stage_timeout"`
}

type GuardConfig struct {
	Cooldown        time.Duration `mapstructure:"cooldown"`
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
}

type TelemetryConfig struct {
	ServiceName     string  `mapstructure:"service_name"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	SamplePct       float64 `mapstructure:"sample_pct"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
	LogLevel        string  `mapstructure:"log_level"`
	LogFile         string  `mapstructure:"log_file"`
	LogMaxSizeMB    int     `mapstructure:"log_max_size_mb"`
	LogMaxBackups   int     `mapstructure:"log_max_backups"`
	LogMaxAgeDays   int     `mapstructure:"log_max_age_days"`
	LogConsole      bool    `mapstructure:"log_console"`
}

type StatusConfig struct {
	// Addr is the listen address of the status server. Empty disables it.
	Addr string `mapstructure:"addr"`
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the CHATGUARD_ prefix. A path that does not
// exist yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")

	v.SetDefault("auth.token", "")
	v.SetDefault("auth.token_env", []string{"CHATGUARD_TOKEN", "CHAT_TOKEN"})
	v.SetDefault("auth.token_file", "")

	v.SetDefault("health.interval", 30*time.Second)
	v.SetDefault("health.timeout", 10*time.Second)

	v.SetDefault("bootstrap.max_attempts", 3)
	v.SetDefault("bootstrap.retry_delay", 2*time.Second)
	v.SetDefault("bootstrap.controller_retries", 3)
	v.SetDefault("bootstrap.controller_retry_delay", 1500*time.Millisecond)
	v.SetDefault("bootstrap.error_retrigger_delay", time.Second)
	v.SetDefault("bootstrap.auth_check_interval", 30*time.Second)
	v.SetDefault("bootstrap.stage_timeout", time.Duration(0))

	v.SetDefault("guard.cooldown", 2*time.Second)
	v.SetDefault("guard.duplicate_window", 3*time.Second)

	v.SetDefault("telemetry.service_name", "chatguard")
	v.SetDefault("telemetry.tracing_exporter", "none")
	v.SetDefault("telemetry.sample_pct", 1.0)
	v.SetDefault("telemetry.metrics_exporter", "none")
	v.SetDefault("telemetry.log_level", "info")
	v.SetDefault("telemetry.log_file", "")
	v.SetDefault("telemetry.log_max_size_mb", 100)
	v.SetDefault("telemetry.log_max_backups", 3)
	v.SetDefault("telemetry.log_max_age_days", 28)
	v.SetDefault("telemetry.log_console", false)

	v.SetDefault("status.addr", "")
}

// Validate checks values the components cannot default themselves.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("config: api.base_url is required"))
	}
	if c.Health.Interval <= 0 {
		errs = append(errs, fmt.Errorf("config: health.interval must be positive, got %v", c.Health.Interval))
	}
	if c.Health.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("config: health.timeout must be positive, got %v", c.Health.Timeout))
	}
	if c.Bootstrap.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("config: bootstrap.max_attempts must be positive, got %d", c.Bootstrap.MaxAttempts))
	}
	obs := c.Observe("")
	if err := obs.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: telemetry: %w", err))
	}
	return errors.Join(errs...)
}

// HealthEndpoint returns the probed URL, {api.base_url}/health.
func (c *Config) HealthEndpoint() string {
	return strings.TrimRight(c.API.BaseURL, "/") + "/health"
}

// TokenSource returns the token chain: the configured value, then the
// environment variables, then the token file.
func (c *Config) TokenSource() auth.TokenSource {
	return auth.Chain{
		auth.StaticSource{Value: c.Auth.Token},
		auth.EnvSource{Names: c.Auth.TokenEnv},
		auth.FileSource{Path: c.Auth.TokenFile},
	}
}

// Observe maps the telemetry section to an observe.Config.
func (c *Config) Observe(version string) observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: t.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingExporter != "" && t.TracingExporter != "none",
			Exporter:  t.TracingExporter,
			SamplePct: t.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsExporter != "" && t.MetricsExporter != "none",
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled:    true,
			Level:      t.LogLevel,
			File:       t.LogFile,
			MaxSizeMB:  t.LogMaxSizeMB,
			MaxBackups: t.LogMaxBackups,
			MaxAgeDays: t.LogMaxAgeDays,
			Console:    t.LogConsole,
		},
	}
}

// BootstrapFor returns orchestrator settings for feature.
func (c *Config) BootstrapFor(feature string, stages ...bootstrap.Stage) bootstrap.Config {
	b := c.Bootstrap
	return bootstrap.Config{
		Feature:              feature,
		Stages:               stages,
		MaxAttempts:          b.MaxAttempts,
		RetryDelay:           b.RetryDelay,
		ControllerRetries:    b.ControllerRetries,
		ControllerRetryDelay: b.ControllerRetryDelay,
		ErrorRetriggerDelay:  b.ErrorRetriggerDelay,
		AuthCheckInterval:    b.AuthCheckInterval,
		StageTimeout:         b.StageTimeout,
	}
}

// GuardFor returns guard settings wired to the given collaborators.
func (c *Config) GuardFor(logger observe.Logger, metrics observe.Metrics) guard.Config {
	return guard.Config{
		Cooldown:        c.Guard.Cooldown,
		DuplicateWindow: c.Guard.DuplicateWindow,
		Logger:          logger,
		Metrics:         metrics,
	}
}
