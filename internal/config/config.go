package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Classifier   ClassifierConfig   `yaml:"classifier" mapstructure:"classifier"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Tracker      TrackerConfig      `yaml:"tracker" mapstructure:"tracker"`
	Inspector    InspectorConfig    `yaml:"inspector" mapstructure:"inspector"`
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
	Monitoring   MonitoringConfig   `yaml:"monitoring" mapstructure:"monitoring"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ClassifierConfig tunes industry classification.
type ClassifierConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	ReinforceAlpha      float64 `yaml:"reinforce_alpha" mapstructure:"reinforce_alpha"`
	ReinforceRate       float64 `yaml:"reinforce_rate" mapstructure:"reinforce_rate"`
	RegistryPath        string  `yaml:"registry_path" mapstructure:"registry_path"`
}

// OrchestratorConfig tunes the retry and budget policy.
type OrchestratorConfig struct {
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	DefaultTimeoutSecs int     `yaml:"default_timeout_secs" mapstructure:"default_timeout_secs"`
	MinAttemptFloorMS  int     `yaml:"min_attempt_floor_ms" mapstructure:"min_attempt_floor_ms"`
	BackoffBaseMS      int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	BackoffCapMS       int     `yaml:"backoff_cap_ms" mapstructure:"backoff_cap_ms"`
	BackoffJitter      float64 `yaml:"backoff_jitter" mapstructure:"backoff_jitter"`
}

// TrackerConfig tunes execution tracking.
type TrackerConfig struct {
	ProgressBuffer int `yaml:"progress_buffer" mapstructure:"progress_buffer"`
	GracePeriodMS  int `yaml:"grace_period_ms" mapstructure:"grace_period_ms"`
}

// InspectorConfig tunes error inspection.
type InspectorConfig struct {
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// HistoryConfig configures the history store backend.
type HistoryConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
	MaxRecords  int    `yaml:"max_records" mapstructure:"max_records"`
	MaxAgeHours int    `yaml:"max_age_hours" mapstructure:"max_age_hours"`
}

// MonitoringConfig configures background health checks and alerting.
type MonitoringConfig struct {
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DegradedRateThreshold float64 `yaml:"degraded_rate_threshold" mapstructure:"degraded_rate_threshold"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackLimit         int     `yaml:"lookback_limit" mapstructure:"lookback_limit"`
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
	v.SetEnvPrefix("ANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("classifier.confidence_threshold", 0.7)
	v.SetDefault("classifier.reinforce_alpha", 0.2)
	v.SetDefault("classifier.reinforce_rate", 10)
	v.SetDefault("orchestrator.max_attempts", 3)
	v.SetDefault("orchestrator.default_timeout_secs", 300)
	v.SetDefault("orchestrator.min_attempt_floor_ms", 50)
	v.SetDefault("orchestrator.backoff_base_ms", 200)
	v.SetDefault("orchestrator.backoff_cap_ms", 5000)
	v.SetDefault("orchestrator.backoff_jitter", 0.1)
	v.SetDefault("tracker.progress_buffer", 64)
	v.SetDefault("tracker.grace_period_ms", 500)
	v.SetDefault("inspector.cache_size", 256)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.path", "analysis-history.db")
	v.SetDefault("history.max_records", 10000)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.degraded_rate_threshold", 0.5)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_limit", 1000)
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
