package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Logs    LogsConfig    `yaml:"logs" mapstructure:"logs"`
	Reports ReportsConfig `yaml:"reports" mapstructure:"reports"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ModelConfig locates the trained artifact bundle and the training dataset.
type ModelConfig struct {
	BundlePath  string `yaml:"bundle_path" mapstructure:"bundle_path"`
	DatasetPath string `yaml:"dataset_path" mapstructure:"dataset_path"`
	Trees       int    `yaml:"trees" mapstructure:"trees"`
	Seed        int64  `yaml:"seed" mapstructure:"seed"`
}

// LogsConfig locates the prediction and feedback CSV logs.
type LogsConfig struct {
	PredictionsPath string `yaml:"predictions_path" mapstructure:"predictions_path"`
	FeedbackPath    string `yaml:"feedback_path" mapstructure:"feedback_path"`
}

// ReportsConfig configures the generated-report scratch directory and the
// two deletion triggers. Retention (deferred per-download deletion) and max
// age (periodic sweep) are independent knobs, not derived from one another.
type ReportsConfig struct {
	Dir               string `yaml:"dir" mapstructure:"dir"`
	RetentionSecs     int    `yaml:"retention_secs" mapstructure:"retention_secs"`
	SweepIntervalSecs int    `yaml:"sweep_interval_secs" mapstructure:"sweep_interval_secs"`
	MaxAgeSecs        int    `yaml:"max_age_secs" mapstructure:"max_age_secs"`
}

// Retention returns the deferred-deletion window.
func (r ReportsConfig) Retention() time.Duration {
	return time.Duration(r.RetentionSecs) * time.Second
}

// SweepInterval returns how often the sweep loop wakes.
func (r ReportsConfig) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalSecs) * time.Second
}

// MaxAge returns the age past which the sweep deletes a report.
func (r ReportsConfig) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeSecs) * time.Second
}

// AuthConfig holds the API token checked by the session middleware.
type AuthConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional config.yaml in the working
// directory and TRIAGE_* environment variables, falling back to defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 5000)
	v.SetDefault("model.bundle_path", "data/triage_model.bundle")
	v.SetDefault("model.dataset_path", "data/donapp_data_tecnico.csv")
	v.SetDefault("model.trees", 150)
	v.SetDefault("model.seed", 42)
	v.SetDefault("logs.predictions_path", "data/data_log.csv")
	v.SetDefault("logs.feedback_path", "data/feedback_log.csv")
	v.SetDefault("reports.dir", "data/reports")
	v.SetDefault("reports.retention_secs", 30)
	v.SetDefault("reports.sweep_interval_secs", 600)
	v.SetDefault("reports.max_age_secs", 3600)
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
