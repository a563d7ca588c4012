package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port" validate:"required|int|min:1|max:65535"`
	CORSOrigin string `yaml:"corsOrigin"`
	AdminToken string `yaml:"adminToken"`
}

type DatabaseConfig struct {
	URL string `yaml:"url" validate:"required"`
}

type AIConfig struct {
	APIKey        string `yaml:"apiKey"`
	AnalysisModel string `yaml:"analysisModel" validate:"required"`
	ImageModel    string `yaml:"imageModel" validate:"required"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" validate:"required|in:trace,debug,info,warn,error"`
	Pretty bool   `yaml:"pretty"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"` // megabytes
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName  string
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Logger   LoggerConfig   `yaml:"logger"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Load reads configuration from an optional YAML file plus environment
// variables. The env names predate the config file and are kept as-is so
// existing deployments keep working. path may be empty; env vars alone are
// enough to run.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.corsOrigin", "*")
	v.SetDefault("database.url", "sqlite://unsaid.db")
	v.SetDefault("ai.analysisModel", "gemini-2.5-flash")
	v.SetDefault("ai.imageModel", "gemini-2.5-flash-image-preview")
	v.SetDefault("logger.level", "info")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 32)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("metrics.enabled", true)

	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.corsOrigin", "CORS_ORIGIN")
	v.BindEnv("server.adminToken", "X_ADMIN_TOKEN")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("ai.apiKey", "GEMINI_API_KEY")
	v.BindEnv("ai.analysisModel", "UNSAID_ANALYSIS_MODEL")
	v.BindEnv("ai.imageModel", "UNSAID_IMAGE_MODEL")
	v.BindEnv("logger.level", "UNSAID_LOG_LEVEL")
	v.BindEnv("logger.pretty", "UNSAID_LOG_PRETTY")
	v.BindEnv("cache.enabled", "UNSAID_CACHE_ENABLED")
	v.BindEnv("cache.size", "UNSAID_CACHE_SIZE")
	v.BindEnv("metrics.enabled", "UNSAID_METRICS_ENABLED")

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// A missing default config.yaml is fine; anything else is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	conf.AppName = "unsaid"

	if err := Validate(&conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate checks the decoded config against the struct's validate tags.
func Validate(conf *Config) error {
	v := validate.Struct(conf)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	return nil
}
