package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "SCRY"

	// ConfigFileEnv names an explicit YAML config file.
	ConfigFileEnv = "SCRY_CONFIG_FILE"

	defaultConfigFile = "config.yaml"
	dotEnvFile        = ".env"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded first when present; it never
// overrides variables that are already set.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return load()
}

// LoadWithoutDatabase loads configuration like Load but does not require
// database settings. Tools that work on local files use it.
func LoadWithoutDatabase() (*Config, error) {
	return load("Database")
}

func load(except ...string) (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly to be seen by Unmarshal
	for _, key := range []string{"database.url", "srs.weights"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path := configFilePath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	var err error
	if len(except) > 0 {
		err = validate.StructExcept(&cfg, except...)
	} else {
		err = validate.Struct(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("srs.max_interval_days", 365)

	v.SetDefault("session.max_review_words_per_session", 30)
	v.SetDefault("session.daily_new_words_quota", 10)
	v.SetDefault("session.mastery_streak", 3)
	v.SetDefault("session.easy_window_min", 1)
	v.SetDefault("session.easy_window_max", 3)
	v.SetDefault("session.fail_window_min", 1)
	v.SetDefault("session.fail_window_max", 2)
	v.SetDefault("session.cache_ttl", 10*time.Minute)
	v.SetDefault("session.timezone", "UTC")
}

// configFilePath returns the explicit config file, or the default file when
// it exists in the working directory, or "".
func configFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}
