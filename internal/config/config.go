package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs"`
	Session  SessionConfig  `mapstructure:"session"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// SRSConfig overrides memory model parameters. Zero values keep the defaults.
type SRSConfig struct {
	// Weights replaces the default weight vector wholesale
	Weights         []float64 `mapstructure:"weights"           validate:"omitempty,len=17"`
	MaxIntervalDays int       `mapstructure:"max_interval_days" validate:"gte=1,lte=36500"`
}

// SessionConfig contains study session quotas and re-insertion windows.
type SessionConfig struct {
	MaxReviewWordsPerSession int           `mapstructure:"max_review_words_per_session" validate:"gt=0"`
	DailyNewWordsQuota       int           `mapstructure:"daily_new_words_quota"        validate:"gte=0"`
	MasteryStreak            int           `mapstructure:"mastery_streak"               validate:"gt=0"`
	EasyWindowMin            int           `mapstructure:"easy_window_min"              validate:"gte=0"`
	EasyWindowMax            int           `mapstructure:"easy_window_max"              validate:"gtefield=EasyWindowMin"`
	FailWindowMin            int           `mapstructure:"fail_window_min"              validate:"gte=0"`
	FailWindowMax            int           `mapstructure:"fail_window_max"              validate:"gtefield=FailWindowMin"`
	CacheTTL                 time.Duration `mapstructure:"cache_ttl"                    validate:"gt=0"`
	Timezone                 string        `mapstructure:"timezone"                     validate:"required,timezone"`
}

// Location returns the time zone used to compute the start of "today" for
// daily quotas. It falls back to UTC for an unknown zone name.
func (c SessionConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

