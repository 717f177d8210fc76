package config

import "time"

// Config holds the application configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Logger   Logger   `yaml:"logger"`
	Upload   Upload   `yaml:"upload"`
	Fetch    Fetch    `yaml:"fetch"`
	Auth     Auth     `yaml:"auth"`
	Telegram Telegram `yaml:"telegram"`
	Import   Import   `yaml:"import"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes  bool          `yaml:"show_routes"`
	Port         uint32        `yaml:"port" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RateLimit is the number of API requests allowed per client and minute, 0 disables it.
	RateLimit int `yaml:"rate_limit" validate:"gte=0"`
}

// Database holds the configuration for the database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json text logfmt"`
}

// Upload holds the size limits applied when ingesting playlists.
type Upload struct {
	// RetentionBytes is the largest playlist whose content is stored.
	RetentionBytes int64 `yaml:"retention_bytes" validate:"gte=0"`
	// MaxBytes caps streamed uploads.
	MaxBytes int64 `yaml:"max_bytes" validate:"gt=0"`
	// MaxJSONBytes caps JSON request bodies.
	MaxJSONBytes int64 `yaml:"max_json_bytes" validate:"gt=0"`
}

// Fetch holds the configuration for fetching playlists from remote URLs.
type Fetch struct {
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxBytes        int64         `yaml:"max_bytes" validate:"gt=0"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// Auth holds the API tokens allowed to use the playlist API.
type Auth struct {
	Enabled bool       `yaml:"enabled"`
	Tokens  []APIToken `yaml:"tokens" validate:"dive"`
}

// APIToken maps a token to the user it authenticates.
type APIToken struct {
	User  string `yaml:"user" validate:"required"`
	Token string `yaml:"token" validate:"required,min=16"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
}

// Import holds the configuration for the watch folder.
type Import struct {
	WatchPath string `yaml:"watch_path"`
}
