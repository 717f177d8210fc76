package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultRetentionBytes = 1 << 20
	defaultMaxBytes       = 50 << 20
	defaultMaxJSONBytes   = 5 << 20
)

// Load reads a YAML file from the given path and returns a new ConfigManager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	// Check if config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		slog.Info("Default configuration created successfully", "path", path)
		applyEnv(defaultCfg)
		return NewManager(defaultCfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	var explicit explicitKeys
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return nil, err
	}

	applyDefaults(&cfg, explicit)
	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return NewManager(&cfg), nil
}

// Validate checks the struct tags of the configuration.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// applyEnv overrides secrets with environment variables if set
func applyEnv(cfg *Config) {
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if token := os.Getenv("M3USHELF_API_TOKEN"); token != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.Tokens = append(cfg.Auth.Tokens, APIToken{User: "admin", Token: token})
	}
}

// explicitKeys records keys whose zero value is meaningful, so a zero
// written in the file is told apart from a missing key.
type explicitKeys struct {
	Upload struct {
		RetentionBytes *int64 `yaml:"retention_bytes"`
	} `yaml:"upload"`
}

// applyDefaults fills values left empty in the file
func applyDefaults(cfg *Config, explicit explicitKeys) {
	def := createDefaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = def.Logger.Level
	}
	if explicit.Upload.RetentionBytes == nil {
		cfg.Upload.RetentionBytes = def.Upload.RetentionBytes
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = def.Upload.MaxBytes
	}
	if cfg.Upload.MaxJSONBytes == 0 {
		cfg.Upload.MaxJSONBytes = def.Upload.MaxJSONBytes
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = def.Fetch.Timeout
	}
	if cfg.Fetch.MaxBytes == 0 {
		cfg.Fetch.MaxBytes = def.Fetch.MaxBytes
	}
	if cfg.Fetch.BreakerFailures == 0 {
		cfg.Fetch.BreakerFailures = def.Fetch.BreakerFailures
	}
	if cfg.Fetch.BreakerTimeout == 0 {
		cfg.Fetch.BreakerTimeout = def.Fetch.BreakerTimeout
	}
}

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		Server: Server{
			PrintRoutes:  false,
			Port:         3535,
			ReadTimeout:  2 * time.Minute,
			WriteTimeout: 2 * time.Minute,
			RateLimit:    120,
		},
		Database: Database{
			Path: "./playlists.db",
		},
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Upload: Upload{
			RetentionBytes: defaultRetentionBytes,
			MaxBytes:       defaultMaxBytes,
			MaxJSONBytes:   defaultMaxJSONBytes,
		},
		Fetch: Fetch{
			Timeout:         30 * time.Second,
			MaxBytes:        defaultMaxBytes,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
		},
		Auth: Auth{
			Enabled: false,
			Tokens:  []APIToken{},
		},
		Telegram: Telegram{
			Enabled:      false,
			Token:        "",                // Can be obtained with https://t.me/BotFather
			AllowedUsers: []string{"user1"}, // No @
		},
		Import: Import{
			WatchPath: "",
		},
	}
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
