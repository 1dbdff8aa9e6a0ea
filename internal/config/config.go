package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultSecret = "blogfolio-dev-secret"

// AppConfig gathers the settings needed to run the service.
type AppConfig struct {
	ListenAddr     string        `mapstructure:"LISTEN_ADDR"`
	Port           string        `mapstructure:"PORT"`
	DatabaseDriver string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath   string        `mapstructure:"DATABASE_PATH"`
	DatabaseDSN    string        `mapstructure:"DATABASE_DSN"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	GinMode        string        `mapstructure:"GIN_MODE"`
	UploadDir      string        `mapstructure:"UPLOAD_DIR"`
	UploadURLPath  string        `mapstructure:"UPLOAD_URL_PATH"`
	MaxUploadMB    int64         `mapstructure:"MAX_UPLOAD_MB"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"PORT":             "8080",
	"LISTEN_ADDR":      "",
	"DATABASE_DRIVER":  "sqlite",
	"DATABASE_PATH":    "blogfolio.db",
	"DATABASE_DSN":     "",
	"SESSION_SECRET":   defaultSecret,
	"JWT_SECRET":       defaultSecret,
	"JWT_TTL":          "24h",
	"GIN_MODE":         "release",
	"UPLOAD_DIR":       "media",
	"UPLOAD_URL_PATH":  "/media",
	"MAX_UPLOAD_MB":    10,
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
	"RATE_LIMIT_RPS":   5,
	"RATE_LIMIT_BURST": 10,
}

// Load reads config.yml from the working directory when present, then lets
// environment variables override it. Missing values fall back to development
// defaults.
func Load() (AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile reads the given YAML file instead of searching for config.yml.
func LoadFile(path string) (AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (AppConfig, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && v.ConfigFileUsed() != "" {
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.UploadURLPath = "/" + strings.Trim(strings.TrimSpace(c.UploadURLPath), "/")
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate rejects settings the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Port == "" && c.ListenAddr == "" {
		return errors.New("PORT or LISTEN_ADDR is required")
	}
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	if c.GinMode == "release" {
		if c.JWTSecret == defaultSecret {
			return errors.New("JWT_SECRET must be changed from the default value in release mode")
		}
		if c.SessionSecret == defaultSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in release mode")
		}
	}
	return nil
}

// MaxUploadBytes is the multipart memory limit derived from MaxUploadMB.
func (c AppConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
