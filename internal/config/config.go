package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingDatabaseURL is returned when no database URL is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

const (
	defaultServerPort  = "8080"
	defaultUserAgent   = "tvlineup/1.0"
	defaultTimeout     = 30 * time.Second
	defaultLogoWorkers = 4
	defaultPackageName = "com.voyagen.tvlineup"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort  string        `yaml:"server_port" env:"SERVER_PORT"`
	PackageName string        `yaml:"package_name" env:"PACKAGE_NAME"`
	UserAgent   string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	LogoWorkers int           `yaml:"logo_workers" env:"LOGO_WORKERS"`
	LogoS3      S3            `yaml:"logo_s3"`
}

// S3 configures the optional S3-compatible logo bucket.
type S3 struct {
	Endpoint  string `yaml:"endpoint" env:"LOGO_S3_ENDPOINT"`
	Region    string `yaml:"region" env:"LOGO_S3_REGION"`
	AccessKey string `yaml:"access_key" env:"LOGO_S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"LOGO_S3_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"LOGO_S3_BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"LOGO_S3_USE_SSL"`
}

// Enabled reports whether logos go to S3 instead of the database.
func (s S3) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env first.
// DATABASE_URL is required; everything else has a default or is optional.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		ServerPort:  os.Getenv("SERVER_PORT"),
		PackageName: os.Getenv("PACKAGE_NAME"),
		UserAgent:   os.Getenv("FETCHER_USER_AGENT"),
		LogoS3: S3{
			Endpoint:  os.Getenv("LOGO_S3_ENDPOINT"),
			Region:    os.Getenv("LOGO_S3_REGION"),
			AccessKey: os.Getenv("LOGO_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("LOGO_S3_SECRET_KEY"),
			Bucket:    os.Getenv("LOGO_S3_BUCKET"),
			UseSSL:    parseBool(os.Getenv("LOGO_S3_USE_SSL")),
		},
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	if s := os.Getenv("LOGO_WORKERS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.LogoWorkers = n
		}
	}
	c.applyDefaults()
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = defaultServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.LogoWorkers <= 0 {
		c.LogoWorkers = defaultLogoWorkers
	}
	if c.PackageName == "" {
		c.PackageName = defaultPackageName
	}
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}
