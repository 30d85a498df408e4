package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	ServerPort  string `yaml:"server_port"`
	PackageName string `yaml:"package_name"`
	UserAgent   string `yaml:"user_agent"`
	Timeout     string `yaml:"timeout"`
	LogoWorkers int    `yaml:"logo_workers"`
	LogoS3      S3     `yaml:"logo_s3"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := &Config{
		DatabaseURL: f.DatabaseURL,
		RedisURL:    f.RedisURL,
		ServerPort:  f.ServerPort,
		PackageName: f.PackageName,
		UserAgent:   f.UserAgent,
		LogoWorkers: f.LogoWorkers,
		LogoS3:      f.LogoS3,
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse %s: timeout: %w", path, err)
		}
		c.Timeout = d
	}
	c.applyDefaults()
	return c, nil
}
