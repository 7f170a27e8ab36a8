// Package config loads the gateway configuration from a YAML file with
// environment overrides (prefix FIRETECH_, e.g. FIRETECH_ERP_TOKEN).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	ERP     ERPConfig     `mapstructure:"erp"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ERPConfig points at the remote ERP backend.
type ERPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"` // "key:secret" API token
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig locates the durable local cache.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig selects the evidence backend: erp, s3 or filesystem.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`   // filesystem
	Bucket   string `mapstructure:"bucket"` // s3
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // s3-compatible endpoint, optional
}

// Load reads the config file at configPath. A missing file is not an error;
// defaults and environment variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "firetech-gateway")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("erp.timeout", 30*time.Second)
	v.SetDefault("cache.path", "firetech-cache.db")
	v.SetDefault("storage.backend", "erp")
	v.SetDefault("storage.path", "uploads")
	v.SetDefault("storage.region", "us-east-1")

	// Keys without a meaningful default still need registering, otherwise
	// AutomaticEnv never sees their FIRETECH_* variables.
	v.SetDefault("erp.base_url", "")
	v.SetDefault("erp.token", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.endpoint", "")

	v.SetEnvPrefix("FIRETECH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config failed: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings that have no workable default.
func (c *Config) Validate() error {
	if c.ERP.BaseURL == "" {
		return fmt.Errorf("erp.base_url is required")
	}
	switch c.Storage.Backend {
	case "erp", "filesystem":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
