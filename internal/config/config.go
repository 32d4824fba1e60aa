package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the optional YAML file read before environment overrides.
const PathEnv = "ASSETLEDGER_CONFIG"

type Config struct {
	ServiceName string          `yaml:"service_name"`
	HTTP        HTTPConfig      `yaml:"http"`
	Storage     StorageConfig   `yaml:"storage"`
	Archive     ArchiveConfig   `yaml:"archive"`
	Redis       RedisConfig     `yaml:"redis"`
	Assistant   AssistantConfig `yaml:"assistant"`
	Log         LogConfig       `yaml:"log"`
	Retry       RetryConfig     `yaml:"retry"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type ArchiveConfig struct {
	Driver string   `yaml:"driver"`
	Root   string   `yaml:"root"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Prefix       string `yaml:"prefix"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// RedisConfig enables the notification publisher when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type AssistantConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		ServiceName: "assetledger",
		HTTP:        HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Storage:     StorageConfig{Driver: "sqlite", SQLitePath: "assetledger.db"},
		Archive:     ArchiveConfig{Driver: "fs", Root: "archive"},
		Redis:       RedisConfig{Channel: "assetledger.notifications"},
		Assistant: AssistantConfig{
			BaseURL:     "https://api.z.ai/api/paas/v4",
			Model:       "glm-4.5-airx",
			Temperature: 0.7,
			Timeout:     30 * time.Second,
			RetryCount:  2,
		},
		Log:   LogConfig{Level: "info", Format: "json"},
		Retry: RetryConfig{MaxAttempts: 3},
	}
}

// Load applies defaults, then the YAML file named by ASSETLEDGER_CONFIG, then
// environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(PathEnv)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str(&cfg.HTTP.Addr, "ASSETLEDGER_HTTP_ADDR")
	str(&cfg.Storage.Driver, "ASSETLEDGER_STORAGE_DRIVER")
	str(&cfg.Storage.SQLitePath, "ASSETLEDGER_SQLITE_PATH")
	str(&cfg.Storage.PostgresDSN, "ASSETLEDGER_POSTGRES_DSN", "DATABASE_URL")
	str(&cfg.Archive.Driver, "ASSETLEDGER_ARCHIVE_DRIVER")
	str(&cfg.Archive.Root, "ASSETLEDGER_ARCHIVE_ROOT")
	str(&cfg.Archive.S3.Bucket, "ASSETLEDGER_S3_BUCKET")
	str(&cfg.Archive.S3.Region, "ASSETLEDGER_S3_REGION", "AWS_REGION")
	str(&cfg.Archive.S3.Prefix, "ASSETLEDGER_S3_PREFIX")
	str(&cfg.Archive.S3.Endpoint, "ASSETLEDGER_S3_ENDPOINT")
	str(&cfg.Archive.S3.AccessKey, "ASSETLEDGER_S3_ACCESS_KEY")
	str(&cfg.Archive.S3.SecretKey, "ASSETLEDGER_S3_SECRET_KEY")
	str(&cfg.Redis.Addr, "ASSETLEDGER_REDIS_ADDR", "REDIS_ADDR")
	str(&cfg.Redis.Password, "REDIS_PASSWORD")
	str(&cfg.Redis.Channel, "ASSETLEDGER_REDIS_CHANNEL")
	str(&cfg.Assistant.BaseURL, "ASSETLEDGER_ASSISTANT_URL")
	str(&cfg.Assistant.APIKey, "ASSETLEDGER_ASSISTANT_API_KEY", "AI_API_KEY")
	str(&cfg.Assistant.Model, "ASSETLEDGER_ASSISTANT_MODEL")
	str(&cfg.Log.Level, "ASSETLEDGER_LOG_LEVEL", "LOG_LEVEL")
	str(&cfg.Log.Format, "ASSETLEDGER_LOG_FORMAT", "LOG_FORMAT")

	var errs []error
	errs = append(errs, integer(&cfg.Redis.DB, "REDIS_DB"))
	errs = append(errs, integer(&cfg.Retry.MaxAttempts, "ASSETLEDGER_RETRY_MAX_ATTEMPTS"))
	errs = append(errs, boolean(&cfg.Archive.S3.UsePathStyle, "ASSETLEDGER_S3_PATH_STYLE"))
	if v := lookup("ASSETLEDGER_ASSISTANT_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ASSETLEDGER_ASSISTANT_TEMPERATURE: %w", err))
		} else {
			cfg.Assistant.Temperature = f
		}
	}
	return errors.Join(errs...)
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage driver postgres requires a DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Archive.Driver {
	case "fs", "memory":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return errors.New("archive driver s3 requires a bucket")
		}
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func lookup(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func str(dst *string, names ...string) {
	if v := lookup(names...); v != "" {
		*dst = v
	}
}

func integer(dst *int, name string) error {
	v := lookup(name)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = i
	return nil
}

func boolean(dst *bool, name string) error {
	v := lookup(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = b
	return nil
}
