package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Tail      TailConfig      `mapstructure:"tail"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

type CoinGeckoConfig struct {
	REST   RESTConfig `mapstructure:"rest"`
	APIKey string     `mapstructure:"api_key"` // optional demo key, sent as x-cg-demo-api-key
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// StorageConfig selects where the watchlist identifiers are persisted.
type StorageConfig struct {
	Backend string            `mapstructure:"backend"` // "file", "sqlite", "postgres", "redis" or "memory"
	Key     string            `mapstructure:"key"`     // key holding the ordered id list
	File    FileStorageConfig `mapstructure:"file"`
	SQLite  FileStorageConfig `mapstructure:"sqlite"`
}

type FileStorageConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type TailConfig struct {
	URL string `mapstructure:"url"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	dir := os.Getenv("COINWATCH_CONFIG")
	if dir == "" {
		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			dir = filepath.Join(pwd, "../../config")
		} else {
			dir = filepath.Join(filepath.Dir(ex), "../config")
		}
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads config.yaml from dir. A missing file is not an error;
// defaults and environment variables still apply.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	// Support environment variables with dot notation (e.g., COINGECKO_REST_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coingecko.rest.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.rest.timeout", 10*time.Second)
	v.SetDefault("coingecko.api_key", "")

	v.SetDefault("refresh.interval", 60*time.Second)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.key", "watchlist")
	v.SetDefault("storage.file.path", "data/watchlist.json")
	v.SetDefault("storage.sqlite.path", "data/coinwatch.db")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("tail.url", "ws://localhost:8080/ws")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.dbname", "coinwatch")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "coinwatch:")
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite", "postgres", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key must not be empty")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive, got %s", c.Refresh.Interval)
	}
	if c.CoinGecko.REST.BaseURL == "" {
		return errors.New("coingecko.rest.base_url must not be empty")
	}
	return nil
}
