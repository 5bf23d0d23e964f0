// Package config assembles runtime settings from defaults, an optional YAML
// file and KANBAN_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kanban/internal/util"
)

// Backend kinds.
const (
	BackendLocal  = "local"
	BackendRedis  = "redis"
	BackendTables = "tables"
)

type Config struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`

	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
	DBPath  string        `yaml:"db_path"`
	Redis   RedisConfig   `yaml:"redis"`
	Tables  TablesConfig  `yaml:"tables"`
	Cache   CacheConfig   `yaml:"cache"`

	Auth AuthConfig `yaml:"auth"`
	Log  LogConfig  `yaml:"log"`

	DefaultLists     []string `yaml:"default_lists"`
	RejectConcurrent bool     `yaml:"reject_concurrent"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// TablesConfig selects an Azure Table storage account.
type TablesConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Table            string `yaml:"table"`
}

// CacheConfig puts a Redis read-through cache in front of the backend. It
// shares the Redis connection settings.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// DevMode trusts the X-User-ID header when no bearer token is sent.
	DevMode bool `yaml:"dev_mode"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns settings for a single-user local board.
func Default() *Config {
	return &Config{
		Addr:      ":8080",
		StaticDir: "web/dist",
		Backend:   BackendLocal,
		Timeout:   5 * time.Second,
		DBPath:    "data/kanban.db",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "kanban",
		},
		Tables: TablesConfig{Table: "kanbanlists"},
		Cache:  CacheConfig{TTL: time.Minute},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (when non-empty), applies the environment and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = util.EnvOrDefault("KANBAN_ADDR", c.Addr)
	c.StaticDir = util.EnvOrDefault("KANBAN_STATIC_DIR", c.StaticDir)
	c.Backend = util.EnvOrDefault("KANBAN_BACKEND", c.Backend)
	c.Timeout = util.EnvDuration("KANBAN_TIMEOUT", c.Timeout)
	c.DBPath = util.EnvOrDefault("KANBAN_DB_PATH", c.DBPath)

	c.Redis.Addr = util.EnvOrDefault("KANBAN_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = util.EnvOrDefault("KANBAN_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = util.EnvInt("KANBAN_REDIS_DB", c.Redis.DB)
	c.Redis.Prefix = util.EnvOrDefault("KANBAN_REDIS_PREFIX", c.Redis.Prefix)

	c.Tables.ConnectionString = util.EnvOrDefault("KANBAN_TABLES_CONNECTION_STRING", c.Tables.ConnectionString)
	c.Tables.Table = util.EnvOrDefault("KANBAN_TABLES_TABLE", c.Tables.Table)

	c.Cache.Enabled = util.EnvBool("KANBAN_CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.TTL = util.EnvDuration("KANBAN_CACHE_TTL", c.Cache.TTL)

	c.Auth.JWTSecret = util.EnvOrDefault("KANBAN_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.DevMode = util.EnvBool("KANBAN_DEV_MODE", c.Auth.DevMode)

	c.Log.Level = util.EnvOrDefault("KANBAN_LOG_LEVEL", c.Log.Level)
	c.Log.Format = util.EnvOrDefault("KANBAN_LOG_FORMAT", c.Log.Format)

	c.DefaultLists = util.EnvList("KANBAN_DEFAULT_LISTS", c.DefaultLists)
	c.RejectConcurrent = util.EnvBool("KANBAN_REJECT_CONCURRENT", c.RejectConcurrent)
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendLocal:
		if c.DBPath == "" {
			return errors.New("db_path is required for the local backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis backend")
		}
	case BackendTables:
		if c.Tables.ConnectionString == "" {
			return errors.New("tables.connection_string is required for the tables backend")
		}
		if c.Tables.Table == "" {
			return errors.New("tables.table is required for the tables backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (valid: local, redis, tables)", c.Backend)
	}
	if c.Cache.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when the cache is enabled")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
