// Package config loads process configuration from defaults, an optional
// YAML file, and RECIPES_-prefixed environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

const (
	// EnvPrefix is stripped from environment variable names. A double
	// underscore separates nesting levels: RECIPES_SERVER__ADDR -> server.addr.
	EnvPrefix = "RECIPES_"

	// PathEnvVar names a YAML config file when --config is not given.
	PathEnvVar = "RECIPES_CONFIG"
)

// Config is the complete process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Auth     AuthConfig     `koanf:"auth"`
	Admin    AdminConfig    `koanf:"admin"`
	Mail     MailConfig     `koanf:"mail"`
	Backup   BackupConfig   `koanf:"backup"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	// AuthRateLimit is the number of requests per AuthRateWindow allowed per
	// client IP on the auth and mailer routes.
	AuthRateLimit  int           `koanf:"auth_rate_limit"`
	AuthRateWindow time.Duration `koanf:"auth_rate_window"`
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver string `koanf:"driver"`
	// Path is the SQLite database file.
	Path string `koanf:"path"`
	// DSN is the Postgres connection string.
	DSN string `koanf:"dsn"`
}

type CacheConfig struct {
	// Backend is sturdyc or lru.
	Backend            string        `koanf:"backend"`
	Capacity           int           `koanf:"capacity"`
	NumShards          int           `koanf:"num_shards"`
	TTL                time.Duration `koanf:"ttl"`
	EvictionPercentage int           `koanf:"eviction_percentage"`
}

type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	BcryptCost    int           `koanf:"bcrypt_cost"`
	ResetTokenTTL time.Duration `koanf:"reset_token_ttl"`
}

type AdminConfig struct {
	Name     string `koanf:"name"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	UseTLS   bool   `koanf:"use_tls"`
	// ResetURL is the base of the link mailed for password recovery; the
	// token is appended as the last path segment.
	ResetURL string `koanf:"reset_url"`
	// FailureThreshold consecutive failures open the SMTP circuit breaker
	// for BreakerTimeout.
	FailureThreshold uint32        `koanf:"failure_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

type BackupConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	// Schedule is a standard five-field cron expression in local time.
	Schedule string `koanf:"schedule"`
	// Retain is how many backup files to keep; 0 keeps all.
	Retain     int      `koanf:"retain"`
	PgDumpPath string   `koanf:"pg_dump_path"`
	S3         S3Config `koanf:"s3"`
}

type S3Config struct {
	Enabled   bool   `koanf:"enabled"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Prefix    string `koanf:"prefix"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			CORSOrigins:       []string{"*"},
			AuthRateLimit:     20,
			AuthRateWindow:    time.Minute,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "recipe-box.db",
		},
		Cache: CacheConfig{
			Backend:            "sturdyc",
			Capacity:           10000,
			NumShards:          64,
			TTL:                24 * time.Hour,
			EvictionPercentage: 10,
		},
		Auth: AuthConfig{
			TokenTTL:      24 * time.Hour,
			BcryptCost:    10,
			ResetTokenTTL: 15 * time.Minute,
		},
		Admin: AdminConfig{
			Name:     "admin",
			Email:    "admin@potato.com",
			Password: "passwordBeLike#43",
		},
		Mail: MailConfig{
			Port:             587,
			From:             "no-reply@recipe-box.local",
			UseTLS:           true,
			ResetURL:         "http://localhost:8080/mailer/newPassRequest",
			FailureThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Backup: BackupConfig{
			Dir:        "backups",
			Schedule:   "59 23 * * *",
			Retain:     7,
			PgDumpPath: "pg_dump",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// RECIPES_CONFIG is consulted; a missing file is not an error when neither
// is set.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitCommaList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// splitCommaList turns a comma separated string (as set from the
// environment) into a list.
func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "sturdyc", "lru":
	default:
		return fmt.Errorf("cache.backend must be sturdyc or lru, got %q", c.Cache.Backend)
	}
	if c.Cache.Capacity <= 0 {
		return errors.New("cache.capacity must be greater than 0")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 characters for HMAC-SHA256 security")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 14 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 14, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return errors.New("auth token ttls must be positive")
	}

	if c.Admin.Email == "" || c.Admin.Password == "" {
		return errors.New("admin.email and admin.password are required")
	}

	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.Port <= 0) {
		return errors.New("mail.host and mail.port are required when mail is enabled")
	}

	if c.Backup.Enabled {
		if c.Backup.Dir == "" {
			return errors.New("backup.dir is required when backups are enabled")
		}
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			return fmt.Errorf("backup.schedule %q is not valid: %w", c.Backup.Schedule, err)
		}
		if c.Backup.S3.Enabled && c.Backup.S3.Bucket == "" {
			return errors.New("backup.s3.bucket is required when s3 upload is enabled")
		}
	}
	return nil
}
