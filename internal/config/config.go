// Package config resolves settings from the built-in defaults, an optional
// YAML file and NEWSPORTAL_* environment variables, in that order.
package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/SergeyParamoshkin/newsportal/internal/cache"
)

const EnvPrefix = "NEWSPORTAL_"

// devSecret signs tokens in dev mode when no secret is configured.
const devSecret = "newsportal-dev-secret-do-not-use"

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
	LoginRate  float64       `yaml:"login_rate"` // requests per second per IP
	LoginBurst int           `yaml:"login_burst"`
}

type Config struct {
	Addr         string      `yaml:"addr"`
	DiagAddr     string      `yaml:"diag_addr"`
	DatabasePath string      `yaml:"database_path"`
	Dev          bool        `yaml:"dev"`
	Cache        CacheConfig `yaml:"cache"`
	Auth         AuthConfig  `yaml:"auth"`
}

// CacheOptions converts the cache section for cache.Open.
func (c *Config) CacheOptions() cache.Config {
	return cache.Config{Backend: c.Cache.Backend, RedisURL: c.Cache.RedisURL, Timeout: c.Cache.Timeout}
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newsportal", "config.yaml")
}

func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "newsportal", "newsportal.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	cfg.DatabasePath = DefaultDatabasePath()
	return &cfg, nil
}

// Load reads the environment from the process. See LoadEnv.
func Load(path string) (*Config, error) {
	return LoadEnv(path, os.LookupEnv)
}

// LoadEnv layers the YAML file at path and the variables visible through
// lookup over the defaults. An empty path means NEWSPORTAL_CONFIG or, failing
// that, the XDG config file; only an explicitly named file has to exist.
// The result is not validated; call Validate once flags are applied.
func LoadEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	env := &envReader{lookup: lookup}

	explicit := true
	if path == "" {
		path = env.getEnv("CONFIG", "")
	}
	if path == "" {
		path, explicit = DefaultConfigPath(), false
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	env.apply(cfg)
	if env.err != nil {
		return nil, env.err
	}

	return cfg, nil
}

// Validate checks cfg and fills in the dev-mode token secret.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}

	switch c.Cache.Backend {
	case cache.BackendMemory:
	case cache.BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (valid: redis, memory)", c.Cache.Backend)
	}
	if c.Cache.Timeout <= 0 {
		return errors.New("cache.timeout must be positive")
	}

	if c.Auth.JWTSecret == "" {
		if !c.Dev {
			return errors.New("auth.jwt_secret is required outside dev mode")
		}
		c.Auth.JWTSecret = devSecret
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst < 1 {
		return errors.New("auth.login_rate and auth.login_burst must be positive")
	}

	return nil
}

// envReader reads NEWSPORTAL_* variables and keeps the first parse error.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) apply(cfg *Config) {
	cfg.Addr = e.getEnv("ADDR", cfg.Addr)
	cfg.DiagAddr = e.getEnv("DIAG_ADDR", cfg.DiagAddr)
	cfg.DatabasePath = e.getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.Dev = e.getEnvBool("DEV", cfg.Dev)

	cfg.Cache.Backend = e.getEnv("CACHE_BACKEND", cfg.Cache.Backend)
	if v, ok := e.lookup("REDIS_URL"); ok && v != "" {
		cfg.Cache.RedisURL = v
	}
	cfg.Cache.RedisURL = e.getEnv("REDIS_URL", cfg.Cache.RedisURL)
	cfg.Cache.Timeout = e.getEnvDuration("CACHE_TIMEOUT", cfg.Cache.Timeout)

	cfg.Auth.JWTSecret = e.getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = e.getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.BcryptCost = e.getEnvInt("BCRYPT_COST", cfg.Auth.BcryptCost)
	cfg.Auth.LoginRate = e.getEnvFloat("LOGIN_RATE", cfg.Auth.LoginRate)
	cfg.Auth.LoginBurst = e.getEnvInt("LOGIN_BURST", cfg.Auth.LoginBurst)
}

func (e *envReader) getEnv(key, fallback string) string {
	if v, ok := e.lookup(EnvPrefix + key); ok && v != "" {
		return v
	}
	return fallback
}

func (e *envReader) getEnvBool(key string, fallback bool) bool {
	v := e.getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return b
}

func (e *envReader) getEnvInt(key string, fallback int) int {
	v := e.getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return n
}

func (e *envReader) getEnvFloat(key string, fallback float64) float64 {
	v := e.getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return f
}

func (e *envReader) getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := e.getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return d
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
}
