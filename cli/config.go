package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	backendMemory   = "memory"
	backendRedis    = "redis"
	backendSQLite   = "sqlite"
	backendPostgres = "postgres"
)

// Config is the authstorectl configuration file.
//
//	backend: sqlite
//	sqlite: {dsn: authstore.db}
//	redis: {addr: localhost:6379, prefix: as, ttl: 720h}
//	postgres: {url: postgres://...}
//	record: {signed: true, signing_method: hs256, key: ..., issuer: authstore}
//	directory: {hints: true, users_file: users.yaml}
//	audit: {enabled: true, format: json}
type Config struct {
	Backend   string          `yaml:"backend"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Record    RecordConfig    `yaml:"record"`
	Directory DirectoryConfig `yaml:"directory"`
	Audit     AuditConfig     `yaml:"audit"`
	Timeout   time.Duration   `yaml:"timeout"`
}

// SQLiteConfig selects the database file.
type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds connection settings and the key prefix.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// PostgresConfig holds the connection URL.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// RecordConfig controls signing of persisted records.
type RecordConfig struct {
	Signed        bool   `yaml:"signed"`
	SigningMethod string `yaml:"signing_method"`
	Key           string `yaml:"key"`
	Issuer        string `yaml:"issuer"`
}

// DirectoryConfig controls demo hints and the end-user directory file.
type DirectoryConfig struct {
	Hints     *bool  `yaml:"hints"`
	UsersFile string `yaml:"users_file"`
}

// AuditConfig enables audit output on stderr.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// Format is "json" for JSON lines or "log" for slog records.
	Format string `yaml:"format"`
}

func defaultConfig() Config {
	return Config{
		Backend: backendSQLite,
		SQLite:  SQLiteConfig{DSN: "authstore.db"},
		Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "authstore"},
		Record:  RecordConfig{SigningMethod: "hs256", Issuer: "authstore"},
		Audit:   AuditConfig{Format: "json"},
		Timeout: 5 * time.Second,
	}
}

// LoadConfig reads path (optional) over the defaults, then applies
// AUTHSTORE_* environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, exitError(exitConfig, "config file not found: %s", path)
			}
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, exitError(exitConfig, "parsing config %s: %v", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, exitError(exitConfig, "%v", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("AUTHSTORE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("AUTHSTORE_SQLITE_DSN"); v != "" {
		cfg.SQLite.DSN = v
	}
	if v := os.Getenv("AUTHSTORE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AUTHSTORE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("AUTHSTORE_RECORD_KEY"); v != "" {
		cfg.Record.Key = v
		cfg.Record.Signed = true
	}
	if v := os.Getenv("AUTHSTORE_USERS_FILE"); v != "" {
		cfg.Directory.UsersFile = v
	}
	if v := os.Getenv("AUTHSTORE_HINTS"); v != "" {
		hints, err := strconv.ParseBool(v)
		if err != nil {
			return exitError(exitConfig, "AUTHSTORE_HINTS: %v", err)
		}
		cfg.Directory.Hints = &hints
	}
	return nil
}

func (c Config) validate() error {
	switch c.Backend {
	case backendMemory, backendSQLite, backendRedis, backendPostgres:
	default:
		return fmt.Errorf("unknown backend %q (want memory | sqlite | redis | postgres)", c.Backend)
	}
	if c.Backend == backendSQLite && strings.TrimSpace(c.SQLite.DSN) == "" {
		return errors.New("sqlite backend requires sqlite.dsn")
	}
	if c.Backend == backendRedis && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis backend requires redis.addr")
	}
	if c.Backend == backendPostgres && strings.TrimSpace(c.Postgres.URL) == "" {
		return errors.New("postgres backend requires postgres.url or DATABASE_URL")
	}
	switch c.Audit.Format {
	case "", "json", "log":
	default:
		return fmt.Errorf("unknown audit format %q (want json | log)", c.Audit.Format)
	}
	return nil
}

func (c Config) hints() bool {
	if c.Directory.Hints == nil {
		return true
	}
	return *c.Directory.Hints
}
