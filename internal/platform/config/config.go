// Package config loads service configuration in layers: built-in defaults, an
// optional YAML or TOML file, then ISTR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	pstrings "istr/pkg/platform/strings"
)

// Config is the full service configuration.
type Config struct {
	Server    Server          `yaml:"server" toml:"server"`
	Engine    Engine          `yaml:"engine" toml:"engine"`
	RateLimit RateLimitConfig `yaml:"ratelimit" toml:"ratelimit"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	Ledger    LedgerConfig    `yaml:"ledger" toml:"ledger"`
	Kafka     KafkaConfig     `yaml:"kafka" toml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key" toml:"jwt_signing_key"`
	RequireAuth     bool          `yaml:"require_auth" toml:"require_auth"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// Engine tunes the columnar dispatch engine and the batch limits.
type Engine struct {
	PartitionSize int `yaml:"partition_size" toml:"partition_size"`
	MaxWorkers    int `yaml:"max_workers" toml:"max_workers"`
	MaxBatchRows  int `yaml:"max_batch_rows" toml:"max_batch_rows"`
}

// RateLimitConfig bounds requests per client on the batch API.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Requests int           `yaml:"requests" toml:"requests"`
	Window   time.Duration `yaml:"window" toml:"window"`
}

// RedisConfig selects the distributed rate-limit store. An empty URL keeps the
// in-memory store.
type RedisConfig struct {
	URL          string        `yaml:"url" toml:"url"`
	PoolSize     int           `yaml:"pool_size" toml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" toml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
}

// LedgerConfig selects where batch run summaries are kept.
type LedgerConfig struct {
	// Driver is "memory", "postgres" or "sqlite".
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// KafkaConfig enables publishing run events to a topic. No brokers disables
// the sink.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers" toml:"brokers"`
	Topic             string   `yaml:"topic" toml:"topic"`
	Partitions        int32    `yaml:"partitions" toml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor" toml:"replication_factor"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: Engine{
			PartitionSize: 16 * 1024,
			MaxWorkers:    runtime.GOMAXPROCS(0),
			MaxBatchRows:  1_000_000,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Ledger: LedgerConfig{Driver: "memory"},
		Kafka: KafkaConfig{
			Topic:             "istr.runs",
			Partitions:        3,
			ReplicationFactor: 1,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, the file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from defaults and the environment only.
func FromEnv() (Config, error) {
	return Load("")
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		_, err = toml.Decode(string(data), c)
	default:
		return fmt.Errorf("config %s: unsupported extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Kafka.Brokers = pstrings.DedupeAndTrim(c.Kafka.Brokers)
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("ISTR_ADDR", &c.Server.Addr)
	str("ISTR_JWT_SIGNING_KEY", &c.Server.JWTSigningKey)
	boolean("ISTR_REQUIRE_AUTH", &c.Server.RequireAuth)
	duration("ISTR_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	integer("ISTR_PARTITION_SIZE", &c.Engine.PartitionSize)
	integer("ISTR_MAX_WORKERS", &c.Engine.MaxWorkers)
	integer("ISTR_MAX_BATCH_ROWS", &c.Engine.MaxBatchRows)
	boolean("ISTR_RATELIMIT_ENABLED", &c.RateLimit.Enabled)
	integer("ISTR_RATELIMIT_REQUESTS", &c.RateLimit.Requests)
	duration("ISTR_RATELIMIT_WINDOW", &c.RateLimit.Window)
	str("ISTR_REDIS_URL", &c.Redis.URL)
	str("ISTR_LEDGER_DRIVER", &c.Ledger.Driver)
	str("ISTR_LEDGER_DSN", &c.Ledger.DSN)
	str("ISTR_KAFKA_TOPIC", &c.Kafka.Topic)
	if v, ok := lookup("ISTR_KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = pstrings.SplitList(v)
	}
	str("ISTR_LOG_LEVEL", &c.Logging.Level)
	str("ISTR_LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RequireAuth && c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("server.jwt_signing_key is required when auth is enabled"))
	}
	if c.Engine.PartitionSize <= 0 {
		errs = append(errs, errors.New("engine.partition_size must be positive"))
	}
	if c.Engine.MaxWorkers <= 0 {
		errs = append(errs, errors.New("engine.max_workers must be positive"))
	}
	if c.Engine.MaxBatchRows <= 0 {
		errs = append(errs, errors.New("engine.max_batch_rows must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("ratelimit.requests and ratelimit.window must be positive"))
	}
	switch c.Ledger.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Ledger.DSN == "" {
			errs = append(errs, fmt.Errorf("ledger.dsn is required for driver %s", c.Ledger.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("ledger.driver %q is not one of memory, postgres, sqlite", c.Ledger.Driver))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not json or text", c.Logging.Format))
	}
	return errors.Join(errs...)
}
