// Package config loads gitk-sync settings from defaults, an optional YAML
// file and GITKSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultCommitCount      = 1000
	DefaultQueryFactor      = 2
	DefaultTagBatchSize     = 20
	DefaultDetailsBatchSize = 200
	DefaultBekPattern       = "Merge remote"
	DefaultBekProbeLimit    = 5000
	DefaultGitBinary        = "git"
	DefaultBackendTimeout   = 60 * time.Second
	DefaultDebounce         = 350 * time.Millisecond
	DefaultMaxWait          = 5 * time.Second
)

const (
	MetadataNative = "native"
	MetadataCLI    = "cli"

	StoreNone  = "none"
	StoreFile  = "file"
	StoreRedis = "redis"
)

var (
	ErrInvalidCommitCount  = errors.New("log.commit_count must be positive")
	ErrInvalidQueryFactor  = errors.New("log.query_factor must be at least 1")
	ErrInvalidBatchSize    = errors.New("batch sizes must be positive")
	ErrInvalidMetadataKind = errors.New("backend.metadata must be native or cli")
	ErrInvalidStoreKind    = errors.New("store.kind must be none, file or redis")
	ErrInvalidTimeout      = errors.New("durations must not be negative")
	ErrEmptyBekPattern     = errors.New("bek.pattern must not be empty when bek is enabled")
)

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Bek     BekConfig     `mapstructure:"bek"`
	Backend BackendConfig `mapstructure:"backend"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Store   StoreConfig   `mapstructure:"store"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	CommitCount      int  `mapstructure:"commit_count"`
	QueryFactor      int  `mapstructure:"query_factor"`
	TagBatchSize     int  `mapstructure:"tag_batch_size"`
	DetailsBatchSize int  `mapstructure:"details_batch_size"`
	Validate         bool `mapstructure:"validate"`
}

// BekConfig controls the parent order probe.
type BekConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Pattern    string `mapstructure:"pattern"`
	ProbeLimit int    `mapstructure:"probe_limit"`
}

type BackendConfig struct {
	Git      string        `mapstructure:"git"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Metadata string        `mapstructure:"metadata"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
	MaxWait  time.Duration `mapstructure:"max_wait"`
}

type StoreConfig struct {
	Kind  string           `mapstructure:"kind"`
	Dir   string           `mapstructure:"dir"`
	Redis RedisStoreConfig `mapstructure:"redis"`
}

type RedisStoreConfig struct {
	Addr     string        `mapstructure:"addr"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MetricsConfig exposes prometheus metrics on Addr. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func (c *Config) Validate() error {
	if c.Log.CommitCount <= 0 {
		return ErrInvalidCommitCount
	}
	if c.Log.QueryFactor < 1 {
		return ErrInvalidQueryFactor
	}
	if c.Log.TagBatchSize <= 0 || c.Log.DetailsBatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Bek.Enabled && c.Bek.Pattern == "" {
		return ErrEmptyBekPattern
	}
	switch c.Backend.Metadata {
	case MetadataNative, MetadataCLI:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMetadataKind, c.Backend.Metadata)
	}
	switch c.Store.Kind {
	case StoreNone, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreKind, c.Store.Kind)
	}
	if c.Backend.Timeout < 0 || c.Watch.Debounce < 0 || c.Watch.MaxWait < 0 || c.Store.Redis.TTL < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
