package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = ".gitk-sync"
	configType = "yaml"
	envPrefix  = "GITKSYNC"
)

// Load reads configuration from path, or from .gitk-sync.yaml in the
// current directory or $HOME when path is empty. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

// LoadWith is Load on a caller-provided viper instance, so command line
// flags bound to it take precedence.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	return load(v, path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

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
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("log.commit_count", DefaultCommitCount)
	v.SetDefault("log.query_factor", DefaultQueryFactor)
	v.SetDefault("log.tag_batch_size", DefaultTagBatchSize)
	v.SetDefault("log.details_batch_size", DefaultDetailsBatchSize)
	v.SetDefault("log.validate", true)

	v.SetDefault("bek.enabled", true)
	v.SetDefault("bek.pattern", DefaultBekPattern)
	v.SetDefault("bek.probe_limit", DefaultBekProbeLimit)

	v.SetDefault("backend.git", DefaultGitBinary)
	v.SetDefault("backend.timeout", DefaultBackendTimeout)
	v.SetDefault("backend.metadata", MetadataNative)

	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", DefaultDebounce)
	v.SetDefault("watch.max_wait", DefaultMaxWait)

	v.SetDefault("store.kind", StoreFile)
	v.SetDefault("store.dir", "")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.username", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.ttl", 0)

	v.SetDefault("metrics.addr", "")
}
