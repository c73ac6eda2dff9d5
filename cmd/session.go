package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/thiagokokada/gitk-sync/internal/config"
	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/git/backend"
	"github.com/thiagokokada/gitk-sync/internal/store"
)

func providerOptions(cfg *config.Config) git.Options {
	return git.Options{
		QueryFactor:      cfg.Log.QueryFactor,
		TagBatchSize:     cfg.Log.TagBatchSize,
		DetailsBatchSize: cfg.Log.DetailsBatchSize,
		Validate:         cfg.Log.Validate,
		Bek: git.BekOptions{
			Enabled:    cfg.Bek.Enabled,
			Pattern:    cfg.Bek.Pattern,
			ProbeLimit: cfg.Bek.ProbeLimit,
		},
	}
}

func newProvider(cfg *config.Config) *git.LogProvider {
	opener := git.CLIOpener(backend.CLIOptions{
		Binary:  cfg.Backend.Git,
		Timeout: cfg.Backend.Timeout,
	}, cfg.Backend.Metadata == config.MetadataNative)
	return git.NewLogProvider(opener, providerOptions(cfg))
}

// resolveRoot opens the repository containing path and returns its root.
func resolveRoot(ctx context.Context, p *git.LogProvider, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return p.Root(ctx, abs)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Kind {
	case config.StoreNone:
		return store.Nop{}, nil
	case config.StoreRedis:
		s, err := store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			Database: cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		dir := cfg.Dir
		if dir == "" {
			dir = store.DefaultDir()
		}
		s, err := store.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
