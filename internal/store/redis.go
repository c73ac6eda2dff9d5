package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const redisKeyPrefix = "gitk-sync:refs:"

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	Database int
	// TTL expires snapshots of roots nobody refreshed. Zero keeps them.
	TTL time.Duration
}

// RedisStore shares snapshots between processes through Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func (s *RedisStore) key(root string) string {
	return redisKeyPrefix + rootKey(root)
}

func (s *RedisStore) Load(ctx context.Context, root string) ([]vcs.Ref, error) {
	data, err := s.client.Get(ctx, s.key(root)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load refs of %s: %w", root, err)
	}
	refs, err := DecodeRefs(bytes.NewReader(data))
	if err != nil {
		return refs, fmt.Errorf("load refs of %s: %w", root, err)
	}
	return refs, nil
}

func (s *RedisStore) Save(ctx context.Context, root string, refs []vcs.Ref) error {
	var buf bytes.Buffer
	if err := EncodeRefs(&buf, refs); err != nil {
		return fmt.Errorf("save refs of %s: %w", root, err)
	}
	if err := s.client.Set(ctx, s.key(root), buf.Bytes(), s.ttl).Err(); err != nil {
		return fmt.Errorf("save refs of %s: %w", root, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
