package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-redis/redis/v8"

	"github.com/lox/holdemtable/internal/game"
)

const (
	redisKeyPrefix = "holdem:table:"
	redisIndexKey  = "holdem:tables"
)

// RedisConfig holds connection settings for RedisSnapshots.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisSnapshots stores each snapshot under holdem:table:<id> and keeps
// the set of table ids in holdem:tables.
type RedisSnapshots struct {
	client *redis.Client
}

// NewRedisSnapshots connects and pings the server.
func NewRedisSnapshots(ctx context.Context, cfg RedisConfig) (*RedisSnapshots, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisSnapshots{client: client}, nil
}

func (r *RedisSnapshots) Save(ctx context.Context, s game.Snapshot) error {
	b, err := encodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.TableID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+s.TableID, b, 0)
		pipe.SAdd(ctx, redisIndexKey, s.TableID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.TableID, err)
	}
	return nil
}

func (r *RedisSnapshots) Load(ctx context.Context, tableID string) (game.Snapshot, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+tableID).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("load snapshot %s: %w", tableID, err)
	}
	s, err := decodeSnapshot(b)
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", tableID, err)
	}
	return s, nil
}

func (r *RedisSnapshots) Delete(ctx context.Context, tableID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKeyPrefix+tableID)
		pipe.SRem(ctx, redisIndexKey, tableID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", tableID, err)
	}
	return nil
}

func (r *RedisSnapshots) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *RedisSnapshots) Close() error {
	return r.client.Close()
}
