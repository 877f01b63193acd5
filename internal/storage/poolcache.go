package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/processor"
)

const (
	DefaultPoolKey = "kpop:pool:articles"
	redisPingWait  = 3 * time.Second
)

// PoolCache 用 Redis 缓存文章池，避免每次渲染都重新拉取所有 RSS
type PoolCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewPoolCache(rdb *redis.Client, key string, ttl time.Duration) *PoolCache {
	if key == "" {
		key = DefaultPoolKey
	}
	return &PoolCache{rdb: rdb, key: key, ttl: ttl}
}

// OpenRedis 连接失败只告警，缓存不可用时调用方会直接回源
func OpenRedis(addr string, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingWait)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
	}
	return rdb
}

// Get 未命中时返回 ok=false 且 err=nil
func (c *PoolCache) Get(ctx context.Context) ([]processor.Article, bool, error) {
	bs, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	var list []processor.Article
	if err := json.Unmarshal(bs, &list); err != nil {
		return nil, false, fmt.Errorf("decode cached pool: %w", err)
	}
	return list, true, nil
}

// Set 空池不写缓存，免得把一次失败的拉取缓存下来
func (c *PoolCache) Set(ctx context.Context, list []processor.Article) error {
	if len(list) == 0 {
		return nil
	}
	bs, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key, bs, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}
