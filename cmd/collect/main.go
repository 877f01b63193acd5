package main

import (
	"context"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/config"
	"github.com/LJTian/KpopABLab/internal/logging"
	"github.com/LJTian/KpopABLab/internal/pool"
	"github.com/LJTian/KpopABLab/internal/processor"
	"github.com/LJTian/KpopABLab/internal/storage"
)

// 只抓取一次文章池：配置了 Redis 时顺便预热缓存，然后打印结果
func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	var cache *storage.PoolCache
	if cfg.RedisAddr != "" {
		rdb := storage.OpenRedis(cfg.RedisAddr, logger)
		defer rdb.Close()
		cache = storage.NewPoolCache(rdb, storage.DefaultPoolKey, cfg.PoolCacheTTL)
	}

	provider, err := pool.New(cfg, cache, logger)
	if err != nil {
		logger.Fatal("init pool provider failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var articles []processor.Article
	if cached, ok := provider.(*pool.CachedPool); ok {
		articles, err = cached.Refresh(ctx)
	} else {
		articles, err = provider.FetchPool(ctx)
	}
	if err != nil {
		logger.Warn("pool fetched with errors", zap.Error(err))
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "id", "domain", "title"})
	for i, a := range articles {
		t.AppendRow(table.Row{i + 1, a.ID, a.Domain, a.Title})
	}
	t.AppendFooter(table.Row{"", "", "total", len(articles)})
	t.Render()
}
