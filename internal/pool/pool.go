package pool

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/collector"
	"github.com/LJTian/KpopABLab/internal/config"
	"github.com/LJTian/KpopABLab/internal/processor"
	"github.com/LJTian/KpopABLab/internal/storage"
)

// Provider 提供去重后的候选文章池。
// 可能同时返回部分结果和错误：部分来源失败不影响其余来源
type Provider interface {
	FetchPool(ctx context.Context) ([]processor.Article, error)
}

// EmptyPool 不访问任何外部源，始终返回空池
type EmptyPool struct{}

func (EmptyPool) FetchPool(context.Context) ([]processor.Article, error) {
	return nil, nil
}

// FeedPool 读取来源配置，逐个抓取并按 URL 去重
type FeedPool struct {
	sourcesPath string
	opts        collector.FetchOptions
	processor   *processor.SimpleProcessor
	logger      *zap.Logger
}

func NewFeedPool(sourcesPath string, opts collector.FetchOptions, logger *zap.Logger) *FeedPool {
	return &FeedPool{
		sourcesPath: sourcesPath,
		opts:        opts,
		processor:   processor.NewSimpleProcessor(),
		logger:      logger,
	}
}

func (f *FeedPool) FetchPool(ctx context.Context) ([]processor.Article, error) {
	sources, err := collector.LoadSources(f.sourcesPath)
	if err != nil {
		f.logger.Warn("load news sources failed", zap.String("path", f.sourcesPath), zap.Error(err))
		return nil, err
	}

	var (
		items []collector.FeedItem
		errs  []error
	)
	for _, src := range sources {
		fetcher := collector.NewFetcher(src, f.opts)
		got, err := fetcher.Fetch(ctx)
		if err != nil {
			f.logger.Warn("fetch source failed", zap.String("source", fetcher.Name()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		f.logger.Debug("fetched source", zap.String("source", fetcher.Name()), zap.Int("items", len(got)))
		items = append(items, got...)
	}

	articles := f.processor.Process(items)
	f.logger.Info("article pool built",
		zap.Int("sources", len(sources)),
		zap.Int("fetched", len(items)),
		zap.Int("articles", len(articles)),
		zap.Int("failed_sources", len(errs)),
	)
	return articles, errors.Join(errs...)
}

// CachedPool 先读 Redis，未命中或 Redis 出错时回源并回写
type CachedPool struct {
	inner  Provider
	cache  *storage.PoolCache
	logger *zap.Logger
}

func NewCachedPool(inner Provider, cache *storage.PoolCache, logger *zap.Logger) *CachedPool {
	return &CachedPool{inner: inner, cache: cache, logger: logger}
}

func (c *CachedPool) FetchPool(ctx context.Context) ([]processor.Article, error) {
	list, ok, err := c.cache.Get(ctx)
	if err != nil {
		c.logger.Warn("pool cache read failed", zap.Error(err))
	}
	if ok && len(list) > 0 {
		return list, nil
	}
	return c.Refresh(ctx)
}

// Refresh 强制回源并写缓存，定时任务用它预热
func (c *CachedPool) Refresh(ctx context.Context) ([]processor.Article, error) {
	list, err := c.inner.FetchPool(ctx)
	if setErr := c.cache.Set(ctx, list); setErr != nil {
		c.logger.Warn("pool cache write failed", zap.Error(setErr))
	}
	return list, err
}

// New 按配置选择实现；配置了 REDIS_ADDR 时套一层缓存
func New(cfg *config.Config, cache *storage.PoolCache, logger *zap.Logger) (Provider, error) {
	var p Provider
	switch cfg.PoolProvider {
	case config.PoolProviderEmpty:
		return EmptyPool{}, nil
	case config.PoolProviderFeeds:
		p = NewFeedPool(cfg.SourcesPath, collector.FetchOptions{Timeout: cfg.HTTPTimeout}, logger.With(zap.String("component", "pool")))
	default:
		return nil, fmt.Errorf("%w: unknown pool provider %q", collector.ErrSourceConfig, cfg.PoolProvider)
	}
	if cache != nil {
		p = NewCachedPool(p, cache, logger.With(zap.String("component", "pool.cache")))
	}
	return p, nil
}
