package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/experiment"
	"github.com/LJTian/KpopABLab/internal/processor"
)

// PoolRefresher 由 pool.CachedPool 实现
type PoolRefresher interface {
	Refresh(ctx context.Context) ([]processor.Article, error)
}

// PoolRefreshTask 定时回源刷新文章池缓存，渲染时直接命中缓存
type PoolRefreshTask struct {
	Pool   PoolRefresher
	Logger *zap.Logger
}

func (t *PoolRefreshTask) Name() string { return "pool-refresh" }

func (t *PoolRefreshTask) Run(ctx context.Context) error {
	list, err := t.Pool.Refresh(ctx)
	t.Logger.Info("article pool refreshed", zap.Int("articles", len(list)))
	return err
}

// IdleFlushTask 提交长时间无操作会话的未结束屏幕
type IdleFlushTask struct {
	Loop     *experiment.Loop
	Registry *experiment.Registry
	Idle     time.Duration
	Logger   *zap.Logger
}

func (t *IdleFlushTask) Name() string { return "idle-flush" }

func (t *IdleFlushTask) Run(context.Context) error {
	if n := t.Loop.FlushIdle(t.Registry, t.Idle); n > 0 {
		t.Logger.Info("idle sessions flushed", zap.Int("sessions", n))
	}
	return nil
}
