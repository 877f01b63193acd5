package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/api"
	"github.com/LJTian/KpopABLab/internal/config"
	"github.com/LJTian/KpopABLab/internal/experiment"
	"github.com/LJTian/KpopABLab/internal/headline"
	"github.com/LJTian/KpopABLab/internal/logging"
	"github.com/LJTian/KpopABLab/internal/pool"
	"github.com/LJTian/KpopABLab/internal/scheduler"
	"github.com/LJTian/KpopABLab/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	// 配置了 Redis 时文章池走缓存，并由定时任务预热
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

	var buzz *storage.BuzzStore
	if cfg.PostgresDSN != "" {
		buzz, err = storage.OpenBuzzStore(cfg.PostgresDSN)
		if err != nil {
			// 快照库只服务 /api/v1/buzz，不可用时照常启动
			logger.Warn("open buzz store failed", zap.Error(err))
			buzz = nil
		}
	}

	events := storage.NewEventLog(cfg.LogDir, cfg.LogBOM)
	registry := experiment.NewRegistry(config.Now)
	loop := experiment.NewLoop(
		headline.NewGenerator(nil),
		events,
		logger.With(zap.String("component", "experiment")),
		experiment.WithClock(config.Now),
	)

	jobs := []scheduler.Job{
		{
			Task: &scheduler.IdleFlushTask{
				Loop:     loop,
				Registry: registry,
				Idle:     cfg.IdleFlushAfter,
				Logger:   logger,
			},
			CronSpec: "* * * * *",
		},
	}
	if cached, ok := provider.(*pool.CachedPool); ok {
		jobs = append(jobs, scheduler.Job{
			Task:     &scheduler.PoolRefreshTask{Pool: cached, Logger: logger},
			CronSpec: cfg.PoolRefreshCron,
		})
	}
	s, err := scheduler.New(jobs, logger.With(zap.String("component", "scheduler")))
	if err != nil {
		logger.Fatal("init scheduler failed", zap.Error(err))
	}
	s.Start()

	r := gin.Default()
	apiServer := api.NewServer(api.Deps{
		Pool:     provider,
		Loop:     loop,
		Registry: registry,
		Events:   events,
		Buzz:     buzz,
		Config:   cfg,
		Logger:   logger.With(zap.String("component", "api")),
	})
	apiServer.RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logger.Info("starting dashboard", zap.String("addr", srv.Addr), zap.String("log_dir", cfg.LogDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server exit", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	s.Stop()

	// 退出前把所有未结束的屏幕写入日志
	n := loop.FlushIdle(registry, 0)
	logger.Info("dashboard stopped", zap.Int("flushed_sessions", n))
}
