package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task 一个可周期执行的后台任务
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Job 任务及其 cron 表达式
type Job struct {
	Task     Task
	CronSpec string
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   []Job
	logger *zap.Logger

	// StartupDelay 启动后延迟执行首轮任务，0 表示不执行首轮
	StartupDelay time.Duration
	// Timeout 单个任务的最长执行时间
	Timeout time.Duration
}

func New(jobs []Job, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:         c,
		jobs:         jobs,
		logger:       logger,
		StartupDelay: 15 * time.Second,
		Timeout:      2 * time.Minute,
	}

	for _, j := range jobs {
		job := j
		if _, err := c.AddFunc(job.CronSpec, func() { s.run(job.Task) }); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Cron 暴露底层 cron，方便追加临时任务
func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.StartupDelay <= 0 {
		return
	}
	// 延迟执行首轮，避免与用户首次打开页面的请求争抢资源
	time.AfterFunc(s.StartupDelay, func() {
		go s.RunOnce()
	})
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 并发执行所有任务一次，方便手动触发
func (s *Scheduler) RunOnce() {
	s.logger.Info("start scheduled jobs")

	var wg sync.WaitGroup
	for _, j := range s.jobs {
		task := j.Task
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.run(task)
		}()
	}
	wg.Wait()
	s.logger.Info("scheduled jobs done")
}

func (s *Scheduler) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		s.logger.Warn("job failed", zap.String("job", task.Name()), zap.Error(err))
		return
	}
	s.logger.Debug("job done", zap.String("job", task.Name()), zap.Duration("took", time.Since(start)))
}
