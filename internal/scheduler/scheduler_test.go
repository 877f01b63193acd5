package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/experiment"
	"github.com/LJTian/KpopABLab/internal/headline"
	"github.com/LJTian/KpopABLab/internal/processor"
	"github.com/LJTian/KpopABLab/internal/storage"
)

type countingTask struct {
	calls atomic.Int32
	err   error
}

func (c *countingTask) Name() string { return "counting" }

func (c *countingTask) Run(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestNewRejectsBadCronExpression(t *testing.T) {
	_, err := New([]Job{{Task: &countingTask{}, CronSpec: "not a cron"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunOnceRunsEveryJob(t *testing.T) {
	ok := &countingTask{}
	failing := &countingTask{err: errors.New("boom")}
	s, err := New([]Job{
		{Task: ok, CronSpec: "*/10 * * * *"},
		{Task: failing, CronSpec: "@every 1h"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.Cron().Entries(), 2)

	s.RunOnce()
	assert.Equal(t, int32(1), ok.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
}

type fakeRefresher struct {
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) ([]processor.Article, error) {
	f.calls++
	return []processor.Article{{ID: "1", Title: "t", URL: "https://x/1"}}, nil
}

func TestPoolRefreshTask(t *testing.T) {
	r := &fakeRefresher{}
	task := &PoolRefreshTask{Pool: r, Logger: zap.NewNop()}
	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 1, r.calls)
}

func TestIdleFlushTask(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	log := storage.NewEventLog(t.TempDir(), true)
	loop := experiment.NewLoop(
		headline.NewGenerator(rand.New(rand.NewSource(1))),
		log,
		zap.NewNop(),
		experiment.WithClock(clock),
	)
	reg := experiment.NewRegistry(clock)

	sess, _ := reg.GetOrCreate("")
	_, err := loop.Render(sess, []processor.Article{
		{ID: "a", Title: "A", URL: "https://x/a"},
		{ID: "b", Title: "B", URL: "https://x/b"},
	}, 6)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	task := &IdleFlushTask{Loop: loop, Registry: reg, Idle: 15 * time.Minute, Logger: zap.NewNop()}
	require.NoError(t, task.Run(context.Background()))

	events, err := log.Read(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 0, reg.Len())
}
