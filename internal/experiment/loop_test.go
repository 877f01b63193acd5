package experiment

import (
	"errors"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/headline"
	"github.com/LJTian/KpopABLab/internal/processor"
	"github.com/LJTian/KpopABLab/internal/storage"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]storage.ExposureEvent
	dates   []time.Time
	err     error
}

func (m *memorySink) Append(events []storage.ExposureEvent, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if len(events) == 0 {
		return nil
	}
	m.batches = append(m.batches, events)
	m.dates = append(m.dates, date)
	return nil
}

func (m *memorySink) all() []storage.ExposureEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ExposureEvent
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

var fixedNow = time.Date(2025, 3, 9, 23, 59, 30, 0, time.UTC)

func newTestLoop(sink EventSink, seed int64) *Loop {
	return NewLoop(
		headline.NewGenerator(rand.New(rand.NewSource(seed))),
		sink,
		zap.NewNop(),
		WithRand(rand.New(rand.NewSource(seed))),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func samplePool(n int) []processor.Article {
	out := make([]processor.Article, n)
	for i := range out {
		url := "https://news.example/" + string(rune('a'+i))
		out[i] = processor.Article{ID: processor.HashURL(url), Title: "Story " + string(rune('A'+i)), URL: url}
	}
	return out
}

func TestRenderCardCountAndPositions(t *testing.T) {
	cases := []struct {
		pool, k, want int
	}{
		{pool: 3, k: 12, want: 3},
		{pool: 20, k: 12, want: 12},
		{pool: 12, k: 12, want: 12},
	}
	for _, tc := range cases {
		loop := newTestLoop(&memorySink{}, 1)
		sess := NewSession(fixedNow)

		screen, err := loop.Render(sess, samplePool(tc.pool), tc.k)
		require.NoError(t, err)
		require.Len(t, screen.Cards, tc.want)

		seen := map[string]bool{}
		for i, c := range screen.Cards {
			assert.Equal(t, i+1, c.Position)
			assert.False(t, seen[c.Article.URL], "article drawn twice")
			seen[c.Article.URL] = true
			assert.Contains(t, c.Headline, c.Article.Title)
			assert.Contains(t, []storage.Variant{storage.VariantA, storage.VariantB}, c.Variant)
		}
	}
}

func TestRenderEmptyPool(t *testing.T) {
	dir := t.TempDir()
	log := storage.NewEventLog(dir, true)
	loop := newTestLoop(log, 1)

	screen, err := loop.Render(NewSession(fixedNow), nil, 12)
	assert.Nil(t, screen)
	assert.ErrorIs(t, err, ErrEmptyPool)

	_, statErr := os.Stat(log.PathFor(fixedNow))
	assert.True(t, os.IsNotExist(statErr))
}

func TestVariantAssignmentRoughlyUniform(t *testing.T) {
	loop := newTestLoop(&memorySink{}, 2024)
	pool := samplePool(20)

	counts := map[storage.Variant]int{}
	for i := 0; i < 500; i++ {
		screen, err := loop.Render(NewSession(fixedNow), pool, 20)
		require.NoError(t, err)
		for _, c := range screen.Cards {
			counts[c.Variant]++
		}
	}
	total := counts[storage.VariantA] + counts[storage.VariantB]
	share := float64(counts[storage.VariantA]) / float64(total)
	assert.InDelta(t, 0.5, share, 0.03)
}

func TestVariantHeadlineStyle(t *testing.T) {
	loop := newTestLoop(&memorySink{}, 3)
	screen, err := loop.Render(NewSession(fixedNow), samplePool(20), 20)
	require.NoError(t, err)

	for _, c := range screen.Cards {
		if c.Variant == storage.VariantA {
			assert.Contains(t, c.Headline, "must-see points")
		} else {
			assert.Contains(t, c.Headline, "| key metrics & links")
		}
	}
}

func TestNextRenderCommitsPreviousScreen(t *testing.T) {
	sink := &memorySink{}
	loop := newTestLoop(sink, 5)
	sess := NewSession(fixedNow)

	first, err := loop.Render(sess, samplePool(5), 4)
	require.NoError(t, err)
	assert.Empty(t, sink.all())

	_, err = loop.Render(sess, samplePool(5), 4)
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 4)
	for i, ev := range events {
		assert.Equal(t, sess.ID, ev.SessionID)
		assert.Equal(t, first.Cards[i].Article.URL, ev.URL)
		assert.Equal(t, first.Cards[i].Variant, ev.Variant)
		assert.Equal(t, 1, ev.Impression)
		assert.Equal(t, 0, ev.Click)
		assert.Equal(t, 0, ev.DwellMS)
		assert.Equal(t, i+1, ev.Position)
		assert.Equal(t, fixedNow, ev.Timestamp)
	}
	assert.Equal(t, fixedNow, sink.dates[0])
}

func TestClickRecordsClickAndCommitsOnce(t *testing.T) {
	sink := &memorySink{}
	loop := newTestLoop(sink, 9)
	sess := NewSession(fixedNow)

	screen, err := loop.Render(sess, samplePool(6), 6)
	require.NoError(t, err)

	card, err := loop.Click(sess, screen.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, screen.Cards[2].Article.URL, card.Article.URL)

	events := sink.all()
	require.Len(t, events, 6)
	for _, ev := range events {
		if ev.Position == 3 {
			assert.Equal(t, 1, ev.Click)
		} else {
			assert.Equal(t, 0, ev.Click)
		}
	}

	// 已提交的屏幕不能再点击，也不会被再次写入
	_, err = loop.Click(sess, screen.ID, 1)
	assert.ErrorIs(t, err, ErrUnknownCard)
	require.NoError(t, loop.Close(sess))
	_, err = loop.Render(sess, samplePool(6), 6)
	require.NoError(t, err)
	assert.Len(t, sink.all(), 6)
}

func TestClickUnknownCard(t *testing.T) {
	loop := newTestLoop(&memorySink{}, 9)
	sess := NewSession(fixedNow)

	_, err := loop.Click(sess, "nope", 1)
	assert.ErrorIs(t, err, ErrUnknownCard)

	screen, err := loop.Render(sess, samplePool(3), 12)
	require.NoError(t, err)
	_, err = loop.Click(sess, screen.ID, 4)
	assert.ErrorIs(t, err, ErrUnknownCard)
	_, err = loop.Click(sess, screen.ID, 0)
	assert.ErrorIs(t, err, ErrUnknownCard)
}

func TestCommitFailureSurfacesOnClick(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	loop := newTestLoop(sink, 1)
	sess := NewSession(fixedNow)

	screen, err := loop.Render(sess, samplePool(2), 2)
	require.NoError(t, err)

	_, err = loop.Click(sess, screen.ID, 1)
	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, sess.OpenScreen())
}

func TestCommitFailureOnRenderKeptForSession(t *testing.T) {
	sink := &memorySink{}
	loop := newTestLoop(sink, 1)
	sess := NewSession(fixedNow)

	_, err := loop.Render(sess, samplePool(3), 3)
	require.NoError(t, err)

	sink.mu.Lock()
	sink.err = errors.New("disk full")
	sink.mu.Unlock()

	screen, err := loop.Render(sess, samplePool(3), 3)
	require.NoError(t, err)
	require.NotNil(t, screen)

	commitErr := sess.TakeCommitErr()
	assert.ErrorContains(t, commitErr, "disk full")
	assert.NoError(t, sess.TakeCommitErr())

	// 池为空时上一屏的失败同样保留
	_, err = loop.Render(sess, nil, 3)
	assert.ErrorIs(t, err, ErrEmptyPool)
	assert.ErrorContains(t, sess.TakeCommitErr(), "disk full")
}

func TestRenderWritesDailyLog(t *testing.T) {
	log := storage.NewEventLog(t.TempDir(), false)
	loop := newTestLoop(log, 11)
	sess := NewSession(fixedNow)

	_, err := loop.Render(sess, samplePool(8), 6)
	require.NoError(t, err)
	require.NoError(t, loop.Close(sess))

	events, err := log.Read(fixedNow)
	require.NoError(t, err)
	require.Len(t, events, 6)
	for i, ev := range events {
		assert.Equal(t, i+1, ev.Position)
		assert.Equal(t, fixedNow, ev.Timestamp)
	}
}

func TestFlushIdle(t *testing.T) {
	sink := &memorySink{}
	now := fixedNow
	clock := func() time.Time { return now }
	loop := NewLoop(headline.NewGenerator(nil), sink, zap.NewNop(), WithClock(clock))
	reg := NewRegistry(clock)

	stale, _ := reg.GetOrCreate("")
	_, err := loop.Render(stale, samplePool(4), 4)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	fresh, _ := reg.GetOrCreate("")
	_, err = loop.Render(fresh, samplePool(4), 2)
	require.NoError(t, err)

	assert.Equal(t, 1, loop.FlushIdle(reg, 15*time.Minute))
	assert.Len(t, sink.all(), 4)
	assert.Equal(t, 1, reg.Len())

	assert.Equal(t, 1, loop.FlushIdle(reg, 0))
	assert.Len(t, sink.all(), 6)
	assert.Equal(t, 0, reg.Len())
}
