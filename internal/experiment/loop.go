package experiment

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/headline"
	"github.com/LJTian/KpopABLab/internal/processor"
	"github.com/LJTian/KpopABLab/internal/storage"
)

var (
	// ErrEmptyPool 文章池为空：不渲染、不记录任何事件
	ErrEmptyPool = errors.New("article pool is empty")
	// ErrUnknownCard 屏幕已提交或不属于当前会话
	ErrUnknownCard = errors.New("unknown card")
)

// Card 屏幕上的一张卡片
type Card struct {
	Position int
	Article  processor.Article
	Variant  storage.Variant
	Headline string
	Clicked  bool
}

// Screen 一次渲染的结果。提交后每张卡片对应恰好一条曝光事件
type Screen struct {
	ID         string
	SessionID  string
	RenderedAt time.Time
	Cards      []Card

	committed bool
}

// Events 每张卡片一条事件；dwell 暂未测量，固定为 0
func (s *Screen) Events() []storage.ExposureEvent {
	out := make([]storage.ExposureEvent, 0, len(s.Cards))
	for _, c := range s.Cards {
		click := 0
		if c.Clicked {
			click = 1
		}
		out = append(out, storage.ExposureEvent{
			SessionID:  s.SessionID,
			Timestamp:  s.RenderedAt,
			Variant:    c.Variant,
			Title:      c.Article.Title,
			URL:        c.Article.URL,
			Impression: 1,
			Click:      click,
			DwellMS:    0,
			Position:   c.Position,
		})
	}
	return out
}

// EventSink 事件落盘的目标，storage.EventLog 实现了它
type EventSink interface {
	Append(events []storage.ExposureEvent, partitionDate time.Time) error
}

// Loop 抽样、分配变体、渲染并在屏幕结束时记录曝光
type Loop struct {
	gen    *headline.Generator
	sink   EventSink
	logger *zap.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Loop)

// WithRand 注入随机源，用于抽样和变体分配
func WithRand(rng *rand.Rand) Option {
	return func(l *Loop) { l.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

func NewLoop(gen *headline.Generator, sink EventSink, logger *zap.Logger, opts ...Option) *Loop {
	l := &Loop{
		gen:    gen,
		sink:   sink,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return l
}

// Render 先提交会话中上一屏，再从 pool 中无放回均匀抽取 min(k, len(pool)) 篇。
// pool 为空时返回 ErrEmptyPool
func (l *Loop) Render(sess *Session, pool []processor.Article, k int) (*Screen, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := l.now()
	sess.lastSeen = now
	// 上一屏写入失败不影响新屏幕，错误留在会话上由 TakeCommitErr 取走
	if err := l.commitLocked(sess); err != nil {
		sess.commitErr = err
	}

	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	count := min(max(k, 0), len(pool))
	picks, variants := l.draw(len(pool), count)

	screen := &Screen{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		RenderedAt: now,
		Cards:      make([]Card, 0, count),
	}
	for i, idx := range picks {
		article := pool[idx]
		pair := l.gen.MakePair(article.Title)

		text := pair.Factual
		if variants[i] == storage.VariantA {
			text = pair.Emotional
		}
		screen.Cards = append(screen.Cards, Card{
			Position: i + 1,
			Article:  article,
			Variant:  variants[i],
			Headline: text,
		})
	}

	if count > 0 {
		sess.screen = screen
	}
	return screen, nil
}

// Click 标记点击并结束当前屏幕
func (l *Loop) Click(sess *Session, screenID string, position int) (Card, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.lastSeen = l.now()
	screen := sess.screen
	if screen == nil || screen.ID != screenID || position < 1 || position > len(screen.Cards) {
		return Card{}, fmt.Errorf("%w: screen %s position %d", ErrUnknownCard, screenID, position)
	}

	screen.Cards[position-1].Clicked = true
	card := screen.Cards[position-1]
	if err := l.commitLocked(sess); err != nil {
		sess.commitErr = err
		return card, err
	}
	return card, nil
}

// Close 提交会话中未结束的屏幕
func (l *Loop) Close(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return l.commitLocked(sess)
}

// FlushIdle 提交并移除超过 idle 未活动的会话，返回处理的会话数；idle <= 0 时处理全部
func (l *Loop) FlushIdle(reg *Registry, idle time.Duration) int {
	sessions := reg.takeIdle(idle)
	for _, sess := range sessions {
		if err := l.Close(sess); err != nil {
			l.logger.Error("flush idle session failed", zap.String("sid", sess.ID), zap.Error(err))
		}
	}
	return len(sessions)
}

func (l *Loop) draw(n, count int) ([]int, []storage.Variant) {
	l.mu.Lock()
	defer l.mu.Unlock()

	picks := l.rng.Perm(n)[:count]
	variants := make([]storage.Variant, count)
	for i := range variants {
		variants[i] = storage.VariantB
		if l.rng.Intn(2) == 0 {
			variants[i] = storage.VariantA
		}
	}
	return picks, variants
}

// commitLocked 调用方需持有 sess.mu。屏幕只会被提交一次
func (l *Loop) commitLocked(sess *Session) error {
	screen := sess.screen
	if screen == nil || screen.committed {
		return nil
	}
	screen.committed = true
	sess.screen = nil

	events := screen.Events()
	if err := l.sink.Append(events, screen.RenderedAt); err != nil {
		l.logger.Error("append exposure events failed",
			zap.String("sid", sess.ID),
			zap.String("screen", screen.ID),
			zap.Error(err),
		)
		return fmt.Errorf("commit screen %s: %w", screen.ID, err)
	}
	l.logger.Debug("screen committed",
		zap.String("sid", sess.ID),
		zap.String("screen", screen.ID),
		zap.Int("events", len(events)),
	)
	return nil
}
