package experiment

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session 一个用户会话。会话开始时创建，显式传入循环和日志，不用全局变量。
// 同一会话最多有一个未提交的屏幕
type Session struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	screen   *Screen
	lastSeen time.Time
	// 最近一次提交失败，等待页面取走展示
	commitErr error
}

func NewSession(now time.Time) *Session {
	return &Session{ID: uuid.NewString(), StartedAt: now, lastSeen: now}
}

// OpenScreen 返回当前未提交的屏幕，可能为 nil
func (s *Session) OpenScreen() *Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// TakeCommitErr 返回并清除最近一次屏幕提交失败
func (s *Session) TakeCommitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.commitErr
	s.commitErr = nil
	return err
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry 进程内的会话表
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Registry{sessions: make(map[string]*Session), now: now}
}

// GetOrCreate id 为空、不是合法 UUID 或未知时创建新会话
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		return sess, false
	}
	sess := NewSession(r.now())
	if _, err := uuid.Parse(id); err == nil {
		sess.ID = id
	}
	r.sessions[sess.ID] = sess
	return sess, true
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// takeIdle 摘除超过 idle 未活动的会话；idle <= 0 时摘除全部
func (r *Registry) takeIdle(idle time.Duration) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	var out []*Session
	for id, sess := range r.sessions {
		if idle > 0 && sess.LastSeen().After(cutoff) {
			continue
		}
		out = append(out, sess)
		delete(r.sessions, id)
	}
	return out
}
