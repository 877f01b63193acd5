package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/config"
	"github.com/LJTian/KpopABLab/internal/experiment"
	"github.com/LJTian/KpopABLab/internal/pool"
	"github.com/LJTian/KpopABLab/internal/report"
	"github.com/LJTian/KpopABLab/internal/storage"
)

const (
	sessionCookie    = "sid"
	sessionCookieAge = 30 * 24 * 60 * 60
	dateLayout       = "2006-01-02"
)

type Server struct {
	pool     pool.Provider
	loop     *experiment.Loop
	registry *experiment.Registry
	events   *storage.EventLog
	// buzz 未配置 Postgres 时为 nil
	buzz   *storage.BuzzStore
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

type Deps struct {
	Pool     pool.Provider
	Loop     *experiment.Loop
	Registry *experiment.Registry
	Events   *storage.EventLog
	Buzz     *storage.BuzzStore
	Config   *config.Config
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewServer(d Deps) *Server {
	now := d.Now
	if now == nil {
		now = config.Now
	}
	return &Server{
		pool:     d.Pool,
		loop:     d.Loop,
		registry: d.Registry,
		events:   d.Events,
		buzz:     d.Buzz,
		cfg:      d.Config,
		logger:   d.Logger,
		now:      now,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(dashboardTemplate)

	r.GET("/health", s.health)
	r.GET("/", s.dashboard)
	r.GET("/click/:screen/:pos", s.click)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/summary", s.summary)
		v1.GET("/buzz", s.listBuzz)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// click 记录点击并跳转到原文。屏幕已失效时不记录，按 a 参数在文章池中找回原文，找不到回到首页
func (s *Server) click(c *gin.Context) {
	pos, err := strconv.Atoi(c.Param("pos"))
	if err != nil {
		s.redirectStale(c)
		return
	}
	sid, _ := c.Cookie(sessionCookie)
	sess, ok := s.registry.Get(sid)
	if !ok {
		s.redirectStale(c)
		return
	}

	card, err := s.loop.Click(sess, c.Param("screen"), pos)
	if errors.Is(err, experiment.ErrUnknownCard) {
		s.redirectStale(c)
		return
	}
	if err != nil {
		// 事件写入失败不阻止跳转
		s.logger.Error("record click failed", zap.String("sid", sess.ID), zap.Error(err))
	}
	c.Redirect(http.StatusFound, card.Article.URL)
}

// redirectStale 只跳转到池中已有的文章，不接受任意 URL
func (s *Server) redirectStale(c *gin.Context) {
	id := c.Query("a")
	if id == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	articles, err := s.pool.FetchPool(c.Request.Context())
	if err != nil {
		s.logger.Warn("fetch pool for stale click failed", zap.String("article", id), zap.Error(err))
	}
	for _, a := range articles {
		if a.ID == id {
			c.Redirect(http.StatusFound, a.URL)
			return
		}
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) summary(c *gin.Context) {
	date, ok := s.parseDate(c)
	if !ok {
		return
	}

	events, err := s.events.Read(date)
	if err != nil {
		s.logger.Error("read exposure log failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "exposure log unreadable",
		})
		return
	}

	overall, rows := report.Summarize(events)
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data": gin.H{
			"date":     date.Format(dateLayout),
			"file":     filepath.Base(s.events.PathFor(date)),
			"overall":  overall,
			"variants": rows,
		},
	})
}

func (s *Server) listBuzz(c *gin.Context) {
	if s.buzz == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_configured",
			"message": "buzz snapshot store is not configured",
		})
		return
	}

	ctx := c.Request.Context()
	runDate := c.Query("date")
	if runDate == "" {
		latest, err := s.buzz.LatestRunDate(ctx)
		if err != nil {
			s.internalError(c, "latest buzz run failed", err)
			return
		}
		runDate = latest
	} else if _, err := time.Parse(dateLayout, runDate); err != nil {
		s.badDate(c)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	items := []storage.BuzzSnapshot{}
	if runDate != "" {
		items, err = s.buzz.ListRun(ctx, runDate, limit)
		if err != nil {
			s.internalError(c, "list buzz run failed", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    gin.H{"date": runDate, "items": items},
	})
}

// parseDate 读取 date 参数，缺省为今天（UTC）
func (s *Server) parseDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return s.now().UTC(), true
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		s.badDate(c)
		return time.Time{}, false
	}
	return d, true
}

func (s *Server) badDate(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "invalid_argument",
		"message": "date must be YYYY-MM-DD",
	})
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}

// session 从 cookie 取会话，没有则新建并写回 cookie
func (s *Server) session(c *gin.Context) *experiment.Session {
	sid, _ := c.Cookie(sessionCookie)
	sess, created := s.registry.GetOrCreate(sid)
	if created || sid != sess.ID {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, sess.ID, sessionCookieAge, "/", "", false, true)
	}
	return sess
}
