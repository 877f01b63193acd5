package api

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/collector"
	"github.com/LJTian/KpopABLab/internal/config"
	"github.com/LJTian/KpopABLab/internal/experiment"
	"github.com/LJTian/KpopABLab/internal/report"
	"github.com/LJTian/KpopABLab/internal/storage"
)

const previewRows = 20

type dashboardView struct {
	SessionID string
	Cards     int
	MinCards  int
	MaxCards  int
	Sources   string

	Warnings []string
	Empty    bool
	Screen   *experiment.Screen
	Notice   string

	Preview  []storage.ExposureEvent
	Overall  report.Overall
	Variants []report.VariantRow
	HasLog   bool
	LogError string
}

// dashboard 一次请求走完 抓取 → 抽样 → 渲染 → 汇总；失败都以页面内提示呈现
func (s *Server) dashboard(c *gin.Context) {
	sess := s.session(c)
	cards := s.cfg.CardsDefault
	if n, err := strconv.Atoi(c.Query("n")); err == nil {
		cards = config.ClampCards(n)
	}

	view := dashboardView{
		SessionID: sess.ID,
		Cards:     cards,
		MinCards:  config.MinCards,
		MaxCards:  config.MaxCards,
		Sources:   s.cfg.SourcesPath,
	}

	articles, err := s.pool.FetchPool(c.Request.Context())
	if err != nil {
		view.Warnings = append(view.Warnings, poolWarning(err))
	}

	screen, err := s.loop.Render(sess, articles, cards)
	if commitErr := sess.TakeCommitErr(); commitErr != nil {
		view.Warnings = append(view.Warnings, "previous screen was not logged: "+commitErr.Error())
	}
	switch {
	case errors.Is(err, experiment.ErrEmptyPool):
		view.Empty = true
	case err != nil:
		view.Warnings = append(view.Warnings, err.Error())
	default:
		view.Screen = screen
		view.Notice = fmt.Sprintf("%d cards shown; impressions are logged to %s",
			len(screen.Cards), filepath.Base(s.events.PathFor(screen.RenderedAt)))
	}

	events, err := s.events.Read(s.now())
	if err != nil {
		s.logger.Warn("read exposure log failed", zap.Error(err))
		view.LogError = err.Error()
	}
	view.HasLog = len(events) > 0
	view.Preview = storage.Tail(events, previewRows)
	view.Overall, view.Variants = report.Summarize(events)

	c.HTML(http.StatusOK, "dashboard", view)
}

func poolWarning(err error) string {
	if errors.Is(err, collector.ErrSourceConfig) {
		return "news source configuration problem: " + err.Error()
	}
	return "some news sources failed: " + err.Error()
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"thousands": report.FormatThousands,
	"pct":       func(f float64) string { return fmt.Sprintf("%.2f%%", f) },
	"ms":        func(f float64) string { return fmt.Sprintf("%.0f", f) },
	"dwell":     func(f float64) string { return fmt.Sprintf("%.1f", f) },
	"ts": func(e storage.ExposureEvent) string {
		if !e.HasTimestamp() {
			return ""
		}
		return e.Timestamp.Format("15:04:05")
	},
}).Parse(dashboardHTML))

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>K-POP Headline A/B</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;max-width:1200px}
.grid{display:grid;grid-template-columns:repeat(3,1fr);gap:1rem}
.card{border:1px solid #ddd;border-radius:8px;padding:1rem}
.card small{color:#888}
.warn{background:#fff4e5;padding:.75rem;border-radius:6px;margin:.5rem 0}
.ok{background:#e8f5e9;padding:.75rem;border-radius:6px;margin:.5rem 0}
.metrics{display:flex;gap:2rem}
table{border-collapse:collapse;width:100%}
td,th{border-bottom:1px solid #eee;padding:.25rem .5rem;text-align:left;font-size:.9rem}
</style>
</head>
<body>
<h1>K-POP headline framing A/B test</h1>
<p>Compares click-through of emotional (A) and factual (B) headlines shown on the same screen.</p>
<form method="get">
<label>Cards per screen <input type="range" name="n" min="{{.MinCards}}" max="{{.MaxCards}}" step="2" value="{{.Cards}}" onchange="this.form.submit()"></label> {{.Cards}}
<small>sources: {{.Sources}}</small>
</form>
{{range .Warnings}}<div class="warn">{{.}}</div>{{end}}
{{if .Empty}}
<div class="warn">No articles could be fetched from the configured feeds. Check that the sources file exists and lists reachable feeds.</div>
{{else if .Screen}}
<div class="grid">
{{$screen := .Screen}}{{range .Screen.Cards}}
<div class="card">
<strong>{{.Headline}}</strong><br>
<small>{{if .Article.Domain}}{{.Article.Domain}}{{else}}unknown-source{{end}}</small>
<p><a href="/click/{{$screen.ID}}/{{.Position}}?a={{.Article.ID}}">View article</a></p>
</div>
{{end}}
</div>
{{end}}
{{with .Notice}}<div class="ok">{{.}}</div>{{end}}
<hr>
<h2>Today's log &amp; summary</h2>
{{with .LogError}}<div class="warn">log read error: {{.}}</div>{{end}}
{{if .HasLog}}
<table>
<tr><th>sid</th><th>ts</th><th>variant</th><th>title</th><th>impression</th><th>click</th><th>dwell_ms</th><th>position</th></tr>
{{range .Preview}}<tr><td>{{.SessionID}}</td><td>{{ts .}}</td><td>{{.Variant}}</td><td>{{.Title}}</td><td>{{.Impression}}</td><td>{{.Click}}</td><td>{{.DwellMS}}</td><td>{{.Position}}</td></tr>
{{end}}</table>
<div class="metrics">
<p>Impressions<br><strong>{{thousands .Overall.Impressions}}</strong></p>
<p>Clicks<br><strong>{{thousands .Overall.Clicks}}</strong></p>
<p>CTR<br><strong>{{pct .Overall.CTR}}</strong></p>
<p>Avg dwell (ms)<br><strong>{{ms .Overall.MeanDwell}}</strong></p>
</div>
<h3>A/B comparison</h3>
<table>
<tr><th>variant</th><th>impressions</th><th>clicks</th><th>ctr(%)</th><th>avg_dwell</th></tr>
{{range .Variants}}<tr><td>{{.Variant}}</td><td>{{.Impressions}}</td><td>{{.Clicks}}</td><td>{{pct .CTR}}</td><td>{{dwell .AvgDwell}}</td></tr>
{{end}}</table>
<small>A = emotional headline, B = factual headline. CTR(%) = clicks / impressions × 100.</small>
{{else}}
<p>No log rows yet today. Impressions are written when a screen ends (next load or a click).</p>
{{end}}
</body>
</html>
`
