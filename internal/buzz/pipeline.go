package buzz

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/collector"
)

// 每位艺人取最近的视频数
const recentVideos = 10

const wikiDateLayout = "20060102"

type VideoSource interface {
	ChannelVideos(ctx context.Context, channelID string, maxResults int) ([]collector.VideoStats, error)
}

type PageviewSource interface {
	PageviewsDaily(ctx context.Context, article, start, end string) ([]collector.DailyViews, error)
}

type ListenerSource interface {
	ArtistInfo(ctx context.Context, artist string) (collector.ArtistStats, error)
}

// Pipeline 顺序抓取每位艺人的信号。任一来源失败只把对应信号置 0，不中断整体
type Pipeline struct {
	YouTube VideoSource
	Wiki    PageviewSource
	// LastFM 为 nil 时跳过 Last.fm 信号
	LastFM ListenerSource

	Days   int
	Now    func() time.Time
	Logger *zap.Logger
}

// Run 返回按指数降序排列的结果
func (p *Pipeline) Run(ctx context.Context, artists []Artist) []Row {
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now().UTC()
	}
	end := now.Format(wikiDateLayout)
	start := now.AddDate(0, 0, -p.Days).Format(wikiDateLayout)

	rows := make([]Row, 0, len(artists))
	for _, a := range artists {
		if ctx.Err() != nil {
			break
		}
		row := Row{Artist: a.Name}
		row.YTViewsSum = p.youtubeViews(ctx, a)
		row.WikiViewsMean = p.wikiMean(ctx, a, start, end)
		row.LFMListeners, row.LFMPlaycount = p.lastfm(ctx, a)
		rows = append(rows, row)

		p.Logger.Info("artist signals collected",
			zap.String("artist", a.Name),
			zap.Int64("yt_views_sum", row.YTViewsSum),
			zap.Float64("wiki_views_mean", row.WikiViewsMean),
			zap.Float64("lfm_listeners", row.LFMListeners),
		)
	}
	Score(rows)
	return rows
}

func (p *Pipeline) youtubeViews(ctx context.Context, a Artist) int64 {
	if p.YouTube == nil || a.YouTubeChannelID == "" {
		return 0
	}
	videos, err := p.YouTube.ChannelVideos(ctx, a.YouTubeChannelID, recentVideos)
	if err != nil {
		p.Logger.Warn("youtube signal unavailable", zap.String("artist", a.Name), zap.Error(err))
		return 0
	}
	var sum int64
	for _, v := range videos {
		sum += v.ViewCount
	}
	return sum
}

func (p *Pipeline) wikiMean(ctx context.Context, a Artist, start, end string) float64 {
	if p.Wiki == nil || a.WikipediaArticle == "" {
		return 0
	}
	series, err := p.Wiki.PageviewsDaily(ctx, a.WikipediaArticle, start, end)
	if err != nil {
		p.Logger.Warn("wikipedia signal unavailable", zap.String("artist", a.Name), zap.Error(err))
		return 0
	}
	return collector.MeanViews(series)
}

func (p *Pipeline) lastfm(ctx context.Context, a Artist) (float64, float64) {
	if p.LastFM == nil {
		return 0, 0
	}
	stats, err := p.LastFM.ArtistInfo(ctx, a.Name)
	if err != nil {
		p.Logger.Warn("last.fm signal unavailable", zap.String("artist", a.Name), zap.Error(err))
		return 0, 0
	}
	return stats.Listeners, stats.Playcount
}
