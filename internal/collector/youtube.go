package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	youtubeBaseURL   = "https://www.googleapis.com/youtube/v3"
	youtubeBatchSize = 50
)

// VideoStats 单个视频的统计
type VideoStats struct {
	VideoID      string
	PublishedAt  string
	Title        string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
}

// YouTubeClient 调用 Data API v3：search 取频道最新视频，videos 取统计
type YouTubeClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
	ua      string
}

func NewYouTubeClient(apiKey string, opts FetchOptions) *YouTubeClient {
	opts = opts.withDefaults()
	return &YouTubeClient{
		APIKey:  apiKey,
		BaseURL: youtubeBaseURL,
		client:  &http.Client{Timeout: opts.Timeout},
		ua:      opts.UserAgent,
	}
}

type ytSearchResp struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// 统计字段在 API 中是字符串
type ytVideosResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			PublishedAt string `json:"publishedAt"`
			Title       string `json:"title"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// ChannelVideos 返回频道最近 maxResults 个视频的统计
func (y *YouTubeClient) ChannelVideos(ctx context.Context, channelID string, maxResults int) ([]VideoStats, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	q := url.Values{}
	q.Set("part", "id,snippet")
	q.Set("channelId", channelID)
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("order", "date")
	q.Set("type", "video")
	q.Set("key", y.APIKey)

	var res ytSearchResp
	if err := getJSON(ctx, y.client, y.BaseURL+"/search?"+q.Encode(), y.ua, &res); err != nil {
		return nil, fmt.Errorf("youtube search %s: %w", channelID, err)
	}

	ids := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	return y.VideoStats(ctx, ids)
}

// VideoStats 按 50 个一批查询视频统计
func (y *YouTubeClient) VideoStats(ctx context.Context, videoIDs []string) ([]VideoStats, error) {
	out := make([]VideoStats, 0, len(videoIDs))
	for start := 0; start < len(videoIDs); start += youtubeBatchSize {
		end := min(start+youtubeBatchSize, len(videoIDs))

		q := url.Values{}
		q.Set("part", "statistics,snippet")
		q.Set("id", strings.Join(videoIDs[start:end], ","))
		q.Set("key", y.APIKey)

		var res ytVideosResp
		if err := getJSON(ctx, y.client, y.BaseURL+"/videos?"+q.Encode(), y.ua, &res); err != nil {
			return nil, fmt.Errorf("youtube videos: %w", err)
		}
		for _, it := range res.Items {
			out = append(out, VideoStats{
				VideoID:      it.ID,
				PublishedAt:  it.Snippet.PublishedAt,
				Title:        it.Snippet.Title,
				ViewCount:    parseCount(it.Statistics.ViewCount),
				LikeCount:    parseCount(it.Statistics.LikeCount),
				CommentCount: parseCount(it.Statistics.CommentCount),
			})
		}
	}
	return out, nil
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
