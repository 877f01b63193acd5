package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	wikimediaBaseURL = "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article"
	defaultProject   = "en.wikipedia"
)

// DailyViews 一天的浏览量，Date 为 YYYYMMDD
type DailyViews struct {
	Date  string
	Views int64
}

// WikiClient 查询 Wikimedia pageviews，无需密钥但要求 UA
type WikiClient struct {
	BaseURL string
	Project string
	client  *http.Client
	ua      string
}

func NewWikiClient(opts FetchOptions) *WikiClient {
	opts = opts.withDefaults()
	return &WikiClient{
		BaseURL: wikimediaBaseURL,
		Project: defaultProject,
		client:  &http.Client{Timeout: opts.Timeout},
		ua:      opts.UserAgent,
	}
}

type pageviewsResp struct {
	Items []struct {
		Timestamp string `json:"timestamp"`
		Views     int64  `json:"views"`
	} `json:"items"`
}

// PageviewsDaily start / end 格式为 YYYYMMDD
func (w *WikiClient) PageviewsDaily(ctx context.Context, article, start, end string) ([]DailyViews, error) {
	encoded := url.PathEscape(strings.ReplaceAll(article, " ", "_"))
	u := fmt.Sprintf("%s/%s/all-access/all-agents/%s/daily/%s/%s", w.BaseURL, w.Project, encoded, start, end)

	var res pageviewsResp
	if err := getJSON(ctx, w.client, u, w.ua, &res); err != nil {
		return nil, fmt.Errorf("wiki pageviews %s: %w", article, err)
	}

	out := make([]DailyViews, 0, len(res.Items))
	for _, it := range res.Items {
		date := it.Timestamp
		if len(date) > 8 {
			date = date[:8]
		}
		out = append(out, DailyViews{Date: date, Views: it.Views})
	}
	return out, nil
}

// MeanViews 空序列返回 0
func MeanViews(series []DailyViews) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum int64
	for _, d := range series {
		sum += d.Views
	}
	return float64(sum) / float64(len(series))
}
