package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultUserAgent    = "KpopABLabBot/1.0"
)

// FetchOptions 控制所有外部请求的超时与 UA，不做重试
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultFetchTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}

// RSSFetcher 通过 gofeed 解析 RSS/Atom
type RSSFetcher struct {
	src    SourceConfig
	parser *gofeed.Parser
}

func NewRSSFetcher(src SourceConfig, opts FetchOptions) *RSSFetcher {
	opts = opts.withDefaults()
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: opts.Timeout}
	fp.UserAgent = opts.UserAgent
	return &RSSFetcher{src: src, parser: fp}
}

func (r *RSSFetcher) Name() string {
	return r.src.Name
}

func (r *RSSFetcher) Fetch(ctx context.Context) ([]FeedItem, error) {
	feed, err := r.parser.ParseURLWithContext(r.src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: rss %s: %v", ErrProvider, r.src.URL, err)
	}

	out := make([]FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		out = append(out, FeedItem{
			Title:  title,
			URL:    link,
			Domain: r.src.Domain,
			Source: r.src.Name,
		})
	}
	return out, nil
}
