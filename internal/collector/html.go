package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// HTMLListFetcher 抓取没有 RSS 的列表页，按配置的 CSS 选择器解析
type HTMLListFetcher struct {
	src  SourceConfig
	opts FetchOptions
}

func NewHTMLListFetcher(src SourceConfig, opts FetchOptions) *HTMLListFetcher {
	return &HTMLListFetcher{src: src, opts: opts.withDefaults()}
}

func (h *HTMLListFetcher) Name() string {
	return h.src.Name
}

func (h *HTMLListFetcher) Fetch(ctx context.Context) ([]FeedItem, error) {
	c := colly.NewCollector(colly.UserAgent(h.opts.UserAgent))
	c.SetRequestTimeout(h.opts.Timeout)

	linkSel := h.src.LinkSelector
	if linkSel == "" {
		linkSel = "a"
	}

	results := make([]FeedItem, 0, 32)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML(h.src.ItemSelector, func(e *colly.HTMLElement) {
		if item, ok := listItem(e.DOM, h.src, linkSel, e.Request.AbsoluteURL); ok {
			results = append(results, item)
		}
	})

	if err := c.Visit(h.src.URL); err != nil {
		return nil, fmt.Errorf("%w: html %s: %v", ErrProvider, h.src.URL, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: html %s: %v", ErrProvider, h.src.URL, err)
	}
	return results, nil
}

// listItem 从一个列表条目中取标题和链接，resolve 把相对链接转成绝对地址
func listItem(sel *goquery.Selection, src SourceConfig, linkSel string, resolve func(string) string) (FeedItem, bool) {
	title := itemTitle(sel, src.TitleSelector)
	if title == "" {
		return FeedItem{}, false
	}

	href := ""
	if sel.Is(linkSel) {
		href, _ = sel.Attr("href")
	} else {
		href, _ = sel.Find(linkSel).First().Attr("href")
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return FeedItem{}, false
	}
	link := strings.TrimSpace(resolve(href))
	if link == "" {
		return FeedItem{}, false
	}

	return FeedItem{
		Title:  title,
		URL:    link,
		Domain: src.Domain,
		Source: src.Name,
	}, true
}

// itemTitle 优先取 title_selector，否则取整个条目文本
func itemTitle(sel *goquery.Selection, titleSel string) string {
	if titleSel != "" {
		sel = sel.Find(titleSel).First()
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}
