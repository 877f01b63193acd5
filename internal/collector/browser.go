package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// BrowserListFetcher 用 headless Chrome 渲染依赖 JS 的列表页，再按选择器解析
type BrowserListFetcher struct {
	src  SourceConfig
	opts FetchOptions
}

func NewBrowserListFetcher(src SourceConfig, opts FetchOptions) *BrowserListFetcher {
	return &BrowserListFetcher{src: src, opts: opts.withDefaults()}
}

func (b *BrowserListFetcher) Name() string {
	return b.src.Name
}

func (b *BrowserListFetcher) Fetch(ctx context.Context) ([]FeedItem, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(b.opts.UserAgent))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, b.opts.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(b.src.URL),
		chromedp.WaitReady(b.src.ItemSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: browser %s: %v", ErrProvider, b.src.URL, err)
	}
	return parseListHTML(html, b.src)
}

// parseListHTML 解析已渲染的页面，链接相对 src.URL 解析
func parseListHTML(html string, src SourceConfig) ([]FeedItem, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad url %q: %v", ErrSourceConfig, src.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrProvider, src.URL, err)
	}

	linkSel := src.LinkSelector
	if linkSel == "" {
		linkSel = "a"
	}
	resolve := func(href string) string {
		ref, err := url.Parse(href)
		if err != nil {
			return ""
		}
		return base.ResolveReference(ref).String()
	}

	var out []FeedItem
	doc.Find(src.ItemSelector).Each(func(_ int, sel *goquery.Selection) {
		if item, ok := listItem(sel, src, linkSel, resolve); ok {
			out = append(out, item)
		}
	})
	return out, nil
}
