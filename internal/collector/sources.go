package collector

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	SourceTypeRSS  = "rss"
	SourceTypeHTML = "html"
	// SourceTypeBrowser 需要本机可用的 Chrome
	SourceTypeBrowser = "browser"
)

// SourcesFile 对应 news_sources.yaml
type SourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig 描述一个来源；html 类型需要提供选择器
type SourceConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	URL    string `yaml:"url"`
	Domain string `yaml:"domain"`

	ItemSelector  string `yaml:"item_selector"`
	TitleSelector string `yaml:"title_selector"`
	LinkSelector  string `yaml:"link_selector"`
}

// LoadSources 读取并校验来源配置。没有 url 的条目被跳过
func LoadSources(path string) ([]SourceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceConfig, path, err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrSourceConfig, path, err)
	}

	out := make([]SourceConfig, 0, len(file.Sources))
	for _, src := range file.Sources {
		src.URL = strings.TrimSpace(src.URL)
		if src.URL == "" {
			continue
		}
		src.Type = strings.ToLower(strings.TrimSpace(src.Type))
		if src.Type == "" {
			src.Type = SourceTypeRSS
		}
		switch src.Type {
		case SourceTypeRSS:
		case SourceTypeHTML, SourceTypeBrowser:
			if src.ItemSelector == "" {
				return nil, fmt.Errorf("%w: %s source %q needs item_selector", ErrSourceConfig, src.Type, src.URL)
			}
		default:
			return nil, fmt.Errorf("%w: unknown source type %q", ErrSourceConfig, src.Type)
		}
		if src.Name == "" {
			src.Name = src.URL
		}
		out = append(out, src)
	}
	return out, nil
}

// NewFetcher 根据来源类型选择实现
func NewFetcher(src SourceConfig, opts FetchOptions) Fetcher {
	switch src.Type {
	case SourceTypeHTML:
		return NewHTMLListFetcher(src, opts)
	case SourceTypeBrowser:
		return NewBrowserListFetcher(src, opts)
	default:
		return NewRSSFetcher(src, opts)
	}
}
