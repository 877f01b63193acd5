package collector

import (
	"context"
	"errors"
)

var (
	// ErrSourceConfig 表示源配置缺失或格式错误
	ErrSourceConfig = errors.New("source config")
	// ErrProvider 表示外部数据源请求或解析失败
	ErrProvider = errors.New("provider")
)

// FeedItem 统一采集后的基础结构
type FeedItem struct {
	Title  string
	URL    string
	Domain string
	Source string
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]FeedItem, error)
}
