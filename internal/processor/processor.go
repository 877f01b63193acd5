package processor

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/LJTian/KpopABLab/internal/collector"
)

const idLength = 12

// Article 是卡片候选池中的一篇文章，生成后不再修改
type Article struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

// SimpleProcessor 做基础清洗、按 URL 去重并生成稳定 ID
type SimpleProcessor struct{}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{}
}

// Process 保留每个 URL 第一次出现的条目，顺序不变
func (p *SimpleProcessor) Process(items []collector.FeedItem) []Article {
	out := make([]Article, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		url := strings.TrimSpace(it.URL)
		title := strings.TrimSpace(it.Title)
		if url == "" || title == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}

		out = append(out, Article{
			ID:     HashURL(url),
			Title:  title,
			URL:    url,
			Domain: it.Domain,
		})
	}

	return out
}

// HashURL 取 md5 的前 12 位十六进制作为文章 ID
func HashURL(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:idLength]
}
