package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/KpopABLab/internal/collector"
)

func TestHashURLDeterministicAndDistinct(t *testing.T) {
	url1 := "https://example.com/a"
	url2 := "https://example.com/b"

	h1a := HashURL(url1)
	h1b := HashURL(url1)
	h2 := HashURL(url2)

	assert.Equal(t, h1a, h1b)
	assert.NotEqual(t, h1a, h2)
	assert.Len(t, h1a, 12)
	assert.Equal(t, "cd69b81ea00c", h1a)
}

func TestSimpleProcessorDeduplicatesByURL(t *testing.T) {
	p := NewSimpleProcessor()

	items := []collector.FeedItem{
		{Title: "Title 1", URL: "https://example.com/1", Domain: "feed-a"},
		{Title: "Title 1 duplicate from another feed", URL: "https://example.com/1", Domain: "feed-b"},
		{Title: "  Title 2  ", URL: "https://example.com/2", Domain: "feed-b"},
		{Title: "", URL: "https://example.com/3"},
		{Title: "no url"},
	}

	out := p.Process(items)
	require.Len(t, out, 2)

	assert.Equal(t, "Title 1", out[0].Title)
	assert.Equal(t, "feed-a", out[0].Domain)
	assert.Equal(t, HashURL("https://example.com/1"), out[0].ID)
	assert.Equal(t, "Title 2", out[1].Title)
}

func TestSimpleProcessorEmpty(t *testing.T) {
	assert.Empty(t, NewSimpleProcessor().Process(nil))
}
