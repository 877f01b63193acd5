package buzz

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Artist artists CSV 中的一行
type Artist struct {
	Name             string
	WikipediaArticle string
	YouTubeChannelID string
}

var artistColumns = []string{"artist", "wikipedia_article", "youtube_channel_id"}

// LoadArtists 读取 artist,wikipedia_article,youtube_channel_id 三列，列顺序不限
func LoadArtists(path string) ([]Artist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artists csv: %w", err)
	}
	defer f.Close()

	artists, err := readArtists(f)
	if err != nil {
		return nil, fmt.Errorf("read artists csv %s: %w", path, err)
	}
	return artists, nil
}

func readArtists(r io.Reader) ([]Artist, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range artistColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	get := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []Artist
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		a := Artist{
			Name:             get(rec, "artist"),
			WikipediaArticle: get(rec, "wikipedia_article"),
			YouTubeChannelID: get(rec, "youtube_channel_id"),
		}
		if a.Name == "" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
