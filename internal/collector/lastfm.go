package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const lastfmBaseURL = "http://ws.audioscrobbler.com/2.0/"

// ArtistStats Last.fm 的听众数与播放数
type ArtistStats struct {
	Name      string
	Listeners float64
	Playcount float64
}

type LastFMClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
	ua      string
}

func NewLastFMClient(apiKey string, opts FetchOptions) *LastFMClient {
	opts = opts.withDefaults()
	return &LastFMClient{
		APIKey:  apiKey,
		BaseURL: lastfmBaseURL,
		client:  &http.Client{Timeout: opts.Timeout},
		ua:      opts.UserAgent,
	}
}

type lastfmInfoResp struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Artist  struct {
		Name  string `json:"name"`
		Stats struct {
			Listeners string `json:"listeners"`
			Playcount string `json:"playcount"`
		} `json:"stats"`
	} `json:"artist"`
}

// ArtistInfo 调用 artist.getinfo
func (l *LastFMClient) ArtistInfo(ctx context.Context, artist string) (ArtistStats, error) {
	q := url.Values{}
	q.Set("method", "artist.getinfo")
	q.Set("artist", artist)
	q.Set("api_key", l.APIKey)
	q.Set("format", "json")

	var res lastfmInfoResp
	if err := getJSON(ctx, l.client, l.BaseURL+"?"+q.Encode(), l.ua, &res); err != nil {
		return ArtistStats{}, fmt.Errorf("lastfm %s: %w", artist, err)
	}
	if res.Error != 0 {
		return ArtistStats{}, fmt.Errorf("lastfm %s: %w: api error %d: %s", artist, ErrProvider, res.Error, res.Message)
	}

	return ArtistStats{
		Name:      res.Artist.Name,
		Listeners: parseFloat(res.Artist.Stats.Listeners),
		Playcount: parseFloat(res.Artist.Stats.Playcount),
	}, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
