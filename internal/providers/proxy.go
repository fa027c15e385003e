package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"melodex/internal/core"
)

const defaultProxyTimeout = 5 * time.Second

// Proxy adapts the best-effort helper service that scrapes YouTube search
// results and rotates Data API keys. It runs under a short hard timeout so a
// stalled proxy cannot hold up the fallback chain; callers treat any failure
// as "no result".
type Proxy struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewProxy creates a proxy adapter. When config.Timeout is zero, the default
// five-second budget applies.
func NewProxy(config *core.ProxyConfig, logger *zap.Logger) *Proxy {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultProxyTimeout
	}
	return &Proxy{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

// Configured reports whether a proxy endpoint is set. An unconfigured proxy
// contributes nothing to the fallback chain.
func (p *Proxy) Configured() bool {
	return p.baseURL != ""
}

type proxySearchResponse struct {
	VideoID string `json:"videoId"`
	Items   []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string       `json:"title"`
			ChannelTitle string       `json:"channelTitle"`
			VideoID      string       `json:"videoId"`
			Thumbnails   ytThumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search queries the proxy. The response shape differs between the scraping
// path (bare video IDs) and the API-key path (full search snippets), so the
// mapping is defensive about missing fields.
func (p *Proxy) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("proxy not configured")
	}

	reqURL := fmt.Sprintf("%s/youtube?query=%s&limit=%d", p.baseURL, url.QueryEscape(query), limit)

	var resp proxySearchResponse
	if err := getJSON(ctx, p.client, nil, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("proxy search failed: %w", err)
	}

	tracks := make([]core.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		videoID := item.ID.VideoID
		if videoID == "" {
			videoID = item.Snippet.VideoID
		}
		if videoID == "" {
			videoID = resp.VideoID
		}
		tracks = append(tracks, core.Track{
			Title:        defaultString(item.Snippet.Title, core.UnknownTitle),
			Artist:       defaultString(item.Snippet.ChannelTitle, core.UnknownArtist),
			ThumbnailURL: defaultString(item.Snippet.Thumbnails.Default.URL, core.PlaceholderThumbnail),
			PlayableRef:  videoID,
			Source:       core.SourceYouTubeMusic,
		})
	}
	return tracks, nil
}
