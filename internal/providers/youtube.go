package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"melodex/internal/core"
)

const (
	// youtubeMusicCategory restricts keyword search to the Music category.
	youtubeMusicCategory = "10"
	// youtubePageSize is the playlistItems page size used while walking
	// page tokens to reach an offset.
	youtubePageSize = 50
	// placeholderCreatorThumbnail is used when the channel lookup fails.
	placeholderCreatorThumbnail = "https://placehold.co/32"

	youtubeRequestsPerSecond = 10
)

// YouTube adapts the YouTube Data API v3.
type YouTube struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewYouTube creates a YouTube Data API adapter.
func NewYouTube(config *core.YouTubeConfig, logger *zap.Logger) *YouTube {
	return &YouTube{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		client:  newHTTPClient(0),
		limiter: rate.NewLimiter(youtubeRequestsPerSecond, youtubeRequestsPerSecond),
		logger:  logger,
	}
}

type ytThumbnail struct {
	URL string `json:"url"`
}

type ytThumbnails struct {
	Default ytThumbnail `json:"default"`
	Medium  ytThumbnail `json:"medium"`
	High    ytThumbnail `json:"high"`
}

type ytSnippet struct {
	Title                 string       `json:"title"`
	ChannelID             string       `json:"channelId"`
	ChannelTitle          string       `json:"channelTitle"`
	VideoOwnerChannelName string       `json:"videoOwnerChannelTitle"`
	Thumbnails            ytThumbnails `json:"thumbnails"`
	ResourceID            struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytVideoResponse struct {
	Items []struct {
		ID      string    `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytPlaylistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	PageInfo      struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
	Items []struct {
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytPlaylistResponse struct {
	Items []struct {
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytChannelResponse struct {
	Items []struct {
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

// Search runs a keyword search restricted to music videos.
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	reqURL := fmt.Sprintf(
		"%s/search?part=snippet&type=video&videoCategoryId=%s&maxResults=%d&q=%s&key=%s",
		y.baseURL, youtubeMusicCategory, limit, url.QueryEscape(query), url.QueryEscape(y.apiKey),
	)

	var resp ytSearchResponse
	if err := getJSON(ctx, y.client, y.limiter, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	tracks := make([]core.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		tracks = append(tracks, core.Track{
			Title:        defaultString(item.Snippet.Title, core.UnknownTitle),
			Artist:       defaultString(item.Snippet.ChannelTitle, core.UnknownArtist),
			ThumbnailURL: defaultString(item.Snippet.Thumbnails.Default.URL, core.PlaceholderThumbnail),
			PlayableRef:  item.ID.VideoID,
			Source:       core.SourceYouTube,
		})
	}
	return tracks, nil
}

// Video fetches a single video by ID. Missing videos surface as ErrNotFound;
// a direct ID lookup is authoritative and has no fallback chain.
func (y *YouTube) Video(ctx context.Context, id string) (*core.Track, error) {
	reqURL := fmt.Sprintf("%s/videos?part=snippet&id=%s&key=%s", y.baseURL, url.QueryEscape(id), url.QueryEscape(y.apiKey))

	var resp ytVideoResponse
	if err := getJSON(ctx, y.client, y.limiter, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("youtube video fetch failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube video %s: %w", id, ErrNotFound)
	}

	item := resp.Items[0]
	return &core.Track{
		Title:        defaultString(item.Snippet.Title, core.UnknownTitle),
		Artist:       defaultString(item.Snippet.ChannelTitle, core.UnknownArtist),
		ThumbnailURL: defaultString(item.Snippet.Thumbnails.Default.URL, core.PlaceholderThumbnail),
		PlayableRef:  item.ID,
		Source:       core.SourceYouTube,
	}, nil
}

// PlaylistPage fetches a window of playlist items plus the playlist metadata.
// The Data API paginates with page tokens, so the adapter walks pages until
// the requested offset is reached.
func (y *YouTube) PlaylistPage(ctx context.Context, id string, page core.Page) ([]core.Track, *core.PlaylistMetadata, int, error) {
	meta, err := y.playlistMetadata(ctx, id)
	if err != nil {
		return nil, nil, 0, err
	}

	limit := page.Limit
	if limit <= 0 {
		limit = youtubePageSize
	}

	var (
		tracks    []core.Track
		total     int
		skipped   int
		pageToken string
	)

	for len(tracks) < limit {
		reqURL := fmt.Sprintf(
			"%s/playlistItems?part=snippet&maxResults=%d&playlistId=%s&key=%s",
			y.baseURL, youtubePageSize, url.QueryEscape(id), url.QueryEscape(y.apiKey),
		)
		if pageToken != "" {
			reqURL += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var resp ytPlaylistItemsResponse
		if err := getJSON(ctx, y.client, y.limiter, reqURL, &resp); err != nil {
			return nil, nil, 0, fmt.Errorf("youtube playlist items fetch failed: %w", err)
		}

		total = resp.PageInfo.TotalResults

		for _, item := range resp.Items {
			if skipped < page.Offset {
				skipped++
				continue
			}
			if len(tracks) >= limit {
				break
			}

			artist := item.Snippet.VideoOwnerChannelName
			if artist == "" {
				artist = item.Snippet.ChannelTitle
			}
			tracks = append(tracks, core.Track{
				Title:        item.Snippet.Title,
				Artist:       artist,
				ThumbnailURL: item.Snippet.Thumbnails.Default.URL,
				PlayableRef:  item.Snippet.ResourceID.VideoID,
				Source:       core.SourceYouTubeMusic,
			})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	meta.TotalCount = total
	return tracks, meta, total, nil
}

// playlistMetadata fetches the playlist snippet and resolves the owning
// channel for a creator thumbnail.
func (y *YouTube) playlistMetadata(ctx context.Context, id string) (*core.PlaylistMetadata, error) {
	reqURL := fmt.Sprintf("%s/playlists?part=snippet&id=%s&key=%s", y.baseURL, url.QueryEscape(id), url.QueryEscape(y.apiKey))

	var resp ytPlaylistResponse
	if err := getJSON(ctx, y.client, y.limiter, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("youtube playlist fetch failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube playlist %s: %w", id, ErrNotFound)
	}

	snippet := resp.Items[0].Snippet

	creatorThumb := placeholderCreatorThumbnail
	if snippet.ChannelID != "" {
		if thumb, err := y.channelThumbnail(ctx, snippet.ChannelID); err != nil {
			// Creator thumbnail is cosmetic; keep the placeholder.
			y.logger.Warn("channel thumbnail lookup failed",
				zap.String("channel_id", snippet.ChannelID),
				zap.Error(err))
		} else if thumb != "" {
			creatorThumb = thumb
		}
	}

	return &core.PlaylistMetadata{
		Title:               snippet.Title,
		ThumbnailURL:        defaultString(snippet.Thumbnails.Default.URL, core.PlaceholderThumbnail),
		CreatorName:         snippet.ChannelTitle,
		CreatorThumbnailURL: creatorThumb,
	}, nil
}

func (y *YouTube) channelThumbnail(ctx context.Context, channelID string) (string, error) {
	reqURL := fmt.Sprintf("%s/channels?part=snippet&id=%s&key=%s", y.baseURL, url.QueryEscape(channelID), url.QueryEscape(y.apiKey))

	var resp ytChannelResponse
	if err := getJSON(ctx, y.client, y.limiter, reqURL, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return resp.Items[0].Snippet.Thumbnails.Default.URL, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
