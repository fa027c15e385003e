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
	// saavnPreferredImageQuality is the artwork size picked when available.
	saavnPreferredImageQuality = "500x500"
	// saavnPreferredAudioQuality is the stream quality picked when available.
	saavnPreferredAudioQuality = "320kbps"

	saavnRequestsPerSecond = 5
)

// JioSaavn adapts the unauthenticated JioSaavn REST wrapper.
type JioSaavn struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewJioSaavn creates a JioSaavn adapter against the given API base URL.
func NewJioSaavn(config *core.JioSaavnConfig, logger *zap.Logger) *JioSaavn {
	return &JioSaavn{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  newHTTPClient(0),
		limiter: rate.NewLimiter(saavnRequestsPerSecond, saavnRequestsPerSecond),
		logger:  logger,
	}
}

type saavnQualityEntry struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type saavnArtist struct {
	Name string `json:"name"`
}

type saavnSong struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Artists struct {
		Primary []saavnArtist `json:"primary"`
	} `json:"artists"`
	Image       []saavnQualityEntry `json:"image"`
	DownloadURL []saavnQualityEntry `json:"downloadUrl"`
}

type saavnSearchResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Results []saavnSong `json:"results"`
	} `json:"data"`
}

type saavnSongResponse struct {
	Success bool        `json:"success"`
	Data    []saavnSong `json:"data"`
}

type saavnAlbumResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Name    string `json:"name"`
		URL     string `json:"url"`
		Artists struct {
			Primary []saavnArtist `json:"primary"`
		} `json:"artists"`
		Image     []saavnQualityEntry `json:"image"`
		SongCount int                 `json:"songCount"`
		Songs     []saavnSong         `json:"songs"`
	} `json:"data"`
}

// Search queries JioSaavn song search and maps the results.
func (j *JioSaavn) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	reqURL := fmt.Sprintf("%s/search/songs?query=%s&limit=%d", j.baseURL, url.QueryEscape(query), limit)

	var resp saavnSearchResponse
	if err := getJSON(ctx, j.client, j.limiter, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("jiosaavn search failed: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("jiosaavn search returned unsuccessful payload")
	}

	tracks := make([]core.Track, 0, len(resp.Data.Results))
	for i := range resp.Data.Results {
		tracks = append(tracks, j.convertSong(&resp.Data.Results[i]))
	}
	return tracks, nil
}

// Song fetches a single song by ID. The lookup is authoritative: a missing
// song surfaces as ErrNotFound rather than a fallback.
func (j *JioSaavn) Song(ctx context.Context, id string) (*core.Track, error) {
	reqURL := fmt.Sprintf("%s/songs/%s", j.baseURL, url.PathEscape(id))

	var resp saavnSongResponse
	if err := getJSON(ctx, j.client, j.limiter, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("jiosaavn song fetch failed: %w", err)
	}
	if !resp.Success || len(resp.Data) == 0 {
		return nil, fmt.Errorf("jiosaavn song %s: %w", id, ErrNotFound)
	}

	track := j.convertSong(&resp.Data[0])
	return &track, nil
}

// AlbumPage fetches an album and returns the requested window of its songs
// together with the album metadata.
func (j *JioSaavn) AlbumPage(ctx context.Context, id string, page core.Page) ([]core.Track, *core.PlaylistMetadata, int, error) {
	reqURL := fmt.Sprintf("%s/albums?id=%s", j.baseURL, url.QueryEscape(id))

	var resp saavnAlbumResponse
	if err := getJSON(ctx, j.client, j.limiter, reqURL, &resp); err != nil {
		return nil, nil, 0, fmt.Errorf("jiosaavn album fetch failed: %w", err)
	}
	if !resp.Success {
		return nil, nil, 0, fmt.Errorf("jiosaavn album %s: %w", id, ErrNotFound)
	}

	total := resp.Data.SongCount
	if total == 0 {
		total = len(resp.Data.Songs)
	}

	creator := core.UnknownArtist
	if len(resp.Data.Artists.Primary) > 0 {
		creator = resp.Data.Artists.Primary[0].Name
	}
	meta := &core.PlaylistMetadata{
		Title:               resp.Data.Name,
		ThumbnailURL:        pickQuality(resp.Data.Image, saavnPreferredImageQuality),
		CreatorName:         creator,
		CreatorThumbnailURL: pickQuality(resp.Data.Image, saavnPreferredImageQuality),
		TotalCount:          total,
	}

	songs := resp.Data.Songs
	start := page.Offset
	if start > len(songs) {
		start = len(songs)
	}
	end := start + page.Limit
	if page.Limit <= 0 || end > len(songs) {
		end = len(songs)
	}

	tracks := make([]core.Track, 0, end-start)
	for i := start; i < end; i++ {
		tracks = append(tracks, j.convertSong(&songs[i]))
	}
	return tracks, meta, total, nil
}

func (j *JioSaavn) convertSong(song *saavnSong) core.Track {
	title := song.Name
	if title == "" {
		title = core.UnknownTitle
	}

	names := make([]string, 0, len(song.Artists.Primary))
	for _, a := range song.Artists.Primary {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	artist := strings.Join(names, ", ")
	if artist == "" {
		artist = core.UnknownArtist
	}

	playable := pickQuality(song.DownloadURL, saavnPreferredAudioQuality)
	if playable == "" {
		playable = song.URL
	}

	thumb := pickQuality(song.Image, saavnPreferredImageQuality)
	if thumb == "" {
		thumb = core.PlaceholderThumbnail
	}

	return core.Track{
		Title:        title,
		Artist:       artist,
		ThumbnailURL: thumb,
		PlayableRef:  playable,
		Source:       core.SourceJioSaavn,
	}
}

// pickQuality returns the entry with the preferred quality label, falling
// back to the last entry, which JioSaavn orders lowest to highest.
func pickQuality(entries []saavnQualityEntry, preferred string) string {
	for _, e := range entries {
		if e.Quality == preferred {
			return e.URL
		}
	}
	if len(entries) > 0 {
		return entries[len(entries)-1].URL
	}
	return ""
}
