package providers

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"melodex/internal/core"
)

// Spotify adapts the Spotify Web API through client-credentials auth. The
// oauth2 token source caches the access token across requests and refreshes
// it once under concurrency, so no per-request token fetch happens.
type Spotify struct {
	client *spotify.Client
	logger *zap.Logger
}

// NewSpotify creates a Spotify adapter. The context is used by the token
// source for refresh requests over the adapter's lifetime.
func NewSpotify(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger) *Spotify {
	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	return &Spotify{
		client: spotify.New(creds.Client(ctx)),
		logger: logger,
	}
}

// Search runs a track search and maps results into the canonical schema.
// Spotify tracks carry no directly playable reference: full playback needs a
// separate end-user authorization flow, so only the 30-second preview URL is
// exposed and callers resolve playback against other providers.
func (s *Spotify) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("spotify search failed: %w", err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, convertSpotifyTrack(&results.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// Track fetches a single track by ID. A direct ID lookup is authoritative;
// failures propagate to the caller.
func (s *Spotify) Track(ctx context.Context, id string) (*core.Track, error) {
	full, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("spotify track fetch failed: %w", err)
	}

	track := convertSpotifyTrack(full)
	return &track, nil
}

// PlaylistPage fetches a window of playlist tracks plus playlist metadata.
// Spotify supports offset pagination natively.
func (s *Spotify) PlaylistPage(ctx context.Context, id string, page core.Page) ([]core.Track, *core.PlaylistMetadata, int, error) {
	playlist, err := s.client.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("spotify playlist fetch failed: %w", err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 20
	}

	items, err := s.client.GetPlaylistItems(ctx, spotify.ID(id),
		spotify.Limit(limit), spotify.Offset(page.Offset))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("spotify playlist items fetch failed: %w", err)
	}

	meta := &core.PlaylistMetadata{
		Title:               playlist.Name,
		ThumbnailURL:        firstImageURL(playlist.Images, core.PlaceholderThumbnail),
		CreatorName:         playlist.Owner.DisplayName,
		CreatorThumbnailURL: firstImageURL(playlist.Owner.Images, placeholderCreatorThumbnail),
		TotalCount:          items.Total,
	}

	tracks := make([]core.Track, 0, len(items.Items))
	for i := range items.Items {
		full := items.Items[i].Track.Track
		if full == nil {
			continue
		}
		tracks = append(tracks, convertSpotifyTrack(full))
	}
	return tracks, meta, items.Total, nil
}

func convertSpotifyTrack(full *spotify.FullTrack) core.Track {
	artist := core.UnknownArtist
	if len(full.Artists) > 0 {
		artist = full.Artists[0].Name
	}

	return core.Track{
		Title:        defaultString(full.Name, core.UnknownTitle),
		Artist:       artist,
		ThumbnailURL: firstImageURL(full.Album.Images, core.PlaceholderThumbnail),
		Source:       core.SourceSpotify,
		PreviewURL:   full.PreviewURL,
	}
}

// firstImageURL picks the first (largest) image, which is how every Spotify
// image list is ordered.
func firstImageURL(images []spotify.Image, fallback string) string {
	if len(images) == 0 || images[0].URL == "" {
		return fallback
	}
	return images[0].URL
}
