package core

import (
	"context"
	"time"
)

// Source identifies the upstream a track was resolved from.
type Source string

const (
	// SourceYouTube represents the YouTube Data API.
	SourceYouTube Source = "youtube"
	// SourceYouTubeMusic represents YouTube results surfaced through music search or playlists.
	SourceYouTubeMusic Source = "youtube_music"
	// SourceSpotify represents the Spotify Web API.
	SourceSpotify Source = "spotify"
	// SourceJioSaavn represents the JioSaavn REST API.
	SourceJioSaavn Source = "jiosaavn"
	// SourceUpload represents a user-uploaded audio file.
	SourceUpload Source = "upload"
	// SourceUnknown represents a placeholder track with no playable reference.
	SourceUnknown Source = "unknown"
)

const (
	// PlaceholderThumbnail is used when an upstream returns no artwork.
	PlaceholderThumbnail = "https://placehold.co/120"
	// UnknownTitle is the default when an upstream returns no title.
	UnknownTitle = "Unknown Title"
	// UnknownArtist is the default when an upstream returns no artist.
	UnknownArtist = "Unknown Artist"
)

// Track is the canonical, provider-agnostic representation of a playable song.
// Source is always set; an empty PlayableRef is legal and means "not playable".
type Track struct {
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	ThumbnailURL string `json:"thumbnailUrl"`
	PlayableRef  string `json:"playableRef"`
	Source       Source `json:"source"`
	PreviewURL   string `json:"previewUrl,omitempty"`
}

// Playable reports whether the track carries a usable playback reference.
func (t Track) Playable() bool {
	return t.PlayableRef != ""
}

// PlaceholderTrack builds the synthetic track returned when no provider
// produced an acceptable match for a title/artist lookup.
func PlaceholderTrack(title, artist string) Track {
	if title == "" {
		title = UnknownTitle
	}
	if artist == "" {
		artist = UnknownArtist
	}
	return Track{
		Title:        title,
		Artist:       artist,
		ThumbnailURL: PlaceholderThumbnail,
		Source:       SourceUnknown,
	}
}

// PlaylistMetadata describes a resolved playlist or album. It is constructed
// once per successful resolution and immutable afterwards; OriginLink keeps
// the URL the user supplied so later pages can be refetched from the true
// source instead of cached state.
type PlaylistMetadata struct {
	Title               string `json:"title"`
	ThumbnailURL        string `json:"thumbnailUrl"`
	CreatorName         string `json:"creatorName"`
	CreatorThumbnailURL string `json:"creatorThumbnailUrl"`
	OriginLink          string `json:"originLink,omitempty"`
	TotalCount          int    `json:"totalCount"`
}

// Page is the pagination window of a resolution request.
type Page struct {
	Offset int
	Limit  int
}

// Stage labels reported while a resolution is in flight. They are advisory
// progress markers for callers and never affect correctness.
const (
	StageCacheHit         = "cache_hit"
	StageFetchingPlaylist = "fetching_playlist"
	StageFetchingVideo    = "fetching_video"
	StageFetchingTrack    = "fetching_track"
	StageFetchingSong     = "fetching_song"
	StageFetchingAlbum    = "fetching_album"
	StageSearchingSaavn   = "searching_jiosaavn"
	StageSearchingProxy   = "searching_proxy"
	StageSearchingYouTube = "searching_youtube"
	StageSearchingSpotify = "searching_spotify"
	StageDone             = "done"
	StageError            = "error"
)

// ResolveResult is the engine's answer to a classified query.
type ResolveResult struct {
	Tracks   []Track
	Playlist *PlaylistMetadata
	Total    int
	Stage    string
}

// Like is a persisted user/track association.
type Like struct {
	UserID    string    `json:"userId"`
	Track     Track     `json:"track"`
	CreatedAt time.Time `json:"createdAt"`
}

// SavedPlaylist is a user-saved set of tracks, optionally pointing back at
// the platform URL it was imported from.
type SavedPlaylist struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Tracks     []Track   `json:"tracks"`
	OriginLink string    `json:"originLink,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Upload is the metadata row for a user-uploaded audio file. The file bytes
// live in object storage outside this service; FilePath is the storage key.
type Upload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	FilePath  string    `json:"filePath"`
	CreatedAt time.Time `json:"createdAt"`
}

// Download records a resolved download for a user.
type Download struct {
	UserID    string    `json:"userId"`
	TrackRef  string    `json:"trackRef"`
	Quality   string    `json:"quality"`
	CreatedAt time.Time `json:"createdAt"`
}

// Persistence is the opaque storage boundary the HTTP layer talks to.
// Resolution never blocks on any of these calls.
type Persistence interface {
	SaveLike(ctx context.Context, userID string, track Track) error
	ListLikes(ctx context.Context, userID string) ([]Like, error)
	SavePlaylist(ctx context.Context, userID, name string, tracks []Track, originLink string) (*SavedPlaylist, error)
	ListPlaylists(ctx context.Context, userID string) ([]SavedPlaylist, error)
	ListUploads(ctx context.Context, userID string) ([]Upload, error)
	SaveUpload(ctx context.Context, userID, title, artist, filePath string) (*Upload, error)
	RecordDownload(ctx context.Context, userID, trackRef, quality string) error
}

// AuthService resolves an inbound request to a user identity.
// An empty string means anonymous.
type AuthService interface {
	UserID(authorization string) string
}

// Recommender suggests tracks related to a set of seed tracks.
type Recommender interface {
	Recommend(ctx context.Context, seeds []Track, limit int) ([]Track, error)
}
