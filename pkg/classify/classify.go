// Package classify interprets raw search input as either a free-text query
// or a platform URL referencing a track, playlist, album, or video.
package classify

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// Kind tags the classification variant.
type Kind int

const (
	// KindKeyword is a free-text search query.
	KindKeyword Kind = iota
	// KindYouTubePlaylist is a YouTube playlist URL.
	KindYouTubePlaylist
	// KindYouTubeVideo is a YouTube video URL.
	KindYouTubeVideo
	// KindSpotifyTrack is a Spotify track URL.
	KindSpotifyTrack
	// KindSpotifyPlaylist is a Spotify playlist URL.
	KindSpotifyPlaylist
	// KindJioSaavnSong is a JioSaavn song URL.
	KindJioSaavnSong
	// KindJioSaavnAlbum is a JioSaavn album URL.
	KindJioSaavnAlbum
)

// String returns a short label for the kind, used in logs and stage names.
func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindYouTubePlaylist:
		return "youtube_playlist"
	case KindYouTubeVideo:
		return "youtube_video"
	case KindSpotifyTrack:
		return "spotify_track"
	case KindSpotifyPlaylist:
		return "spotify_playlist"
	case KindJioSaavnSong:
		return "jiosaavn_song"
	case KindJioSaavnAlbum:
		return "jiosaavn_album"
	}
	return "unknown"
}

// Classification is the result of interpreting a raw input string.
// ID is set for URL variants, Query for the keyword variant, and Raw always
// carries the original input so playlist metadata can keep its origin link.
type Classification struct {
	Kind  Kind
	ID    string
	Query string
	Raw   string
}

// ErrUnclassifiable is returned for empty input and for URLs on a known
// platform that carry no extractable ID.
var ErrUnclassifiable = errors.New("invalid query or unsupported platform")

var (
	spotifyTrackRegex    = regexp.MustCompile(`track/([a-zA-Z0-9]+)`)
	spotifyPlaylistRegex = regexp.MustCompile(`playlist/([a-zA-Z0-9]+)`)
	saavnSongRegex       = regexp.MustCompile(`song/([^/?#]+)`)
	saavnAlbumRegex      = regexp.MustCompile(`album/([^/?#]+)`)
)

// matcher attempts to classify a raw input string. Matchers are tried in
// order; the first hit wins.
type matcher interface {
	Match(raw string) (Classification, bool)
}

// Classifier runs an ordered set of platform matchers over raw input.
type Classifier struct {
	matchers []matcher
}

// New creates a classifier with all supported platform matchers. The keyword
// matcher runs last so platform URLs are never treated as search text.
func New() *Classifier {
	return &Classifier{
		matchers: []matcher{
			youTubeMatcher{},
			spotifyMatcher{},
			jioSaavnMatcher{},
			keywordMatcher{},
		},
	}
}

// Classify interprets raw input. It fails when the input is blank or when a
// recognized platform URL carries no usable ID.
func (c *Classifier) Classify(raw string) (Classification, error) {
	for _, m := range c.matchers {
		if cls, ok := m.Match(raw); ok {
			return cls, nil
		}
	}
	return Classification{}, ErrUnclassifiable
}

type youTubeMatcher struct{}

func (youTubeMatcher) Match(raw string) (Classification, bool) {
	if !strings.Contains(raw, "youtube.com") && !strings.Contains(raw, "youtu.be") {
		return Classification{}, false
	}

	params := queryParams(raw)

	// Playlist detection takes precedence over a video ID in the same URL.
	if id := firstParam(params, "list", "playlist"); id != "" {
		return Classification{Kind: KindYouTubePlaylist, ID: id, Raw: raw}, true
	}

	if id := params.Get("v"); id != "" {
		return Classification{Kind: KindYouTubeVideo, ID: id, Raw: raw}, true
	}

	if strings.Contains(raw, "youtu.be") {
		if id := trailingSegment(raw); id != "" {
			return Classification{Kind: KindYouTubeVideo, ID: id, Raw: raw}, true
		}
	}

	return Classification{}, false
}

type spotifyMatcher struct{}

func (spotifyMatcher) Match(raw string) (Classification, bool) {
	if !strings.Contains(raw, "spotify.com") {
		return Classification{}, false
	}

	if m := spotifyPlaylistRegex.FindStringSubmatch(raw); m != nil {
		return Classification{Kind: KindSpotifyPlaylist, ID: m[1], Raw: raw}, true
	}
	if m := spotifyTrackRegex.FindStringSubmatch(raw); m != nil {
		return Classification{Kind: KindSpotifyTrack, ID: m[1], Raw: raw}, true
	}
	return Classification{}, false
}

type jioSaavnMatcher struct{}

func (jioSaavnMatcher) Match(raw string) (Classification, bool) {
	if !strings.Contains(raw, "jiosaavn.com") && !strings.Contains(raw, "saavn.com") {
		return Classification{}, false
	}

	if m := saavnAlbumRegex.FindStringSubmatch(raw); m != nil {
		return Classification{Kind: KindJioSaavnAlbum, ID: m[1], Raw: raw}, true
	}
	if m := saavnSongRegex.FindStringSubmatch(raw); m != nil {
		return Classification{Kind: KindJioSaavnSong, ID: m[1], Raw: raw}, true
	}
	return Classification{}, false
}

type keywordMatcher struct{}

func (keywordMatcher) Match(raw string) (Classification, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Classification{}, false
	}

	// Anything URL-shaped on an unsupported platform is not a keyword search.
	if strings.Contains(trimmed, "://") {
		return Classification{}, false
	}

	return Classification{Kind: KindKeyword, Query: trimmed, Raw: raw}, true
}

// queryParams extracts the query parameters of a URL-ish string. Parsing is
// tolerant: inputs pasted without a scheme still yield their params.
func queryParams(raw string) url.Values {
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		return u.Query()
	}

	idx := strings.Index(raw, "?")
	if idx < 0 || idx == len(raw)-1 {
		return url.Values{}
	}
	params, err := url.ParseQuery(raw[idx+1:])
	if err != nil {
		return url.Values{}
	}
	return params
}

func firstParam(params url.Values, keys ...string) string {
	for _, key := range keys {
		if v := params.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// trailingSegment returns the last path segment of a short link, without
// query parameters or fragments.
func trailingSegment(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		return segments[len(segments)-1]
	}

	trimmed := raw
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimRight(trimmed, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return ""
	}
	return trimmed[idx+1:]
}
