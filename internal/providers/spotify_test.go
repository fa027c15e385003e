package providers

import (
	"testing"

	"github.com/zmb3/spotify/v2"

	"melodex/internal/core"
)

func TestFirstImageURL(t *testing.T) {
	tests := []struct {
		name   string
		images []spotify.Image
		want   string
	}{
		{
			name:   "first image wins",
			images: []spotify.Image{{URL: "https://i.scdn.example/big.jpg"}, {URL: "https://i.scdn.example/small.jpg"}},
			want:   "https://i.scdn.example/big.jpg",
		},
		{
			name:   "no images falls back",
			images: nil,
			want:   core.PlaceholderThumbnail,
		},
		{
			name:   "empty url falls back",
			images: []spotify.Image{{URL: ""}},
			want:   core.PlaceholderThumbnail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstImageURL(tt.images, core.PlaceholderThumbnail); got != tt.want {
				t.Errorf("firstImageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertSpotifyTrack(t *testing.T) {
	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			Name:       "Instant Crush",
			Artists:    []spotify.SimpleArtist{{Name: "Daft Punk"}},
			PreviewURL: "https://p.scdn.example/preview",
		},
		Album: spotify.SimpleAlbum{
			Images: []spotify.Image{{URL: "https://i.scdn.example/album.jpg"}},
		},
	}

	track := convertSpotifyTrack(full)
	if track.Title != "Instant Crush" || track.Artist != "Daft Punk" {
		t.Errorf("unexpected track: %+v", track)
	}
	if track.ThumbnailURL != "https://i.scdn.example/album.jpg" {
		t.Errorf("thumbnail = %q", track.ThumbnailURL)
	}
	if track.Playable() {
		t.Error("spotify track must carry no playable reference")
	}
	if track.PreviewURL != "https://p.scdn.example/preview" {
		t.Errorf("previewUrl = %q", track.PreviewURL)
	}
}
