package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"melodex/internal/core"
)

const saavnSearchPayload = `{
  "success": true,
  "data": {
    "results": [
      {
        "name": "One More Time",
        "url": "https://www.jiosaavn.com/song/one-more-time/xyz",
        "artists": {"primary": [{"name": "Daft Punk"}]},
        "image": [
          {"quality": "50x50", "url": "https://img.example/50.jpg"},
          {"quality": "500x500", "url": "https://img.example/500.jpg"}
        ],
        "downloadUrl": [
          {"quality": "96kbps", "url": "https://cdn.example/96.mp4"},
          {"quality": "320kbps", "url": "https://cdn.example/320.mp4"}
        ]
      }
    ]
  }
}`

func newSaavn(t *testing.T, handler http.HandlerFunc) (*JioSaavn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewJioSaavn(&core.JioSaavnConfig{BaseURL: srv.URL}, zap.NewNop()), srv
}

func TestJioSaavn_Search(t *testing.T) {
	adapter, _ := newSaavn(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/songs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "daft punk" {
			t.Errorf("query = %q, want %q", got, "daft punk")
		}
		_, _ = w.Write([]byte(saavnSearchPayload))
	})

	tracks, err := adapter.Search(context.Background(), "daft punk", 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(tracks))
	}

	track := tracks[0]
	if track.Title != "One More Time" {
		t.Errorf("title = %q", track.Title)
	}
	if track.Artist != "Daft Punk" {
		t.Errorf("artist = %q", track.Artist)
	}
	if track.ThumbnailURL != "https://img.example/500.jpg" {
		t.Errorf("thumbnail = %q, want 500x500 quality", track.ThumbnailURL)
	}
	if track.PlayableRef != "https://cdn.example/320.mp4" {
		t.Errorf("playableRef = %q, want 320kbps url", track.PlayableRef)
	}
	if track.Source != core.SourceJioSaavn {
		t.Errorf("source = %q", track.Source)
	}
}

func TestJioSaavn_SearchQualityFallback(t *testing.T) {
	adapter, _ := newSaavn(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
  "success": true,
  "data": {"results": [{
    "name": "Song",
    "artists": {"primary": [{"name": "Artist"}]},
    "image": [
      {"quality": "50x50", "url": "https://img.example/50.jpg"},
      {"quality": "150x150", "url": "https://img.example/150.jpg"}
    ],
    "downloadUrl": [
      {"quality": "96kbps", "url": "https://cdn.example/96.mp4"},
      {"quality": "160kbps", "url": "https://cdn.example/160.mp4"}
    ]
  }]}
}`))
	})

	tracks, err := adapter.Search(context.Background(), "song", 1)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if tracks[0].ThumbnailURL != "https://img.example/150.jpg" {
		t.Errorf("thumbnail = %q, want last (highest) quality", tracks[0].ThumbnailURL)
	}
	if tracks[0].PlayableRef != "https://cdn.example/160.mp4" {
		t.Errorf("playableRef = %q, want last (highest) quality", tracks[0].PlayableRef)
	}
}

func TestJioSaavn_SearchUnsuccessfulPayload(t *testing.T) {
	adapter, _ := newSaavn(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	if _, err := adapter.Search(context.Background(), "q", 1); err == nil {
		t.Fatal("expected error for unsuccessful payload")
	}
}

func TestJioSaavn_SearchHTTPError(t *testing.T) {
	adapter, _ := newSaavn(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := adapter.Search(context.Background(), "q", 1); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestJioSaavn_SongNotFound(t *testing.T) {
	adapter, _ := newSaavn(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "data": []}`))
	})

	_, err := adapter.Song(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestJioSaavn_AlbumPageWindow(t *testing.T) {
	adapter, _ := newSaavn(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/albums" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
  "success": true,
  "data": {
    "name": "Discovery",
    "artists": {"primary": [{"name": "Daft Punk"}]},
    "image": [{"quality": "500x500", "url": "https://img.example/album.jpg"}],
    "songCount": 4,
    "songs": [
      {"name": "s1", "artists": {"primary": [{"name": "a"}]}, "downloadUrl": [{"quality": "320kbps", "url": "u1"}]},
      {"name": "s2", "artists": {"primary": [{"name": "a"}]}, "downloadUrl": [{"quality": "320kbps", "url": "u2"}]},
      {"name": "s3", "artists": {"primary": [{"name": "a"}]}, "downloadUrl": [{"quality": "320kbps", "url": "u3"}]},
      {"name": "s4", "artists": {"primary": [{"name": "a"}]}, "downloadUrl": [{"quality": "320kbps", "url": "u4"}]}
    ]
  }
}`))
	})

	tracks, meta, total, err := adapter.AlbumPage(context.Background(), "25398", core.Page{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("AlbumPage() error: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if meta.Title != "Discovery" || meta.CreatorName != "Daft Punk" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if len(tracks) != 2 || tracks[0].Title != "s2" || tracks[1].Title != "s3" {
		t.Errorf("unexpected page window: %+v", tracks)
	}
}
