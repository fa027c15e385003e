package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"melodex/internal/cache"
	"melodex/internal/core"
	"melodex/pkg/classify"
)

type fakeSaavn struct {
	searchTracks []core.Track
	searchErr    error
	song         *core.Track
	songErr      error
	albumTracks  []core.Track
	albumMeta    *core.PlaylistMetadata
	albumTotal   int
}

func (f *fakeSaavn) Search(_ context.Context, _ string, limit int) ([]core.Track, error) {
	return capTracks(f.searchTracks, limit), f.searchErr
}

func (f *fakeSaavn) Song(_ context.Context, _ string) (*core.Track, error) {
	return f.song, f.songErr
}

func (f *fakeSaavn) AlbumPage(_ context.Context, _ string, _ core.Page) ([]core.Track, *core.PlaylistMetadata, int, error) {
	return f.albumTracks, f.albumMeta, f.albumTotal, nil
}

type fakeYouTube struct {
	searchTracks   []core.Track
	searchErr      error
	searchCalls    int
	video          *core.Track
	videoErr       error
	playlistTracks []core.Track
	playlistMeta   *core.PlaylistMetadata
	playlistTotal  int
	playlistErr    error
}

func (f *fakeYouTube) Search(_ context.Context, _ string, limit int) ([]core.Track, error) {
	f.searchCalls++
	return capTracks(f.searchTracks, limit), f.searchErr
}

func (f *fakeYouTube) Video(_ context.Context, _ string) (*core.Track, error) {
	return f.video, f.videoErr
}

func (f *fakeYouTube) PlaylistPage(_ context.Context, _ string, _ core.Page) ([]core.Track, *core.PlaylistMetadata, int, error) {
	return f.playlistTracks, f.playlistMeta, f.playlistTotal, f.playlistErr
}

type fakeSpotify struct {
	searchTracks []core.Track
	searchErr    error
	track        *core.Track
	trackErr     error
}

func (f *fakeSpotify) Search(_ context.Context, _ string, limit int) ([]core.Track, error) {
	return capTracks(f.searchTracks, limit), f.searchErr
}

func (f *fakeSpotify) Track(_ context.Context, _ string) (*core.Track, error) {
	return f.track, f.trackErr
}

func (f *fakeSpotify) PlaylistPage(_ context.Context, _ string, _ core.Page) ([]core.Track, *core.PlaylistMetadata, int, error) {
	return nil, nil, 0, errors.New("not implemented")
}

type fakeProxy struct {
	configured   bool
	searchTracks []core.Track
	searchErr    error
	searchCalls  int
}

func (f *fakeProxy) Search(_ context.Context, _ string, limit int) ([]core.Track, error) {
	f.searchCalls++
	return capTracks(f.searchTracks, limit), f.searchErr
}

func (f *fakeProxy) Configured() bool { return f.configured }

func capTracks(tracks []core.Track, limit int) []core.Track {
	if limit < len(tracks) {
		return tracks[:limit]
	}
	return tracks
}

func makeTracks(source core.Source, names ...string) []core.Track {
	tracks := make([]core.Track, 0, len(names))
	for _, name := range names {
		tracks = append(tracks, core.Track{
			Title:        name,
			Artist:       "artist " + name,
			ThumbnailURL: "https://img.example/" + name,
			PlayableRef:  "ref-" + name,
			Source:       source,
		})
	}
	return tracks
}

type engineFixture struct {
	engine  *Engine
	saavn   *fakeSaavn
	youtube *fakeYouTube
	spotify *fakeSpotify
	proxy   *fakeProxy
	queries *cache.QueryCache
	tracks  *cache.TrackCache
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	trackCache, err := cache.NewTrackCache(15)
	if err != nil {
		t.Fatalf("NewTrackCache() error: %v", err)
	}

	f := &engineFixture{
		saavn:   &fakeSaavn{},
		youtube: &fakeYouTube{},
		spotify: &fakeSpotify{},
		proxy:   &fakeProxy{},
		queries: cache.NewQueryCache(time.Hour),
		tracks:  trackCache,
	}
	f.engine = New(
		classify.New(),
		f.saavn, f.youtube, f.spotify, f.proxy,
		f.queries, f.tracks,
		core.SearchConfig{Quota: 5, SpotifyQuota: 5, ProviderTimeout: time.Second},
		zap.NewNop(),
	)
	return f
}

func TestResolve_UnclassifiableInput(t *testing.T) {
	f := newFixture(t)

	for _, input := range []string{"", "   ", "https://soundcloud.com/some/track"} {
		if _, err := f.engine.Resolve(context.Background(), input, core.Page{Limit: 20}); !errors.Is(err, classify.ErrUnclassifiable) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnclassifiable", input, err)
		}
	}
}

func TestResolve_KeywordQuotaFilling(t *testing.T) {
	tests := []struct {
		name        string
		saavn       []core.Track
		proxy       []core.Track
		proxyOn     bool
		youtube     []core.Track
		spotify     []core.Track
		wantSources []core.Source
		wantYTCalls int
	}{
		{
			name:        "saavn fills quota alone, youtube api untouched",
			saavn:       makeTracks(core.SourceJioSaavn, "s1", "s2", "s3", "s4", "s5"),
			proxyOn:     true,
			proxy:       makeTracks(core.SourceYouTubeMusic, "p1"),
			youtube:     makeTracks(core.SourceYouTube, "y1"),
			wantSources: []core.Source{core.SourceJioSaavn, core.SourceJioSaavn, core.SourceJioSaavn, core.SourceJioSaavn, core.SourceJioSaavn},
			wantYTCalls: 0,
		},
		{
			name:        "proxy tops up saavn underfill",
			saavn:       makeTracks(core.SourceJioSaavn, "s1", "s2", "s3"),
			proxyOn:     true,
			proxy:       makeTracks(core.SourceYouTubeMusic, "p1", "p2", "p3"),
			wantSources: []core.Source{core.SourceJioSaavn, core.SourceJioSaavn, core.SourceJioSaavn, core.SourceYouTubeMusic, core.SourceYouTubeMusic},
			wantYTCalls: 0,
		},
		{
			name:        "youtube api fills what proxy could not",
			saavn:       makeTracks(core.SourceJioSaavn, "s1", "s2"),
			proxyOn:     true,
			proxy:       makeTracks(core.SourceYouTubeMusic, "p1"),
			youtube:     makeTracks(core.SourceYouTube, "y1", "y2"),
			wantSources: []core.Source{core.SourceJioSaavn, core.SourceJioSaavn, core.SourceYouTubeMusic, core.SourceYouTubeMusic, core.SourceYouTubeMusic},
			wantYTCalls: 1,
		},
		{
			name:        "unconfigured proxy is skipped",
			saavn:       makeTracks(core.SourceJioSaavn, "s1"),
			youtube:     makeTracks(core.SourceYouTube, "y1", "y2"),
			wantSources: []core.Source{core.SourceJioSaavn, core.SourceYouTubeMusic, core.SourceYouTubeMusic},
			wantYTCalls: 1,
		},
		{
			name:        "spotify results always append last",
			saavn:       makeTracks(core.SourceJioSaavn, "s1"),
			spotify:     makeTracks(core.SourceSpotify, "sp1", "sp2"),
			wantSources: []core.Source{core.SourceJioSaavn, core.SourceSpotify, core.SourceSpotify},
			wantYTCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.saavn.searchTracks = tt.saavn
			f.proxy.configured = tt.proxyOn
			f.proxy.searchTracks = tt.proxy
			f.youtube.searchTracks = tt.youtube
			f.spotify.searchTracks = tt.spotify

			result, err := f.engine.Resolve(context.Background(), "some song", core.Page{Limit: 20})
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}

			if len(result.Tracks) != len(tt.wantSources) {
				t.Fatalf("got %d tracks, want %d: %+v", len(result.Tracks), len(tt.wantSources), result.Tracks)
			}
			for i, want := range tt.wantSources {
				if result.Tracks[i].Source != want {
					t.Errorf("track[%d].Source = %q, want %q", i, result.Tracks[i].Source, want)
				}
			}
			if f.youtube.searchCalls != tt.wantYTCalls {
				t.Errorf("youtube search calls = %d, want %d", f.youtube.searchCalls, tt.wantYTCalls)
			}
			if result.Total != len(tt.wantSources) {
				t.Errorf("total = %d, want %d", result.Total, len(tt.wantSources))
			}
		})
	}
}

func TestResolve_KeywordRelabelsYouTubeAPIResults(t *testing.T) {
	f := newFixture(t)
	f.youtube.searchTracks = makeTracks(core.SourceYouTube, "y1")

	result, err := f.engine.Resolve(context.Background(), "query", core.Page{Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Source != core.SourceYouTubeMusic {
		t.Errorf("unexpected result: %+v", result.Tracks)
	}
}

func TestResolve_KeywordAllProvidersFailing(t *testing.T) {
	f := newFixture(t)
	f.saavn.searchErr = errors.New("saavn down")
	f.proxy.configured = true
	f.proxy.searchErr = errors.New("proxy down")
	f.youtube.searchErr = errors.New("youtube down")
	f.spotify.searchErr = errors.New("spotify down")

	result, err := f.engine.Resolve(context.Background(), "anything", core.Page{Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want graceful empty result", err)
	}
	if len(result.Tracks) != 0 || result.Total != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestResolve_SpotifySingleTrack(t *testing.T) {
	f := newFixture(t)
	f.spotify.track = &core.Track{
		Title:      "Instant Crush",
		Artist:     "Daft Punk",
		Source:     core.SourceSpotify,
		PreviewURL: "https://p.scdn.example/preview",
	}

	result, err := f.engine.Resolve(context.Background(),
		"https://open.spotify.com/track/2cGxRwrMyEAp8dEbuZaVv6", core.Page{Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Title != "Instant Crush" {
		t.Fatalf("unexpected tracks: %+v", result.Tracks)
	}
	if result.Tracks[0].Playable() {
		t.Error("spotify track should carry no playable reference")
	}
	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}
}

func TestResolve_SingleItemErrorPropagates(t *testing.T) {
	f := newFixture(t)
	upstreamErr := errors.New("quota exceeded")
	f.youtube.videoErr = upstreamErr

	_, err := f.engine.Resolve(context.Background(),
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ", core.Page{Limit: 20})
	if !errors.Is(err, upstreamErr) {
		t.Fatalf("error = %v, want upstream error", err)
	}
}

func TestResolve_PlaylistAttachesOriginLink(t *testing.T) {
	f := newFixture(t)
	raw := "https://www.youtube.com/playlist?list=PLtest"
	f.youtube.playlistTracks = makeTracks(core.SourceYouTubeMusic, "t1", "t2")
	f.youtube.playlistMeta = &core.PlaylistMetadata{Title: "Mix", CreatorName: "C", ThumbnailURL: "u", CreatorThumbnailURL: "cu"}
	f.youtube.playlistTotal = 40

	result, err := f.engine.Resolve(context.Background(), raw, core.Page{Offset: 0, Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if result.Playlist == nil || result.Playlist.OriginLink != raw {
		t.Fatalf("playlist origin link not attached: %+v", result.Playlist)
	}
	if result.Total != 40 {
		t.Errorf("total = %d, want upstream total", result.Total)
	}
}

func TestResolve_PlaylistFiltersUndisplayableEntries(t *testing.T) {
	f := newFixture(t)
	f.youtube.playlistTracks = []core.Track{
		{Title: "ok", Artist: "a", ThumbnailURL: "u", PlayableRef: "r", Source: core.SourceYouTubeMusic},
		{Title: "", Artist: "a", ThumbnailURL: "u", PlayableRef: "r", Source: core.SourceYouTubeMusic},
		{Title: "no-thumb", Artist: "a", ThumbnailURL: "", PlayableRef: "r", Source: core.SourceYouTubeMusic},
	}
	f.youtube.playlistMeta = &core.PlaylistMetadata{Title: "P"}
	f.youtube.playlistTotal = 3

	result, err := f.engine.Resolve(context.Background(),
		"https://www.youtube.com/playlist?list=PLtest", core.Page{Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Title != "ok" {
		t.Errorf("unexpected tracks: %+v", result.Tracks)
	}
}

func TestResolve_QueryCacheHit(t *testing.T) {
	f := newFixture(t)
	f.saavn.searchTracks = makeTracks(core.SourceJioSaavn, "s1")

	first, err := f.engine.Resolve(context.Background(), "cached query", core.Page{Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if first.Stage == core.StageCacheHit {
		t.Fatal("first resolution must not be a cache hit")
	}

	// Upstream changes must not be visible while the entry is fresh.
	f.saavn.searchTracks = nil

	second, err := f.engine.Resolve(context.Background(), "cached query", core.Page{Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if second.Stage != core.StageCacheHit {
		t.Errorf("stage = %q, want %q", second.Stage, core.StageCacheHit)
	}
	if len(second.Tracks) != 1 || second.Tracks[0].Title != "s1" {
		t.Errorf("unexpected cached tracks: %+v", second.Tracks)
	}

	// A different pagination window is a distinct cache entry.
	third, err := f.engine.Resolve(context.Background(), "cached query", core.Page{Offset: 20, Limit: 20})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if third.Stage == core.StageCacheHit {
		t.Error("different page must not share a cache entry")
	}
}

func TestLookupTrack_GatedFallbackChain(t *testing.T) {
	good := core.Track{Title: "Yesterday (Remastered 2009)", Artist: "The Beatles", PlayableRef: "ref", ThumbnailURL: "u", Source: core.SourceJioSaavn}
	unrelated := core.Track{Title: "Something Else", Artist: "Nobody", PlayableRef: "ref2", ThumbnailURL: "u", Source: core.SourceJioSaavn}

	tests := []struct {
		name       string
		saavn      []core.Track
		proxyOn    bool
		proxy      []core.Track
		youtube    []core.Track
		wantSource core.Source
		wantRef    string
	}{
		{
			name:       "saavn match wins",
			saavn:      []core.Track{good},
			wantSource: core.SourceJioSaavn,
			wantRef:    "ref",
		},
		{
			name:       "rejected saavn match falls through to proxy",
			saavn:      []core.Track{unrelated},
			proxyOn:    true,
			proxy:      []core.Track{{Title: "Yesterday", Artist: "The Beatles", PlayableRef: "yt1", ThumbnailURL: "u", Source: core.SourceYouTubeMusic}},
			wantSource: core.SourceYouTubeMusic,
			wantRef:    "yt1",
		},
		{
			name:       "youtube api result accepted without matching",
			saavn:      []core.Track{unrelated},
			youtube:    []core.Track{{Title: "Totally Different Video", Artist: "Random Channel", PlayableRef: "yt2", ThumbnailURL: "u", Source: core.SourceYouTube}},
			wantSource: core.SourceYouTube,
			wantRef:    "yt2",
		},
		{
			name:       "all empty yields placeholder",
			wantSource: core.SourceUnknown,
			wantRef:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.saavn.searchTracks = tt.saavn
			f.proxy.configured = tt.proxyOn
			f.proxy.searchTracks = tt.proxy
			f.youtube.searchTracks = tt.youtube

			track := f.engine.LookupTrack(context.Background(), "Yesterday", "The Beatles")
			if track.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", track.Source, tt.wantSource)
			}
			if track.PlayableRef != tt.wantRef {
				t.Errorf("playableRef = %q, want %q", track.PlayableRef, tt.wantRef)
			}
		})
	}
}

func TestLookupTrack_PlaceholderKeepsRequestedNames(t *testing.T) {
	f := newFixture(t)

	track := f.engine.LookupTrack(context.Background(), "Ghost Song", "Ghost Artist")
	if track.Title != "Ghost Song" || track.Artist != "Ghost Artist" {
		t.Errorf("placeholder lost names: %+v", track)
	}
	if track.Playable() {
		t.Error("placeholder must not be playable")
	}
	if track.ThumbnailURL != core.PlaceholderThumbnail {
		t.Errorf("thumbnail = %q", track.ThumbnailURL)
	}
}

func TestLookupTrack_EmptyInputsDefaultToUnknown(t *testing.T) {
	f := newFixture(t)

	track := f.engine.LookupTrack(context.Background(), "", "")
	if track.Title != core.UnknownTitle || track.Artist != core.UnknownArtist {
		t.Errorf("defaults not applied: %+v", track)
	}
}

func TestLookupTrack_UsesTrackCache(t *testing.T) {
	f := newFixture(t)
	f.saavn.searchTracks = []core.Track{
		{Title: "Yesterday", Artist: "The Beatles", PlayableRef: "ref", ThumbnailURL: "u", Source: core.SourceJioSaavn},
	}

	first := f.engine.LookupTrack(context.Background(), "Yesterday", "The Beatles")
	if first.PlayableRef != "ref" {
		t.Fatalf("unexpected first lookup: %+v", first)
	}

	// Second lookup hits the cache and never reaches the providers.
	f.saavn.searchErr = errors.New("saavn down")
	f.youtube.searchErr = errors.New("youtube down")

	second := f.engine.LookupTrack(context.Background(), "yesterday", "the beatles")
	if second.PlayableRef != "ref" {
		t.Errorf("cache miss for normalized-equal key: %+v", second)
	}
}

func TestResolve_StageObserver(t *testing.T) {
	f := newFixture(t)
	f.saavn.searchTracks = makeTracks(core.SourceJioSaavn, "s1")

	var stages []string
	f.engine.OnStage(func(stage string) { stages = append(stages, stage) })

	if _, err := f.engine.Resolve(context.Background(), "observer query", core.Page{Limit: 20}); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if len(stages) == 0 || stages[len(stages)-1] != core.StageDone {
		t.Errorf("stages = %v, want trailing %q", stages, core.StageDone)
	}
}
