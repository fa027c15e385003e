// Package engine orchestrates provider adapters into end-to-end resolution:
// classified input in, normalized tracks out, with the cache layer guarding
// rate-limited upstreams.
package engine

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"melodex/internal/cache"
	"melodex/internal/core"
	"melodex/pkg/classify"
	"melodex/pkg/match"
)

// SaavnProvider is the JioSaavn capability surface the engine needs.
type SaavnProvider interface {
	Search(ctx context.Context, query string, limit int) ([]core.Track, error)
	Song(ctx context.Context, id string) (*core.Track, error)
	AlbumPage(ctx context.Context, id string, page core.Page) ([]core.Track, *core.PlaylistMetadata, int, error)
}

// YouTubeProvider is the YouTube Data API capability surface.
type YouTubeProvider interface {
	Search(ctx context.Context, query string, limit int) ([]core.Track, error)
	Video(ctx context.Context, id string) (*core.Track, error)
	PlaylistPage(ctx context.Context, id string, page core.Page) ([]core.Track, *core.PlaylistMetadata, int, error)
}

// SpotifyProvider is the Spotify Web API capability surface.
type SpotifyProvider interface {
	Search(ctx context.Context, query string, limit int) ([]core.Track, error)
	Track(ctx context.Context, id string) (*core.Track, error)
	PlaylistPage(ctx context.Context, id string, page core.Page) ([]core.Track, *core.PlaylistMetadata, int, error)
}

// ProxyProvider is the best-effort scraping fallback surface.
type ProxyProvider interface {
	Search(ctx context.Context, query string, limit int) ([]core.Track, error)
	Configured() bool
}

// Engine resolves classified queries through the provider adapters. All
// collaborators are injected at construction; the engine holds no globals.
type Engine struct {
	classifier *classify.Classifier
	saavn      SaavnProvider
	youtube    YouTubeProvider
	spotify    SpotifyProvider
	proxy      ProxyProvider
	queryCache *cache.QueryCache
	trackCache *cache.TrackCache
	config     core.SearchConfig
	logger     *zap.Logger
	onStage    func(stage string)
}

// New creates a resolution engine.
func New(
	classifier *classify.Classifier,
	saavn SaavnProvider,
	youtube YouTubeProvider,
	spotify SpotifyProvider,
	proxy ProxyProvider,
	queryCache *cache.QueryCache,
	trackCache *cache.TrackCache,
	config core.SearchConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		classifier: classifier,
		saavn:      saavn,
		youtube:    youtube,
		spotify:    spotify,
		proxy:      proxy,
		queryCache: queryCache,
		trackCache: trackCache,
		config:     config,
		logger:     logger,
	}
}

// OnStage registers an observer called with each stage transition.
func (e *Engine) OnStage(fn func(stage string)) {
	e.onStage = fn
}

func (e *Engine) stage(result *core.ResolveResult, stage string) {
	result.Stage = stage
	if e.onStage != nil {
		e.onStage(stage)
	}
}

// Resolve classifies raw input and resolves it to tracks. Classification
// failures and single-item lookup failures propagate; keyword fan-out
// degrades individual provider failures to empty contributions.
func (e *Engine) Resolve(ctx context.Context, raw string, page core.Page) (*core.ResolveResult, error) {
	cls, err := e.classifier.Classify(raw)
	if err != nil {
		return nil, err
	}

	key := cache.QueryKey(raw, page)
	if entry, ok := e.queryCache.Get(key); ok {
		e.logger.Debug("query cache hit", zap.String("key", key))
		return &core.ResolveResult{
			Tracks:   entry.Tracks,
			Playlist: entry.Playlist,
			Total:    entry.Total,
			Stage:    core.StageCacheHit,
		}, nil
	}

	result, err := e.resolveLive(ctx, cls, page)
	if err != nil {
		return nil, err
	}

	e.queryCache.Set(key, result.Tracks, result.Playlist, result.Total)
	return result, nil
}

func (e *Engine) resolveLive(ctx context.Context, cls classify.Classification, page core.Page) (*core.ResolveResult, error) {
	result := &core.ResolveResult{}

	switch cls.Kind {
	case classify.KindKeyword:
		e.keywordSearch(ctx, cls.Query, result)

	case classify.KindYouTubeVideo:
		e.stage(result, core.StageFetchingVideo)
		track, err := e.youtube.Video(ctx, cls.ID)
		if err != nil {
			return nil, err
		}
		result.Tracks = []core.Track{*track}
		result.Total = 1

	case classify.KindSpotifyTrack:
		e.stage(result, core.StageFetchingTrack)
		track, err := e.spotify.Track(ctx, cls.ID)
		if err != nil {
			return nil, err
		}
		result.Tracks = []core.Track{*track}
		result.Total = 1

	case classify.KindJioSaavnSong:
		e.stage(result, core.StageFetchingSong)
		track, err := e.saavn.Song(ctx, cls.ID)
		if err != nil {
			return nil, err
		}
		result.Tracks = []core.Track{*track}
		result.Total = 1

	case classify.KindYouTubePlaylist:
		e.stage(result, core.StageFetchingPlaylist)
		if err := e.resolveCollection(ctx, cls, page, result, e.youtube.PlaylistPage); err != nil {
			return nil, err
		}

	case classify.KindSpotifyPlaylist:
		e.stage(result, core.StageFetchingPlaylist)
		if err := e.resolveCollection(ctx, cls, page, result, e.spotify.PlaylistPage); err != nil {
			return nil, err
		}

	case classify.KindJioSaavnAlbum:
		e.stage(result, core.StageFetchingAlbum)
		if err := e.resolveCollection(ctx, cls, page, result, e.saavn.AlbumPage); err != nil {
			return nil, err
		}
	}

	e.stage(result, core.StageDone)
	return result, nil
}

type collectionFetch func(ctx context.Context, id string, page core.Page) ([]core.Track, *core.PlaylistMetadata, int, error)

// resolveCollection fetches one page of a playlist or album, drops entries
// missing required display fields, and attaches the origin link so later
// pages can be refetched from the true source.
func (e *Engine) resolveCollection(ctx context.Context, cls classify.Classification, page core.Page, result *core.ResolveResult, fetch collectionFetch) error {
	tracks, meta, total, err := fetch(ctx, cls.ID, page)
	if err != nil {
		return err
	}

	displayable := make([]core.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Title == "" || t.Artist == "" || t.ThumbnailURL == "" {
			continue
		}
		displayable = append(displayable, t)
	}

	if meta != nil {
		meta.OriginLink = cls.Raw
	}

	result.Tracks = displayable
	result.Playlist = meta
	result.Total = total
	return nil
}

// keywordSearch fills a fixed result quota across providers in priority
// order: JioSaavn first, the proxy when JioSaavn underfills, then the
// YouTube Data API when the proxy also underfills. Spotify is queried in
// parallel up to its own quota and appended last. Provider errors and
// timeouts shrink the quota instead of failing the search, and no
// cross-provider deduplication is performed.
func (e *Engine) keywordSearch(ctx context.Context, query string, result *core.ResolveResult) {
	var (
		mu            sync.Mutex
		spotifyTracks []core.Track
	)

	g, gctx := errgroup.WithContext(ctx)

	e.stage(result, core.StageSearchingSpotify)
	g.Go(func() error {
		tracks, err := e.searchProvider(gctx, e.spotify.Search, query, e.config.SpotifyQuota)
		if err != nil {
			e.logger.Warn("spotify search degraded to empty", zap.String("query", query), zap.Error(err))
			return nil
		}
		mu.Lock()
		spotifyTracks = tracks
		mu.Unlock()
		return nil
	})

	quota := e.config.Quota
	var priority []core.Track

	e.stage(result, core.StageSearchingSaavn)
	if tracks, err := e.searchProvider(ctx, e.saavn.Search, query, quota); err != nil {
		e.logger.Warn("jiosaavn search degraded to empty", zap.String("query", query), zap.Error(err))
	} else {
		priority = append(priority, tracks...)
	}

	if len(priority) < quota && e.proxy.Configured() {
		e.stage(result, core.StageSearchingProxy)
		if tracks, err := e.searchProvider(ctx, e.proxy.Search, query, quota-len(priority)); err != nil {
			e.logger.Warn("proxy search degraded to empty", zap.String("query", query), zap.Error(err))
		} else {
			priority = appendCapped(priority, tracks, quota)
		}
	}

	if len(priority) < quota {
		e.stage(result, core.StageSearchingYouTube)
		if tracks, err := e.searchProvider(ctx, e.youtube.Search, query, quota-len(priority)); err != nil {
			e.logger.Warn("youtube search degraded to empty", zap.String("query", query), zap.Error(err))
		} else {
			// Keyword results surface through the music-category search and
			// are labeled as the youtube_music family.
			for i := range tracks {
				tracks[i].Source = core.SourceYouTubeMusic
			}
			priority = appendCapped(priority, tracks, quota)
		}
	}

	_ = g.Wait()

	merged := make([]core.Track, 0, len(priority)+len(spotifyTracks))
	merged = append(merged, priority...)
	merged = append(merged, spotifyTracks...)

	items := make([]core.Track, 0, len(merged))
	for _, t := range merged {
		if t.Title == "" || t.Artist == "" {
			continue
		}
		items = append(items, t)
	}

	result.Tracks = items
	result.Total = len(items)
}

type searchFunc func(ctx context.Context, query string, limit int) ([]core.Track, error)

// searchProvider runs one provider search under the per-provider timeout.
func (e *Engine) searchProvider(ctx context.Context, search searchFunc, query string, limit int) ([]core.Track, error) {
	if e.config.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ProviderTimeout)
		defer cancel()
	}
	return search(ctx, query, limit)
}

func appendCapped(dst, src []core.Track, quota int) []core.Track {
	for _, t := range src {
		if len(dst) >= quota {
			break
		}
		dst = append(dst, t)
	}
	return dst
}

// LookupTrack finds the best playable reference for a known title/artist
// pair. JioSaavn and the proxy are tried first and gated by the match
// heuristic; the YouTube Data API is the last resort and its first result is
// accepted unconditionally. When every provider comes up empty the caller
// gets a placeholder track with no playable reference, never an error.
func (e *Engine) LookupTrack(ctx context.Context, title, artist string) core.Track {
	if title == "" {
		title = core.UnknownTitle
	}
	if artist == "" {
		artist = core.UnknownArtist
	}

	if track, ok := e.trackCache.Get(title, artist); ok {
		e.logger.Debug("track cache hit", zap.String("title", title), zap.String("artist", artist))
		return track
	}

	query := strings.TrimSpace(title + " " + artist)
	var best *core.Track

	if tracks, err := e.searchProvider(ctx, e.saavn.Search, query, 1); err != nil {
		e.logger.Warn("jiosaavn lookup failed", zap.String("query", query), zap.Error(err))
	} else if len(tracks) > 0 && match.Gate(tracks[0], title, artist) {
		best = &tracks[0]
	}

	if best == nil && e.proxy.Configured() {
		if tracks, err := e.searchProvider(ctx, e.proxy.Search, query, 1); err != nil {
			e.logger.Warn("proxy lookup failed", zap.String("query", query), zap.Error(err))
		} else if len(tracks) > 0 && match.Gate(tracks[0], title, artist) {
			best = &tracks[0]
		}
	}

	if best == nil {
		if tracks, err := e.searchProvider(ctx, e.youtube.Search, query, 1); err != nil {
			e.logger.Warn("youtube lookup failed", zap.String("query", query), zap.Error(err))
		} else if len(tracks) > 0 {
			best = &tracks[0]
		}
	}

	var resolved core.Track
	if best != nil {
		resolved = *best
	} else {
		e.logger.Info("no playable match found, returning placeholder",
			zap.String("title", title), zap.String("artist", artist))
		resolved = core.PlaceholderTrack(title, artist)
	}

	e.trackCache.Put(title, artist, resolved)
	return resolved
}
