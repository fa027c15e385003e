// Package http exposes the resolution engine and persistence layer over a
// JSON API, plus health and Prometheus metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"melodex/internal/core"
	"melodex/pkg/classify"
)

const defaultPageLimit = 20

// Resolver is the engine surface the server depends on.
type Resolver interface {
	Resolve(ctx context.Context, raw string, page core.Page) (*core.ResolveResult, error)
	LookupTrack(ctx context.Context, title, artist string) core.Track
}

type Server struct {
	config      *core.ServerConfig
	logger      *zap.Logger
	server      *http.Server
	resolver    Resolver
	persistence core.Persistence
	auth        core.AuthService
	recommender core.Recommender
	metrics     *Metrics
}

type Metrics struct {
	ResolutionsTotal *prometheus.CounterVec
	TrackLookups     *prometheus.CounterVec
	CacheHitsTotal   prometheus.Counter
	LikesTotal       prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	ResolutionTime   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_resolutions_total",
				Help: "Total number of query resolutions",
			},
			[]string{"kind", "status"},
		),
		TrackLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_track_lookups_total",
				Help: "Total number of single-track lookups",
			},
			[]string{"source"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "melodex_cache_hits_total",
				Help: "Total number of query cache hits",
			},
		),
		LikesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "melodex_likes_total",
				Help: "Total number of likes saved",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		ResolutionTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "melodex_resolution_duration_seconds",
				Help:    "Time spent resolving queries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		metrics.ResolutionsTotal,
		metrics.TrackLookups,
		metrics.CacheHitsTotal,
		metrics.LikesTotal,
		metrics.ErrorsTotal,
		metrics.ResolutionTime,
	)

	return metrics
}

// NewServer wires the API router. The recommender may be nil, in which case
// the recommendation endpoint reports unavailability.
func NewServer(
	config *core.ServerConfig,
	resolver Resolver,
	persistence core.Persistence,
	auth core.AuthService,
	recommender core.Recommender,
	logger *zap.Logger,
) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		config:      config,
		logger:      logger,
		resolver:    resolver,
		persistence: persistence,
		auth:        auth,
		recommender: recommender,
		metrics:     newMetrics(registry),
	}

	r := chi.NewRouter()

	r.Get("/api/music", s.handleMusic)
	r.Get("/api/track", s.handleTrack)
	r.Get("/api/likes", s.requireUser(s.handleListLikes))
	r.Post("/api/likes", s.requireUser(s.handleSaveLike))
	r.Get("/api/playlists", s.requireUser(s.handleListPlaylists))
	r.Post("/api/playlists", s.requireUser(s.handleSavePlaylist))
	r.Get("/api/uploads", s.requireUser(s.handleListUploads))
	r.Post("/api/uploads", s.requireUser(s.handleSaveUpload))
	r.Post("/api/downloads", s.requireUser(s.handleRecordDownload))
	r.Post("/api/recommendations", s.handleRecommendations)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "melodex"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "melodex"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/", s.handleIndex)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

type resolveResponse struct {
	Items    []core.Track           `json:"items"`
	Playlist *core.PlaylistMetadata `json:"playlist,omitempty"`
	Total    int                    `json:"total"`
	Stage    string                 `json:"stage"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage"`
}

func (s *Server) handleMusic(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page := core.Page{
		Offset: intParam(r, "offset", 0),
		Limit:  intParam(r, "limit", defaultPageLimit),
	}

	start := time.Now()
	result, err := s.resolver.Resolve(r.Context(), query, page)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, classify.ErrUnclassifiable) {
			status = http.StatusBadRequest
		}
		s.metrics.ResolutionsTotal.WithLabelValues("unknown", "error").Inc()
		s.metrics.ErrorsTotal.WithLabelValues("resolve", "upstream").Inc()
		s.logger.Warn("resolution failed", zap.String("query", query), zap.Error(err))
		writeJSON(w, status, errorResponse{Error: err.Error(), Stage: core.StageError})
		return
	}

	kind := "query"
	if result.Playlist != nil {
		kind = "playlist"
	}
	s.metrics.ResolutionsTotal.WithLabelValues(kind, "ok").Inc()
	s.metrics.ResolutionTime.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if result.Stage == core.StageCacheHit {
		s.metrics.CacheHitsTotal.Inc()
	}

	items := result.Tracks
	if items == nil {
		items = []core.Track{}
	}
	writeJSON(w, http.StatusOK, resolveResponse{
		Items:    items,
		Playlist: result.Playlist,
		Total:    result.Total,
		Stage:    result.Stage,
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	artist := r.URL.Query().Get("artist")

	// The lookup itself degrades to a placeholder instead of failing, so
	// even a panic below still answers with a usable track body.
	defer func() {
		if rec := recover(); rec != nil {
			s.metrics.ErrorsTotal.WithLabelValues("track", "panic").Inc()
			s.logger.Error("track lookup panicked", zap.Any("panic", rec))
			writeJSON(w, http.StatusInternalServerError, core.PlaceholderTrack(title, artist))
		}
	}()

	track := s.resolver.LookupTrack(r.Context(), title, artist)
	s.metrics.TrackLookups.WithLabelValues(string(track.Source)).Inc()
	writeJSON(w, http.StatusOK, track)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireUser rejects requests whose bearer token does not map to a user.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := s.auth.UserID(r.Header.Get("Authorization"))
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Stage: core.StageError})
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) handleSaveLike(w http.ResponseWriter, r *http.Request, userID string) {
	var track core.Track
	if err := json.NewDecoder(r.Body).Decode(&track); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track payload", Stage: core.StageError})
		return
	}
	if track.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "track title is required", Stage: core.StageError})
		return
	}

	if err := s.persistence.SaveLike(r.Context(), userID, track); err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store", "like").Inc()
		s.logger.Error("save like failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not save like", Stage: core.StageError})
		return
	}

	s.metrics.LikesTotal.Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

func (s *Server) handleListLikes(w http.ResponseWriter, r *http.Request, userID string) {
	likes, err := s.persistence.ListLikes(r.Context(), userID)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store", "like").Inc()
		s.logger.Error("list likes failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list likes", Stage: core.StageError})
		return
	}
	if likes == nil {
		likes = []core.Like{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"likes": likes})
}

type savePlaylistRequest struct {
	Name       string       `json:"name"`
	Tracks     []core.Track `json:"tracks"`
	OriginLink string       `json:"originLink"`
}

func (s *Server) handleSavePlaylist(w http.ResponseWriter, r *http.Request, userID string) {
	var req savePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist payload", Stage: core.StageError})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "playlist name is required", Stage: core.StageError})
		return
	}

	playlist, err := s.persistence.SavePlaylist(r.Context(), userID, req.Name, req.Tracks, req.OriginLink)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store", "playlist").Inc()
		s.logger.Error("save playlist failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not save playlist", Stage: core.StageError})
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request, userID string) {
	playlists, err := s.persistence.ListPlaylists(r.Context(), userID)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store", "playlist").Inc()
		s.logger.Error("list playlists failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list playlists", Stage: core.StageError})
		return
	}
	if playlists == nil {
		playlists = []core.SavedPlaylist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

type saveUploadRequest struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	FilePath string `json:"filePath"`
}

func (s *Server) handleSaveUpload(w http.ResponseWriter, r *http.Request, userID string) {
	var req saveUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid upload payload", Stage: core.StageError})
		return
	}
	if req.Title == "" || req.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "upload title and filePath are required", Stage: core.StageError})
		return
	}

	upload, err := s.persistence.SaveUpload(r.Context(), userID, req.Title, req.Artist, req.FilePath)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store", "upload").Inc()
		s.logger.Error("save upload failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not save upload", Stage: core.StageError})
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request, userID string) {
	uploads, err := s.persistence.ListUploads(r.Context(), userID)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store", "upload").Inc()
		s.logger.Error("list uploads failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list uploads", Stage: core.StageError})
		return
	}
	if uploads == nil {
		uploads = []core.Upload{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}

type recordDownloadRequest struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Quality string `json:"quality"`
}

// handleRecordDownload resolves a playable reference for the requested track
// and records the download event. Byte streaming is not served here; the
// client fetches the returned URL itself.
func (s *Server) handleRecordDownload(w http.ResponseWriter, r *http.Request, userID string) {
	var req recordDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid download payload", Stage: core.StageError})
		return
	}

	track := s.resolver.LookupTrack(r.Context(), req.Title, req.Artist)
	if !track.Playable() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no downloadable source found", Stage: core.StageError})
		return
	}

	if err := s.persistence.RecordDownload(r.Context(), userID, track.PlayableRef, req.Quality); err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store", "download").Inc()
		s.logger.Error("record download failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not record download", Stage: core.StageError})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"url": track.PlayableRef, "track": track})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Melodex</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">&#127925; Melodex</h1>
    <p>Multi-provider music resolution service</p>

    <h2>Endpoints</h2>
    <div class="endpoint">&#128269; /api/music?query=... - Resolve a search or platform link</div>
    <div class="endpoint">&#127926; /api/track?title=...&amp;artist=... - Best playable match</div>
    <div class="endpoint">&#128202; <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">&#128154; <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">&#9989; <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`))
}

type recommendationsRequest struct {
	Seeds []core.Track `json:"seeds"`
	Limit int          `json:"limit"`
}

// handleRecommendations generates suggestions from seed tracks and resolves
// each suggestion to a playable track through the engine.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.recommender == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "recommendations are not configured", Stage: core.StageError})
		return
	}

	var req recommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Seeds) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "at least one seed track is required", Stage: core.StageError})
		return
	}

	suggestions, err := s.recommender.Recommend(r.Context(), req.Seeds, req.Limit)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("recs", "upstream").Inc()
		s.logger.Error("recommendation failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "could not generate recommendations", Stage: core.StageError})
		return
	}

	resolved := make([]core.Track, 0, len(suggestions))
	for _, suggestion := range suggestions {
		resolved = append(resolved, s.resolver.LookupTrack(r.Context(), suggestion.Title, suggestion.Artist))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resolved})
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
