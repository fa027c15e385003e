package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"melodex/internal/core"
	"melodex/pkg/match"
)

const likeIndexCapacity = 10000

const schema = `
CREATE TABLE IF NOT EXISTS likes (
	user_id    TEXT NOT NULL,
	track_json TEXT NOT NULL,
	like_key   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, like_key)
);

CREATE TABLE IF NOT EXISTS playlists (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	tracks_json TEXT NOT NULL,
	origin_link TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS uploads (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	artist     TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS downloads (
	user_id    TEXT NOT NULL,
	track_ref  TEXT NOT NULL,
	quality    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_likes_user ON likes (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_playlists_user ON playlists (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_uploads_user ON uploads (user_id, created_at);
`

// Store is the SQLite-backed implementation of core.Persistence.
type Store struct {
	db     *sql.DB
	likes  *LikeIndex
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the SQLite database at path, applies the
// schema, and seeds the like index from persisted rows.
func Open(config *core.StoreConfig, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		likes:  NewLikeIndex(likeIndexCapacity, 0.01),
		logger: logger,
		now:    time.Now,
	}

	if err := s.seedLikeIndex(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedLikeIndex() error {
	rows, err := s.db.Query(`SELECT user_id || '|' || like_key FROM likes`)
	if err != nil {
		return fmt.Errorf("seed like index: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("seed like index: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("seed like index: %w", err)
	}

	s.likes.Load(keys)
	s.logger.Debug("like index seeded", zap.Int("likes", len(keys)))
	return nil
}

// SaveLike persists a like. Liking the same track twice is a silent no-op;
// the in-memory index answers the duplicate check without touching the
// database.
func (s *Store) SaveLike(ctx context.Context, userID string, track core.Track) error {
	if s.likes.Has(userID, track.Title, track.Artist) {
		return nil
	}

	payload, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("encode track: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO likes (user_id, track_json, like_key, created_at) VALUES (?, ?, ?, ?)`,
		userID, string(payload), match.Key(track.Title, track.Artist), s.now().UTC())
	if err != nil {
		return fmt.Errorf("save like: %w", err)
	}

	s.likes.Add(userID, track.Title, track.Artist)
	return nil
}

// ListLikes returns the user's likes, newest first.
func (s *Store) ListLikes(ctx context.Context, userID string) ([]core.Like, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT track_json, created_at FROM likes WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	var likes []core.Like
	for rows.Next() {
		var (
			payload   string
			createdAt time.Time
		)
		if err := rows.Scan(&payload, &createdAt); err != nil {
			return nil, fmt.Errorf("list likes: %w", err)
		}

		var track core.Track
		if err := json.Unmarshal([]byte(payload), &track); err != nil {
			s.logger.Warn("skipping undecodable like row", zap.String("user", userID), zap.Error(err))
			continue
		}
		likes = append(likes, core.Like{UserID: userID, Track: track, CreatedAt: createdAt})
	}
	return likes, rows.Err()
}

// SavePlaylist persists a named set of tracks for the user and returns the
// stored playlist with its generated ID.
func (s *Store) SavePlaylist(ctx context.Context, userID, name string, tracks []core.Track, originLink string) (*core.SavedPlaylist, error) {
	if name == "" {
		return nil, fmt.Errorf("playlist name must not be empty")
	}

	payload, err := json.Marshal(tracks)
	if err != nil {
		return nil, fmt.Errorf("encode tracks: %w", err)
	}

	playlist := &core.SavedPlaylist{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		Tracks:     tracks,
		OriginLink: originLink,
		CreatedAt:  s.now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO playlists (id, user_id, name, tracks_json, origin_link, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		playlist.ID, userID, name, string(payload), originLink, playlist.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save playlist: %w", err)
	}
	return playlist, nil
}

// ListPlaylists returns the user's saved playlists, newest first.
func (s *Store) ListPlaylists(ctx context.Context, userID string) ([]core.SavedPlaylist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, tracks_json, origin_link, created_at FROM playlists WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []core.SavedPlaylist
	for rows.Next() {
		var (
			p       core.SavedPlaylist
			payload string
		)
		if err := rows.Scan(&p.ID, &p.Name, &payload, &p.OriginLink, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("list playlists: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &p.Tracks); err != nil {
			s.logger.Warn("skipping undecodable playlist row", zap.String("id", p.ID), zap.Error(err))
			continue
		}
		p.UserID = userID
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// ListUploads returns the user's upload metadata rows, newest first. The
// audio bytes themselves live outside this service.
func (s *Store) ListUploads(ctx context.Context, userID string) ([]core.Upload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, artist, file_path, created_at FROM uploads WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []core.Upload
	for rows.Next() {
		var u core.Upload
		if err := rows.Scan(&u.ID, &u.Title, &u.Artist, &u.FilePath, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("list uploads: %w", err)
		}
		u.UserID = userID
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// SaveUpload persists metadata for an uploaded audio file.
func (s *Store) SaveUpload(ctx context.Context, userID, title, artist, filePath string) (*core.Upload, error) {
	upload := &core.Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Artist:    artist,
		FilePath:  filePath,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, user_id, title, artist, file_path, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		upload.ID, userID, title, artist, filePath, upload.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	return upload, nil
}

// RecordDownload appends a download event for the user.
func (s *Store) RecordDownload(ctx context.Context, userID, trackRef, quality string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (user_id, track_ref, quality, created_at) VALUES (?, ?, ?, ?)`,
		userID, trackRef, quality, s.now().UTC())
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}
