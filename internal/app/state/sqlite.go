package state

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	zlog "github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT PRIMARY KEY,
	playlist_id TEXT NOT NULL,
	stations    TEXT NOT NULL,
	updated_by  TEXT NOT NULL,
	synced_at   INTEGER NOT NULL,
	processed   INTEGER NOT NULL,
	added       INTEGER NOT NULL,
	total       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_runs_playlist ON sync_runs (playlist_id, synced_at);
`

// SQLiteStore keeps a history of sync runs in a SQLite database.
// When a mirror is set, the description is still rewritten and serves as the
// fallback for playlists with no recorded runs.
type SQLiteStore struct {
	db     *sql.DB
	mirror Store
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// The path can be ":memory:" for an in-memory database.
func OpenSQLite(path string, mirror Store) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// A single connection keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}

	return &SQLiteStore{db: db, mirror: mirror}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LastSync returns the time of the most recent recorded run for the playlist.
func (s *SQLiteStore) LastSync(ctx context.Context, playlistID string) (time.Time, error) {
	var nanos int64
	err := s.db.QueryRowContext(ctx,
		`SELECT synced_at FROM sync_runs WHERE playlist_id = ? ORDER BY synced_at DESC LIMIT 1`,
		playlistID,
	).Scan(&nanos)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if s.mirror != nil {
			zlog.Debug().Msgf("no recorded sync runs, reading description: playlist=%s", playlistID)
			return s.mirror.LastSync(ctx, playlistID)
		}
		return time.Time{}, ErrNoSyncState
	case err != nil:
		return time.Time{}, errors.Wrap(err, "failed to query last sync")
	}

	return time.Unix(0, nanos), nil
}

// SaveSync records the run, then updates the mirror.
func (s *SQLiteStore) SaveSync(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, playlist_id, stations, updated_by, synced_at, processed, added, total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PlaylistID, strings.Join(rec.Stations, ","), rec.UpdatedBy,
		rec.SyncedAt.UnixNano(), rec.Processed, rec.Added, rec.Total,
	)
	if err != nil {
		return errors.Wrap(err, "failed to record sync run")
	}

	if s.mirror != nil {
		return s.mirror.SaveSync(ctx, rec)
	}
	return nil
}

// Runs returns the recorded runs for a playlist, newest first.
func (s *SQLiteStore) Runs(ctx context.Context, playlistID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, playlist_id, stations, updated_by, synced_at, processed, added, total
		 FROM sync_runs WHERE playlist_id = ? ORDER BY synced_at DESC LIMIT ?`,
		playlistID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sync runs")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			stations string
			nanos    int64
		)
		if err := rows.Scan(&rec.ID, &rec.PlaylistID, &stations, &rec.UpdatedBy, &nanos,
			&rec.Processed, &rec.Added, &rec.Total); err != nil {
			return nil, errors.Wrap(err, "failed to scan sync run")
		}
		rec.Stations = strings.Split(stations, ",")
		rec.SyncedAt = time.Unix(0, nanos)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read sync runs")
	}
	return records, nil
}
