package state

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// PlaylistDescriber reads and writes a playlist's description.
type PlaylistDescriber interface {
	PlaylistDescription(ctx context.Context, playlistID string) (string, error)
	SetPlaylistDescription(ctx context.Context, playlistID, description string) error
}

// DescriptionStore keeps the sync point in the playlist description itself.
type DescriptionStore struct {
	playlists PlaylistDescriber
	location  *time.Location
}

// NewDescriptionStore creates a store backed by playlist descriptions.
// Timestamps are read and written in loc; nil means local time.
func NewDescriptionStore(playlists PlaylistDescriber, loc *time.Location) *DescriptionStore {
	if loc == nil {
		loc = time.Local
	}
	return &DescriptionStore{playlists: playlists, location: loc}
}

// LastSync parses the timestamp at the end of the playlist description.
func (s *DescriptionStore) LastSync(ctx context.Context, playlistID string) (time.Time, error) {
	desc, err := s.playlists.PlaylistDescription(ctx, playlistID)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "failed to read playlist description")
	}
	return ParseDescription(desc, s.location)
}

// SaveSync rewrites the playlist description with the record's sync time.
func (s *DescriptionStore) SaveSync(ctx context.Context, rec Record) error {
	rec.SyncedAt = rec.SyncedAt.In(s.location)
	desc := FormatDescription(rec)
	if err := s.playlists.SetPlaylistDescription(ctx, rec.PlaylistID, desc); err != nil {
		return err
	}
	zlog.Debug().Msgf("playlist description updated: playlist=%s description=%q", rec.PlaylistID, desc)
	return nil
}
