// Package state keeps track of when a playlist was last synchronized.
package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// DescriptionLayout is the timestamp layout written at the end of the playlist description.
const DescriptionLayout = "2006-01-02 15:04:05.000000"

// parseLayout accepts timestamps with or without fractional seconds.
const parseLayout = "2006-01-02 15:04:05"

// ErrNoSyncState is returned when no previous sync has been recorded.
var ErrNoSyncState = errors.New("no sync state recorded")

// Record describes a finished sync run.
type Record struct {
	ID         string
	PlaylistID string
	Stations   []string
	UpdatedBy  string
	SyncedAt   time.Time
	Processed  int
	Added      int
	Total      int
}

// Store reads and writes the last sync point of a playlist.
type Store interface {
	LastSync(ctx context.Context, playlistID string) (time.Time, error)
	SaveSync(ctx context.Context, rec Record) error
}

// FormatDescription renders the playlist description for a sync record.
func FormatDescription(rec Record) string {
	return fmt.Sprintf("Songs from %s. Updated by %s on %s",
		strings.Join(rec.Stations, ", "), rec.UpdatedBy, rec.SyncedAt.Format(DescriptionLayout))
}

// ParseDescription extracts the sync time from the last two whitespace-separated
// fields of a description, interpreted in loc.
func ParseDescription(description string, loc *time.Location) (time.Time, error) {
	fields := strings.Fields(description)
	if len(fields) < 2 {
		return time.Time{}, errors.Wrapf(ErrNoSyncState, "description %q has no timestamp", description)
	}

	stamp := strings.Join(fields[len(fields)-2:], " ")
	t, err := time.ParseInLocation(parseLayout, stamp, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrNoSyncState, "cannot parse %q: %v", stamp, err)
	}
	return t, nil
}
