// Package reconcile brings a playlist up to date with what the stations played.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiosync/internal/app/history"
	"github.com/osa030/radiosync/internal/app/resolver"
	"github.com/osa030/radiosync/internal/app/state"
	"github.com/osa030/radiosync/internal/domain/playlist"
	"github.com/osa030/radiosync/internal/domain/track"
)

// MaxBatch is the maximum number of tracks added per request.
const MaxBatch = 100

// Playlists defines the playlist operations needed by the reconciler.
type Playlists interface {
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)
	ClearPlaylist(ctx context.Context, playlistID string) error
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
}

// History fetches the plays of one station since a cutoff.
type History interface {
	Fetch(ctx context.Context, stationID string, since time.Time) ([]track.Key, error)
}

// Resolver maps a played track to a catalog track ID.
type Resolver interface {
	Resolve(ctx context.Context, key track.Key) (string, error)
}

// Options configures a run.
type Options struct {
	PlaylistID string
	Stations   []string
	Replace    bool // clear the playlist before adding
	DryRun     bool // read only, log the writes instead
	UpdatedBy  string
}

// Summary reports what a run did.
type Summary struct {
	Processed  int // pairs fetched across all stations
	Added      int
	TotalAfter int
}

// Reconciler runs one synchronization pass.
type Reconciler struct {
	playlists Playlists
	history   History
	resolver  Resolver
	state     state.Store
	opts      Options
	now       func() time.Time
}

// New creates a new Reconciler.
func New(playlists Playlists, hist History, res Resolver, store state.Store, opts Options) *Reconciler {
	return &Reconciler{
		playlists: playlists,
		history:   hist,
		resolver:  res,
		state:     store,
		opts:      opts,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Run fetches each station's plays since the last sync, appends the tracks
// not yet in the playlist, and records the new sync point.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	if r.opts.PlaylistID == "" {
		return Summary{}, errors.New("playlist ID is required")
	}
	if len(r.opts.Stations) == 0 {
		return Summary{}, errors.New("at least one station is required")
	}

	since := r.cutoff(ctx)

	if r.opts.Replace {
		if r.opts.DryRun {
			zlog.Info().Msgf("dry run: would clear playlist %s", r.opts.PlaylistID)
		} else {
			zlog.Info().Msgf("clearing playlist %s", r.opts.PlaylistID)
			if err := r.playlists.ClearPlaylist(ctx, r.opts.PlaylistID); err != nil {
				return Summary{}, err
			}
		}
	}

	ids, err := r.playlists.PlaylistTrackIDs(ctx, r.opts.PlaylistID)
	if err != nil {
		return Summary{}, err
	}
	if r.opts.Replace && r.opts.DryRun {
		ids = nil
	}
	existing := playlist.Playlist{ID: r.opts.PlaylistID, TrackIDs: ids}
	zlog.Info().Msgf("playlist has %d tracks", existing.Len())

	var keys []track.Key
	for _, station := range r.opts.Stations {
		stationKeys, err := r.history.Fetch(ctx, station, since)
		if err != nil {
			return Summary{}, errors.Wrapf(err, "station %s", station)
		}
		keys = append(keys, stationKeys...)
	}
	zlog.Info().Msgf("processing %d tracks", len(keys))

	newIDs, err := r.resolveNew(ctx, keys, existing.IDSet())
	if err != nil {
		return Summary{}, err
	}

	if err := r.addInBatches(ctx, newIDs); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Processed:  len(keys),
		Added:      len(newIDs),
		TotalAfter: existing.Len() + len(newIDs),
	}

	rec := state.Record{
		PlaylistID: r.opts.PlaylistID,
		Stations:   r.opts.Stations,
		UpdatedBy:  r.opts.UpdatedBy,
		SyncedAt:   r.now(),
		Processed:  summary.Processed,
		Added:      summary.Added,
		Total:      summary.TotalAfter,
	}
	if r.opts.DryRun {
		zlog.Info().Msgf("dry run: would set description %q", state.FormatDescription(rec))
	} else if err := r.state.SaveSync(ctx, rec); err != nil {
		return Summary{}, errors.Wrap(err, "failed to save sync state")
	}

	zlog.Info().Msgf("sync finished: processed=%d added=%d total=%d", summary.Processed, summary.Added, summary.TotalAfter)
	return summary, nil
}

// cutoff returns the last sync time, or the start of the retention window
// when none can be read.
func (r *Reconciler) cutoff(ctx context.Context) time.Time {
	last, err := r.state.LastSync(ctx, r.opts.PlaylistID)
	if err != nil {
		fallback := r.now().Add(-history.Retention)
		zlog.Warn().Msgf("couldn't read last update time from playlist, pulling the last 7 days: %v", err)
		return fallback
	}
	zlog.Info().Msgf("playlist last updated %s", last.Format(state.DescriptionLayout))
	return last
}

// resolveNew resolves keys to track IDs, keeping the first occurrence of each
// ID that is not already in the playlist.
func (r *Reconciler) resolveNew(ctx context.Context, keys []track.Key, existing map[string]bool) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string

	for _, key := range keys {
		id, err := r.resolver.Resolve(ctx, key)
		if errors.Is(err, resolver.ErrTrackNotFound) {
			zlog.Warn().Msgf("couldn't find %s - %s", key.Artist, key.Title)
			continue
		}
		if err != nil {
			return nil, err
		}
		if existing[id] || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		zlog.Debug().Msgf("new track: %s - %s id=%s", key.Artist, key.Title, id)
	}
	return ids, nil
}

func (r *Reconciler) addInBatches(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += MaxBatch {
		end := min(start+MaxBatch, len(ids))
		batch := ids[start:end]

		if r.opts.DryRun {
			zlog.Info().Msgf("dry run: would add %d tracks: %s", len(batch), strings.Join(batch, ","))
			continue
		}
		zlog.Info().Msgf("adding %d tracks", len(batch))
		if err := r.playlists.AddTracksToPlaylist(ctx, r.opts.PlaylistID, batch); err != nil {
			return err
		}
	}
	return nil
}
