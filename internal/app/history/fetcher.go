// Package history pages backward through a station's play history.
package history

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiosync/internal/app/filter"
	"github.com/osa030/radiosync/internal/domain/track"
	"github.com/osa030/radiosync/internal/infra/planetradio"
)

// Retention is how far back the station API keeps play history.
const Retention = 7 * 24 * time.Hour

// EventSource defines the station API operations needed by the fetcher.
type EventSource interface {
	Events(ctx context.Context, stationID string, until time.Time, pageSize int) ([]planetradio.Event, error)
}

// Fetcher collects the unique (artist, title) pairs a station aired since a cutoff.
type Fetcher struct {
	source   EventSource
	filters  *filter.Chain
	pageSize int
	location *time.Location
	now      func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFilters sets the play filter chain.
func WithFilters(c *filter.Chain) Option {
	return func(f *Fetcher) { f.filters = c }
}

// WithPageSize sets the number of events requested per page.
func WithPageSize(n int) Option {
	return func(f *Fetcher) { f.pageSize = n }
}

// WithLocation sets the time zone the station API reports times in.
func WithLocation(loc *time.Location) Option {
	return func(f *Fetcher) { f.location = loc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// New creates a new Fetcher.
func New(source EventSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:   source,
		filters:  filter.NewChain(),
		pageSize: planetradio.MaxPageSize,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// EffectiveSince clamps since to the retention window ending at now.
// Reports whether clamping happened.
func EffectiveSince(now, since time.Time) (time.Time, bool) {
	floor := now.Add(-Retention)
	if since.Before(floor) {
		return floor, true
	}
	return since, false
}

// Fetch returns the unique (artist, title) pairs aired on the station between
// since and now, in the order they were first seen (newest first).
func (f *Fetcher) Fetch(ctx context.Context, stationID string, since time.Time) ([]track.Key, error) {
	now := f.now().In(f.location)

	since, clamped := EffectiveSince(now, since)
	if clamped {
		zlog.Warn().Msgf("station data is only available for the past 7 days, pulling since %s",
			since.Format(planetradio.TimeLayout))
	}
	zlog.Info().Msgf("pulling station data for %s since %s", stationID, since.In(f.location).Format(planetradio.TimeLayout))

	set := track.NewKeySet()
	queryTime := now
	pages := 0

	for queryTime.After(since) {
		events, err := f.source.Events(ctx, stationID, queryTime, f.pageSize)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch station history")
		}
		pages++

		next, done := f.consume(ctx, stationID, events, since, set)
		if done {
			break
		}
		if !next.Before(queryTime) {
			zlog.Warn().Msgf("station history did not move back past %s, stopping: station=%s",
				queryTime.Format(planetradio.TimeLayout), stationID)
			break
		}
		queryTime = next
	}

	zlog.Info().Msgf("station data pulled: station=%s pages=%d unique_tracks=%d", stationID, pages, set.Len())
	return set.Keys(), nil
}

// consume adds the page's plays to set and returns the aired time of the last
// parseable event. done is true when the cutoff was crossed or the page held
// nothing to continue from.
func (f *Fetcher) consume(ctx context.Context, stationID string, events []planetradio.Event, since time.Time, set *track.KeySet) (last time.Time, done bool) {
	parsed := false

	for _, ev := range events {
		aired, err := time.ParseInLocation(planetradio.TimeLayout, ev.Time, f.location)
		if err != nil {
			zlog.Debug().Msgf("skipping event with bad time: station=%s time=%q", stationID, ev.Time)
			continue
		}
		last = aired
		parsed = true

		play := track.Play{
			StationID: stationID,
			Artist:    ev.Artist,
			Title:     ev.Track,
			AiredAt:   aired,
		}
		if result := f.filters.Execute(ctx, play); !result.Accepted {
			zlog.Debug().Msgf("play filtered: code=%s artist=%q track=%q aired=%s",
				result.Code, play.Artist, play.Title, ev.Time)
			continue
		}
		if aired.Before(since) {
			return aired, true
		}
		set.Add(play.Key())
	}

	if !parsed {
		return time.Time{}, true
	}
	return last, false
}
