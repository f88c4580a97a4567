// Package resolver maps station metadata to catalog track IDs.
package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/osa030/radiosync/internal/domain/track"
)

// ErrTrackNotFound is returned when the catalog has no match for a key.
var ErrTrackNotFound = errors.New("track not found")

// Searcher defines the catalog search operation needed by the resolver.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]track.Track, error)
}

// Resolver looks up one catalog track per (artist, title) pair.
type Resolver struct {
	searcher Searcher
	limiter  *rate.Limiter
}

// New creates a new Resolver. perSecond caps search requests; 0 disables pacing.
func New(searcher Searcher, perSecond float64) *Resolver {
	r := &Resolver{searcher: searcher}
	if perSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return r
}

// Resolve returns the ID of the first catalog result for the key.
// Returns ErrTrackNotFound when the search comes back empty.
func (r *Resolver) Resolve(ctx context.Context, key track.Key) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(err, "search rate limiter")
		}
	}

	query := key.Query()
	results, err := r.searcher.Search(ctx, query, 1)
	if err != nil {
		return "", errors.Wrapf(err, "failed to search for %q", query)
	}
	if len(results) == 0 || results[0].ID == "" {
		return "", errors.Wrapf(ErrTrackNotFound, "%q", query)
	}

	zlog.Debug().Msgf("resolved track: query=%q id=%s name=%q", query, results[0].ID, results[0].Name)
	return results[0].ID, nil
}
