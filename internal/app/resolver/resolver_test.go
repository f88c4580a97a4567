package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiosync/internal/domain/track"
)

type fakeSearcher struct {
	results map[string][]track.Track
	err     error
	queries []string
	limits  []int
}

func (s *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

func TestResolve(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]track.Track{
		"Oasis Wonderwall": {{ID: "t1", Name: "Wonderwall"}, {ID: "t2", Name: "Wonderwall - Live"}},
	}}
	r := New(searcher, 0)

	tests := []struct {
		name    string
		key     track.Key
		want    string
		wantErr error
	}{
		{
			name: "first result wins",
			key:  track.Key{Artist: "Oasis", Title: "Wonderwall"},
			want: "t1",
		},
		{
			name:    "no result",
			key:     track.Key{Artist: "Nobody", Title: "Nothing"},
			wantErr: ErrTrackNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.key)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, []string{"Oasis Wonderwall", "Nobody Nothing"}, searcher.queries)
	assert.Equal(t, []int{1, 1}, searcher.limits)
}

func TestResolve_SearchErrorIsFatal(t *testing.T) {
	r := New(&fakeSearcher{err: errors.New("502 Bad Gateway")}, 0)

	_, err := r.Resolve(context.Background(), track.Key{Artist: "Oasis", Title: "Wonderwall"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTrackNotFound))
	assert.Contains(t, err.Error(), "502")
}

func TestResolve_RateLimitHonorsContext(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]track.Track{"a b": {{ID: "t1"}}}}
	r := New(searcher, 0.001)

	_, err := r.Resolve(context.Background(), track.Key{Artist: "a", Title: "b"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Resolve(ctx, track.Key{Artist: "a", Title: "b"})
	require.Error(t, err)
	assert.Len(t, searcher.queries, 1)
}
