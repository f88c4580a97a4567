package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDescriber struct {
	descriptions map[string]string
	err          error
}

func (f *fakeDescriber) PlaylistDescription(ctx context.Context, playlistID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.descriptions[playlistID], nil
}

func (f *fakeDescriber) SetPlaylistDescription(ctx context.Context, playlistID, description string) error {
	if f.err != nil {
		return f.err
	}
	if f.descriptions == nil {
		f.descriptions = make(map[string]string)
	}
	f.descriptions[playlistID] = description
	return nil
}

func TestFormatDescription(t *testing.T) {
	rec := Record{
		Stations:  []string{"abr", "ab7"},
		UpdatedBy: "potchin/absolutespotify",
		SyncedAt:  time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC),
	}
	assert.Equal(t,
		"Songs from abr, ab7. Updated by potchin/absolutespotify on 2024-05-01 10:00:00.123456",
		FormatDescription(rec))
}

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        time.Time
		wantErr     bool
	}{
		{
			name:        "written by sync",
			description: "Songs from abr. Updated by radiosync on 2024-05-01 10:00:00.123456",
			want:        time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC),
		},
		{
			name:        "no fractional seconds",
			description: "Updated on 2024-05-01 10:00:00",
			want:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:        "trailing whitespace",
			description: "Songs from abr. Updated by x on 2024-05-01 10:00:00.000001  ",
			want:        time.Date(2024, 5, 1, 10, 0, 0, 1000, time.UTC),
		},
		{name: "empty", description: "", wantErr: true},
		{name: "free text", description: "My favourite songs", wantErr: true},
		{name: "single field", description: "2024-05-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDescription(tt.description, time.UTC)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoSyncState))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestDescriptionRoundTrip(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	synced := time.Date(2024, 5, 1, 10, 11, 12, 345678000, loc)

	parsed, err := ParseDescription(FormatDescription(Record{
		Stations:  []string{"abr"},
		UpdatedBy: "radiosync",
		SyncedAt:  synced,
	}), loc)
	require.NoError(t, err)
	assert.True(t, synced.Equal(parsed))
}

func TestDescriptionStore(t *testing.T) {
	ctx := context.Background()
	describer := &fakeDescriber{descriptions: map[string]string{"pl1": "Fresh playlist"}}
	store := NewDescriptionStore(describer, time.UTC)

	_, err := store.LastSync(ctx, "pl1")
	assert.True(t, errors.Is(err, ErrNoSyncState))

	synced := time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC)
	require.NoError(t, store.SaveSync(ctx, Record{
		PlaylistID: "pl1",
		Stations:   []string{"abr"},
		UpdatedBy:  "radiosync",
		SyncedAt:   synced,
	}))
	assert.Equal(t, "Songs from abr. Updated by radiosync on 2024-05-01 10:00:00.500000", describer.descriptions["pl1"])

	got, err := store.LastSync(ctx, "pl1")
	require.NoError(t, err)
	assert.True(t, synced.Equal(got))
}

func TestDescriptionStore_TransportError(t *testing.T) {
	store := NewDescriptionStore(&fakeDescriber{err: errors.New("503 Service Unavailable")}, time.UTC)

	_, err := store.LastSync(context.Background(), "pl1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSyncState))
}
