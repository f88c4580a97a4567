package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, mirror Store) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(":memory:", mirror)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_NoRuns(t *testing.T) {
	store := openTestStore(t, nil)

	_, err := store.LastSync(context.Background(), "pl1")
	assert.True(t, errors.Is(err, ErrNoSyncState))
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, nil)

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(6 * time.Hour)

	require.NoError(t, store.SaveSync(ctx, Record{PlaylistID: "pl1", Stations: []string{"abr"}, UpdatedBy: "radiosync", SyncedAt: first, Processed: 10, Added: 4, Total: 4}))
	require.NoError(t, store.SaveSync(ctx, Record{PlaylistID: "pl1", Stations: []string{"abr", "ab7"}, UpdatedBy: "radiosync", SyncedAt: second, Processed: 3, Added: 1, Total: 5}))
	require.NoError(t, store.SaveSync(ctx, Record{PlaylistID: "other", Stations: []string{"abr"}, UpdatedBy: "radiosync", SyncedAt: second.Add(time.Hour)}))

	got, err := store.LastSync(ctx, "pl1")
	require.NoError(t, err)
	assert.True(t, second.Equal(got))

	runs, err := store.Runs(ctx, "pl1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"abr", "ab7"}, runs[0].Stations)
	assert.Equal(t, 1, runs[0].Added)
	assert.Equal(t, 5, runs[0].Total)
	assert.NotEmpty(t, runs[0].ID)
	assert.True(t, first.Equal(runs[1].SyncedAt))
}

func TestSQLiteStore_Mirror(t *testing.T) {
	ctx := context.Background()
	describer := &fakeDescriber{descriptions: map[string]string{
		"pl1": "Songs from abr. Updated by radiosync on 2024-05-01 10:00:00.000000",
	}}
	store := openTestStore(t, NewDescriptionStore(describer, time.UTC))

	// falls back to the description until a run is recorded
	got, err := store.LastSync(ctx, "pl1")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Equal(got))

	synced := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.SaveSync(ctx, Record{PlaylistID: "pl1", Stations: []string{"abr"}, UpdatedBy: "radiosync", SyncedAt: synced}))

	assert.Equal(t, "Songs from abr. Updated by radiosync on 2024-05-02 09:30:00.000000", describer.descriptions["pl1"])

	describer.descriptions["pl1"] = "edited by hand"
	got, err = store.LastSync(ctx, "pl1")
	require.NoError(t, err)
	assert.True(t, synced.Equal(got))
}
