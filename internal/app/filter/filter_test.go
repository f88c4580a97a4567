package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiosync/internal/domain/track"
	"github.com/osa030/radiosync/internal/infra/config"
)

func playAt(hour int) track.Play {
	return track.Play{
		Artist:  "Oasis",
		Title:   "Wonderwall",
		AiredAt: time.Date(2024, 5, 1, hour, 30, 0, 0, time.UTC),
	}
}

func TestSkipBeforeHourFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		hour         int
		airedHour    int
		wantAccepted bool
	}{
		{name: "before the hour", hour: 8, airedHour: 3, wantAccepted: false},
		{name: "at the hour", hour: 8, airedHour: 8, wantAccepted: true},
		{name: "after the hour", hour: 8, airedHour: 15, wantAccepted: true},
		{name: "zero keeps everything", hour: 0, airedHour: 0, wantAccepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewSkipBeforeHourFilter(tt.hour)
			result := f.Check(context.Background(), playAt(tt.airedHour))

			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "before_hour", result.Code)
			}
		})
	}
}

func TestSkipBeforeHourFilter_ValidateConfig(t *testing.T) {
	f := &SkipBeforeHourFilter{}
	require.NoError(t, f.ValidateConfig(map[string]any{"hour": 6}))
	assert.Equal(t, 6, f.hour)

	assert.Error(t, f.ValidateConfig(map[string]any{"hour": 25}))
}

func TestExcludeArtistsFilter(t *testing.T) {
	f := &ExcludeArtistsFilter{}
	require.NoError(t, f.ValidateConfig(map[string]any{
		"artists": []any{"Absolute Radio", "ADVERT"},
	}))

	tests := []struct {
		artist       string
		wantAccepted bool
	}{
		{artist: "absolute radio", wantAccepted: false},
		{artist: " Advert ", wantAccepted: false},
		{artist: "Oasis", wantAccepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.artist, func(t *testing.T) {
			result := f.Check(context.Background(), track.Play{Artist: tt.artist, Title: "x"})
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "excluded_artist", result.Code)
			}
		})
	}
}

func TestExcludeArtistsFilter_RequiresArtists(t *testing.T) {
	f := &ExcludeArtistsFilter{}
	assert.Error(t, f.ValidateConfig(map[string]any{}))
}

func TestRequireMetadataFilter(t *testing.T) {
	f := &RequireMetadataFilter{}
	ctx := context.Background()

	assert.True(t, f.Check(ctx, track.Play{Artist: "Blur", Title: "Song 2"}).Accepted)
	assert.Equal(t, Reject("missing_metadata"), f.Check(ctx, track.Play{Artist: "", Title: "Song 2"}))
	assert.Equal(t, Reject("missing_metadata"), f.Check(ctx, track.Play{Artist: "Blur", Title: "  "}))
}

func TestChain_Execute(t *testing.T) {
	chain := NewChain()
	chain.Add(NewSkipBeforeHourFilter(8))
	chain.Add(&RequireMetadataFilter{})

	ctx := context.Background()

	assert.True(t, chain.Execute(ctx, playAt(10)).Accepted)
	assert.Equal(t, "before_hour", chain.Execute(ctx, playAt(3)).Code)

	blank := playAt(10)
	blank.Title = ""
	assert.Equal(t, "missing_metadata", chain.Execute(ctx, blank).Code)
}

func TestChain_Empty(t *testing.T) {
	assert.True(t, NewChain().Execute(context.Background(), playAt(1)).Accepted)
}

func TestNewChainFromConfig(t *testing.T) {
	hour := 7
	cfg := &config.Config{
		Sync: config.SyncConfig{
			SkipBeforeHour: &hour,
			Filters: map[string]config.FilterConfig{
				"require_metadata": {Enabled: true},
				"exclude_artists": {
					Enabled:  true,
					Settings: map[string]any{"artists": []any{"Jingle"}},
				},
				"disabled_one": {Enabled: false},
			},
		},
	}

	chain, err := NewChainFromConfig(cfg)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, f := range chain.Filters() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"skip_before_hour", "exclude_artists", "require_metadata"}, names)
}

func TestNewChainFromConfig_UnknownFilter(t *testing.T) {
	cfg := &config.Config{
		Sync: config.SyncConfig{
			Filters: map[string]config.FilterConfig{
				"no_such_filter": {Enabled: true},
			},
		},
	}

	_, err := NewChainFromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_filter")
}

func TestGetRegistered(t *testing.T) {
	registered := GetRegistered()
	for _, name := range []string{"skip_before_hour", "exclude_artists", "require_metadata"} {
		factory, ok := registered[name]
		require.True(t, ok, name)
		assert.Equal(t, name, factory().Name())
	}
}
