package filter

import (
	"context"
	"strings"

	"github.com/osa030/radiosync/internal/domain/track"
)

// ExcludeArtistsConfig represents the configuration for ExcludeArtistsFilter.
type ExcludeArtistsConfig struct {
	Artists []string `yaml:"artists" mapstructure:"artists" validate:"required,min=1,dive,required"`
}

// ExcludeArtistsFilter rejects plays by listed artists, e.g. station idents.
type ExcludeArtistsFilter struct {
	artists []string
}

func (f *ExcludeArtistsFilter) Name() string {
	return "exclude_artists"
}

func (f *ExcludeArtistsFilter) Description() string {
	return "Skips songs by the listed artists (case-insensitive)"
}

func (f *ExcludeArtistsFilter) ReturnCodes() []string {
	return []string{"excluded_artist"}
}

func (f *ExcludeArtistsFilter) ValidateConfig(settings map[string]any) error {
	var config ExcludeArtistsConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.artists = config.Artists
	return nil
}

func (f *ExcludeArtistsFilter) Check(ctx context.Context, p track.Play) Result {
	for _, a := range f.artists {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(p.Artist)) {
			return Reject("excluded_artist")
		}
	}
	return Accept()
}

func init() {
	Register("exclude_artists", func() Filter {
		return &ExcludeArtistsFilter{}
	})
}
