package filter

import (
	"context"

	"github.com/osa030/radiosync/internal/domain/track"
)

// SkipBeforeHourConfig represents the configuration for SkipBeforeHourFilter.
type SkipBeforeHourConfig struct {
	Hour int `yaml:"hour" mapstructure:"hour" validate:"gte=0,lte=23"`
}

// SkipBeforeHourFilter rejects plays aired before a local hour of the day.
type SkipBeforeHourFilter struct {
	hour int
}

// NewSkipBeforeHourFilter creates a filter rejecting plays aired before hour:00.
func NewSkipBeforeHourFilter(hour int) *SkipBeforeHourFilter {
	return &SkipBeforeHourFilter{hour: hour}
}

func (f *SkipBeforeHourFilter) Name() string {
	return "skip_before_hour"
}

func (f *SkipBeforeHourFilter) Description() string {
	return "Skips songs aired before the configured hour of the day (station local time)"
}

func (f *SkipBeforeHourFilter) ReturnCodes() []string {
	return []string{"before_hour"}
}

func (f *SkipBeforeHourFilter) ValidateConfig(settings map[string]any) error {
	var config SkipBeforeHourConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.hour = config.Hour
	return nil
}

func (f *SkipBeforeHourFilter) Check(ctx context.Context, p track.Play) Result {
	if p.AiredAt.Hour() < f.hour {
		return Reject("before_hour")
	}
	return Accept()
}

func init() {
	Register("skip_before_hour", func() Filter {
		return &SkipBeforeHourFilter{}
	})
}
