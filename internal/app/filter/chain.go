package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiosync/internal/domain/track"
	"github.com/osa030/radiosync/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the play.
func (c *Chain) Execute(ctx context.Context, p track.Play) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, p)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// NewChainFromConfig creates a filter chain from configuration.
// The top-level skip_before_hour option comes first, followed by the
// enabled entries of sync.filters in name order.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	chain := NewChain()

	if cfg.Sync.SkipBeforeHour != nil {
		chain.Add(NewSkipBeforeHourFilter(*cfg.Sync.SkipBeforeHour))
		zlog.Info().Msgf("skipping songs aired before %02d:00", *cfg.Sync.SkipBeforeHour)
	}

	names := make([]string, 0, len(cfg.Sync.Filters))
	for name := range cfg.Sync.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fcfg := cfg.Sync.Filters[name]
		if !fcfg.Enabled {
			continue
		}

		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}

		f := factory()
		if err := f.ValidateConfig(fcfg.Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
		zlog.Debug().Msgf("registered play filter: name=%s settings=%+v", name, fcfg.Settings)
	}

	return chain, nil
}
