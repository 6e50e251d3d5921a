package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
	"github.com/osa030/tracklist/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// Rejection records a track dropped from a tracklist.
type Rejection struct {
	Track track.Track
	Code  string
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds a chain from the enabled filters, in name order.
func NewChainFromConfig(cfgs map[string]config.FilterConfig) (*Chain, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	chain := NewChain()
	for _, name := range names {
		cfg := cfgs[name]
		if !cfg.Enabled {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter %q", name)
		}
		f := factory()
		if err := f.ValidateConfig(cfg.Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Track, kept []track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, t, kept)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply returns a copy of p keeping only the accepted tracks, along with the
// rejected ones. p is not modified.
func (c *Chain) Apply(ctx context.Context, p *playlist.Playlist) (*playlist.Playlist, []Rejection) {
	out := *p
	if len(c.filters) == 0 {
		out.Tracks = append([]track.Track(nil), p.Tracks...)
		return &out, nil
	}

	var rejected []Rejection
	out.Tracks = make([]track.Track, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		result := c.Execute(ctx, t, out.Tracks)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: dropped track: name=%s code=%s", t.Name, result.Code)
			rejected = append(rejected, Rejection{Track: t, Code: result.Code})
			continue
		}
		out.Tracks = append(out.Tracks, t)
	}
	if len(rejected) > 0 {
		zlog.Info().Msgf("filter: playlist %s: kept %d of %d tracks", p.Name, len(out.Tracks), len(p.Tracks))
	}
	return &out, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
