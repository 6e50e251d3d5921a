package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
	"github.com/osa030/tracklist/internal/infra/config"
)

func TestExplicitFilter_Check(t *testing.T) {
	f := &ExplicitFilter{}

	assert.True(t, f.Check(context.Background(), track.Track{ID: "clean"}, nil).Accepted)

	result := f.Check(context.Background(), track.Track{ID: "x", Explicit: true}, nil)
	assert.False(t, result.Accepted)
	assert.Equal(t, "explicit_content", result.Code)
}

func TestRegistry(t *testing.T) {
	registered := GetRegistered()
	for _, name := range []string{"duration_limit_filter", "duplicate_track_filter", "explicit_filter"} {
		factory, ok := registered[name]
		require.True(t, ok, name)
		f := factory()
		assert.Equal(t, name, f.Name())
		assert.NotEmpty(t, f.Description())
		assert.NotEmpty(t, f.ReturnCodes())
	}
}

func TestChain_Execute(t *testing.T) {
	chain := NewChain()
	assert.True(t, chain.Execute(context.Background(), track.Track{ID: "a"}, nil).Accepted)

	chain.Add(&ExplicitFilter{})
	chain.Add(NewDuplicateTrackFilter())
	assert.Len(t, chain.Filters(), 2)

	result := chain.Execute(context.Background(), track.Track{ID: "a", Explicit: true}, []track.Track{{ID: "a"}})
	assert.Equal(t, "explicit_content", result.Code, "first rejection wins")

	result = chain.Execute(context.Background(), track.Track{ID: "a"}, []track.Track{{ID: "a"}})
	assert.Equal(t, "duplicate_track", result.Code)
}

func TestChain_Apply(t *testing.T) {
	pl := &playlist.Playlist{
		ID:   "pl",
		Name: "Mix",
		Tracks: []track.Track{
			{ID: "1", Name: "Yesterday", Artists: []string{"The Beatles"}, Duration: 2 * time.Minute},
			{ID: "2", Name: "Yesterday - 2009 Remaster", Artists: []string{"The Beatles"}, Duration: 2 * time.Minute},
			{ID: "3", Name: "Interlude", Artists: []string{"Band"}, Duration: 20 * time.Second},
			{ID: "4", Name: "Song", Artists: []string{"Band"}, Duration: 3 * time.Minute},
			{ID: "1", Name: "Yesterday", Artists: []string{"The Beatles"}, Duration: 2 * time.Minute},
		},
	}

	chain, err := NewChainFromConfig(map[string]config.FilterConfig{
		"duplicate_track_filter": {Enabled: true},
		"duration_limit_filter":  {Enabled: true, Settings: map[string]any{"min_minutes": 1}},
		"explicit_filter":        {Enabled: false},
	})
	require.NoError(t, err)
	require.Len(t, chain.Filters(), 2)

	out, rejected := chain.Apply(context.Background(), pl)

	require.Len(t, out.Tracks, 2)
	assert.Equal(t, "1", out.Tracks[0].ID)
	assert.Equal(t, "4", out.Tracks[1].ID)
	assert.Equal(t, "Mix", out.Name)
	require.Len(t, rejected, 3)
	assert.Equal(t, "duplicate_track", rejected[0].Code)
	assert.Equal(t, "duration_limit_exceeded", rejected[1].Code)
	assert.Equal(t, "3", rejected[1].Track.ID)
	assert.Len(t, pl.Tracks, 5, "source playlist is untouched")
}

func TestChain_ApplyWithoutFilters(t *testing.T) {
	pl := &playlist.Playlist{ID: "pl", Tracks: []track.Track{{ID: "1"}, {ID: "1"}}}

	out, rejected := NewChain().Apply(context.Background(), pl)

	assert.Empty(t, rejected)
	assert.Equal(t, pl.Tracks, out.Tracks)
	out.Tracks[0].ID = "changed"
	assert.Equal(t, "1", pl.Tracks[0].ID)
}

func TestNewChainFromConfig_Errors(t *testing.T) {
	_, err := NewChainFromConfig(map[string]config.FilterConfig{
		"no_such_filter": {Enabled: true},
	})
	assert.Error(t, err)

	_, err = NewChainFromConfig(map[string]config.FilterConfig{
		"duration_limit_filter": {Enabled: true, Settings: map[string]any{"min_minutes": 5, "max_minutes": 2}},
	})
	assert.Error(t, err)

	chain, err := NewChainFromConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, chain.Filters())
}
