package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_IsAvailableInMarket(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		markets    []string
		isPlayable *bool
		market     string
		expected   bool
	}{
		{
			name:     "available in market using markets list",
			markets:  []string{"JP", "US", "UK"},
			market:   "JP",
			expected: true,
		},
		{
			name:     "not available in market using markets list",
			markets:  []string{"US", "UK"},
			market:   "JP",
			expected: false,
		},
		{
			name:       "isPlayable true takes precedence",
			markets:    []string{"US"},
			isPlayable: &trueVal,
			market:     "JP",
			expected:   true,
		},
		{
			name:       "isPlayable false takes precedence",
			markets:    []string{"JP", "US"},
			isPlayable: &falseVal,
			market:     "JP",
			expected:   false,
		},
		{
			name:     "empty markets list",
			markets:  []string{},
			market:   "JP",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := &Track{
				ID:         "test-id",
				Markets:    tt.markets,
				IsPlayable: tt.isPlayable,
			}

			assert.Equal(t, tt.expected, track.IsAvailableInMarket(tt.market))
		})
	}
}

func TestTrack_Equal(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Track
		expected bool
	}{
		{
			name:     "same ID different metadata",
			a:        Track{ID: "abc", Name: "Song"},
			b:        Track{ID: "abc", Name: "Song - Remastered", Duration: time.Minute},
			expected: true,
		},
		{
			name:     "different ID",
			a:        Track{ID: "abc"},
			b:        Track{ID: "def"},
			expected: false,
		},
		{
			name:     "URI fallback",
			a:        Track{URI: "spotify:track:abc"},
			b:        Track{URI: "spotify:track:abc"},
			expected: true,
		},
		{
			name:     "both empty",
			a:        Track{},
			b:        Track{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Equal(tt.b))
			assert.Equal(t, tt.expected, tt.b.Equal(tt.a))
		})
	}
}

func TestTrack_PlaybackURI(t *testing.T) {
	assert.Equal(t, "spotify:track:abc", Track{ID: "abc"}.PlaybackURI())
	assert.Equal(t, "spotify:episode:x", Track{ID: "abc", URI: "spotify:episode:x"}.PlaybackURI())
}

func TestIndexOf(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, 1, IndexOf(tracks, Track{ID: "b"}))
	assert.Equal(t, -1, IndexOf(tracks, Track{ID: "z"}))
	assert.Equal(t, -1, IndexOf(nil, Track{ID: "a"}))
}
