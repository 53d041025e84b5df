package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Swap(t *testing.T) {
	cache := NewEmptyCache[string, int]()

	view := cache.View()
	assert.Equal(t, 0, view.Len())
	assert.True(t, view.UpdatedAt().IsZero())

	cache.Swap(map[string]int{"eth1": 3, "eth0": 2, "lo": 1})

	// Previously obtained views keep their snapshot.
	assert.Equal(t, 0, view.Len())

	view = cache.View()
	require.Equal(t, 3, view.Len())
	assert.Equal(t, []string{"eth0", "eth1", "lo"}, view.Keys())
	assert.False(t, view.UpdatedAt().IsZero())

	idx, ok := view.Lookup("eth0")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = view.Lookup("doesnotexist0")
	assert.False(t, ok)
}
