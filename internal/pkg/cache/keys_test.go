package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilder(t *testing.T) {
	t.Run("equal inputs produce equal keys", func(t *testing.T) {
		a, err := NewKeyBuilder("search").Add("lat", 40.7580).Add("lon", -73.9855).Build()
		require.NoError(t, err)
		b, err := NewKeyBuilder("search").Add("lat", 40.7580).Add("lon", -73.9855).Build()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("different inputs produce different keys", func(t *testing.T) {
		a, err := NewKeyBuilder("search").Add("lat", 40.7580).Build()
		require.NoError(t, err)
		b, err := NewKeyBuilder("search").Add("lat", 40.7581).Build()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("prefix is preserved", func(t *testing.T) {
		key, err := NewKeyBuilder("geocode").Add("lat", 1.0).Build()
		require.NoError(t, err)
		assert.Contains(t, key, "geocode:")
	})
}
