package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	t.Run("times square block", func(t *testing.T) {
		// Two points roughly a block apart in Manhattan.
		d := HaversineMeters(40.7580, -73.9855, 40.7589, -73.9851)
		assert.InDelta(t, 105, d, 10)
	})

	t.Run("zero distance", func(t *testing.T) {
		assert.Equal(t, 0.0, HaversineMeters(51.5, -0.12, 51.5, -0.12))
	})

	t.Run("symmetry", func(t *testing.T) {
		a := HaversineMeters(40.7580, -73.9855, 48.8566, 2.3522)
		b := HaversineMeters(48.8566, 2.3522, 40.7580, -73.9855)
		assert.InDelta(t, a, b, 1e-6)
	})

	t.Run("antimeridian neighbours are close", func(t *testing.T) {
		d := HaversineMeters(0, 179.9995, 0, -179.9995)
		assert.Less(t, d, 200.0)
	})

	t.Run("pole is stable", func(t *testing.T) {
		d := HaversineMeters(90, 0, 90, 137)
		assert.InDelta(t, 0, d, 1e-6)
	})

	t.Run("antipodal points are half the circumference", func(t *testing.T) {
		d := HaversineMeters(0, 0, 0, 180)
		assert.InDelta(t, 20015086, d, 1000)
	})
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(0, 0))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.True(t, ValidCoordinates(90, -180))
	assert.False(t, ValidCoordinates(90.0001, 0))
	assert.False(t, ValidCoordinates(-90.0001, 0))
	assert.False(t, ValidCoordinates(0, 180.0001))
	assert.False(t, ValidCoordinates(0, -180.0001))
}

func TestBoundingBox(t *testing.T) {
	t.Run("contains circle", func(t *testing.T) {
		minLat, maxLat, minLon, maxLon := BoundingBox(40.7580, -73.9855, 1000)
		assert.Less(t, minLat, 40.7580)
		assert.Greater(t, maxLat, 40.7580)
		assert.Less(t, minLon, -73.9855)
		assert.Greater(t, maxLon, -73.9855)

		// A point 900m due north stays inside the box.
		assert.Greater(t, maxLat-40.7580, 900.0/earthRadiusMeters*180/3.15)
	})

	t.Run("near pole covers all longitudes", func(t *testing.T) {
		_, maxLat, minLon, maxLon := BoundingBox(89.9999, 10, 50000)
		assert.Equal(t, 90.0, maxLat)
		assert.Equal(t, -180.0, minLon)
		assert.Equal(t, 180.0, maxLon)
	})
}

func TestDetourMeters(t *testing.T) {
	t.Run("waypoint on the line adds nothing", func(t *testing.T) {
		d := DetourMeters(0, 0, 0, 1, 0, 0.5)
		assert.InDelta(t, 0, d, 1)
	})

	t.Run("waypoint off the line adds detour", func(t *testing.T) {
		d := DetourMeters(0, 0, 0, 1, 0.1, 0.5)
		assert.Greater(t, d, 1000.0)
	})

	t.Run("never negative", func(t *testing.T) {
		assert.GreaterOrEqual(t, DetourMeters(0, 0, 0, 1, 0, 0.5), 0.0)
	})
}
