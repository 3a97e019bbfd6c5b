package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	sf := NewCoordinate(37.7749, -122.4194)
	mission := NewCoordinate(37.7648, -122.4450)

	d := DistanceKm(sf, mission)
	assert.GreaterOrEqual(t, d, 2.4)
	assert.LessOrEqual(t, d, 2.6)

	points := []Coordinate{
		sf, mission,
		NewCoordinate(0, 0),
		NewCoordinate(90, 0),
		NewCoordinate(-90, 180),
		NewCoordinate(-7.797068, 110.370529),
		NewCoordinate(51.5072, -0.1276),
	}
	for _, a := range points {
		assert.Equal(t, 0.0, DistanceKm(a, a), "distance to itself %v", a)
		for _, b := range points {
			assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9)
		}
	}

	// antipodal points are half the circumference apart
	assert.InDelta(t, math.Pi*earthRadiusKM, DistanceKm(NewCoordinate(0, 0), NewCoordinate(0, 180)), 1e-6)
}

func TestEstimateTravelTime(t *testing.T) {
	testCases := []struct {
		name       string
		distanceKm float64
		want       string
	}{
		{name: "zero", distanceKm: 0, want: "Less than 1 min"},
		{name: "under a minute", distanceKm: 0.4, want: "Less than 1 min"},
		{name: "one km", distanceKm: 1, want: "2 mins"},
		{name: "ten km", distanceKm: 10, want: "20 mins"},
		{name: "rounds up to an hour", distanceKm: 29.9, want: "1 hr 0 mins"},
		{name: "exactly one hour", distanceKm: 30, want: "1 hr 0 mins"},
		{name: "one and a half hours", distanceKm: 45, want: "1 hr 30 mins"},
		{name: "one minute past", distanceKm: 30.5, want: "1 hr 1 min"},
		{name: "two hours", distanceKm: 61, want: "2 hrs 2 mins"},
		{name: "carry into hour", distanceKm: 59.99, want: "2 hrs 0 mins"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTravelTime(tt.distanceKm))
		})
	}
}

func TestCoordinateValid(t *testing.T) {
	testCases := []struct {
		name  string
		c     Coordinate
		valid bool
	}{
		{name: "origin", c: NewCoordinate(0, 0), valid: true},
		{name: "corners", c: NewCoordinate(-90, 180), valid: true},
		{name: "lat too big", c: NewCoordinate(90.0001, 0), valid: false},
		{name: "lon too small", c: NewCoordinate(0, -180.5), valid: false},
		{name: "nan", c: NewCoordinate(math.NaN(), 0), valid: false},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.c.Valid())
		})
	}
}

func TestInterpolateAndMidPoint(t *testing.T) {
	from := NewCoordinate(0, 0)
	to := NewCoordinate(3, -6)

	assert.Equal(t, from, Interpolate(from, to, 0))
	assert.Equal(t, to, Interpolate(from, to, 1))
	assert.Equal(t, NewCoordinate(1.5, -3), Interpolate(from, to, 0.5))
	assert.Equal(t, NewCoordinate(1.5, -3), MidPoint(from, to))

	c, ok := Center([]Coordinate{from, to, NewCoordinate(3, 0)})
	require.True(t, ok)
	assert.InDelta(t, 2.0, c.Lat, 1e-12)
	assert.InDelta(t, -2.0, c.Lon, 1e-12)

	_, ok = Center(nil)
	assert.False(t, ok)
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0.0, Bearing(NewCoordinate(0, 0), NewCoordinate(1, 0)), 1e-9)
	assert.InDelta(t, 90.0, Bearing(NewCoordinate(0, 0), NewCoordinate(0, 1)), 1e-9)
	assert.InDelta(t, 180.0, Bearing(NewCoordinate(1, 0), NewCoordinate(0, 0)), 1e-9)
	assert.InDelta(t, 270.0, Bearing(NewCoordinate(0, 1), NewCoordinate(0, 0)), 1e-9)
}
