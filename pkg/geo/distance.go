package geo

import (
	"fmt"
	"math"

	"github.com/lintang-b-s/fleetmap/pkg/util"
)

type Coordinate struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

func (c Coordinate) GetLat() float64 {
	return c.Lat
}

func (c Coordinate) GetLon() float64 {
	return c.Lon
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

// Valid reports whether c is a finite coordinate inside [-90,90] x [-180,180].
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

const (
	earthRadiusKM = 6371.0

	// averageSpeedKMH is the speed assumed when estimating travel time between a pair.
	averageSpeedKMH = 30.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// CalculateHaversineDistance. calculate haversine distance in km
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = util.DegreeToRadians(latOne)
	longOne = util.DegreeToRadians(longOne)
	latTwo = util.DegreeToRadians(latTwo)
	longTwo = util.DegreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	// rounding can push a marginally above 1 for antipodal points
	a = util.Clamp(a, 0, 1)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// DistanceKm is the great-circle distance between a and b in km.
func DistanceKm(a, b Coordinate) float64 {
	return CalculateHaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// EstimateTravelTime formats the time needed to cover distanceKm at 30 km/h.
func EstimateTravelTime(distanceKm float64) string {
	hours := distanceKm / averageSpeedKMH
	if hours < 1.0/60.0 {
		return "Less than 1 min"
	}

	if hours < 1 {
		mins := int(math.Round(hours * 60))
		if mins < 60 {
			return fmt.Sprintf("%d mins", mins)
		}
		return formatHoursMinutes(1, 0)
	}

	h := int(math.Floor(hours))
	m := int(math.Round((hours - float64(h)) * 60))
	if m == 60 {
		h++
		m = 0
	}
	return formatHoursMinutes(h, m)
}

func formatHoursMinutes(h, m int) string {
	hrUnit := "hr"
	if h != 1 {
		hrUnit = "hrs"
	}
	minUnit := "min"
	if m != 1 {
		minUnit = "mins"
	}
	return fmt.Sprintf("%d %s %d %s", h, hrUnit, m, minUnit)
}

// MidPoint is the arithmetic midpoint of a and b, used to anchor pair labels.
func MidPoint(a, b Coordinate) Coordinate {
	return NewCoordinate((a.Lat+b.Lat)/2, (a.Lon+b.Lon)/2)
}

// Interpolate returns from + (to - from) * t on each axis.
func Interpolate(from, to Coordinate, t float64) Coordinate {
	return NewCoordinate(
		from.Lat+(to.Lat-from.Lat)*t,
		from.Lon+(to.Lon-from.Lon)*t,
	)
}

// Center is the mean of coords; ok is false for an empty set.
func Center(coords []Coordinate) (Coordinate, bool) {
	if len(coords) == 0 {
		return Coordinate{}, false
	}
	var sumLat, sumLon float64
	for _, c := range coords {
		sumLat += c.Lat
		sumLon += c.Lon
	}
	n := float64(len(coords))
	return NewCoordinate(sumLat/n, sumLon/n), true
}

func radToDeg(r float64) float64 {
	return 180.0 * r / math.Pi
}

// GetDestinationPoint returns the destination point given the starting point, bearing and distance
// dist in km
func GetDestinationPoint(lat1, lon1 float64, bearing float64, dist float64) (float64, float64) {

	dr := dist / earthRadiusKM

	bearing = util.DegreeToRadians(bearing)

	lat1 = util.DegreeToRadians(lat1)
	lon1 = util.DegreeToRadians(lon1)

	lat2Part1 := math.Sin(lat1) * math.Cos(dr)
	lat2Part2 := math.Cos(lat1) * math.Sin(dr) * math.Cos(bearing)

	lat2 := math.Asin(lat2Part1 + lat2Part2)

	lon2Part1 := math.Sin(bearing) * math.Sin(dr) * math.Cos(lat1)
	lon2Part2 := math.Cos(dr) - (math.Sin(lat1) * math.Sin(lat2))

	lon2 := lon1 + math.Atan2(lon2Part1, lon2Part2)

	return radToDeg(lat2), normalizeLongitude(radToDeg(lon2))
}

// normalizeLongitude. long in degree
func normalizeLongitude(long float64) float64 {
	return math.Mod((long+540), 360) - 180.0
}
