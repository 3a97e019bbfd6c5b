package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

type BoundingBox struct {
	Min Coordinate `json:"min"`
	Max Coordinate `json:"max"`
}

func toLatLng(c Coordinate) s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lon)
}

func fromLatLng(ll s2.LatLng) Coordinate {
	return NewCoordinate(ll.Lat.Degrees(), ll.Lng.Degrees())
}

// BoundsOf returns the smallest lat/lon rectangle containing every coordinate.
func BoundsOf(coords ...Coordinate) (BoundingBox, bool) {
	if len(coords) == 0 {
		return BoundingBox{}, false
	}
	rect := s2.EmptyRect()
	for _, c := range coords {
		rect = rect.AddPoint(toLatLng(c))
	}
	return BoundingBox{Min: fromLatLng(rect.Lo()), Max: fromLatLng(rect.Hi())}, true
}

func (b BoundingBox) Center() Coordinate {
	return fromLatLng(b.rect().Center())
}

func (b BoundingBox) rect() s2.Rect {
	return s2.RectFromLatLng(toLatLng(b.Min)).AddPoint(toLatLng(b.Max))
}

// DistanceKmTo is the great-circle distance from c to the closest point of the box.
// It is zero when c lies inside the box.
func (b BoundingBox) DistanceKmTo(c Coordinate) float64 {
	return angleToKm(b.rect().DistanceToLatLng(toLatLng(c)))
}

func angleToKm(a s1.Angle) float64 {
	return a.Radians() * earthRadiusKM
}
