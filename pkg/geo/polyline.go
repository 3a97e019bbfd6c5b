package geo

import (
	"github.com/twpayne/go-polyline"
)

// PolylineFromCoords encodes coords with the Google polyline algorithm (precision 5).
func PolylineFromCoords(coords []Coordinate) string {
	pts := make([][]float64, len(coords))
	for i, c := range coords {
		pts[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(pts))
}

func CoordsFromPolyline(encoded string) ([]Coordinate, error) {
	pts, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	coords := make([]Coordinate, 0, len(pts))
	for _, p := range pts {
		coords = append(coords, NewCoordinate(p[0], p[1]))
	}
	return coords, nil
}
