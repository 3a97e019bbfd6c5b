package spatialindex

import (
	"sort"

	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/tidwall/rtree"
)

// boxSlackKm keeps node distances a strict lower bound of the item distances below them
// despite the two being computed by different formulas.
const boxSlackKm = 1e-9

// Rtree indexes a list of coordinates by their position in the list.
type Rtree struct {
	tr     *rtree.RTreeG[int]
	coords []geo.Coordinate
}

type Neighbor struct {
	Index      int
	DistanceKm float64
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[int]
	return &Rtree{
		tr: &tr,
	}
}

// Build replaces the index content with coords; item i is reported back as Neighbor.Index i.
func (rt *Rtree) Build(coords []geo.Coordinate) {
	var tr rtree.RTreeG[int]
	rt.tr = &tr
	rt.coords = coords
	for i, c := range coords {
		p := [2]float64{c.Lon, c.Lat}
		rt.tr.Insert(p, p, i)
	}
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

/*
Nearest returns the k coordinates closest to q by haversine distance, closest first.
Equidistant candidates keep their input order, so the result only depends on the input
list and not on the tree shape.
*/
func (rt *Rtree) Nearest(q geo.Coordinate, k int) []Neighbor {
	if k <= 0 || rt.tr.Len() == 0 {
		return nil
	}

	results := make([]Neighbor, 0, k)
	rt.tr.Nearby(
		func(min, max [2]float64, data int, item bool) float64 {
			if item {
				return geo.DistanceKm(q, rt.coords[data])
			}
			box := geo.BoundingBox{
				Min: geo.NewCoordinate(min[1], min[0]),
				Max: geo.NewCoordinate(max[1], max[0]),
			}
			return box.DistanceKmTo(q) - boxSlackKm
		},
		func(min, max [2]float64, data int, dist float64) bool {
			if len(results) >= k && dist > results[k-1].DistanceKm {
				return false
			}
			results = append(results, Neighbor{Index: data, DistanceKm: dist})
			return true
		},
	)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Index < results[j].Index
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
