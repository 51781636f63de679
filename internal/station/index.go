// Package station holds the fixed rail station table and answers
// nearest-station queries against it.
package station

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/weijianneo/find-house/internal/model"
)

// ErrNoStations is returned when an index would be built from an empty table.
var ErrNoStations = eris.New("station: no stations loaded")

// Index is an immutable set of stations searched by brute force. It is safe
// for concurrent use.
type Index struct {
	stations []model.Station
	coords   []geom.Coord
}

// NewIndex builds an Index over stations in the given order. The slice is
// copied.
func NewIndex(stations []model.Station) (*Index, error) {
	if len(stations) == 0 {
		return nil, ErrNoStations
	}
	idx := &Index{
		stations: make([]model.Station, len(stations)),
		coords:   make([]geom.Coord, len(stations)),
	}
	copy(idx.stations, stations)
	for i, s := range idx.stations {
		idx.coords[i] = toCoord(s.Location)
	}
	return idx, nil
}

// Len returns the number of stations.
func (idx *Index) Len() int {
	return len(idx.stations)
}

// Stations returns a copy of the loaded stations in load order.
func (idx *Index) Stations() []model.Station {
	out := make([]model.Station, len(idx.stations))
	copy(out, idx.stations)
	return out
}

// Nearest returns the station closest to p and its distance, measured as
// plain Euclidean distance over raw latitude/longitude degrees. Ties resolve
// to the earliest station in load order. p must not be model.NotFound.
func (idx *Index) Nearest(p model.GeoPoint) (model.Station, float64) {
	target := toCoord(p)
	best, bestDist := 0, math.Inf(1)
	for i, c := range idx.coords {
		if d := xy.Distance(target, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return idx.stations[best], bestDist
}

func toCoord(p model.GeoPoint) geom.Coord {
	return geom.Coord{p.Lat, p.Lon}
}
