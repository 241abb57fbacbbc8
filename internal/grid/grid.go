// Package grid provides regular latitude/longitude rasters and the
// resampling primitives the degree-day engine is built on. A Grid pairs two
// monotonic coordinate axes with a 2-D value array; all downstream math
// (weight spreading, cropping, spatial means) operates on this one type.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// ErrAxis reports malformed coordinate axes: empty, non-monotonic, or
// mismatched against the value array. Wrapped by the constructors; callers
// detect it with errors.Is.
var ErrAxis = errors.New("malformed grid axis")

// Grid is a 2-D raster indexed by ascending latitude and longitude axes.
// Values[i][j] is the cell at (Lats[i], Lons[j]). Longitudes use the 0-360
// convention so CONUS stays contiguous. A Grid is immutable once built and
// safe for concurrent reads.
type Grid struct {
	Lats   []float64
	Lons   []float64
	Values [][]float64
}

// New validates axes against the value array and canonicalizes the raster:
// longitudes are mapped to 0-360 and a descending latitude axis (common in
// model output, which scans north to south) is flipped to ascending along
// with its rows. Returns ErrAxis if either axis is empty or not strictly
// monotonic after canonicalization.
func New(lats, lons []float64, values [][]float64) (*Grid, error) {
	if len(lats) == 0 || len(lons) == 0 {
		return nil, fmt.Errorf("%w: empty axis (lats=%d lons=%d)", ErrAxis, len(lats), len(lons))
	}
	if len(values) != len(lats) {
		return nil, fmt.Errorf("%w: %d rows for %d latitudes", ErrAxis, len(values), len(lats))
	}
	for i, row := range values {
		if len(row) != len(lons) {
			return nil, fmt.Errorf("%w: row %d has %d cells for %d longitudes", ErrAxis, i, len(row), len(lons))
		}
	}

	g := &Grid{
		Lats:   append([]float64(nil), lats...),
		Lons:   make([]float64, len(lons)),
		Values: make([][]float64, len(values)),
	}
	for i, row := range values {
		g.Values[i] = append([]float64(nil), row...)
	}
	for j, lon := range lons {
		g.Lons[j] = NormalizeLon(lon)
	}

	if descending(g.Lats) {
		reverse(g.Lats)
		reverseRows(g.Values)
	}
	if !ascending(g.Lats) {
		return nil, fmt.Errorf("%w: latitude axis not monotonic", ErrAxis)
	}
	if !ascending(g.Lons) {
		return nil, fmt.Errorf("%w: longitude axis not monotonic", ErrAxis)
	}
	return g, nil
}

// Uniform builds a grid with every cell set to v. Used by tests and by the
// weight builder as an accumulation target.
func Uniform(lats, lons []float64, v float64) (*Grid, error) {
	values := make([][]float64, len(lats))
	for i := range values {
		row := make([]float64, len(lons))
		for j := range row {
			row[j] = v
		}
		values[i] = row
	}
	return New(lats, lons, values)
}

// Sum returns the total of all cell values.
func (g *Grid) Sum() float64 {
	var total float64
	for _, row := range g.Values {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Mean returns the arithmetic mean over all cells.
func (g *Grid) Mean() float64 {
	n := len(g.Lats) * len(g.Lons)
	if n == 0 {
		return 0
	}
	return g.Sum() / float64(n)
}

// Crop returns the sub-grid whose cell centers fall inside the bounding
// rectangle. Returns ErrAxis if no cells fall inside. The result shares no
// storage with the receiver.
func (g *Grid) Crop(domain s2.Rect) (*Grid, error) {
	latLo, latHi := axisRange(g.Lats, func(v float64) bool {
		return domain.Lat.Contains(v * degToRad)
	})
	lonLo, lonHi := axisRange(g.Lons, func(v float64) bool {
		return domain.Lng.Contains(lonTo180(v) * degToRad)
	})
	if latLo > latHi || lonLo > lonHi {
		return nil, fmt.Errorf("%w: crop window %v contains no grid cells", ErrAxis, domain)
	}

	lats := append([]float64(nil), g.Lats[latLo:latHi+1]...)
	lons := append([]float64(nil), g.Lons[lonLo:lonHi+1]...)
	values := make([][]float64, len(lats))
	for i := range lats {
		values[i] = append([]float64(nil), g.Values[latLo+i][lonLo:lonHi+1]...)
	}
	return &Grid{Lats: lats, Lons: lons, Values: values}, nil
}

const degToRad = math.Pi / 180

// RectFromDegrees builds a lat/lon bounding rectangle from corner
// coordinates in degrees. Longitudes may use either the 0-360 or the
// -180..180 convention.
func RectFromDegrees(latLo, lonLo, latHi, lonHi float64) s2.Rect {
	r := s2.RectFromLatLng(s2.LatLngFromDegrees(latLo, lonTo180(NormalizeLon(lonLo))))
	return r.AddPoint(s2.LatLngFromDegrees(latHi, lonTo180(NormalizeLon(lonHi))))
}

// axisRange returns the inclusive index interval of axis values accepted by
// inside. Axes are monotonic so the accepted set is contiguous.
func axisRange(axis []float64, inside func(float64) bool) (lo, hi int) {
	lo, hi = len(axis), -1
	for i, v := range axis {
		if !inside(v) {
			continue
		}
		if i < lo {
			lo = i
		}
		hi = i
	}
	return lo, hi
}

// NormalizeLon maps a longitude to [0, 360).
func NormalizeLon(lon float64) float64 {
	for lon < 0 {
		lon += 360
	}
	for lon >= 360 {
		lon -= 360
	}
	return lon
}

// lonTo180 maps a 0-360 longitude to (-180, 180] for s2 interval checks.
func lonTo180(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	return lon
}

func ascending(axis []float64) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return false
		}
	}
	return true
}

func descending(axis []float64) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i] >= axis[i-1] {
			return false
		}
	}
	return len(axis) > 1
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseRows(rows [][]float64) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
