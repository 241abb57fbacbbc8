package demand

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"github.com/weatherdesk/degreeday/internal/grid"
)

// ErrConfig reports a build-time misconfiguration of the weight grid: empty
// region set, non-positive resolution or bandwidth, inverted bounds. These
// indicate broken static artifacts and are fatal to the caller.
var ErrConfig = errors.New("invalid weight grid configuration")

// GridSpec declares the target raster and kernel bandwidths for a weight
// grid build. The bounding box doubles as the aggregation domain: cells
// outside it simply do not exist, so they never enter the normalization sum.
type GridSpec struct {
	LatMin, LatMax float64
	LonMin, LonMax float64 // 0-360 convention
	Resolution     float64 // degrees per cell, both axes

	// Kernel bandwidths in degrees. The lon bandwidth is wider than the
	// lat bandwidth because demand centers elongate east-west along
	// population corridors.
	SigmaLat float64
	SigmaLon float64
}

// DefaultGridSpec is the CONUS quarter-degree grid with a roughly 250-300 km
// kernel, matching the persisted artifact the aggregator expects.
func DefaultGridSpec() GridSpec {
	return GridSpec{
		LatMin: 25.0, LatMax: 50.0,
		LonMin: 235.0, LonMax: 295.0,
		Resolution: 0.25,
		SigmaLat:   2.5,
		SigmaLon:   3.0,
	}
}

// Domain returns the grid spec's bounding box as a crop rectangle.
func (s GridSpec) Domain() s2.Rect {
	return grid.RectFromDegrees(s.LatMin, s.LonMin, s.LatMax, s.LonMax)
}

func (s GridSpec) validate() error {
	if s.Resolution <= 0 {
		return fmt.Errorf("%w: resolution %g", ErrConfig, s.Resolution)
	}
	if s.SigmaLat <= 0 || s.SigmaLon <= 0 {
		return fmt.Errorf("%w: kernel bandwidths (%g, %g)", ErrConfig, s.SigmaLat, s.SigmaLon)
	}
	if s.LatMax <= s.LatMin || s.LonMax <= s.LonMin {
		return fmt.Errorf("%w: inverted bounds", ErrConfig)
	}
	return nil
}

// Axes materializes the grid spec's coordinate axes, endpoints inclusive.
func (s GridSpec) Axes() (lats, lons []float64) {
	return spanAxis(s.LatMin, s.LatMax, s.Resolution), spanAxis(s.LonMin, s.LonMax, s.Resolution)
}

func spanAxis(lo, hi, step float64) []float64 {
	n := int((hi-lo)/step+1e-9) + 1
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = lo + step*float64(i)
	}
	return axis
}

// Build spreads each region's intensity across the grid with a 2-D
// anisotropic Gaussian kernel centered on the region centroid, then
// normalizes so the grid sums to exactly 1. Regions are accumulated in slice
// order and cells in axis order, so identical inputs produce bit-identical
// grids.
func Build(regions []Region, spec GridSpec) (*grid.Grid, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: empty region set, normalization undefined", ErrConfig)
	}

	lats, lons := spec.Axes()
	values := make([][]float64, len(lats))
	for i := range values {
		values[i] = make([]float64, len(lons))
	}

	twoSigLat := 2 * spec.SigmaLat * spec.SigmaLat
	twoSigLon := 2 * spec.SigmaLon * spec.SigmaLon
	for _, r := range regions {
		w := r.Intensity()
		if w == 0 {
			continue
		}
		// Region tables may use either longitude convention; the axis is
		// always 0-360, so bring the centroid onto it before differencing.
		rlon := grid.NormalizeLon(r.Lon)
		for i, lat := range lats {
			dlat := lat - r.Lat
			latTerm := dlat * dlat / twoSigLat
			for j, lon := range lons {
				dlon := lon - rlon
				values[i][j] += w * math.Exp(-(latTerm + dlon*dlon/twoSigLon))
			}
		}
	}

	var total float64
	for _, row := range values {
		for _, v := range row {
			total += v
		}
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: all region intensities are zero", ErrConfig)
	}
	for _, row := range values {
		for j := range row {
			row[j] /= total
		}
	}

	return grid.New(lats, lons, values)
}
