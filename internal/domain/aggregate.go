package domain

import (
	"fmt"
	"log/slog"

	"github.com/golang/geo/s2"

	"github.com/weatherdesk/degreeday/internal/grid"
)

// WeightSource serves the demand-weight grid resampled onto given axes,
// clamped non-negative and normalized to sum 1 over those axes.
// Implemented by demand.Weights; nil means no weight grid has been built.
type WeightSource interface {
	For(lats, lons []float64) (*grid.Grid, error)
}

// Means is the spatial reduction of one temperature field. Weighted is nil
// when no usable weight grid covered the field: explicitly unavailable, not
// zero and not a copy of Unweighted.
type Means struct {
	Unweighted float64
	Weighted   *float64
}

// AggregateField crops the field to the aggregation domain and reduces it to
// its unweighted and demand-weighted mean temperatures. Cropping happens
// before any averaging; a global field averaged uncropped would mix
// irrelevant geography into both means.
//
// Failures to obtain weights degrade to an unweighted-only result and are
// logged, not returned: a missing or non-overlapping weight grid must not
// reject the field.
func AggregateField(field TemperatureField, domainBox s2.Rect, weights WeightSource, logger *slog.Logger) (Means, error) {
	cropped, err := field.Temps.Crop(domainBox)
	if err != nil {
		return Means{}, fmt.Errorf("aggregate %s %s %s: %w", field.Model, field.RunID, field.Date, err)
	}

	means := Means{Unweighted: cropped.Mean()}
	if weights == nil {
		return means, nil
	}

	w, err := weights.For(cropped.Lats, cropped.Lons)
	if err != nil {
		logger.Warn("demand weighting unavailable, using unweighted mean only",
			"model", field.Model, "run_id", field.RunID, "date", field.Date.String(), "error", err)
		return means, nil
	}

	var weighted float64
	for i, row := range cropped.Values {
		for j, t := range row {
			weighted += t * w.Values[i][j]
		}
	}
	means.Weighted = &weighted
	return means, nil
}
