package domain

import "time"

// BaseTempF is the degree-day base temperature used throughout: 65 °F, the
// US gas-market convention.
const BaseTempF = 65.0

// DegreeDayRecord is one (model, run, date) row of the accumulated series.
// The triple is the primary key; the record store collapses exact duplicates.
// Weighted fields are nil when demand weighting was unavailable for the run,
// never copied from the unweighted values.
type DegreeDayRecord struct {
	Model string `json:"model"`
	RunID string `json:"run_id"`
	Date  Date   `json:"date"`

	MeanTemp float64 `json:"mean_temp"` // °F, unweighted spatial mean
	HDD      float64 `json:"hdd"`
	CDD      float64 `json:"cdd"`

	WeightedMeanTemp *float64 `json:"mean_temp_weighted,omitempty"`
	WeightedHDD      *float64 `json:"hdd_weighted,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// HeatingDegreeDays is max(base − temp, 0).
func HeatingDegreeDays(tempF float64) float64 {
	if d := BaseTempF - tempF; d > 0 {
		return d
	}
	return 0
}

// CoolingDegreeDays is max(temp − base, 0).
func CoolingDegreeDays(tempF float64) float64 {
	if d := tempF - BaseTempF; d > 0 {
		return d
	}
	return 0
}

// NewRecord derives a degree-day record from aggregated means. The weighted
// degree-day value is computed only when the weighted mean exists.
func NewRecord(model, runID string, date Date, means Means) DegreeDayRecord {
	rec := DegreeDayRecord{
		Model:      model,
		RunID:      runID,
		Date:       date,
		MeanTemp:   means.Unweighted,
		HDD:        HeatingDegreeDays(means.Unweighted),
		CDD:        CoolingDegreeDays(means.Unweighted),
		ComputedAt: clock.Now().UTC(),
	}
	if means.Weighted != nil {
		wm := *means.Weighted
		whdd := HeatingDegreeDays(wm)
		rec.WeightedMeanTemp = &wm
		rec.WeightedHDD = &whdd
	}
	return rec
}
