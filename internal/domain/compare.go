package domain

import (
	"fmt"
	"time"
)

// Classification labels for anomaly results.
const (
	AboveNormal = "above-normal" // demand-positive
	BelowNormal = "below-normal"
	Neutral     = "neutral"
)

// Per-run trading signal labels derived from the averaged anomaly.
const (
	SignalBullish = "BULLISH"
	SignalBearish = "BEARISH"
	SignalNeutral = "NEUTRAL"
)

// Comparator scores degree-day records against seasonal baselines.
type Comparator struct {
	// WarmMonths is the month set where cooling demand governs the
	// anomaly; heating governs everywhere else. A policy constant, see
	// DefaultComparator.
	WarmMonths map[time.Month]bool

	// Deadband is the half-width of the neutral zone in degree days.
	// Non-zero so day-to-day noise does not flap the classification.
	Deadband float64
}

// DefaultComparator uses the June–August warm season and a 0.5 degree-day
// deadband.
func DefaultComparator() Comparator {
	return Comparator{
		WarmMonths: map[time.Month]bool{time.June: true, time.July: true, time.August: true},
		Deadband:   0.5,
	}
}

// Anomaly is one record's deviation from its baseline.
type Anomaly struct {
	Model string `json:"model"`
	RunID string `json:"run_id"`
	Date  Date   `json:"date"`

	HDDAnomaly float64 `json:"hdd_anomaly"`
	CDDAnomaly float64 `json:"cdd_anomaly"`
	// WeightedHDDAnomaly compares the weighted forecast against the
	// month-scaled baseline; nil when the record carries no weighted value.
	WeightedHDDAnomaly *float64 `json:"hdd_anomaly_weighted,omitempty"`

	// Dominant is the governing anomaly under the seasonal dominance rule.
	Dominant       float64 `json:"dominant_anomaly"`
	Classification string  `json:"classification"`
}

// Compare scores one record against its calendar-day baseline. Returns
// ErrNormalsUnavailable if the set has no entry for the record's day.
func (c Comparator) Compare(rec DegreeDayRecord, normals *NormalSet) (Anomaly, error) {
	n, ok := normals.Lookup(rec.Date)
	if !ok {
		return Anomaly{}, fmt.Errorf("%s %s: %w", rec.Model, rec.Date, ErrNormalsUnavailable)
	}

	a := Anomaly{
		Model:      rec.Model,
		RunID:      rec.RunID,
		Date:       rec.Date,
		HDDAnomaly: rec.HDD - n.HDD,
		CDDAnomaly: rec.CDD - n.CDD,
	}
	if rec.WeightedHDD != nil {
		wa := *rec.WeightedHDD - n.HDD*normals.ScaleFor(int(rec.Date.Month()))
		a.WeightedHDDAnomaly = &wa
	}

	a.Dominant = a.HDDAnomaly
	if c.WarmMonths[rec.Date.Month()] {
		a.Dominant = a.CDDAnomaly
	}
	a.Classification = c.classify(a.Dominant)
	return a, nil
}

func (c Comparator) classify(anomaly float64) string {
	switch {
	case anomaly > c.Deadband:
		return AboveNormal
	case anomaly < -c.Deadband:
		return BelowNormal
	default:
		return Neutral
	}
}

// RunSummary averages a whole run against its baselines.
type RunSummary struct {
	Model string `json:"model"`
	RunID string `json:"run_id"`
	Days  int    `json:"days"`

	ForecastHDDAvg float64 `json:"forecast_hdd_avg"`
	NormalHDDAvg   float64 `json:"normal_hdd_avg"`
	ForecastCDDAvg float64 `json:"forecast_cdd_avg"`
	NormalCDDAvg   float64 `json:"normal_cdd_avg"`

	WeightedHDDAvg       *float64 `json:"forecast_hdd_avg_weighted,omitempty"`
	WeightedNormalHDDAvg *float64 `json:"normal_hdd_avg_weighted,omitempty"`

	VsNormalHDD         float64  `json:"vs_normal_hdd"`
	VsNormalCDD         float64  `json:"vs_normal_cdd"`
	VsNormalHDDWeighted *float64 `json:"vs_normal_hdd_weighted,omitempty"`

	Signal string `json:"signal"`
}

// Summarize averages one run's records against normals and derives the
// trading signal from the simple HDD anomaly. Days without a baseline are
// excluded from the averages; if none match, ErrNormalsUnavailable is
// returned. Weighted averages appear only when every counted day carries a
// weighted value, so a partial weighting outage cannot produce a mixed
// average.
func (c Comparator) Summarize(records []DegreeDayRecord, normals *NormalSet) (RunSummary, error) {
	if len(records) == 0 {
		return RunSummary{}, fmt.Errorf("summarize: %w", ErrInsufficientHistory)
	}

	s := RunSummary{Model: records[0].Model, RunID: records[0].RunID}
	var sumHDD, sumNormHDD, sumCDD, sumNormCDD float64
	var sumWHDD, sumWNormHDD float64
	weightedComplete := true

	for _, rec := range records {
		n, ok := normals.Lookup(rec.Date)
		if !ok {
			continue
		}
		s.Days++
		sumHDD += rec.HDD
		sumNormHDD += n.HDD
		sumCDD += rec.CDD
		sumNormCDD += n.CDD

		if rec.WeightedHDD == nil {
			weightedComplete = false
			continue
		}
		sumWHDD += *rec.WeightedHDD
		sumWNormHDD += n.HDD * normals.ScaleFor(int(rec.Date.Month()))
	}
	if s.Days == 0 {
		return RunSummary{}, fmt.Errorf("summarize %s %s: %w", s.Model, s.RunID, ErrNormalsUnavailable)
	}

	days := float64(s.Days)
	s.ForecastHDDAvg = sumHDD / days
	s.NormalHDDAvg = sumNormHDD / days
	s.ForecastCDDAvg = sumCDD / days
	s.NormalCDDAvg = sumNormCDD / days
	s.VsNormalHDD = s.ForecastHDDAvg - s.NormalHDDAvg
	s.VsNormalCDD = s.ForecastCDDAvg - s.NormalCDDAvg

	if weightedComplete {
		whddAvg := sumWHDD / days
		wnormAvg := sumWNormHDD / days
		vs := whddAvg - wnormAvg
		s.WeightedHDDAvg = &whddAvg
		s.WeightedNormalHDDAvg = &wnormAvg
		s.VsNormalHDDWeighted = &vs
	}

	switch {
	case s.VsNormalHDD > c.Deadband:
		s.Signal = SignalBullish
	case s.VsNormalHDD < -c.Deadband:
		s.Signal = SignalBearish
	default:
		s.Signal = SignalNeutral
	}
	return s, nil
}
