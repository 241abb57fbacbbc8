package domain

import (
	"fmt"
	"sort"
)

// DeltaEntry is one overlapping date's change between two runs.
type DeltaEntry struct {
	Date   Date    `json:"date"`
	Latest float64 `json:"hdd_latest"`
	Prev   float64 `json:"hdd_prev"`
	Delta  float64 `json:"hdd_delta"`
	// WeightedDelta is present only when both runs carry a weighted value
	// for this date.
	WeightedDelta *float64 `json:"hdd_delta_weighted,omitempty"`
}

// RunDelta is the day-by-day and aggregate HDD change between the two most
// recent runs of one model, restricted to the dates both runs forecast.
type RunDelta struct {
	Model     string       `json:"model"`
	LatestRun string       `json:"run_latest"`
	PrevRun   string       `json:"run_prev"`
	Entries   []DeltaEntry `json:"entries"`
	// Total is the sum of per-date deltas over the overlap window only;
	// totals over different-length horizons are never compared.
	Total float64 `json:"hdd_delta_total"`
	// WeightedTotal sums the weighted deltas when every overlap date has
	// one; nil otherwise.
	WeightedTotal *float64 `json:"hdd_delta_total_weighted,omitempty"`
}

// ComputeRunDelta diffs the two most recent runs found in one model's
// records. Run recency follows the lexicographic order of run identifiers
// (chronological by construction, cycle hour breaking same-day ties).
//
// Returns ErrInsufficientHistory with fewer than two runs and
// ErrInsufficientOverlap when the runs share no dates.
func ComputeRunDelta(records []DegreeDayRecord) (RunDelta, error) {
	if len(records) == 0 {
		return RunDelta{}, fmt.Errorf("run delta: %w", ErrInsufficientHistory)
	}
	model := records[0].Model

	byRun := make(map[string]map[string]DegreeDayRecord)
	for _, rec := range records {
		if rec.Model != model {
			return RunDelta{}, fmt.Errorf("run delta: mixed models %s and %s", model, rec.Model)
		}
		dates, ok := byRun[rec.RunID]
		if !ok {
			dates = make(map[string]DegreeDayRecord)
			byRun[rec.RunID] = dates
		}
		dates[rec.Date.String()] = rec
	}
	if len(byRun) < 2 {
		return RunDelta{}, fmt.Errorf("run delta %s: %d run(s): %w", model, len(byRun), ErrInsufficientHistory)
	}

	runs := make([]string, 0, len(byRun))
	for id := range byRun {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	latestID, prevID := runs[len(runs)-1], runs[len(runs)-2]
	latest, prev := byRun[latestID], byRun[prevID]

	overlap := make([]string, 0, len(latest))
	for date := range latest {
		if _, ok := prev[date]; ok {
			overlap = append(overlap, date)
		}
	}
	if len(overlap) == 0 {
		return RunDelta{}, fmt.Errorf("run delta %s (%s vs %s): %w", model, latestID, prevID, ErrInsufficientOverlap)
	}
	sort.Strings(overlap)

	out := RunDelta{Model: model, LatestRun: latestID, PrevRun: prevID}
	weightedComplete := true
	var weightedTotal float64
	for _, date := range overlap {
		l, p := latest[date], prev[date]
		entry := DeltaEntry{
			Date:   l.Date,
			Latest: l.HDD,
			Prev:   p.HDD,
			Delta:  l.HDD - p.HDD,
		}
		if l.WeightedHDD != nil && p.WeightedHDD != nil {
			wd := *l.WeightedHDD - *p.WeightedHDD
			entry.WeightedDelta = &wd
			weightedTotal += wd
		} else {
			weightedComplete = false
		}
		out.Total += entry.Delta
		out.Entries = append(out.Entries, entry)
	}
	if weightedComplete {
		out.WeightedTotal = &weightedTotal
	}
	return out, nil
}
