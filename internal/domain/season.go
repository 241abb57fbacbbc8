package domain

import (
	"fmt"
	"sort"
	"time"
)

// SeasonPoint is one day on the cumulative winter tracker: the day's heating
// demand and the season-to-date accumulation against the accumulated normal.
type SeasonPoint struct {
	Date         Date    `json:"date"`
	HDD          float64 `json:"hdd"`
	CumHDD       float64 `json:"cum_hdd"`
	CumNormalHDD float64 `json:"cum_normal_hdd"`
	// Weighted reports whether the day's HDD came from the demand-weighted
	// series rather than the simple one.
	Weighted bool `json:"weighted"`
}

// SeasonCurve is the season report payload: one winter's cumulative track.
type SeasonCurve struct {
	StartYear int           `json:"start_year"`
	Points    []SeasonPoint `json:"points"`
}

// SeasonStartYear maps a date to the start year of the heating season
// containing it: November and December belong to that year's season, January
// through March to the previous year's. Dates outside the window return
// false.
func SeasonStartYear(d Date) (int, bool) {
	switch d.Month() {
	case time.November, time.December:
		return d.Year(), true
	case time.January, time.February, time.March:
		return d.Year() - 1, true
	default:
		return 0, false
	}
}

// SeasonAccumulation builds the cumulative heating-season curve for the
// winter starting November 1 of startYear and ending March 31 of the next
// year. Each day uses the demand-weighted HDD when the record carries one
// and the simple HDD otherwise; the Weighted flag preserves which was used.
// Duplicate dates keep the record from the latest run.
//
// Returns ErrInsufficientHistory when no records fall inside the window.
func SeasonAccumulation(records []DegreeDayRecord, normals *NormalSet, startYear int) ([]SeasonPoint, error) {
	start := NewDate(startYear, time.November, 1)
	end := NewDate(startYear+1, time.March, 31)

	byDate := make(map[string]DegreeDayRecord)
	for _, rec := range records {
		if rec.Date.Before(start) || end.Before(rec.Date) {
			continue
		}
		key := rec.Date.String()
		if prev, ok := byDate[key]; ok && rec.RunID <= prev.RunID {
			continue
		}
		byDate[key] = rec
	}
	if len(byDate) == 0 {
		return nil, fmt.Errorf("season %d/%d: no records in window: %w", startYear, startYear+1, ErrInsufficientHistory)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]SeasonPoint, 0, len(dates))
	var cumHDD, cumNorm float64
	for _, key := range dates {
		rec := byDate[key]
		p := SeasonPoint{Date: rec.Date, HDD: rec.HDD}
		if rec.WeightedHDD != nil {
			p.HDD = *rec.WeightedHDD
			p.Weighted = true
		}
		cumHDD += p.HDD
		if n, ok := normals.Lookup(rec.Date); ok {
			cumNorm += n.HDD
		}
		p.CumHDD = cumHDD
		p.CumNormalHDD = cumNorm
		points = append(points, p)
	}
	return points, nil
}
