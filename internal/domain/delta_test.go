package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(model, runID string, date Date, hdd float64) DegreeDayRecord {
	return DegreeDayRecord{Model: model, RunID: runID, Date: date, HDD: hdd}
}

func TestComputeRunDelta_OverlapWindow(t *testing.T) {
	// Run A forecasts Mar 1-5 totalling 50 HDD, run B the same window
	// totalling 42: aggregate delta is -8 attributed to B vs A.
	var records []DegreeDayRecord
	aVals := []float64{12, 11, 10, 9, 8}  // 50
	bVals := []float64{10, 9, 8, 8, 7}    // 42
	for i := 0; i < 5; i++ {
		d := NewDate(2026, time.March, 1+i)
		records = append(records,
			rec("GFS", "20260228_12z", d, aVals[i]),
			rec("GFS", "20260301_00z", d, bVals[i]),
		)
	}

	delta, err := ComputeRunDelta(records)
	require.NoError(t, err)

	assert.Equal(t, "20260301_00z", delta.LatestRun)
	assert.Equal(t, "20260228_12z", delta.PrevRun)
	assert.Len(t, delta.Entries, 5)
	assert.InDelta(t, -8.0, delta.Total, 1e-9)
	assert.Equal(t, NewDate(2026, time.March, 1), delta.Entries[0].Date)
	assert.InDelta(t, -2.0, delta.Entries[0].Delta, 1e-9)
}

func TestComputeRunDelta_RestrictsToOverlap(t *testing.T) {
	// The newer run reaches three days further out; those days must not
	// enter the delta.
	records := []DegreeDayRecord{
		rec("ECMWF", "20260301_00z", NewDate(2026, time.March, 2), 10),
		rec("ECMWF", "20260301_00z", NewDate(2026, time.March, 3), 11),
		rec("ECMWF", "20260302_00z", NewDate(2026, time.March, 3), 9),
		rec("ECMWF", "20260302_00z", NewDate(2026, time.March, 4), 15),
		rec("ECMWF", "20260302_00z", NewDate(2026, time.March, 5), 15),
		rec("ECMWF", "20260302_00z", NewDate(2026, time.March, 6), 15),
	}
	delta, err := ComputeRunDelta(records)
	require.NoError(t, err)
	require.Len(t, delta.Entries, 1)
	assert.Equal(t, NewDate(2026, time.March, 3), delta.Entries[0].Date)
	assert.InDelta(t, -2.0, delta.Total, 1e-9)
}

func TestComputeRunDelta_OnlyTwoMostRecentRuns(t *testing.T) {
	d := NewDate(2026, time.March, 3)
	records := []DegreeDayRecord{
		rec("GFS", "20260301_00z", d, 100), // older run, ignored
		rec("GFS", "20260301_06z", d, 12),
		rec("GFS", "20260301_12z", d, 17),
	}
	delta, err := ComputeRunDelta(records)
	require.NoError(t, err)
	assert.Equal(t, "20260301_12z", delta.LatestRun)
	assert.Equal(t, "20260301_06z", delta.PrevRun)
	assert.InDelta(t, 5.0, delta.Total, 1e-9)
}

func TestComputeRunDelta_WeightedTotals(t *testing.T) {
	d1, d2 := NewDate(2026, time.March, 1), NewDate(2026, time.March, 2)

	t.Run("complete weighted coverage", func(t *testing.T) {
		records := []DegreeDayRecord{
			{Model: "GFS", RunID: "a", Date: d1, HDD: 10, WeightedHDD: fp(12)},
			{Model: "GFS", RunID: "a", Date: d2, HDD: 10, WeightedHDD: fp(13)},
			{Model: "GFS", RunID: "b", Date: d1, HDD: 9, WeightedHDD: fp(10)},
			{Model: "GFS", RunID: "b", Date: d2, HDD: 8, WeightedHDD: fp(10)},
		}
		delta, err := ComputeRunDelta(records)
		require.NoError(t, err)
		require.NotNil(t, delta.WeightedTotal)
		assert.InDelta(t, -5.0, *delta.WeightedTotal, 1e-9)
	})

	t.Run("gap suppresses weighted total", func(t *testing.T) {
		records := []DegreeDayRecord{
			{Model: "GFS", RunID: "a", Date: d1, HDD: 10, WeightedHDD: fp(12)},
			{Model: "GFS", RunID: "a", Date: d2, HDD: 10},
			{Model: "GFS", RunID: "b", Date: d1, HDD: 9, WeightedHDD: fp(10)},
			{Model: "GFS", RunID: "b", Date: d2, HDD: 8, WeightedHDD: fp(10)},
		}
		delta, err := ComputeRunDelta(records)
		require.NoError(t, err)
		assert.Nil(t, delta.WeightedTotal)
		require.NotNil(t, delta.Entries[0].WeightedDelta)
		assert.Nil(t, delta.Entries[1].WeightedDelta)
	})
}

func TestComputeRunDelta_Failures(t *testing.T) {
	t.Run("no records", func(t *testing.T) {
		_, err := ComputeRunDelta(nil)
		require.ErrorIs(t, err, ErrInsufficientHistory)
	})

	t.Run("single run", func(t *testing.T) {
		_, err := ComputeRunDelta([]DegreeDayRecord{
			rec("GFS", "20260301_00z", NewDate(2026, time.March, 1), 10),
			rec("GFS", "20260301_00z", NewDate(2026, time.March, 2), 11),
		})
		require.ErrorIs(t, err, ErrInsufficientHistory)
	})

	t.Run("disjoint dates", func(t *testing.T) {
		_, err := ComputeRunDelta([]DegreeDayRecord{
			rec("GFS", "20260301_00z", NewDate(2026, time.March, 1), 10),
			rec("GFS", "20260302_00z", NewDate(2026, time.March, 9), 11),
		})
		require.ErrorIs(t, err, ErrInsufficientOverlap)
	})

	t.Run("mixed models rejected", func(t *testing.T) {
		_, err := ComputeRunDelta([]DegreeDayRecord{
			rec("GFS", "a", NewDate(2026, time.March, 1), 10),
			rec("ECMWF", "b", NewDate(2026, time.March, 1), 11),
		})
		require.Error(t, err)
	})
}
