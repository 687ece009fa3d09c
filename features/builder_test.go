package features

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlyRecords(loc string, start time.Time, speeds ...float64) []RawRecord {
	out := make([]RawRecord, len(speeds))
	for i, s := range speeds {
		out[i] = RawRecord{
			Timestamp:  start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04:05"),
			LocationID: loc,
			Speed:      s,
		}
	}
	return out
}

func TestBuildNoMissingHistoryValues(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	var records []RawRecord
	records = append(records, hourlyRecords("Silk Board Junction", start, 20, 22, 18, 25, 30, 28, 19, 21, 23, 24)...)
	records = append(records, hourlyRecords("KR Puram", start, 35, 33)...)
	records = append(records, hourlyRecords("M G Road", start, 12)...)

	res := Build(records)
	require.Len(t, res.Rows, 13)
	assert.Equal(t, 3, res.Locations)

	for _, row := range res.Rows {
		for _, col := range historyColumns {
			v, ok := row.Value(col)
			require.True(t, ok)
			assert.False(t, math.IsNaN(v), "%s missing for %s at %s", col, row.LocationID, row.Timestamp)
		}
	}
}

func TestBuildLagOneFollowsPreviousSpeed(t *testing.T) {
	start := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	speeds := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21}
	res := Build(hourlyRecords("Hebbal Flyover", start, speeds...))
	require.Len(t, res.Rows, len(speeds))

	for i := 1; i < len(res.Rows); i++ {
		assert.Equal(t, speeds[i-1], res.Rows[i].SpeedLag1, "row %d", i)
	}
	for i := 8; i < len(res.Rows); i++ {
		assert.Equal(t, speeds[i-8], res.Rows[i].SpeedLag8, "row %d", i)
	}
}

func TestBuildRollingUsesOnlyPriorValues(t *testing.T) {
	start := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	res := Build(hourlyRecords("Marathahalli", start, 10, 20, 30, 40, 50, 1000))
	require.Len(t, res.Rows, 6)

	// row 4 sees 10,20,30,40; row 5 sees 20,30,40,50 and never its own 1000
	assert.InDelta(t, 25.0, res.Rows[4].RollMean4, 1e-9)
	assert.InDelta(t, 35.0, res.Rows[5].RollMean4, 1e-9)
	assert.InDelta(t, math.Sqrt(500.0/3.0), res.Rows[5].RollStd4, 1e-9)
}

func TestBuildImputesWarmupWithLocationMedian(t *testing.T) {
	start := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	res := Build(hourlyRecords("Electronic City", start, 10, 20, 40))
	require.Len(t, res.Rows, 3)

	// defined lag_1 values are 10 and 20, median 15
	assert.Equal(t, 15.0, res.Rows[0].SpeedLag1)
	// no rolling window ever completes; falls back to the speed median and zero spread
	assert.Equal(t, 20.0, res.Rows[0].RollMean4)
	assert.Equal(t, 0.0, res.Rows[0].RollStd4)
}

func TestBuildFallsBackToGlobalMedian(t *testing.T) {
	start := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	var records []RawRecord
	records = append(records, hourlyRecords("A", start, 10, 30, 50)...)
	records = append(records, hourlyRecords("B", start, 99)...)

	res := Build(records)
	var single Row
	for _, r := range res.Rows {
		if r.LocationID == "B" {
			single = r
		}
	}
	// B has no lag_1 of its own; after A is filled its column is {20, 10, 30} -> 20
	assert.Equal(t, 20.0, single.SpeedLag1)
}

func TestBuildSortsByLocationThenTime(t *testing.T) {
	records := []RawRecord{
		{Timestamp: "2024-01-01T03:00:00", LocationID: "b", Speed: 3},
		{Timestamp: "2024-01-01T01:00:00", LocationID: "b", Speed: 1},
		{Timestamp: "2024-01-01T02:00:00", LocationID: "a", Speed: 2},
		{Timestamp: "2024-01-01T02:00:00", LocationID: "b", Speed: 2},
	}
	res := Build(records)
	require.Len(t, res.Rows, 4)

	var got []string
	for _, r := range res.Rows {
		got = append(got, fmt.Sprintf("%s@%d", r.LocationID, r.Hour))
	}
	assert.Equal(t, []string{"a@2", "b@1", "b@2", "b@3"}, got)
	assert.Equal(t, 1.0, res.Rows[2].SpeedLag1)
}

func TestBuildDropsUnparseableTimestampsAndDefaultsLocation(t *testing.T) {
	records := []RawRecord{
		{Timestamp: "not a date", Speed: 10},
		{Timestamp: "2024-01-01 08:00", Speed: 20},
		{Timestamp: "", Speed: 30},
	}
	res := Build(records)
	assert.Equal(t, 2, res.DroppedTimestamps)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, DefaultLocation, res.Rows[0].LocationID)
}

func TestBuildEmptyInput(t *testing.T) {
	res := Build(nil)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.Locations)
}

func TestMedian(t *testing.T) {
	assert.True(t, math.IsNaN(median(nil)))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
}
