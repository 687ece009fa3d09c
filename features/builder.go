package features

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultLocation is used when a record carries no location id.
const DefaultLocation = "default"

// RawRecord is one input row before timestamp parsing.
type RawRecord struct {
	Timestamp  string
	LocationID string
	Speed      float64
}

// Observation is a parsed traffic reading.
type Observation struct {
	Timestamp  time.Time
	LocationID string
	Speed      float64
}

type Result struct {
	Rows              []Row
	DroppedTimestamps int
	Locations         int
}

// Build turns raw readings into feature rows sorted by (location, timestamp).
//
// Lag and rolling values of a row only look at strictly earlier rows of the
// same location. The first rows of each location have no history; those
// gaps are filled with the location's median, then the column's global
// median.
func Build(records []RawRecord) Result {
	res := Result{}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		ts, _, err := ParseTimestamp(rec.Timestamp)
		if err != nil {
			res.DroppedTimestamps++
			continue
		}
		loc := rec.LocationID
		if loc == "" {
			loc = DefaultLocation
		}
		rows = append(rows, Row{
			Observation:  Observation{Timestamp: ts, LocationID: loc, Speed: rec.Speed},
			TimeEncoding: TimeFeatures(ts),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].LocationID != rows[j].LocationID {
			return rows[i].LocationID < rows[j].LocationID
		}
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	groups := groupBounds(rows)
	res.Locations = len(groups)
	for _, g := range groups {
		applyHistory(rows[g[0]:g[1]])
	}
	impute(rows, groups)

	res.Rows = rows
	return res
}

// groupBounds returns [start, end) index pairs of consecutive equal locations.
func groupBounds(rows []Row) [][2]int {
	var groups [][2]int
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].LocationID != rows[start].LocationID {
			groups = append(groups, [2]int{start, i})
			start = i
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return groups
}

// applyHistory fills lag and rolling columns for one chronologically sorted
// location, leaving NaN where not enough history exists.
func applyHistory(group []Row) {
	window := make([]float64, 0, RollingWindow)
	for i := range group {
		for _, k := range Lags {
			v := math.NaN()
			if i-k >= 0 {
				v = group[i-k].Speed
			}
			group[i].SetLag(k, v)
		}

		// window holds the RollingWindow speeds before row i
		if len(window) == RollingWindow {
			group[i].RollMean4 = stat.Mean(window, nil)
			group[i].RollStd4 = stat.StdDev(window, nil)
		} else {
			group[i].RollMean4 = math.NaN()
			group[i].RollStd4 = math.NaN()
		}

		if len(window) == RollingWindow {
			window = append(window[:0], window[1:]...)
		}
		window = append(window, group[i].Speed)
	}
}

func impute(rows []Row, groups [][2]int) {
	if len(rows) == 0 {
		return
	}

	speeds := make([]float64, len(rows))
	for i := range rows {
		speeds[i] = rows[i].Speed
	}
	speedMedian := median(speeds)

	for _, col := range historyColumns {
		for _, g := range groups {
			group := rows[g[0]:g[1]]
			fill := median(definedValues(group, col))
			if math.IsNaN(fill) {
				continue
			}
			for i := range group {
				if f := group[i].historyField(col); math.IsNaN(*f) {
					*f = fill
				}
			}
		}

		global := median(definedValues(rows, col))
		if math.IsNaN(global) {
			// no location was long enough to produce this column
			global = speedMedian
			if col == ColRollStd4 {
				global = 0
			}
		}
		for i := range rows {
			if f := rows[i].historyField(col); math.IsNaN(*f) {
				*f = global
			}
		}
	}
}

func definedValues(rows []Row, col string) []float64 {
	vals := make([]float64, 0, len(rows))
	for i := range rows {
		if v := *rows[i].historyField(col); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

// median returns NaN for an empty slice.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// WithLocationHash sets LocHash on every row.
func WithLocationHash(rows []Row) {
	for i := range rows {
		rows[i].LocHash = LocationHash(rows[i].LocationID)
	}
}
