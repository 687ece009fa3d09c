package features

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	ColLocHash   = "loc_hash"
	ColHour      = "hour"
	ColDayOfWeek = "dayofweek"
	ColMonth     = "month"
	ColIsWeekend = "is_weekend"
	ColHourSin   = "hour_sin"
	ColHourCos   = "hour_cos"
	ColDowSin    = "dow_sin"
	ColDowCos    = "dow_cos"
	ColLag1      = "speed_lag_1"
	ColLag2      = "speed_lag_2"
	ColLag4      = "speed_lag_4"
	ColLag8      = "speed_lag_8"
	ColRollMean4 = "speed_roll_mean_4"
	ColRollStd4  = "speed_roll_std_4"
)

// Columns is the ordered feature list the trainer fits on.
var Columns = []string{
	ColLocHash,
	ColHour, ColDayOfWeek, ColMonth, ColIsWeekend,
	ColHourSin, ColHourCos, ColDowSin, ColDowCos,
	ColLag1, ColLag2, ColLag4, ColLag8,
	ColRollMean4, ColRollStd4,
}

// Lags are the per-location shifts, in observations.
var Lags = []int{1, 2, 4, 8}

// RollingWindow is the number of prior values in the rolling statistics.
const RollingWindow = 4

// LocationHashScheme identifies LocationHash in persisted metadata so a model
// is never served with a different encoding than it was trained with.
const LocationHashScheme = "xxhash64-mod-1000000"

const locationHashModulus = 1_000_000

// LocationHash maps a location id to a stable numeric feature.
func LocationHash(locationID string) float64 {
	return float64(xxhash.Sum64String(locationID) % locationHashModulus)
}

// Row is one observation with every derived feature attached.
type Row struct {
	Observation
	TimeEncoding

	SpeedLag1 float64
	SpeedLag2 float64
	SpeedLag4 float64
	SpeedLag8 float64
	RollMean4 float64
	RollStd4  float64

	LocHash float64
}

// SetLag stores the lag-k value; only the lags in Lags are valid.
func (r *Row) SetLag(k int, v float64) {
	switch k {
	case 1:
		r.SpeedLag1 = v
	case 2:
		r.SpeedLag2 = v
	case 4:
		r.SpeedLag4 = v
	case 8:
		r.SpeedLag8 = v
	default:
		panic(fmt.Sprintf("features: unsupported lag %d", k))
	}
}

// Value returns the named column.
func (r *Row) Value(col string) (float64, bool) {
	switch col {
	case ColLocHash:
		return r.LocHash, true
	case ColHour:
		return float64(r.Hour), true
	case ColDayOfWeek:
		return float64(r.DayOfWeek), true
	case ColMonth:
		return float64(r.Month), true
	case ColIsWeekend:
		return float64(r.IsWeekend), true
	case ColHourSin:
		return r.HourSin, true
	case ColHourCos:
		return r.HourCos, true
	case ColDowSin:
		return r.DowSin, true
	case ColDowCos:
		return r.DowCos, true
	case ColLag1:
		return r.SpeedLag1, true
	case ColLag2:
		return r.SpeedLag2, true
	case ColLag4:
		return r.SpeedLag4, true
	case ColLag8:
		return r.SpeedLag8, true
	case ColRollMean4:
		return r.RollMean4, true
	case ColRollStd4:
		return r.RollStd4, true
	}
	return 0, false
}

// Vector returns the row's values in the order of cols.
func (r *Row) Vector(cols []string) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, col := range cols {
		v, ok := r.Value(col)
		if !ok {
			return nil, fmt.Errorf("unknown feature column %q", col)
		}
		if math.IsNaN(v) {
			return nil, fmt.Errorf("feature column %q is missing a value", col)
		}
		out[i] = v
	}
	return out, nil
}

// IsKnownColumn reports whether Row can produce col.
func IsKnownColumn(col string) bool {
	var r Row
	_, ok := r.Value(col)
	return ok
}

// historyColumns are the columns imputed after lag/rolling construction.
var historyColumns = []string{ColLag1, ColLag2, ColLag4, ColLag8, ColRollMean4, ColRollStd4}

func (r *Row) historyField(col string) *float64 {
	switch col {
	case ColLag1:
		return &r.SpeedLag1
	case ColLag2:
		return &r.SpeedLag2
	case ColLag4:
		return &r.SpeedLag4
	case ColLag8:
		return &r.SpeedLag8
	case ColRollMean4:
		return &r.RollMean4
	case ColRollStd4:
		return &r.RollStd4
	}
	return nil
}
