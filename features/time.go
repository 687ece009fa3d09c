package features

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeEncoding holds the calendar features shared by training and inference.
type TimeEncoding struct {
	Hour      int
	DayOfWeek int // Monday=0
	Month     int
	IsWeekend int
	HourSin   float64
	HourCos   float64
	DowSin    float64
	DowCos    float64
}

func TimeFeatures(ts time.Time) TimeEncoding {
	hour := ts.Hour()
	dow := (int(ts.Weekday()) + 6) % 7
	weekend := 0
	if dow >= 5 {
		weekend = 1
	}

	return TimeEncoding{
		Hour:      hour,
		DayOfWeek: dow,
		Month:     int(ts.Month()),
		IsWeekend: weekend,
		HourSin:   math.Sin(2 * math.Pi * float64(hour) / 24),
		HourCos:   math.Cos(2 * math.Pi * float64(hour) / 24),
		DowSin:    math.Sin(2 * math.Pi * float64(dow) / 7),
		DowCos:    math.Cos(2 * math.Pi * float64(dow) / 7),
	}
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// ParseTimestamp parses an ISO-8601 style timestamp. The second return value
// reports whether the input carried an explicit UTC offset.
func ParseTimestamp(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognised timestamp %q", s)
}
