package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pathpioneer/features"
)

const (
	CongestionLow    = "LOW"
	CongestionMedium = "MEDIUM"
	CongestionHigh   = "HIGH"
)

const DefaultHorizonMinutes = 30

// ISOTime is an ISO-8601 timestamp that remembers whether the client sent
// an offset, so it can be echoed back in the same form.
type ISOTime struct {
	time.Time
	Zoned bool
}

func (t *ISOTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("timestamp must be an ISO-8601 string")
	}
	ts, zoned, err := features.ParseTimestamp(s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time, t.Zoned = ts, zoned
	return nil
}

func (t ISOTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t ISOTime) String() string {
	if t.Zoned {
		return t.Time.Format(time.RFC3339Nano)
	}
	if t.Nanosecond() != 0 {
		return t.Time.Format("2006-01-02T15:04:05.999999999")
	}
	return t.Time.Format("2006-01-02T15:04:05")
}

type PredictRequest struct {
	LocationID     string   `json:"location_id" binding:"required"`
	Timestamp      *ISOTime `json:"timestamp" binding:"required"`
	HorizonMinutes int      `json:"horizon_minutes" binding:"min=15,max=180"`
	IsRain         int      `json:"is_rain" binding:"oneof=0 1"`
	IsEvent        int      `json:"is_event" binding:"oneof=0 1"`
}

// NewPredictRequest returns a request holding the defaults for omitted
// optional fields; decode the body into it.
func NewPredictRequest() PredictRequest {
	return PredictRequest{HorizonMinutes: DefaultHorizonMinutes}
}

type PredictResponse struct {
	LocationID         string  `json:"location_id"`
	Timestamp          ISOTime `json:"timestamp"`
	HorizonMinutes     int     `json:"horizon_minutes"`
	PredictedSpeedKmph float64 `json:"predicted_speed_kmph"`
	CongestionLabel    string  `json:"congestion_label"`
}

// Prediction is the event published for every served prediction.
type Prediction struct {
	TS              time.Time `json:"ts"`
	LocationID      string    `json:"location_id"`
	Timestamp       ISOTime   `json:"timestamp"`
	HorizonMin      int       `json:"horizon_min"`
	IsRain          bool      `json:"is_rain"`
	IsEvent         bool      `json:"is_event"`
	SpeedKmph       float64   `json:"speed_kmph"`
	CongestionLabel string    `json:"congestion_label"`
	ModelVersion    string    `json:"model_version"`
	RequestID       string    `json:"request_id,omitempty"`
}
