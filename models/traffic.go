package models

import (
	"time"

	"pathpioneer/features"
)

// TrafficRaw is one sensor reading in the optional training database.
type TrafficRaw struct {
	TS       time.Time `gorm:"column:ts;primaryKey" json:"ts"`
	SensorID string    `gorm:"column:sensor_id;primaryKey" json:"sensor_id"`
	RoadID   string    `gorm:"column:road_id" json:"road_id"`
	SpeedKMH float64   `gorm:"column:speed_kmh" json:"speed_kmh"`
}

func (TrafficRaw) TableName() string { return "traffic_raw" }

// LocationID keys the reading by road, falling back to the sensor for rows
// that were never assigned one.
func (t TrafficRaw) LocationID() string {
	if t.RoadID != "" {
		return t.RoadID
	}
	return t.SensorID
}

func (t TrafficRaw) Record() features.RawRecord {
	return features.RawRecord{
		Timestamp:  t.TS.UTC().Format(time.RFC3339Nano),
		LocationID: t.LocationID(),
		Speed:      t.SpeedKMH,
	}
}
