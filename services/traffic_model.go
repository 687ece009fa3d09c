package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"pathpioneer/artifacts"
	"pathpioneer/features"
	"pathpioneer/models"

	"github.com/sirupsen/logrus"
)

const (
	rainPenalty  = 3.0
	eventPenalty = 2.0
	// maxHorizonPenalty is reached at the longest horizon.
	maxHorizonPenalty = 2.0
	minHorizon        = 15
	maxHorizon        = 180
	minLag1           = 5.0
	minSpeed          = 1.0

	lowCongestionSpeed    = 28.0
	mediumCongestionSpeed = 18.0
)

// demoHistory stands in for recent readings, which the service does not
// have at request time.
var demoHistory = map[string]float64{
	features.ColLag1:      22,
	features.ColLag2:      23,
	features.ColLag4:      24,
	features.ColLag8:      26,
	features.ColRollMean4: 23,
	features.ColRollStd4:  3,
}

// Regressor is a fitted model over a fixed, ordered feature list.
type Regressor interface {
	Predict(x []float64) (float64, error)
	Features() []string
}

type Query struct {
	LocationID     string
	Timestamp      time.Time
	HorizonMinutes int
	IsRain         bool
	IsEvent        bool
}

// FeatureMismatchError means feature_meta.json and the model disagree on
// column order, so the vectors built from the metadata would be misread.
type FeatureMismatchError struct {
	Persisted []string
	Model     []string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("feature_cols [%s] do not match model features [%s]; retrain with go run ./cmd/train",
		strings.Join(e.Persisted, ","), strings.Join(e.Model, ","))
}

// TrafficModel is read-only after construction and safe for concurrent use.
type TrafficModel struct {
	model Regressor
	meta  artifacts.Metadata
}

// NewTrafficModel loads the artifacts in dir.
func NewTrafficModel(dir string, logger *logrus.Logger) (*TrafficModel, error) {
	model, meta, err := artifacts.Load(dir)
	if err != nil {
		return nil, err
	}
	tm, err := NewTrafficModelFrom(model, *meta)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"model_version": meta.ModelVersion,
		"features":      len(meta.FeatureCols),
		"mae_kmph":      meta.MAE,
		"trained_at":    meta.TrainedAt,
	}).Info("model loaded")
	return tm, nil
}

func NewTrafficModelFrom(model Regressor, meta artifacts.Metadata) (*TrafficModel, error) {
	if !slices.Equal(meta.FeatureCols, model.Features()) {
		return nil, &FeatureMismatchError{Persisted: meta.FeatureCols, Model: model.Features()}
	}
	for _, col := range meta.FeatureCols {
		if !features.IsKnownColumn(col) {
			return nil, fmt.Errorf("feature_cols names unknown column %q", col)
		}
	}
	if meta.LocationHash != features.LocationHashScheme {
		return nil, fmt.Errorf("model was trained with location hash %q, this build uses %q",
			meta.LocationHash, features.LocationHashScheme)
	}
	return &TrafficModel{model: model, meta: meta}, nil
}

func (m *TrafficModel) Metadata() artifacts.Metadata {
	return m.meta
}

func (m *TrafficModel) ModelVersion() string {
	return m.meta.ModelVersion
}

// PredictSpeed returns the expected speed in km/h, never below 1.
func (m *TrafficModel) PredictSpeed(q Query) (float64, error) {
	row := features.Row{
		TimeEncoding: features.TimeFeatures(q.Timestamp),
		LocHash:      features.LocationHash(q.LocationID),
		SpeedLag1:    demoHistory[features.ColLag1],
		SpeedLag2:    demoHistory[features.ColLag2],
		SpeedLag4:    demoHistory[features.ColLag4],
		SpeedLag8:    demoHistory[features.ColLag8],
		RollMean4:    demoHistory[features.ColRollMean4],
		RollStd4:     demoHistory[features.ColRollStd4],
	}
	row.SpeedLag1 = adjustLag1(row.SpeedLag1, q)

	x, err := row.Vector(m.meta.FeatureCols)
	if err != nil {
		return 0, err
	}
	pred, err := m.model.Predict(x)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	return max(minSpeed, pred), nil
}

// adjustLag1 applies the what-if knobs; each step is floored at minLag1.
func adjustLag1(lag1 float64, q Query) float64 {
	if q.IsRain {
		lag1 = max(minLag1, lag1-rainPenalty)
	}
	if q.IsEvent {
		lag1 = max(minLag1, lag1-eventPenalty)
	}
	return max(minLag1, lag1-HorizonPenalty(q.HorizonMinutes))
}

// HorizonPenalty grows linearly from 0 at 15 minutes to 2 km/h at 180.
func HorizonPenalty(minutes int) float64 {
	return float64(minutes-minHorizon) / float64(maxHorizon-minHorizon) * maxHorizonPenalty
}

func CongestionLabel(speed float64) string {
	switch {
	case speed >= lowCongestionSpeed:
		return models.CongestionLow
	case speed >= mediumCongestionSpeed:
		return models.CongestionMedium
	default:
		return models.CongestionHigh
	}
}
