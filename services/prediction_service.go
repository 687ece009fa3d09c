package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"pathpioneer/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// PredictionsChannel carries a models.Prediction for every served request.
const PredictionsChannel = "pathpioneer:predictions"

var (
	predictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathpioneer_predictions_total",
		Help: "Predictions served, by congestion label.",
	}, []string{"label"})
	predictionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathpioneer_prediction_failures_total",
		Help: "Predictions that returned an error.",
	})
	predictionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathpioneer_prediction_cache_hits_total",
		Help: "Predictions answered from Redis.",
	})
	predictionsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathpioneer_predictions_published_total",
		Help: "Prediction events published to Redis.",
	})
	predictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathpioneer_prediction_duration_seconds",
		Help:    "Model evaluation time per prediction.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})
)

type PredictionService struct {
	model  *TrafficModel
	cache  *CacheService
	ttl    time.Duration
	logger *logrus.Logger
}

func NewPredictionService(model *TrafficModel, cache *CacheService, ttl time.Duration, logger *logrus.Logger) *PredictionService {
	return &PredictionService{model: model, cache: cache, ttl: ttl, logger: logger}
}

func (s *PredictionService) Model() *TrafficModel {
	return s.model
}

// Predict answers a validated request. The label is taken from the
// unrounded speed; the response carries it rounded to 2 decimals.
func (s *PredictionService) Predict(ctx context.Context, req models.PredictRequest, requestID string) (models.PredictResponse, error) {
	key := s.cacheKey(req)

	var cached models.PredictResponse
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("prediction cache read failed")
	}
	if found {
		predictionCacheHits.Inc()
		predictionsServed.WithLabelValues(cached.CongestionLabel).Inc()
		return cached, nil
	}

	start := time.Now()
	speed, err := s.model.PredictSpeed(Query{
		LocationID:     req.LocationID,
		Timestamp:      req.Timestamp.Time,
		HorizonMinutes: req.HorizonMinutes,
		IsRain:         req.IsRain == 1,
		IsEvent:        req.IsEvent == 1,
	})
	predictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		predictionsFailed.Inc()
		return models.PredictResponse{}, err
	}

	label := CongestionLabel(speed)
	resp := models.PredictResponse{
		LocationID:         req.LocationID,
		Timestamp:          *req.Timestamp,
		HorizonMinutes:     req.HorizonMinutes,
		PredictedSpeedKmph: math.Round(speed*100) / 100,
		CongestionLabel:    label,
	}
	predictionsServed.WithLabelValues(label).Inc()

	if s.cache.Available() {
		event := models.Prediction{
			TS:              time.Now().UTC(),
			LocationID:      req.LocationID,
			Timestamp:       *req.Timestamp,
			HorizonMin:      req.HorizonMinutes,
			IsRain:          req.IsRain == 1,
			IsEvent:         req.IsEvent == 1,
			SpeedKmph:       resp.PredictedSpeedKmph,
			CongestionLabel: label,
			ModelVersion:    s.model.ModelVersion(),
			RequestID:       requestID,
		}
		go s.record(key, resp, event)
	}
	return resp, nil
}

func (s *PredictionService) record(key string, resp models.PredictResponse, event models.Prediction) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
		s.logger.WithError(err).Warn("prediction cache write failed")
	}
	if err := s.cache.Publish(ctx, PredictionsChannel, event); err != nil {
		s.logger.WithError(err).Warn("prediction publish failed")
		return
	}
	predictionsPublished.Inc()
}

func (s *PredictionService) cacheKey(req models.PredictRequest) string {
	return fmt.Sprintf("prediction:%s:%s:%s:%d:%d:%d",
		s.model.ModelVersion(), req.LocationID, req.Timestamp, req.HorizonMinutes, req.IsRain, req.IsEvent)
}
