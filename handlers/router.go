package handlers

import (
	"pathpioneer/config"
	"pathpioneer/middleware"
	"pathpioneer/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter wires every API route.
func NewRouter(cfg *config.Config, svc *services.PredictionService, cache *services.CacheService, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.SetupCORS(cfg.CORS),
	)

	predictions := NewPredictionHandler(svc, logger)

	router.GET("/health", Health)
	router.POST("/predict", predictions.Predict)
	router.GET("/roads", GetRoads)
	router.GET("/model", ModelInfo(svc.Model()))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/predictions", PredictionFeed(cache, logger))

	return router
}
