package handlers

import (
	"net/http"

	"pathpioneer/services"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ModelInfo describes the loaded artifacts.
func ModelInfo(model *services.TrafficModel) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := model.Metadata()
		c.JSON(http.StatusOK, gin.H{
			"model_version": meta.ModelVersion,
			"feature_cols":  meta.FeatureCols,
			"location_hash": meta.LocationHash,
			"mae_kmph":      meta.MAE,
			"train_rows":    meta.TrainRows,
			"test_rows":     meta.TestRows,
			"trained_at":    meta.TrainedAt,
		})
	}
}
