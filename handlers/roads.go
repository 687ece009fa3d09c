package handlers

import (
	"net/http"

	"pathpioneer/models"

	"github.com/gin-gonic/gin"
)

func GetRoads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": models.KnownRoads})
}
