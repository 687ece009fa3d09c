package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"pathpioneer/middleware"
	"pathpioneer/models"
	"pathpioneer/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type PredictionHandler struct {
	svc    *services.PredictionService
	logger *logrus.Logger
}

func NewPredictionHandler(svc *services.PredictionService, logger *logrus.Logger) *PredictionHandler {
	registerJSONFieldNames()
	return &PredictionHandler{svc: svc, logger: logger}
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (h *PredictionHandler) Predict(c *gin.Context) {
	req := models.NewPredictRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"details": validationDetails(err),
		})
		return
	}

	resp, err := h.svc.Predict(c.Request.Context(), req, middleware.GetRequestID(c))
	if err != nil {
		h.logger.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return out
	}
	return err.Error()
}

var registerOnce sync.Once

// registerJSONFieldNames makes validation errors report json field names.
func registerJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
