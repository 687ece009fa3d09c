package ui

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"pathpioneer/features"
	"pathpioneer/middleware"
	"pathpioneer/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var horizons = func() []int {
	var out []int
	for h := 15; h <= 180; h += 15 {
		out = append(out, h)
	}
	return out
}()

type predictForm struct {
	LocationID string `form:"location_id" binding:"required"`
	Date       string `form:"date" binding:"required"`
	Time       string `form:"time" binding:"required"`
	Horizon    int    `form:"horizon_minutes" binding:"min=15,max=180"`
	Rain       bool   `form:"is_rain"`
	Event      bool   `form:"is_event"`
}

type pageData struct {
	Roads    []models.Road
	Horizons []int
	Form     predictForm
	Result   *models.PredictResponse
	Error    string
	APIURL   string
	Center   struct {
		Lat, Lng float64
		Zoom     int
	}
}

type Server struct {
	client *Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewServer(client *Client, logger *logrus.Logger) *Server {
	return &Server{client: client, logger: logger, now: time.Now}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(s.logger))
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	router.GET("/", s.index)
	router.POST("/", s.predict)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func (s *Server) page(form predictForm) pageData {
	d := pageData{
		Roads:    models.KnownRoads,
		Horizons: horizons,
		Form:     form,
		APIURL:   s.client.BaseURL(),
	}
	d.Center.Lat, d.Center.Lng, d.Center.Zoom = models.MapCenter.Lat, models.MapCenter.Lng, models.MapCenter.Zoom
	return d
}

func (s *Server) index(c *gin.Context) {
	now := s.now()
	c.HTML(http.StatusOK, "index.html", s.page(predictForm{
		LocationID: models.KnownRoads[0].Label,
		Date:       now.Format("2006-01-02"),
		Time:       now.Format("15:04"),
		Horizon:    models.DefaultHorizonMinutes,
	}))
}

func (s *Server) predict(c *gin.Context) {
	form := predictForm{Horizon: models.DefaultHorizonMinutes}
	if err := c.ShouldBind(&form); err != nil {
		data := s.page(form)
		data.Error = "invalid input: " + err.Error()
		c.HTML(http.StatusUnprocessableEntity, "index.html", data)
		return
	}

	ts, _, err := features.ParseTimestamp(form.Date + "T" + form.Time)
	if err != nil {
		data := s.page(form)
		data.Error = "invalid date or time: " + err.Error()
		c.HTML(http.StatusUnprocessableEntity, "index.html", data)
		return
	}

	req := models.NewPredictRequest()
	req.LocationID = form.LocationID
	req.Timestamp = &models.ISOTime{Time: ts}
	req.HorizonMinutes = form.Horizon
	if form.Rain {
		req.IsRain = 1
	}
	if form.Event {
		req.IsEvent = 1
	}

	data := s.page(form)
	resp, err := s.client.Predict(c.Request.Context(), req)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Warn("prediction api call failed")
		data.Error = err.Error()
		c.HTML(http.StatusBadGateway, "index.html", data)
		return
	}

	data.Result = resp
	c.HTML(http.StatusOK, "index.html", data)
}
