package ui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pathpioneer/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeAPI answers /predict and records the last request body.
func fakeAPI(t *testing.T, status int, last *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		if last != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(last))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			io.WriteString(w, `{"error":"prediction failed"}`)
			return
		}
		io.WriteString(w, `{"location_id":"KR Puram","timestamp":"2024-01-15T09:00:00","horizon_minutes":45,"predicted_speed_kmph":17.5,"congestion_label":"HIGH"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postForm(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIndexRendersFormAndMap(t *testing.T) {
	s := NewServer(NewClient("http://api.test", time.Second), quietLogger())
	s.now = func() time.Time { return time.Date(2024, 1, 15, 9, 5, 0, 0, time.UTC) }

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, road := range models.KnownRoads {
		assert.Contains(t, body, road.Label)
	}
	assert.Contains(t, body, `value="2024-01-15"`)
	assert.Contains(t, body, `value="09:05"`)
	assert.Contains(t, body, `<option value="30" selected>`)
	assert.Contains(t, body, `<option value="180"`)
	assert.Contains(t, body, "12.9716")
	assert.Contains(t, body, "77.5946")
	assert.Contains(t, body, "L.map(")
	assert.NotContains(t, body, `id="result"`)
}

func TestSubmitShowsPrediction(t *testing.T) {
	var sent map[string]any
	api := fakeAPI(t, http.StatusOK, &sent)
	s := NewServer(NewClient(api.URL, time.Second), quietLogger())

	w := postForm(s.Router(), url.Values{
		"location_id":     {"KR Puram"},
		"date":            {"2024-01-15"},
		"time":            {"09:00"},
		"horizon_minutes": {"45"},
		"is_rain":         {"1"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "17.50")
	assert.Contains(t, w.Body.String(), "HIGH")

	assert.Equal(t, "KR Puram", sent["location_id"])
	assert.Equal(t, "2024-01-15T09:00:00", sent["timestamp"])
	assert.Equal(t, float64(45), sent["horizon_minutes"])
	assert.Equal(t, float64(1), sent["is_rain"])
	assert.Equal(t, float64(0), sent["is_event"])
}

func TestSubmitShowsAPIErrorInline(t *testing.T) {
	api := fakeAPI(t, http.StatusInternalServerError, nil)
	s := NewServer(NewClient(api.URL, time.Second), quietLogger())

	w := postForm(s.Router(), url.Values{
		"location_id": {"KR Puram"}, "date": {"2024-01-15"}, "time": {"09:00"}, "horizon_minutes": {"30"},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `id="error"`)
	assert.Contains(t, w.Body.String(), "api returned 500")
}

func TestSubmitRejectsBadForm(t *testing.T) {
	s := NewServer(NewClient("http://api.test", time.Second), quietLogger())

	w := postForm(s.Router(), url.Values{"location_id": {"KR Puram"}, "date": {"2024-01-15"}, "time": {"09:00"}, "horizon_minutes": {"5"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid input")

	w = postForm(s.Router(), url.Values{"location_id": {"KR Puram"}, "date": {"15/13/2024"}, "time": {"9am"}, "horizon_minutes": {"30"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid date or time")
}

func TestClientAPIError(t *testing.T) {
	api := fakeAPI(t, http.StatusUnprocessableEntity, nil)
	req := models.NewPredictRequest()
	req.LocationID = "x"
	req.Timestamp = &models.ISOTime{Time: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}

	_, err := NewClient(api.URL+"/", time.Second).Predict(context.Background(), req)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "prediction failed")
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	req := models.NewPredictRequest()
	req.LocationID = "x"
	req.Timestamp = &models.ISOTime{Time: time.Now()}

	_, err := NewClient(slow.URL, 50*time.Millisecond).Predict(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api call failed")
}

func TestClientUnreachable(t *testing.T) {
	s := NewServer(NewClient("http://127.0.0.1:1", time.Second), quietLogger())
	w := postForm(s.Router(), url.Values{
		"location_id": {"M G Road"}, "date": {"2024-01-15"}, "time": {"09:00"}, "horizon_minutes": {"30"},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "api call failed")
}
