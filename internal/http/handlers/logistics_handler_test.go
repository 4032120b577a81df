package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/agrolink/agrolink-backend/internal/http/middleware"
)

func TestLogisticsHandler_RequestQuotes_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &LogisticsHandler{logistics: nil}
	r.POST("/logistics/quotes", handler.RequestQuotes)

	req, _ := http.NewRequest("POST", "/logistics/quotes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogisticsHandler_BookShipment_BadPickupDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &LogisticsHandler{logistics: nil}
	r.POST("/logistics/shipments", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uuid.New())
		handler.BookShipment(c)
	})

	body := strings.NewReader(`{"quote_id": "` + uuid.New().String() + `", "pickup_date": "завтра"}`)
	req, _ := http.NewRequest("POST", "/logistics/shipments", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatingHandler_Create_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &RatingHandler{ratings: nil}
	r.POST("/ratings", handler.Create)

	req, _ := http.NewRequest("POST", "/ratings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
