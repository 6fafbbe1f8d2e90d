package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"foodies-telegram/logger"

	"github.com/stretchr/testify/assert"
)

func TestPaymentReturnRedirects(t *testing.T) {
	router := NewRouter("FoodiesBot", logger.Discard())

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"success", "/payment/success?orderId=abc-123", "https://t.me/FoodiesBot?start=verify_abc-123"},
		{"cancel", "/payment/cancel?orderId=abc-123", "https://t.me/FoodiesBot?start=verify_abc-123"},
		{"missing order id", "/payment/success", "https://t.me/FoodiesBot"},
		{"order id not allowed in a start payload", "/payment/success?orderId=a%20b", "https://t.me/FoodiesBot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter("FoodiesBot", logger.Discard()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter("FoodiesBot", logger.Discard()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment/success", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
