package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/agrolink/agrolink-backend/internal/gateway"
	"github.com/agrolink/agrolink-backend/internal/service"
)

const webhookTestSecret = "whsec_handler_test"

func newWebhookTestHandler() *WebhookHandler {
	gw := gateway.NewStripeClient("sk_test_key", webhookTestSecret)
	escrows := service.NewEscrowService(nil, nil, gw, nil, decimal.RequireFromString("0.05"))
	return NewWebhookHandler(escrows)
}

func stripeSignature(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookHandler_InvalidSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := newWebhookTestHandler()
	r.POST("/payments/webhook", handler.HandlePaymentEvent)

	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	req, _ := http.NewRequest("POST", "/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SIGNATURE_INVALID")
}

func TestWebhookHandler_UnknownEventAcked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := newWebhookTestHandler()
	r.POST("/payments/webhook", handler.HandlePaymentEvent)

	payload := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{}}}`)
	req, _ := http.NewRequest("POST", "/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, webhookTestSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}
