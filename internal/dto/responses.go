package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrorResponse — стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse — стандартный ответ с сообщением и данными.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// WebhookAckResponse — подтверждение приёма события шлюза.
type WebhookAckResponse struct {
	Received bool `json:"received"`
}

// OpenEscrowResponse — созданный escrow счёт с суммами для квитанции.
type OpenEscrowResponse struct {
	EscrowID      uuid.UUID       `json:"escrow_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Commission    decimal.Decimal `json:"commission"`
	FarmerAmount  decimal.Decimal `json:"farmer_amount"`
}

// CreateIntentResponse — платёжное намерение для клиентского SDK шлюза.
type CreateIntentResponse struct {
	ClientSecret    string    `json:"client_secret"`
	PaymentIntentID string    `json:"payment_intent_id"`
	TransactionID   uuid.UUID `json:"transaction_id"`
}

// ReleaseResponse — суммы выплаты для квитанции.
type ReleaseResponse struct {
	FarmerAmount decimal.Decimal `json:"farmer_amount"`
	Commission   decimal.Decimal `json:"commission"`
}
