package dto

import (
	"github.com/shopspring/decimal"
)

// CreateContractRequest — запрос на публикацию контракта.
type CreateContractRequest struct {
	CropType         string          `json:"crop_type" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit" binding:"required"`
	DeliveryDate     string          `json:"delivery_date" binding:"required"`
	QualityStandards *string         `json:"quality_standards"`
	PaymentTerms     *string         `json:"payment_terms"`
}

// UpdateContractStatusRequest — запрос на смену статуса контракта.
type UpdateContractStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// CreateBidRequest — запрос на создание ставки.
type CreateBidRequest struct {
	BidAmount decimal.Decimal `json:"bid_amount" binding:"required"`
	Message   *string         `json:"message"`
}

// ResolveBidRequest — решение фермера по ставке.
type ResolveBidRequest struct {
	Action string `json:"action" binding:"required"`
}

// OpenEscrowRequest — открытие escrow счёта с первой транзакцией пополнения.
type OpenEscrowRequest struct {
	ContractID    string `json:"contract_id" binding:"required"`
	PaymentMethod string `json:"payment_method"`
}

// CreateIntentRequest — создание платёжного намерения в шлюзе.
type CreateIntentRequest struct {
	ContractID string          `json:"contract_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// PaymentDetails — реквизиты симулируемого платежа.
type PaymentDetails struct {
	CardNumber string `json:"card_number"`
}

// ProcessPaymentRequest — синхронное проведение транзакции пополнения.
type ProcessPaymentRequest struct {
	TransactionID  string         `json:"transaction_id" binding:"required"`
	PaymentDetails PaymentDetails `json:"payment_details"`
}

// ReleaseEscrowRequest — подтверждение поставки и выплата средств.
type ReleaseEscrowRequest struct {
	EscrowID          string  `json:"escrow_id" binding:"required"`
	VerificationNotes *string `json:"verification_notes"`
}

// SendMessageRequest — отправка сообщения в диалог.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdateProfileRequest — сохранение профиля.
type UpdateProfileRequest struct {
	FullName    string  `json:"full_name" binding:"required"`
	CompanyName *string `json:"company_name"`
	Location    *string `json:"location"`
	Phone       *string `json:"phone"`
}

// AttachMediaRequest — привязка файла к контракту.
type AttachMediaRequest struct {
	MediaID string `json:"media_id" binding:"required"`
}

// RequestQuotesRequest — запрос котировок перевозки по контракту.
type RequestQuotesRequest struct {
	ContractID         string          `json:"contract_id" binding:"required"`
	OriginAddress      string          `json:"origin_address" binding:"required"`
	DestinationAddress string          `json:"destination_address" binding:"required"`
	Weight             decimal.Decimal `json:"weight" binding:"required"`
	ServiceType        string          `json:"service_type" binding:"required"`
}

// BookShipmentRequest — бронирование отгрузки по котировке.
type BookShipmentRequest struct {
	QuoteID             string  `json:"quote_id" binding:"required"`
	PickupDate          string  `json:"pickup_date" binding:"required"`
	SpecialInstructions *string `json:"special_instructions"`
}

// CreateRatingRequest — отзыв о второй стороне завершённого контракта.
type CreateRatingRequest struct {
	ContractID string         `json:"contract_id" binding:"required"`
	Ratings    map[string]int `json:"ratings" binding:"required"`
	ReviewText *string        `json:"review_text"`
}
