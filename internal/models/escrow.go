package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы escrow: только вперёд, pending → funded → released.
const (
	EscrowStatusPending  = "pending"
	EscrowStatusFunded   = "funded"
	EscrowStatusReleased = "released"
)

// Типы транзакций
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeRelease    = "release"
	TransactionTypeCommission = "commission"
)

// Статусы транзакций
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// EscrowAccount представляет счёт, на котором удерживаются средства по контракту.
// Ставка комиссии фиксируется при создании и не меняется при смене конфигурации.
type EscrowAccount struct {
	ID                     uuid.UUID       `db:"id" json:"id"`
	ContractID             uuid.UUID       `db:"contract_id" json:"contract_id"`
	BuyerID                uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	FarmerID               uuid.UUID       `db:"farmer_id" json:"farmer_id"`
	TotalAmount            decimal.Decimal `db:"total_amount" json:"total_amount"`
	PlatformCommissionRate decimal.Decimal `db:"platform_commission_rate" json:"platform_commission_rate"`
	PlatformCommission     decimal.Decimal `db:"platform_commission" json:"platform_commission"`
	FarmerAmount           decimal.Decimal `db:"farmer_amount" json:"farmer_amount"`
	Status                 string          `db:"status" json:"status"`
	FundedAt               *time.Time      `db:"funded_at" json:"funded_at,omitempty"`
	ReleasedAt             *time.Time      `db:"released_at" json:"released_at,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`

	Transactions []PaymentTransaction `json:"transactions,omitempty"`
}

// SplitCommission вычисляет комиссию платформы и долю фермера так, чтобы
// commission + farmer == total без остатка.
func SplitCommission(total, rate decimal.Decimal) (commission, farmer decimal.Decimal) {
	commission = total.Mul(rate).Round(2)
	farmer = total.Sub(commission)
	return commission, farmer
}

// PaymentTransaction — строка журнала платежей по escrow счёту, только добавление.
type PaymentTransaction struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	EscrowID         uuid.UUID       `db:"escrow_id" json:"escrow_id"`
	TransactionType  string          `db:"transaction_type" json:"transaction_type"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod    *string         `db:"payment_method" json:"payment_method,omitempty"`
	PaymentGatewayID *string         `db:"payment_gateway_id" json:"payment_gateway_id,omitempty"`
	Status           string          `db:"status" json:"status"`
	FailureReason    *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// Типы и статусы подтверждений доставки
const (
	VerificationTypeBuyerConfirmation = "buyer_confirmation"
	VerificationStatusApproved        = "approved"
)

// DeliveryVerification фиксирует подтверждение покупателем получения товара.
// Без него средства не освобождаются.
type DeliveryVerification struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ContractID       uuid.UUID  `db:"contract_id" json:"contract_id"`
	VerifiedBy       uuid.UUID  `db:"verified_by" json:"verified_by"`
	VerificationType string     `db:"verification_type" json:"verification_type"`
	Status           string     `db:"status" json:"status"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// PlatformWalletEntry — запись о зачислении комиссии в кошелёк платформы.
type PlatformWalletEntry struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	TransactionID   uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	TransactionType string          `db:"transaction_type" json:"transaction_type"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
