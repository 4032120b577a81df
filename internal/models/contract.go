package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы контрактов
const (
	ContractStatusPending   = "pending"
	ContractStatusActive    = "active"
	ContractStatusCompleted = "completed"
	ContractStatusCancelled = "cancelled"
)

// Статусы ставок
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// ValidContractStatuses список валидных статусов контрактов
var ValidContractStatuses = map[string]struct{}{
	ContractStatusPending:   {},
	ContractStatusActive:    {},
	ContractStatusCompleted: {},
	ContractStatusCancelled: {},
}

// contractTransitions описывает допустимые переходы статусов.
// completed и cancelled терминальны.
var contractTransitions = map[string]map[string]struct{}{
	ContractStatusPending: {
		ContractStatusActive:    {},
		ContractStatusCancelled: {},
	},
	ContractStatusActive: {
		ContractStatusCompleted: {},
		ContractStatusCancelled: {},
	},
	ContractStatusCompleted: {},
	ContractStatusCancelled: {},
}

// CanTransitionContract проверяет допустимость перехода статуса контракта.
func CanTransitionContract(from, to string) bool {
	allowed, ok := contractTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Contract описывает договор поставки между фермером и покупателем.
// buyer_id и price_per_unit перезаписываются ровно один раз — при принятии ставки.
type Contract struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	FarmerID         uuid.UUID       `db:"farmer_id" json:"farmer_id"`
	BuyerID          *uuid.UUID      `db:"buyer_id" json:"buyer_id,omitempty"`
	CropType         string          `db:"crop_type" json:"crop_type"`
	Quantity         decimal.Decimal `db:"quantity" json:"quantity"`
	PricePerUnit     decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
	DeliveryDate     time.Time       `db:"delivery_date" json:"delivery_date"`
	Status           string          `db:"status" json:"status"`
	QualityStandards *string         `db:"quality_standards" json:"quality_standards,omitempty"`
	PaymentTerms     *string         `db:"payment_terms" json:"payment_terms,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`

	Farmer *Profile `json:"farmer,omitempty"`
	Buyer  *Profile `json:"buyer,omitempty"`
}

// IsParty сообщает, является ли пользователь стороной контракта.
func (c *Contract) IsParty(userID uuid.UUID) bool {
	if c.FarmerID == userID {
		return true
	}
	return c.BuyerID != nil && *c.BuyerID == userID
}

// ContractBid представляет встречное предложение покупателя по контракту.
type ContractBid struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ContractID uuid.UUID       `db:"contract_id" json:"contract_id"`
	BidderID   uuid.UUID       `db:"bidder_id" json:"bidder_id"`
	BidAmount  decimal.Decimal `db:"bid_amount" json:"bid_amount"`
	Message    *string         `db:"message" json:"message,omitempty"`
	Status     string          `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`

	Bidder *Profile `json:"bidder,omitempty"`
}
