package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Типы сервиса перевозки
const (
	ServiceTypeStandard     = "standard"
	ServiceTypeExpress      = "express"
	ServiceTypeRefrigerated = "refrigerated"
)

// Статусы котировок
const (
	QuoteStatusPending  = "pending"
	QuoteStatusAccepted = "accepted"
	QuoteStatusExpired  = "expired"
)

// Статусы отгрузок
const (
	ShipmentStatusBooked    = "booked"
	ShipmentStatusPickedUp  = "picked_up"
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
	ShipmentStatusCancelled = "cancelled"
)

// ValidServiceTypes список валидных типов сервиса перевозки
var ValidServiceTypes = map[string]struct{}{
	ServiceTypeStandard:     {},
	ServiceTypeExpress:      {},
	ServiceTypeRefrigerated: {},
}

// LogisticsProvider — перевозчик из каталога площадки.
type LogisticsProvider struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Type         string          `db:"type" json:"type"`
	Rating       decimal.Decimal `db:"rating" json:"rating"`
	Capabilities pq.StringArray  `db:"capabilities" json:"capabilities"`
	BaseRate     decimal.Decimal `db:"base_rate" json:"base_rate"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// ShippingQuote — котировка перевозки по контракту.
type ShippingQuote struct {
	ID                    uuid.UUID       `db:"id" json:"id"`
	ContractID            uuid.UUID       `db:"contract_id" json:"contract_id"`
	ProviderID            uuid.UUID       `db:"provider_id" json:"provider_id"`
	OriginAddress         string          `db:"origin_address" json:"origin_address"`
	DestinationAddress    string          `db:"destination_address" json:"destination_address"`
	Weight                decimal.Decimal `db:"weight" json:"weight"`
	ServiceType           string          `db:"service_type" json:"service_type"`
	EstimatedCost         decimal.Decimal `db:"estimated_cost" json:"estimated_cost"`
	EstimatedDeliveryDays int             `db:"estimated_delivery_days" json:"estimated_delivery_days"`
	QuoteValidUntil       time.Time       `db:"quote_valid_until" json:"quote_valid_until"`
	Status                string          `db:"status" json:"status"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`

	Provider *LogisticsProvider `json:"provider,omitempty"`
}

// Shipment — забронированная отгрузка по принятой котировке.
type Shipment struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	ContractID            uuid.UUID  `db:"contract_id" json:"contract_id"`
	QuoteID               uuid.UUID  `db:"quote_id" json:"quote_id"`
	TrackingNumber        string     `db:"tracking_number" json:"tracking_number"`
	PickupDate            time.Time  `db:"pickup_date" json:"pickup_date"`
	EstimatedDeliveryDate time.Time  `db:"estimated_delivery_date" json:"estimated_delivery_date"`
	SpecialInstructions   *string    `db:"special_instructions" json:"special_instructions,omitempty"`
	CurrentLocation       string     `db:"current_location" json:"current_location"`
	Status                string     `db:"status" json:"status"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`

	Quote    *ShippingQuote          `json:"quote,omitempty"`
	Tracking []ShipmentTrackingEvent `json:"tracking,omitempty"`
}

// ShipmentTrackingEvent — точка трекинга отгрузки.
type ShipmentTrackingEvent struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ShipmentID  uuid.UUID `db:"shipment_id" json:"shipment_id"`
	Location    string    `db:"location" json:"location"`
	Status      string    `db:"status" json:"status"`
	Description string    `db:"description" json:"description"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}
