package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

const quoteValidityDays = 7

// Надбавка к базовому тарифу за тип сервиса и обещанный срок доставки.
var (
	serviceMultipliers = map[string]decimal.Decimal{
		models.ServiceTypeStandard:     decimal.NewFromInt(1),
		models.ServiceTypeExpress:      decimal.RequireFromString("1.5"),
		models.ServiceTypeRefrigerated: decimal.RequireFromString("1.3"),
	}
	serviceDeliveryDays = map[string]int{
		models.ServiceTypeStandard:     7,
		models.ServiceTypeExpress:      3,
		models.ServiceTypeRefrigerated: 7,
	}
)

// LogisticsStore — операции репозитория, нужные сервису логистики.
type LogisticsStore interface {
	ListProviders(ctx context.Context, filter repository.ProviderFilter) ([]models.LogisticsProvider, error)
	CreateQuotes(ctx context.Context, quotes []models.ShippingQuote) ([]models.ShippingQuote, error)
	GetQuoteByID(ctx context.Context, id uuid.UUID) (*models.ShippingQuote, error)
	ListQuotesByContract(ctx context.Context, contractID uuid.UUID) ([]models.ShippingQuote, error)
	CreateShipment(ctx context.Context, shipment *models.Shipment) (*models.Shipment, error)
	ListShipmentsByContract(ctx context.Context, contractID uuid.UUID) ([]models.Shipment, error)
}

// ContractGetter отдаёт контракт по идентификатору.
type ContractGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// QuoteRequestInput — параметры запроса котировок.
type QuoteRequestInput struct {
	ContractID         uuid.UUID
	OriginAddress      string
	DestinationAddress string
	Weight             decimal.Decimal
	ServiceType        string
}

// BookShipmentInput — параметры бронирования отгрузки.
type BookShipmentInput struct {
	QuoteID             uuid.UUID
	PickupDate          time.Time
	SpecialInstructions *string
}

// LogisticsService управляет перевозчиками, котировками и отгрузками.
type LogisticsService struct {
	logistics LogisticsStore
	contracts ContractGetter
	notifier  Notifier
}

func NewLogisticsService(logistics LogisticsStore, contracts ContractGetter, notifier Notifier) *LogisticsService {
	return &LogisticsService{
		logistics: logistics,
		contracts: contracts,
		notifier:  notifier,
	}
}

// ListProviders возвращает активных перевозчиков каталога.
func (s *LogisticsService) ListProviders(ctx context.Context, providerType, capability string) ([]models.LogisticsProvider, error) {
	if capability != "" {
		if _, ok := models.ValidServiceTypes[capability]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип сервиса перевозки")
		}
	}
	return s.logistics.ListProviders(ctx, repository.ProviderFilter{
		Type:       providerType,
		Capability: capability,
	})
}

// RequestQuotes собирает котировки ото всех перевозчиков с нужной
// возможностью. Стоимость считается по тарифу перевозчика:
// base_rate × вес × надбавка за тип сервиса.
func (s *LogisticsService) RequestQuotes(ctx context.Context, userID uuid.UUID, input QuoteRequestInput) ([]models.ShippingQuote, error) {
	if !input.Weight.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "вес груза должен быть больше нуля")
	}
	if _, ok := models.ValidServiceTypes[input.ServiceType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип сервиса перевозки")
	}

	contract, err := s.contractForParty(ctx, input.ContractID, userID)
	if err != nil {
		return nil, err
	}

	providers, err := s.logistics.ListProviders(ctx, repository.ProviderFilter{Capability: input.ServiceType})
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "нет перевозчиков с нужным типом сервиса")
	}

	multiplier := serviceMultipliers[input.ServiceType]
	days := serviceDeliveryDays[input.ServiceType]
	validUntil := time.Now().AddDate(0, 0, quoteValidityDays)

	quotes := make([]models.ShippingQuote, 0, len(providers))
	for _, p := range providers {
		cost := p.BaseRate.Mul(input.Weight).Mul(multiplier).Round(2)
		quotes = append(quotes, models.ShippingQuote{
			ContractID:            contract.ID,
			ProviderID:            p.ID,
			OriginAddress:         input.OriginAddress,
			DestinationAddress:    input.DestinationAddress,
			Weight:                input.Weight,
			ServiceType:           input.ServiceType,
			EstimatedCost:         cost,
			EstimatedDeliveryDays: days,
			QuoteValidUntil:       validUntil,
			Status:                models.QuoteStatusPending,
		})
	}

	created, err := s.logistics.CreateQuotes(ctx, quotes)
	if err != nil {
		return nil, err
	}
	for i := range created {
		provider := providers[i]
		created[i].Provider = &provider
	}
	return created, nil
}

// ListQuotes возвращает котировки контракта его сторонам.
func (s *LogisticsService) ListQuotes(ctx context.Context, userID, contractID uuid.UUID) ([]models.ShippingQuote, error) {
	if _, err := s.contractForParty(ctx, contractID, userID); err != nil {
		return nil, err
	}
	return s.logistics.ListQuotesByContract(ctx, contractID)
}

// BookShipment бронирует отгрузку по pending котировке и уведомляет
// вторую сторону контракта.
func (s *LogisticsService) BookShipment(ctx context.Context, userID uuid.UUID, input BookShipmentInput) (*models.Shipment, error) {
	quote, err := s.logistics.GetQuoteByID(ctx, input.QuoteID)
	if err != nil {
		if errors.Is(err, repository.ErrQuoteNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "котировка не найдена")
		}
		return nil, err
	}
	if quote.Status != models.QuoteStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "котировка уже использована или истекла")
	}
	if time.Now().After(quote.QuoteValidUntil) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "срок действия котировки истёк")
	}
	if input.PickupDate.Before(time.Now().Truncate(24 * time.Hour)) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата забора груза не может быть в прошлом")
	}

	contract, err := s.contractForParty(ctx, quote.ContractID, userID)
	if err != nil {
		return nil, err
	}

	shipment := &models.Shipment{
		ContractID:            quote.ContractID,
		QuoteID:               quote.ID,
		TrackingNumber:        newTrackingNumber(),
		PickupDate:            input.PickupDate,
		EstimatedDeliveryDate: input.PickupDate.AddDate(0, 0, quote.EstimatedDeliveryDays),
		SpecialInstructions:   input.SpecialInstructions,
		CurrentLocation:       quote.OriginAddress,
		Status:                models.ShipmentStatusBooked,
	}

	created, err := s.logistics.CreateShipment(ctx, shipment)
	if err != nil {
		if errors.Is(err, repository.ErrQuoteNotPending) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "котировка уже использована или истекла")
		}
		return nil, err
	}
	created.Quote = quote

	if counterparty, ok := contractCounterparty(contract, userID); ok {
		s.notifier.Notify(ctx, counterparty, models.NotificationTypeContract,
			"Отгрузка забронирована",
			fmt.Sprintf("По контракту на %s забронирована отгрузка, номер отслеживания %s", contract.CropType, created.TrackingNumber),
			&contract.ID)
	}

	return created, nil
}

// ListShipments возвращает отгрузки контракта его сторонам.
func (s *LogisticsService) ListShipments(ctx context.Context, userID, contractID uuid.UUID) ([]models.Shipment, error) {
	if _, err := s.contractForParty(ctx, contractID, userID); err != nil {
		return nil, err
	}
	return s.logistics.ListShipmentsByContract(ctx, contractID)
}

func (s *LogisticsService) contractForParty(ctx context.Context, contractID, userID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "логистика контракта доступна только его сторонам")
	}
	return contract, nil
}

func contractCounterparty(contract *models.Contract, userID uuid.UUID) (uuid.UUID, bool) {
	if contract.FarmerID != userID {
		return contract.FarmerID, true
	}
	if contract.BuyerID != nil {
		return *contract.BuyerID, true
	}
	return uuid.Nil, false
}

func newTrackingNumber() string {
	return "TRK-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
