package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/agrolink/agrolink-backend/internal/gateway"
	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

type mockContractStore struct {
	mock.Mock
}

func (m *mockContractStore) Create(ctx context.Context, contract *models.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *mockContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractStore) List(ctx context.Context, filter repository.ContractFilter) ([]models.Contract, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contract), args.Error(1)
}

func (m *mockContractStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Contract, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

type mockBidStore struct {
	mockContractStore
}

func (m *mockBidStore) CreateBid(ctx context.Context, bid *models.ContractBid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *mockBidStore) GetBidByID(ctx context.Context, id uuid.UUID) (*models.ContractBid, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContractBid), args.Error(1)
}

func (m *mockBidStore) ListBids(ctx context.Context, contractID uuid.UUID) ([]models.ContractBid, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ContractBid), args.Error(1)
}

func (m *mockBidStore) HasPendingBid(ctx context.Context, contractID, bidderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, contractID, bidderID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBidStore) UpdateBidStatus(ctx context.Context, id uuid.UUID, status string) (*models.ContractBid, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContractBid), args.Error(1)
}

func (m *mockBidStore) AcceptBid(ctx context.Context, bidID uuid.UUID, commissionRate decimal.Decimal) (*models.ContractBid, *models.Contract, error) {
	args := m.Called(ctx, bidID, commissionRate)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.ContractBid), args.Get(1).(*models.Contract), args.Error(2)
}

type mockEscrowStore struct {
	mock.Mock
}

func (m *mockEscrowStore) Create(ctx context.Context, contractID, buyerID, farmerID uuid.UUID, total, rate decimal.Decimal) (*models.EscrowAccount, error) {
	args := m.Called(ctx, contractID, buyerID, farmerID, total, rate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowAccount), args.Error(1)
}

func (m *mockEscrowStore) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowAccount), args.Error(1)
}

func (m *mockEscrowStore) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.EscrowAccount, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowAccount), args.Error(1)
}

func (m *mockEscrowStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EscrowAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EscrowAccount), args.Error(1)
}

func (m *mockEscrowStore) CreateDeposit(ctx context.Context, escrowID uuid.UUID, amount decimal.Decimal, method string, gatewayID *string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, escrowID, amount, method, gatewayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentTransaction), args.Error(1)
}

func (m *mockEscrowStore) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentTransaction), args.Error(1)
}

func (m *mockEscrowStore) ConfirmDepositByGatewayID(ctx context.Context, gatewayID string) (*models.EscrowAccount, bool, error) {
	args := m.Called(ctx, gatewayID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.EscrowAccount), args.Bool(1), args.Error(2)
}

func (m *mockEscrowStore) ConfirmDepositByTransactionID(ctx context.Context, transactionID uuid.UUID, gatewayID string) (*models.EscrowAccount, bool, error) {
	args := m.Called(ctx, transactionID, gatewayID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.EscrowAccount), args.Bool(1), args.Error(2)
}

func (m *mockEscrowStore) FailDepositByGatewayID(ctx context.Context, gatewayID, reason string) (*models.EscrowAccount, error) {
	args := m.Called(ctx, gatewayID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowAccount), args.Error(1)
}

func (m *mockEscrowStore) FailDepositByTransactionID(ctx context.Context, transactionID uuid.UUID, reason string) error {
	args := m.Called(ctx, transactionID, reason)
	return args.Error(0)
}

func (m *mockEscrowStore) ListVerifications(ctx context.Context, contractID uuid.UUID) ([]models.DeliveryVerification, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DeliveryVerification), args.Error(1)
}

func (m *mockEscrowStore) Release(ctx context.Context, escrowID, verifiedBy uuid.UUID, notes *string) (*models.EscrowAccount, error) {
	args := m.Called(ctx, escrowID, verifiedBy, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowAccount), args.Error(1)
}

type mockProfileLookup struct {
	mock.Mock
}

func (m *mockProfileLookup) GetByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *mockProfileLookup) GetByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*models.Profile), args.Error(1)
}

type mockConversationEnsurer struct {
	mock.Mock
}

func (m *mockConversationEnsurer) CreateIfAbsent(ctx context.Context, contractID, farmerID, buyerID uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, contractID, farmerID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, notificationType, title, content string, relatedID *uuid.UUID) {
	m.Called(ctx, userID, notificationType, title, content, relatedID)
}

type mockLogisticsStore struct {
	mock.Mock
}

func (m *mockLogisticsStore) ListProviders(ctx context.Context, filter repository.ProviderFilter) ([]models.LogisticsProvider, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LogisticsProvider), args.Error(1)
}

func (m *mockLogisticsStore) CreateQuotes(ctx context.Context, quotes []models.ShippingQuote) ([]models.ShippingQuote, error) {
	args := m.Called(ctx, quotes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ShippingQuote), args.Error(1)
}

func (m *mockLogisticsStore) GetQuoteByID(ctx context.Context, id uuid.UUID) (*models.ShippingQuote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShippingQuote), args.Error(1)
}

func (m *mockLogisticsStore) ListQuotesByContract(ctx context.Context, contractID uuid.UUID) ([]models.ShippingQuote, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ShippingQuote), args.Error(1)
}

func (m *mockLogisticsStore) CreateShipment(ctx context.Context, shipment *models.Shipment) (*models.Shipment, error) {
	args := m.Called(ctx, shipment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *mockLogisticsStore) ListShipmentsByContract(ctx context.Context, contractID uuid.UUID) ([]models.Shipment, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shipment), args.Error(1)
}

type mockRatingStore struct {
	mock.Mock
}

func (m *mockRatingStore) Upsert(ctx context.Context, ratings []models.Rating) error {
	args := m.Called(ctx, ratings)
	return args.Error(0)
}

func (m *mockRatingStore) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit int) ([]models.Rating, error) {
	args := m.Called(ctx, revieweeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

func (m *mockRatingStore) Summary(ctx context.Context, revieweeID uuid.UUID) (*models.RatingSummary, error) {
	args := m.Called(ctx, revieweeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatingSummary), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(params gateway.IntentParams) (*gateway.Intent, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *mockGateway) ParseEvent(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}
