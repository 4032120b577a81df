package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/agrolink/agrolink-backend/internal/gateway"
	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

func newEscrowService(escrows *mockEscrowStore, contracts *mockContractStore, gw *mockGateway, notifier *mockNotifier) *EscrowService {
	return NewEscrowService(escrows, contracts, gw, notifier, decimal.RequireFromString("0.05"))
}

func pendingEscrow(buyerID, farmerID uuid.UUID) *models.EscrowAccount {
	commission, farmerAmount := models.SplitCommission(decimal.RequireFromString("1000"), decimal.RequireFromString("0.05"))
	return &models.EscrowAccount{
		ID:                     uuid.New(),
		ContractID:             uuid.New(),
		BuyerID:                buyerID,
		FarmerID:               farmerID,
		TotalAmount:            decimal.RequireFromString("1000"),
		PlatformCommissionRate: decimal.RequireFromString("0.05"),
		PlatformCommission:     commission,
		FarmerAmount:           farmerAmount,
		Status:                 models.EscrowStatusPending,
	}
}

func TestEscrowService_Open_Success(t *testing.T) {
	escrows := new(mockEscrowStore)
	contracts := new(mockContractStore)
	svc := newEscrowService(escrows, contracts, new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	buyerID := uuid.New()
	farmerID := uuid.New()
	contract := &models.Contract{
		ID:          uuid.New(),
		FarmerID:    farmerID,
		BuyerID:     &buyerID,
		TotalAmount: decimal.RequireFromString("1000"),
		Status:      models.ContractStatusActive,
	}
	escrow := pendingEscrow(buyerID, farmerID)
	transaction := &models.PaymentTransaction{ID: uuid.New(), EscrowID: escrow.ID}

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	escrows.On("Create", ctx, contract.ID, buyerID, farmerID, contract.TotalAmount, decimal.RequireFromString("0.05")).
		Return(escrow, nil)
	escrows.On("CreateDeposit", ctx, escrow.ID, escrow.TotalAmount, "card", (*string)(nil)).
		Return(transaction, nil)

	opening, err := svc.Open(ctx, contract.ID, buyerID, "card")
	assert.NoError(t, err)
	assert.Equal(t, escrow, opening.Escrow)
	assert.Equal(t, transaction, opening.Transaction)
	// Суммы сходятся без остатка.
	assert.True(t, escrow.PlatformCommission.Add(escrow.FarmerAmount).Equal(escrow.TotalAmount))
	escrows.AssertExpectations(t)
}

func TestEscrowService_Open_ContractNotActive(t *testing.T) {
	escrows := new(mockEscrowStore)
	contracts := new(mockContractStore)
	svc := newEscrowService(escrows, contracts, new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	buyerID := uuid.New()
	contract := &models.Contract{
		ID:       uuid.New(),
		FarmerID: uuid.New(),
		BuyerID:  &buyerID,
		Status:   models.ContractStatusPending,
	}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Open(ctx, contract.ID, buyerID, "card")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrowService_Open_OnlyBuyer(t *testing.T) {
	escrows := new(mockEscrowStore)
	contracts := new(mockContractStore)
	svc := newEscrowService(escrows, contracts, new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	buyerID := uuid.New()
	contract := &models.Contract{
		ID:       uuid.New(),
		FarmerID: uuid.New(),
		BuyerID:  &buyerID,
		Status:   models.ContractStatusActive,
	}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Open(ctx, contract.ID, contract.FarmerID, "card")
	assert.True(t, apperror.IsForbidden(err))
}

func TestEscrowService_ListVerifications_OnlyParty(t *testing.T) {
	escrows := new(mockEscrowStore)
	contracts := new(mockContractStore)
	svc := newEscrowService(escrows, contracts, new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	contract := &models.Contract{ID: uuid.New(), FarmerID: uuid.New(), Status: models.ContractStatusCompleted}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.ListVerifications(ctx, contract.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
	escrows.AssertNotCalled(t, "ListVerifications", mock.Anything, mock.Anything)
}

func TestEscrowService_ListVerifications_Success(t *testing.T) {
	escrows := new(mockEscrowStore)
	contracts := new(mockContractStore)
	svc := newEscrowService(escrows, contracts, new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	farmerID := uuid.New()
	contract := &models.Contract{ID: uuid.New(), FarmerID: farmerID, Status: models.ContractStatusCompleted}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	escrows.On("ListVerifications", ctx, contract.ID).Return([]models.DeliveryVerification{
		{ID: uuid.New(), ContractID: contract.ID, VerifiedBy: uuid.New()},
	}, nil)

	verifications, err := svc.ListVerifications(ctx, contract.ID, farmerID)
	assert.NoError(t, err)
	assert.Len(t, verifications, 1)
}

func TestEscrowService_ProcessPayment_Success(t *testing.T) {
	escrows := new(mockEscrowStore)
	notifier := new(mockNotifier)
	svc := newEscrowService(escrows, new(mockContractStore), new(mockGateway), notifier)
	ctx := context.Background()

	buyerID := uuid.New()
	farmerID := uuid.New()
	escrow := pendingEscrow(buyerID, farmerID)
	funded := *escrow
	funded.Status = models.EscrowStatusFunded
	transaction := &models.PaymentTransaction{
		ID:       uuid.New(),
		EscrowID: escrow.ID,
		Status:   models.TransactionStatusPending,
	}

	escrows.On("GetTransactionByID", ctx, transaction.ID).Return(transaction, nil)
	escrows.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	escrows.On("ConfirmDepositByTransactionID", ctx, transaction.ID, mock.AnythingOfType("string")).
		Return(&funded, false, nil)
	notifier.On("Notify", ctx, farmerID, models.NotificationTypePayment, "Escrow пополнен", mock.Anything, mock.Anything).Return()
	notifier.On("Notify", ctx, buyerID, models.NotificationTypePayment, "Платёж принят", mock.Anything, mock.Anything).Return()

	result, err := svc.ProcessPayment(ctx, transaction.ID, buyerID, "4242424242424242")
	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusFunded, result.Status)
	escrows.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestEscrowService_ProcessPayment_Declined(t *testing.T) {
	escrows := new(mockEscrowStore)
	notifier := new(mockNotifier)
	svc := newEscrowService(escrows, new(mockContractStore), new(mockGateway), notifier)
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	transaction := &models.PaymentTransaction{
		ID:       uuid.New(),
		EscrowID: escrow.ID,
		Status:   models.TransactionStatusPending,
	}

	escrows.On("GetTransactionByID", ctx, transaction.ID).Return(transaction, nil)
	escrows.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	escrows.On("FailDepositByTransactionID", ctx, transaction.ID, mock.AnythingOfType("string")).Return(nil)

	_, err := svc.ProcessPayment(ctx, transaction.ID, escrow.BuyerID, "4000000000000002")
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodePaymentDeclined, appErr.Code)
	escrows.AssertExpectations(t)
	escrows.AssertNotCalled(t, "ConfirmDepositByTransactionID", mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_ProcessPayment_NotBuyer(t *testing.T) {
	escrows := new(mockEscrowStore)
	svc := newEscrowService(escrows, new(mockContractStore), new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	transaction := &models.PaymentTransaction{
		ID:       uuid.New(),
		EscrowID: escrow.ID,
		Status:   models.TransactionStatusPending,
	}
	escrows.On("GetTransactionByID", ctx, transaction.ID).Return(transaction, nil)
	escrows.On("GetByID", ctx, escrow.ID).Return(escrow, nil)

	_, err := svc.ProcessPayment(ctx, transaction.ID, escrow.FarmerID, "4242424242424242")
	assert.True(t, apperror.IsForbidden(err))
}

func TestEscrowService_ProcessPayment_AlreadyFunded(t *testing.T) {
	escrows := new(mockEscrowStore)
	svc := newEscrowService(escrows, new(mockContractStore), new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	escrow.Status = models.EscrowStatusFunded
	transaction := &models.PaymentTransaction{
		ID:       uuid.New(),
		EscrowID: escrow.ID,
		Status:   models.TransactionStatusPending,
	}
	escrows.On("GetTransactionByID", ctx, transaction.ID).Return(transaction, nil)
	escrows.On("GetByID", ctx, escrow.ID).Return(escrow, nil)

	_, err := svc.ProcessPayment(ctx, transaction.ID, escrow.BuyerID, "4242424242424242")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrowService_CreateIntent_Success(t *testing.T) {
	escrows := new(mockEscrowStore)
	contracts := new(mockContractStore)
	gw := new(mockGateway)
	svc := newEscrowService(escrows, contracts, gw, new(mockNotifier))
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	contract := &models.Contract{
		ID:          escrow.ContractID,
		FarmerID:    escrow.FarmerID,
		BuyerID:     &escrow.BuyerID,
		TotalAmount: escrow.TotalAmount,
		Status:      models.ContractStatusActive,
	}
	gatewayID := "pi_test_123"
	transaction := &models.PaymentTransaction{ID: uuid.New(), EscrowID: escrow.ID, PaymentGatewayID: &gatewayID}

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	escrows.On("GetByContractID", ctx, contract.ID).Return(escrow, nil)
	gw.On("CreateIntent", mock.MatchedBy(func(params gateway.IntentParams) bool {
		return params.ContractID == escrow.ContractID.String() &&
			params.EscrowID == escrow.ID.String() &&
			params.BuyerID == escrow.BuyerID.String() &&
			params.FarmerID == escrow.FarmerID.String()
	})).Return(&gateway.Intent{GatewayID: gatewayID, ClientSecret: "secret_abc"}, nil)
	escrows.On("CreateDeposit", ctx, escrow.ID, escrow.TotalAmount, "card", &gatewayID).
		Return(transaction, nil)

	result, err := svc.CreateIntent(ctx, contract.ID, escrow.BuyerID, escrow.TotalAmount)
	assert.NoError(t, err)
	assert.Equal(t, "secret_abc", result.ClientSecret)
	assert.Equal(t, gatewayID, result.PaymentIntentID)
	gw.AssertExpectations(t)
}

func TestEscrowService_CreateIntent_AmountMismatch(t *testing.T) {
	escrows := new(mockEscrowStore)
	contracts := new(mockContractStore)
	gw := new(mockGateway)
	svc := newEscrowService(escrows, contracts, gw, new(mockNotifier))
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	contract := &models.Contract{
		ID:          escrow.ContractID,
		FarmerID:    escrow.FarmerID,
		BuyerID:     &escrow.BuyerID,
		TotalAmount: escrow.TotalAmount,
		Status:      models.ContractStatusActive,
	}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	escrows.On("GetByContractID", ctx, contract.ID).Return(escrow, nil)

	_, err := svc.CreateIntent(ctx, contract.ID, escrow.BuyerID, decimal.RequireFromString("500"))
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	gw.AssertNotCalled(t, "CreateIntent", mock.Anything)
}

func TestEscrowService_HandleGatewayEvent_InvalidSignature(t *testing.T) {
	gw := new(mockGateway)
	svc := newEscrowService(new(mockEscrowStore), new(mockContractStore), gw, new(mockNotifier))

	gw.On("ParseEvent", []byte("{}"), "bad").Return(nil, gateway.ErrInvalidSignature)

	err := svc.HandleGatewayEvent(context.Background(), []byte("{}"), "bad")
	assert.ErrorIs(t, err, apperror.ErrSignatureInvalid)
}

func TestEscrowService_HandleGatewayEvent_UnknownKind(t *testing.T) {
	gw := new(mockGateway)
	svc := newEscrowService(new(mockEscrowStore), new(mockContractStore), gw, new(mockNotifier))

	gw.On("ParseEvent", mock.Anything, mock.Anything).Return(&gateway.Event{Kind: gateway.EventUnknown}, nil)

	err := svc.HandleGatewayEvent(context.Background(), []byte(`{"type":"customer.created"}`), "sig")
	assert.NoError(t, err)
}

func TestEscrowService_HandleGatewayEvent_Succeeded(t *testing.T) {
	escrows := new(mockEscrowStore)
	gw := new(mockGateway)
	notifier := new(mockNotifier)
	svc := newEscrowService(escrows, new(mockContractStore), gw, notifier)
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	escrow.Status = models.EscrowStatusFunded

	gw.On("ParseEvent", mock.Anything, mock.Anything).
		Return(&gateway.Event{Kind: gateway.EventPaymentSucceeded, GatewayID: "pi_1"}, nil)
	escrows.On("ConfirmDepositByGatewayID", ctx, "pi_1").Return(escrow, false, nil)
	notifier.On("Notify", ctx, escrow.FarmerID, models.NotificationTypePayment, mock.Anything, mock.Anything, mock.Anything).Return()
	notifier.On("Notify", ctx, escrow.BuyerID, models.NotificationTypePayment, mock.Anything, mock.Anything, mock.Anything).Return()

	err := svc.HandleGatewayEvent(ctx, []byte("{}"), "sig")
	assert.NoError(t, err)
	escrows.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestEscrowService_HandleGatewayEvent_RepeatedDelivery(t *testing.T) {
	escrows := new(mockEscrowStore)
	gw := new(mockGateway)
	notifier := new(mockNotifier)
	svc := newEscrowService(escrows, new(mockContractStore), gw, notifier)
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	escrow.Status = models.EscrowStatusFunded

	gw.On("ParseEvent", mock.Anything, mock.Anything).
		Return(&gateway.Event{Kind: gateway.EventPaymentSucceeded, GatewayID: "pi_1"}, nil)
	escrows.On("ConfirmDepositByGatewayID", ctx, "pi_1").Return(escrow, true, nil)

	err := svc.HandleGatewayEvent(ctx, []byte("{}"), "sig")
	assert.NoError(t, err)
	// Повторная доставка не рассылает уведомления.
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_HandleGatewayEvent_UnknownTransaction(t *testing.T) {
	escrows := new(mockEscrowStore)
	gw := new(mockGateway)
	svc := newEscrowService(escrows, new(mockContractStore), gw, new(mockNotifier))
	ctx := context.Background()

	gw.On("ParseEvent", mock.Anything, mock.Anything).
		Return(&gateway.Event{Kind: gateway.EventPaymentSucceeded, GatewayID: "pi_ghost"}, nil)
	escrows.On("ConfirmDepositByGatewayID", ctx, "pi_ghost").
		Return(nil, false, repository.ErrTransactionNotFound)

	err := svc.HandleGatewayEvent(ctx, []byte("{}"), "sig")
	assert.NoError(t, err)
}

func TestEscrowService_Release_Success(t *testing.T) {
	escrows := new(mockEscrowStore)
	notifier := new(mockNotifier)
	svc := newEscrowService(escrows, new(mockContractStore), new(mockGateway), notifier)
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	escrow.Status = models.EscrowStatusFunded
	released := *escrow
	released.Status = models.EscrowStatusReleased

	escrows.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	escrows.On("Release", ctx, escrow.ID, escrow.BuyerID, (*string)(nil)).Return(&released, nil)
	notifier.On("Notify", ctx, escrow.FarmerID, models.NotificationTypePayment, "Средства выплачены", mock.Anything, mock.Anything).Return()
	notifier.On("Notify", ctx, escrow.BuyerID, models.NotificationTypeContract, "Контракт завершён", mock.Anything, mock.Anything).Return()

	result, err := svc.Release(ctx, escrow.ID, escrow.BuyerID, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusReleased, result.Status)
	escrows.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestEscrowService_Release_OnlyBuyer(t *testing.T) {
	escrows := new(mockEscrowStore)
	svc := newEscrowService(escrows, new(mockContractStore), new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	escrow.Status = models.EscrowStatusFunded
	escrows.On("GetByID", ctx, escrow.ID).Return(escrow, nil)

	_, err := svc.Release(ctx, escrow.ID, escrow.FarmerID, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestEscrowService_Release_NotFunded(t *testing.T) {
	escrows := new(mockEscrowStore)
	svc := newEscrowService(escrows, new(mockContractStore), new(mockGateway), new(mockNotifier))
	ctx := context.Background()

	escrow := pendingEscrow(uuid.New(), uuid.New())
	escrows.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	escrows.On("Release", ctx, escrow.ID, escrow.BuyerID, (*string)(nil)).
		Return(nil, repository.ErrEscrowNotFunded)

	_, err := svc.Release(ctx, escrow.ID, escrow.BuyerID, nil)
	assert.True(t, apperror.IsInvalidState(err))
}
