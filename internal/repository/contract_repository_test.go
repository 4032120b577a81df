package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/agrolink-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func contractColumns() []string {
	return []string{
		"id", "farmer_id", "buyer_id", "crop_type", "quantity", "price_per_unit",
		"total_amount", "delivery_date", "status", "quality_standards", "payment_terms",
		"created_at", "updated_at",
	}
}

func TestContractRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	contractID := uuid.New()
	farmerID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM contracts WHERE id = \$1`).
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows(contractColumns()).AddRow(
			contractID.String(), farmerID.String(), nil, "пшеница", "500", "12.50",
			"6250", now.AddDate(0, 2, 0), models.ContractStatusPending, nil, nil,
			now, now,
		))

	contract, err := repo.GetByID(context.Background(), contractID)
	require.NoError(t, err)
	assert.Equal(t, contractID, contract.ID)
	assert.Equal(t, farmerID, contract.FarmerID)
	assert.Nil(t, contract.BuyerID)
	assert.True(t, contract.TotalAmount.Equal(decimal.RequireFromString("6250")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	contractID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM contracts WHERE id = \$1`).
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows(contractColumns()))

	_, err := repo.GetByID(context.Background(), contractID)
	assert.ErrorIs(t, err, ErrContractNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func bidColumns() []string {
	return []string{"id", "contract_id", "bidder_id", "bid_amount", "message", "status", "created_at", "updated_at"}
}

func TestContractRepository_UpdateStatus_Conflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	contractID := uuid.New()
	mock.ExpectQuery(`UPDATE contracts SET status = \$3`).
		WithArgs(contractID, models.ContractStatusPending, models.ContractStatusCancelled).
		WillReturnRows(sqlmock.NewRows(contractColumns()))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contracts WHERE id = \$1`).
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := repo.UpdateStatus(context.Background(), contractID, models.ContractStatusPending, models.ContractStatusCancelled)
	assert.ErrorIs(t, err, ErrContractStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_AcceptBid_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	contractID := uuid.New()
	farmerID := uuid.New()
	bidID := uuid.New()
	bidderID := uuid.New()
	now := time.Now()
	rate := decimal.RequireFromString("0.05")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM contract_bids WHERE id = \$1 FOR UPDATE`).
		WithArgs(bidID).
		WillReturnRows(sqlmock.NewRows(bidColumns()).AddRow(
			bidID.String(), contractID.String(), bidderID.String(), "45", nil,
			models.BidStatusPending, now, now,
		))
	mock.ExpectQuery(`SELECT \* FROM contracts WHERE id = \$1 FOR UPDATE`).
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows(contractColumns()).AddRow(
			contractID.String(), farmerID.String(), nil, "пшеница", "10", "5",
			"50", now.AddDate(0, 1, 0), models.ContractStatusPending, nil, nil,
			now, now,
		))
	mock.ExpectExec(`UPDATE contract_bids SET status = 'accepted'`).
		WithArgs(bidID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Цена за единицу выводится из ставки: 45 / 10 = 4.5.
	mock.ExpectExec(`UPDATE contracts\s+SET buyer_id = \$2`).
		WithArgs(contractID, bidderID, decimal.RequireFromString("4.5"), decimal.RequireFromString("45"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE contract_bids SET status = 'rejected'`).
		WithArgs(contractID, bidID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO escrow_accounts`).
		WithArgs(contractID, bidderID, farmerID, decimal.RequireFromString("45"), rate,
			decimal.RequireFromString("2.25"), decimal.RequireFromString("42.75")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bid, contract, err := repo.AcceptBid(context.Background(), bidID, rate)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusAccepted, bid.Status)
	assert.Equal(t, models.ContractStatusActive, contract.Status)
	require.NotNil(t, contract.BuyerID)
	assert.Equal(t, bidderID, *contract.BuyerID)
	assert.True(t, contract.PricePerUnit.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, contract.TotalAmount.Equal(decimal.RequireFromString("45")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_AcceptBid_ContractNotPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	contractID := uuid.New()
	bidID := uuid.New()
	bidderID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM contract_bids WHERE id = \$1 FOR UPDATE`).
		WithArgs(bidID).
		WillReturnRows(sqlmock.NewRows(bidColumns()).AddRow(
			bidID.String(), contractID.String(), bidderID.String(), "45", nil,
			models.BidStatusPending, now, now,
		))
	// Контракт отменили до захвата блокировки.
	mock.ExpectQuery(`SELECT \* FROM contracts WHERE id = \$1 FOR UPDATE`).
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows(contractColumns()).AddRow(
			contractID.String(), uuid.New().String(), nil, "пшеница", "10", "5",
			"50", now.AddDate(0, 1, 0), models.ContractStatusCancelled, nil, nil,
			now, now,
		))
	mock.ExpectRollback()

	_, _, err := repo.AcceptBid(context.Background(), bidID, decimal.RequireFromString("0.05"))
	assert.ErrorIs(t, err, ErrContractNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_HasPendingBid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	contractID := uuid.New()
	bidderID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contract_bids`).
		WithArgs(contractID, bidderID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	has, err := repo.HasPendingBid(context.Background(), contractID, bidderID)
	require.NoError(t, err)
	assert.True(t, has)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_UpdateBidStatus_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	bidID := uuid.New()
	mock.ExpectQuery(`UPDATE contract_bids SET status = \$2`).
		WithArgs(bidID, models.BidStatusRejected).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.UpdateBidStatus(context.Background(), bidID, models.BidStatusRejected)
	assert.ErrorIs(t, err, ErrBidNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_CreateBid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContractRepository(db)

	bidID := uuid.New()
	now := time.Now()
	bid := &models.ContractBid{
		ContractID: uuid.New(),
		BidderID:   uuid.New(),
		BidAmount:  decimal.RequireFromString("7000"),
		Status:     models.BidStatusPending,
	}

	mock.ExpectQuery(`INSERT INTO contract_bids`).
		WithArgs(bid.ContractID, bid.BidderID, bid.BidAmount, bid.Message, bid.Status).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(bidID.String(), now, now))

	err := repo.CreateBid(context.Background(), bid)
	require.NoError(t, err)
	assert.Equal(t, bidID, bid.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
