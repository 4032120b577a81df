package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/agrolink-backend/internal/models"
)

func TestLogisticsRepository_CreateShipment_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLogisticsRepository(db)

	shipmentID := uuid.New()
	now := time.Now()
	shipment := &models.Shipment{
		ContractID:            uuid.New(),
		QuoteID:               uuid.New(),
		TrackingNumber:        "TRK-0123456789AB",
		PickupDate:            now.AddDate(0, 0, 1),
		EstimatedDeliveryDate: now.AddDate(0, 0, 4),
		CurrentLocation:       "Село Степное",
		Status:                models.ShipmentStatusBooked,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE shipping_quotes SET status = 'accepted' WHERE id = \$1 AND status = 'pending'`).
		WithArgs(shipment.QuoteID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO shipments`).
		WithArgs(shipment.ContractID, shipment.QuoteID, shipment.TrackingNumber,
			shipment.PickupDate, shipment.EstimatedDeliveryDate, nil,
			shipment.CurrentLocation, shipment.Status).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(shipmentID.String(), now, now))
	mock.ExpectExec(`INSERT INTO shipment_tracking`).
		WithArgs(shipmentID, shipment.CurrentLocation, models.ShipmentStatusBooked,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.CreateShipment(context.Background(), shipment)
	require.NoError(t, err)
	assert.Equal(t, shipmentID, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogisticsRepository_CreateShipment_QuoteNotPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLogisticsRepository(db)

	shipment := &models.Shipment{
		ContractID: uuid.New(),
		QuoteID:    uuid.New(),
		Status:     models.ShipmentStatusBooked,
	}

	// Котировку уже приняли в параллельном запросе.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE shipping_quotes SET status = 'accepted' WHERE id = \$1 AND status = 'pending'`).
		WithArgs(shipment.QuoteID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.CreateShipment(context.Background(), shipment)
	assert.ErrorIs(t, err, ErrQuoteNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}
