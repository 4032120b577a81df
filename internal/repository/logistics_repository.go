package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/agrolink/agrolink-backend/internal/models"
)

var (
	ErrQuoteNotFound    = errors.New("shipping quote not found")
	ErrQuoteNotPending  = errors.New("shipping quote is not pending")
	ErrShipmentNotFound = errors.New("shipment not found")
)

// LogisticsRepository отвечает за каталог перевозчиков, котировки и отгрузки.
type LogisticsRepository struct {
	db *sqlx.DB
}

func NewLogisticsRepository(db *sqlx.DB) *LogisticsRepository {
	return &LogisticsRepository{db: db}
}

// ProviderFilter задаёт параметры выборки перевозчиков.
type ProviderFilter struct {
	Type       string
	Capability string
}

// ListProviders возвращает активных перевозчиков, лучшие по рейтингу первыми.
func (r *LogisticsRepository) ListProviders(ctx context.Context, filter ProviderFilter) ([]models.LogisticsProvider, error) {
	query := `SELECT * FROM logistics_providers WHERE is_active = TRUE`
	args := []interface{}{}
	argIndex := 1

	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIndex)
		args = append(args, filter.Type)
		argIndex++
	}
	if filter.Capability != "" {
		query += fmt.Sprintf(" AND capabilities @> $%d", argIndex)
		args = append(args, pq.Array([]string{filter.Capability}))
	}

	query += " ORDER BY rating DESC"

	var providers []models.LogisticsProvider
	if err := r.db.SelectContext(ctx, &providers, query, args...); err != nil {
		return nil, fmt.Errorf("logistics repository: list providers %w", err)
	}
	return providers, nil
}

// CreateQuotes сохраняет котировки одной транзакцией: либо контракт получает
// предложения ото всех подходящих перевозчиков, либо ни одного.
func (r *LogisticsRepository) CreateQuotes(ctx context.Context, quotes []models.ShippingQuote) ([]models.ShippingQuote, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO shipping_quotes (contract_id, provider_id, origin_address, destination_address, weight, service_type, estimated_cost, estimated_delivery_days, quote_valid_until, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	for i := range quotes {
		q := &quotes[i]
		err := tx.QueryRowxContext(
			ctx,
			query,
			q.ContractID,
			q.ProviderID,
			q.OriginAddress,
			q.DestinationAddress,
			q.Weight,
			q.ServiceType,
			q.EstimatedCost,
			q.EstimatedDeliveryDays,
			q.QuoteValidUntil,
			q.Status,
		).Scan(&q.ID, &q.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("logistics repository: create quote %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("logistics repository: create quotes commit %w", err)
	}
	return quotes, nil
}

// GetQuoteByID возвращает котировку по идентификатору.
func (r *LogisticsRepository) GetQuoteByID(ctx context.Context, id uuid.UUID) (*models.ShippingQuote, error) {
	var quote models.ShippingQuote
	err := r.db.GetContext(ctx, &quote, `SELECT * FROM shipping_quotes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("logistics repository: get quote by id %w", err)
	}
	return &quote, nil
}

// ListQuotesByContract возвращает котировки контракта с перевозчиками,
// дешёвые первыми.
func (r *LogisticsRepository) ListQuotesByContract(ctx context.Context, contractID uuid.UUID) ([]models.ShippingQuote, error) {
	var quotes []models.ShippingQuote
	err := r.db.SelectContext(ctx, &quotes, `
		SELECT * FROM shipping_quotes WHERE contract_id = $1 ORDER BY estimated_cost
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("logistics repository: list quotes %w", err)
	}
	if err := r.attachProviders(ctx, quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// CreateShipment бронирует отгрузку одной транзакцией: сама отгрузка,
// первая точка трекинга и перевод котировки в accepted. Принять можно
// только pending котировку.
func (r *LogisticsRepository) CreateShipment(ctx context.Context, shipment *models.Shipment) (*models.Shipment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE shipping_quotes SET status = 'accepted' WHERE id = $1 AND status = 'pending'
	`, shipment.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("logistics repository: create shipment accept quote %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("logistics repository: create shipment accept quote %w", err)
	}
	if affected == 0 {
		return nil, ErrQuoteNotPending
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO shipments (contract_id, quote_id, tracking_number, pickup_date, estimated_delivery_date, special_instructions, current_location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`,
		shipment.ContractID,
		shipment.QuoteID,
		shipment.TrackingNumber,
		shipment.PickupDate,
		shipment.EstimatedDeliveryDate,
		shipment.SpecialInstructions,
		shipment.CurrentLocation,
		shipment.Status,
	).Scan(&shipment.ID, &shipment.CreatedAt, &shipment.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("logistics repository: create shipment %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shipment_tracking (shipment_id, location, status, description, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, shipment.ID, shipment.CurrentLocation, models.ShipmentStatusBooked,
		"Отгрузка забронирована, ожидает забора груза", time.Now())
	if err != nil {
		return nil, fmt.Errorf("logistics repository: create shipment tracking %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("logistics repository: create shipment commit %w", err)
	}
	return shipment, nil
}

// ListShipmentsByContract возвращает отгрузки контракта с котировками и
// историей трекинга, свежие первыми.
func (r *LogisticsRepository) ListShipmentsByContract(ctx context.Context, contractID uuid.UUID) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.SelectContext(ctx, &shipments, `
		SELECT * FROM shipments WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("logistics repository: list shipments %w", err)
	}

	for i := range shipments {
		quote, err := r.GetQuoteByID(ctx, shipments[i].QuoteID)
		if err != nil && !errors.Is(err, ErrQuoteNotFound) {
			return nil, err
		}
		shipments[i].Quote = quote

		var tracking []models.ShipmentTrackingEvent
		err = r.db.SelectContext(ctx, &tracking, `
			SELECT * FROM shipment_tracking WHERE shipment_id = $1 ORDER BY timestamp
		`, shipments[i].ID)
		if err != nil {
			return nil, fmt.Errorf("logistics repository: list shipment tracking %w", err)
		}
		shipments[i].Tracking = tracking
	}

	if err := r.attachShipmentProviders(ctx, shipments); err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *LogisticsRepository) attachProviders(ctx context.Context, quotes []models.ShippingQuote) error {
	ids := make([]uuid.UUID, 0, len(quotes))
	seen := make(map[uuid.UUID]struct{})
	for _, q := range quotes {
		if _, ok := seen[q.ProviderID]; !ok {
			seen[q.ProviderID] = struct{}{}
			ids = append(ids, q.ProviderID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`SELECT * FROM logistics_providers WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("logistics repository: attach providers %w", err)
	}
	query = r.db.Rebind(query)

	var providers []models.LogisticsProvider
	if err := r.db.SelectContext(ctx, &providers, query, args...); err != nil {
		return fmt.Errorf("logistics repository: attach providers %w", err)
	}

	byID := make(map[uuid.UUID]*models.LogisticsProvider, len(providers))
	for i := range providers {
		byID[providers[i].ID] = &providers[i]
	}
	for i := range quotes {
		quotes[i].Provider = byID[quotes[i].ProviderID]
	}
	return nil
}

func (r *LogisticsRepository) attachShipmentProviders(ctx context.Context, shipments []models.Shipment) error {
	quotes := make([]models.ShippingQuote, 0, len(shipments))
	for _, s := range shipments {
		if s.Quote != nil {
			quotes = append(quotes, *s.Quote)
		}
	}
	if err := r.attachProviders(ctx, quotes); err != nil {
		return err
	}
	byQuoteID := make(map[uuid.UUID]*models.LogisticsProvider, len(quotes))
	for i := range quotes {
		byQuoteID[quotes[i].ID] = quotes[i].Provider
	}
	for i := range shipments {
		if shipments[i].Quote != nil {
			shipments[i].Quote.Provider = byQuoteID[shipments[i].Quote.ID]
		}
	}
	return nil
}
