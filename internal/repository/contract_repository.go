package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/agrolink/agrolink-backend/internal/models"
)

var (
	ErrContractNotFound       = errors.New("contract not found")
	ErrContractNotPending     = errors.New("contract is not pending")
	ErrContractStatusConflict = errors.New("contract status changed concurrently")
	ErrBidNotFound            = errors.New("bid not found")
	ErrBidNotPending          = errors.New("bid is not pending")
)

// ContractRepository отвечает за контракты и ставки.
type ContractRepository struct {
	db *sqlx.DB
}

// NewContractRepository создаёт экземпляр репозитория.
func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create создаёт контракт со статусом pending.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	query := `
		INSERT INTO contracts (farmer_id, buyer_id, crop_type, quantity, price_per_unit, total_amount, delivery_date, status, quality_standards, payment_terms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		contract.FarmerID,
		contract.BuyerID,
		contract.CropType,
		contract.Quantity,
		contract.PricePerUnit,
		contract.TotalAmount,
		contract.DeliveryDate,
		contract.Status,
		contract.QualityStandards,
		contract.PaymentTerms,
	).Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt); err != nil {
		return fmt.Errorf("contract repository: create %w", err)
	}
	return nil
}

// GetByID возвращает контракт по идентификатору.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.GetContext(ctx, &contract, `SELECT * FROM contracts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by id %w", err)
	}
	return &contract, nil
}

// ContractFilter задаёт параметры выборки контрактов.
type ContractFilter struct {
	Status   string
	CropType string
	PartyID  *uuid.UUID
	Limit    int
	Offset   int
}

// List возвращает контракты по фильтру, свежие первыми.
func (r *ContractRepository) List(ctx context.Context, filter ContractFilter) ([]models.Contract, error) {
	query := `SELECT * FROM contracts WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.CropType != "" {
		query += fmt.Sprintf(" AND crop_type = $%d", argIndex)
		args = append(args, filter.CropType)
		argIndex++
	}
	if filter.PartyID != nil {
		query += fmt.Sprintf(" AND (farmer_id = $%d OR buyer_id = $%d)", argIndex, argIndex)
		args = append(args, *filter.PartyID)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	var contracts []models.Contract
	if err := r.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, fmt.Errorf("contract repository: list %w", err)
	}
	return contracts, nil
}

// UpdateStatus переводит контракт из ожидаемого статуса в новый.
// Сравнение со старым статусом прямо в WHERE: если контракт успели поменять
// между чтением и записью, обновление не проходит.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Contract, error) {
	var contract models.Contract
	query := `
		UPDATE contracts SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING *
	`
	err := r.db.GetContext(ctx, &contract, query, id, from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var count int
			if checkErr := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM contracts WHERE id = $1`, id); checkErr == nil && count == 0 {
				return nil, ErrContractNotFound
			}
			return nil, ErrContractStatusConflict
		}
		return nil, fmt.Errorf("contract repository: update status %w", err)
	}
	return &contract, nil
}

// CreateBid создаёт ставку со статусом pending.
func (r *ContractRepository) CreateBid(ctx context.Context, bid *models.ContractBid) error {
	query := `
		INSERT INTO contract_bids (contract_id, bidder_id, bid_amount, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		bid.ContractID,
		bid.BidderID,
		bid.BidAmount,
		bid.Message,
		bid.Status,
	).Scan(&bid.ID, &bid.CreatedAt, &bid.UpdatedAt); err != nil {
		return fmt.Errorf("contract repository: create bid %w", err)
	}
	return nil
}

// GetBidByID возвращает ставку по идентификатору.
func (r *ContractRepository) GetBidByID(ctx context.Context, id uuid.UUID) (*models.ContractBid, error) {
	var bid models.ContractBid
	err := r.db.GetContext(ctx, &bid, `SELECT * FROM contract_bids WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("contract repository: get bid by id %w", err)
	}
	return &bid, nil
}

// ListBids возвращает ставки по контракту, свежие первыми.
func (r *ContractRepository) ListBids(ctx context.Context, contractID uuid.UUID) ([]models.ContractBid, error) {
	var bids []models.ContractBid
	err := r.db.SelectContext(ctx, &bids, `
		SELECT * FROM contract_bids WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("contract repository: list bids %w", err)
	}
	return bids, nil
}

// HasPendingBid проверяет, есть ли у пользователя активная ставка на контракт.
func (r *ContractRepository) HasPendingBid(ctx context.Context, contractID, bidderID uuid.UUID) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM contract_bids
		WHERE contract_id = $1 AND bidder_id = $2 AND status = 'pending'
	`, contractID, bidderID)
	if err != nil {
		return false, fmt.Errorf("contract repository: has pending bid %w", err)
	}
	return count > 0, nil
}

// UpdateBidStatus обновляет статус одной ставки.
func (r *ContractRepository) UpdateBidStatus(ctx context.Context, id uuid.UUID, status string) (*models.ContractBid, error) {
	var bid models.ContractBid
	query := `
		UPDATE contract_bids SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	err := r.db.GetContext(ctx, &bid, query, id, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("contract repository: update bid status %w", err)
	}
	return &bid, nil
}

// AcceptBid принимает ставку одной транзакцией: ставка становится accepted,
// контракт получает покупателя и цену из ставки и переходит в active,
// остальные pending ставки отклоняются, создаётся escrow счёт.
// Частично принятый набор ставок не может быть виден другим читателям.
func (r *ContractRepository) AcceptBid(ctx context.Context, bidID uuid.UUID, commissionRate decimal.Decimal) (*models.ContractBid, *models.Contract, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var bid models.ContractBid
	err = tx.GetContext(ctx, &bid, `SELECT * FROM contract_bids WHERE id = $1 FOR UPDATE`, bidID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrBidNotFound
		}
		return nil, nil, fmt.Errorf("contract repository: accept bid lock bid %w", err)
	}
	if bid.Status != models.BidStatusPending {
		return nil, nil, ErrBidNotPending
	}

	var contract models.Contract
	err = tx.GetContext(ctx, &contract, `SELECT * FROM contracts WHERE id = $1 FOR UPDATE`, bid.ContractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrContractNotFound
		}
		return nil, nil, fmt.Errorf("contract repository: accept bid lock contract %w", err)
	}
	// Статус перепроверяется под блокировкой: контракт могли отменить
	// между проверкой в сервисе и началом транзакции.
	if contract.Status != models.ContractStatusPending {
		return nil, nil, ErrContractNotPending
	}

	now := time.Now()

	// Ставка принята
	_, err = tx.ExecContext(ctx, `UPDATE contract_bids SET status = 'accepted', updated_at = $2 WHERE id = $1`, bid.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("contract repository: accept bid update bid %w", err)
	}

	// Цена за единицу выводится из ставки, чтобы total_amount в точности
	// равнялся сумме ставки.
	pricePerUnit := bid.BidAmount.Div(contract.Quantity)
	_, err = tx.ExecContext(ctx, `
		UPDATE contracts
		SET buyer_id = $2, price_per_unit = $3, total_amount = $4, status = 'active', updated_at = $5
		WHERE id = $1
	`, contract.ID, bid.BidderID, pricePerUnit, bid.BidAmount, now)
	if err != nil {
		return nil, nil, fmt.Errorf("contract repository: accept bid update contract %w", err)
	}

	// Остальные pending ставки отклоняются
	_, err = tx.ExecContext(ctx, `
		UPDATE contract_bids SET status = 'rejected', updated_at = $3
		WHERE contract_id = $1 AND status = 'pending' AND id != $2
	`, contract.ID, bid.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("contract repository: accept bid reject others %w", err)
	}

	// Escrow создаётся здесь же; уникальный индекс по contract_id делает
	// повторное создание (например через endpoint статуса) безвредным.
	commission, farmerAmount := models.SplitCommission(bid.BidAmount, commissionRate)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO escrow_accounts (contract_id, buyer_id, farmer_id, total_amount, platform_commission_rate, platform_commission, farmer_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		ON CONFLICT (contract_id) DO NOTHING
	`, contract.ID, bid.BidderID, contract.FarmerID, bid.BidAmount, commissionRate, commission, farmerAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("contract repository: accept bid create escrow %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("contract repository: accept bid commit %w", err)
	}

	bid.Status = models.BidStatusAccepted
	bid.UpdatedAt = now
	buyerID := bid.BidderID
	contract.BuyerID = &buyerID
	contract.PricePerUnit = pricePerUnit
	contract.TotalAmount = bid.BidAmount
	contract.Status = models.ContractStatusActive
	contract.UpdatedAt = now

	return &bid, &contract, nil
}
