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
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrTransactionNotFound = errors.New("payment transaction not found")
	ErrEscrowNotPending    = errors.New("escrow is not pending")
	ErrEscrowNotFunded     = errors.New("escrow is not funded")
)

// EscrowRepository отвечает за escrow счета и журнал платежей.
type EscrowRepository struct {
	db *sqlx.DB
}

// NewEscrowRepository создаёт экземпляр репозитория.
func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// Create создаёт escrow счёт для контракта. Повторный вызов для того же
// контракта возвращает уже существующий счёт: уникальный индекс по
// contract_id превращает гонку двух создателей в идемпотентный no-op.
func (r *EscrowRepository) Create(ctx context.Context, contractID, buyerID, farmerID uuid.UUID, total, rate decimal.Decimal) (*models.EscrowAccount, error) {
	commission, farmerAmount := models.SplitCommission(total, rate)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO escrow_accounts (contract_id, buyer_id, farmer_id, total_amount, platform_commission_rate, platform_commission, farmer_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		ON CONFLICT (contract_id) DO NOTHING
	`, contractID, buyerID, farmerID, total, rate, commission, farmerAmount)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: create %w", err)
	}

	return r.GetByContractID(ctx, contractID)
}

// GetByID возвращает escrow счёт по идентификатору.
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	var escrow models.EscrowAccount
	err := r.db.GetContext(ctx, &escrow, `SELECT * FROM escrow_accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get by id %w", err)
	}
	return &escrow, nil
}

// GetByContractID возвращает escrow счёт по контракту.
func (r *EscrowRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.EscrowAccount, error) {
	var escrow models.EscrowAccount
	err := r.db.GetContext(ctx, &escrow, `SELECT * FROM escrow_accounts WHERE contract_id = $1`, contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get by contract id %w", err)
	}
	return &escrow, nil
}

// ListByUser возвращает escrow счета, где пользователь — покупатель или фермер,
// вместе с транзакциями.
func (r *EscrowRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EscrowAccount, error) {
	var escrows []models.EscrowAccount
	err := r.db.SelectContext(ctx, &escrows, `
		SELECT * FROM escrow_accounts
		WHERE buyer_id = $1 OR farmer_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list by user %w", err)
	}

	for i := range escrows {
		var transactions []models.PaymentTransaction
		err = r.db.SelectContext(ctx, &transactions, `
			SELECT * FROM payment_transactions WHERE escrow_id = $1 ORDER BY created_at
		`, escrows[i].ID)
		if err != nil {
			return nil, fmt.Errorf("escrow repository: list transactions %w", err)
		}
		escrows[i].Transactions = transactions
	}

	return escrows, nil
}

// CreateDeposit создаёт pending транзакцию пополнения. Статус останется
// pending, пока шлюз не подтвердит платёж.
func (r *EscrowRepository) CreateDeposit(ctx context.Context, escrowID uuid.UUID, amount decimal.Decimal, method string, gatewayID *string) (*models.PaymentTransaction, error) {
	var transaction models.PaymentTransaction
	query := `
		INSERT INTO payment_transactions (escrow_id, transaction_type, amount, payment_method, payment_gateway_id, status)
		VALUES ($1, 'deposit', $2, $3, $4, 'pending')
		RETURNING *
	`
	err := r.db.GetContext(ctx, &transaction, query, escrowID, amount, method, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: create deposit %w", err)
	}
	return &transaction, nil
}

// GetTransactionByID возвращает транзакцию по идентификатору.
func (r *EscrowRepository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	var transaction models.PaymentTransaction
	err := r.db.GetContext(ctx, &transaction, `SELECT * FROM payment_transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("escrow repository: get transaction by id %w", err)
	}
	return &transaction, nil
}

// ConfirmDepositByGatewayID подтверждает пополнение по ссылке платёжного шлюза.
// Возвращает already=true, если escrow уже funded или released: повторная
// доставка webhook должна быть no-op.
func (r *EscrowRepository) ConfirmDepositByGatewayID(ctx context.Context, gatewayID string) (*models.EscrowAccount, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var transaction models.PaymentTransaction
	err = tx.GetContext(ctx, &transaction, `
		SELECT * FROM payment_transactions
		WHERE payment_gateway_id = $1 AND transaction_type = 'deposit'
	`, gatewayID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, fmt.Errorf("escrow repository: confirm deposit find transaction %w", err)
	}

	escrow, already, err := confirmDeposit(ctx, tx, transaction.EscrowID, transaction.ID)
	if err != nil {
		return nil, false, err
	}
	if already {
		return escrow, true, nil
	}

	return escrow, false, tx.Commit()
}

// ConfirmDepositByTransactionID подтверждает пополнение по идентификатору
// транзакции и проставляет ссылку шлюза. Используется синхронным путём
// обработки платежа, который эквивалентен немедленному webhook.
func (r *EscrowRepository) ConfirmDepositByTransactionID(ctx context.Context, transactionID uuid.UUID, gatewayID string) (*models.EscrowAccount, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var transaction models.PaymentTransaction
	err = tx.GetContext(ctx, &transaction, `SELECT * FROM payment_transactions WHERE id = $1`, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, fmt.Errorf("escrow repository: confirm deposit find transaction %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payment_transactions SET payment_gateway_id = $2 WHERE id = $1 AND payment_gateway_id IS NULL
	`, transaction.ID, gatewayID)
	if err != nil {
		return nil, false, fmt.Errorf("escrow repository: confirm deposit set gateway id %w", err)
	}

	escrow, already, err := confirmDeposit(ctx, tx, transaction.EscrowID, transaction.ID)
	if err != nil {
		return nil, false, err
	}
	if already {
		return escrow, true, nil
	}

	return escrow, false, tx.Commit()
}

// confirmDeposit помечает депозит completed и переводит escrow в funded.
// Статус перепроверяется под блокировкой: двойное подтверждение — no-op.
func confirmDeposit(ctx context.Context, tx *sqlx.Tx, escrowID, transactionID uuid.UUID) (*models.EscrowAccount, bool, error) {
	var escrow models.EscrowAccount
	err := tx.GetContext(ctx, &escrow, `SELECT * FROM escrow_accounts WHERE id = $1 FOR UPDATE`, escrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrEscrowNotFound
		}
		return nil, false, fmt.Errorf("escrow repository: confirm deposit lock escrow %w", err)
	}

	if escrow.Status != models.EscrowStatusPending {
		return &escrow, true, nil
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE payment_transactions SET status = 'completed', processed_at = $2
		WHERE id = $1 AND status = 'pending'
	`, transactionID, now)
	if err != nil {
		return nil, false, fmt.Errorf("escrow repository: confirm deposit complete transaction %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE escrow_accounts SET status = 'funded', funded_at = $2
		WHERE id = $1 AND status = 'pending'
	`, escrow.ID, now)
	if err != nil {
		return nil, false, fmt.Errorf("escrow repository: confirm deposit fund escrow %w", err)
	}

	escrow.Status = models.EscrowStatusFunded
	escrow.FundedAt = &now
	return &escrow, false, nil
}

// FailDepositByGatewayID помечает депозит failed с причиной от шлюза.
// Возвращает escrow для уведомления покупателя.
func (r *EscrowRepository) FailDepositByGatewayID(ctx context.Context, gatewayID, reason string) (*models.EscrowAccount, error) {
	var transaction models.PaymentTransaction
	err := r.db.GetContext(ctx, &transaction, `
		SELECT * FROM payment_transactions
		WHERE payment_gateway_id = $1 AND transaction_type = 'deposit'
	`, gatewayID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("escrow repository: fail deposit find transaction %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE payment_transactions SET status = 'failed', failure_reason = $2, processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, transaction.ID, reason)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: fail deposit %w", err)
	}

	return r.GetByID(ctx, transaction.EscrowID)
}

// FailDepositByTransactionID помечает депозит failed (синхронный путь).
func (r *EscrowRepository) FailDepositByTransactionID(ctx context.Context, transactionID uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions SET status = 'failed', failure_reason = $2, processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, transactionID, reason)
	if err != nil {
		return fmt.Errorf("escrow repository: fail deposit %w", err)
	}
	return nil
}

// ListVerifications возвращает подтверждения доставки по контракту.
func (r *EscrowRepository) ListVerifications(ctx context.Context, contractID uuid.UUID) ([]models.DeliveryVerification, error) {
	var verifications []models.DeliveryVerification
	err := r.db.SelectContext(ctx, &verifications, `
		SELECT * FROM delivery_verifications WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list verifications %w", err)
	}
	return verifications, nil
}

// Release выплачивает средства одной транзакцией: подтверждение доставки,
// транзакции release и commission, зачисление комиссии в кошелёк платформы,
// escrow переходит в released, контракт — в completed. Это единственный путь,
// переводящий контракт в completed при существующем escrow.
func (r *EscrowRepository) Release(ctx context.Context, escrowID, verifiedBy uuid.UUID, notes *string) (*models.EscrowAccount, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var escrow models.EscrowAccount
	err = tx.GetContext(ctx, &escrow, `SELECT * FROM escrow_accounts WHERE id = $1 FOR UPDATE`, escrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: release lock escrow %w", err)
	}

	if escrow.Status != models.EscrowStatusFunded {
		return nil, ErrEscrowNotFunded
	}

	now := time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO delivery_verifications (contract_id, verified_by, verification_type, status, notes)
		VALUES ($1, $2, 'buyer_confirmation', 'approved', $3)
	`, escrow.ContractID, verifiedBy, notes)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release create verification %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_transactions (escrow_id, transaction_type, amount, payment_method, status, processed_at)
		VALUES ($1, 'release', $2, 'escrow_release', 'completed', $3)
	`, escrow.ID, escrow.FarmerAmount, now)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release create release transaction %w", err)
	}

	var commissionTxID uuid.UUID
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO payment_transactions (escrow_id, transaction_type, amount, payment_method, status, processed_at)
		VALUES ($1, 'commission', $2, 'platform_commission', 'completed', $3)
		RETURNING id
	`, escrow.ID, escrow.PlatformCommission, now).Scan(&commissionTxID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release create commission transaction %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO platform_wallet (transaction_id, amount, transaction_type)
		VALUES ($1, $2, 'commission')
	`, commissionTxID, escrow.PlatformCommission)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release credit platform wallet %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE escrow_accounts SET status = 'released', released_at = $2 WHERE id = $1
	`, escrow.ID, now)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release update escrow %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE contracts SET status = 'completed', updated_at = $2 WHERE id = $1
	`, escrow.ContractID, now)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release complete contract %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("escrow repository: release commit %w", err)
	}

	escrow.Status = models.EscrowStatusReleased
	escrow.ReleasedAt = &now
	return &escrow, nil
}
