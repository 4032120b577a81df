package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrolink/agrolink-backend/internal/gateway"
	"github.com/agrolink/agrolink-backend/internal/logger"
	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

// EscrowStore — операции репозитория escrow, нужные сервису.
type EscrowStore interface {
	Create(ctx context.Context, contractID, buyerID, farmerID uuid.UUID, total, rate decimal.Decimal) (*models.EscrowAccount, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error)
	GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.EscrowAccount, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EscrowAccount, error)
	CreateDeposit(ctx context.Context, escrowID uuid.UUID, amount decimal.Decimal, method string, gatewayID *string) (*models.PaymentTransaction, error)
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error)
	ConfirmDepositByGatewayID(ctx context.Context, gatewayID string) (*models.EscrowAccount, bool, error)
	ConfirmDepositByTransactionID(ctx context.Context, transactionID uuid.UUID, gatewayID string) (*models.EscrowAccount, bool, error)
	FailDepositByGatewayID(ctx context.Context, gatewayID, reason string) (*models.EscrowAccount, error)
	FailDepositByTransactionID(ctx context.Context, transactionID uuid.UUID, reason string) error
	Release(ctx context.Context, escrowID, verifiedBy uuid.UUID, notes *string) (*models.EscrowAccount, error)
	ListVerifications(ctx context.Context, contractID uuid.UUID) ([]models.DeliveryVerification, error)
}

// PaymentGateway — внешний платёжный шлюз.
type PaymentGateway interface {
	CreateIntent(params gateway.IntentParams) (*gateway.Intent, error)
	ParseEvent(payload []byte, signature string) (*gateway.Event, error)
}

// PaymentIntentResult — платёжное намерение вместе с созданной транзакцией.
type PaymentIntentResult struct {
	Transaction     *models.PaymentTransaction `json:"transaction"`
	ClientSecret    string                     `json:"client_secret"`
	PaymentIntentID string                     `json:"payment_intent_id"`
}

// EscrowOpening — escrow счёт вместе с первой транзакцией пополнения.
type EscrowOpening struct {
	Escrow      *models.EscrowAccount      `json:"escrow"`
	Transaction *models.PaymentTransaction `json:"transaction"`
}

// EscrowService — оркестратор платежей: открытие escrow, пополнение через
// шлюз или синхронно, обработка webhook и выплата средств.
type EscrowService struct {
	escrows        EscrowStore
	contracts      ContractStore
	gateway        PaymentGateway
	notifier       Notifier
	commissionRate decimal.Decimal
}

func NewEscrowService(escrows EscrowStore, contracts ContractStore, gw PaymentGateway, notifier Notifier, commissionRate decimal.Decimal) *EscrowService {
	return &EscrowService{
		escrows:        escrows,
		contracts:      contracts,
		gateway:        gw,
		notifier:       notifier,
		commissionRate: commissionRate,
	}
}

// Open создаёт escrow счёт для активного контракта и pending транзакцию
// пополнения. Повторный вызов возвращает существующий счёт.
func (s *EscrowService) Open(ctx context.Context, contractID, buyerID uuid.UUID, method string) (*EscrowOpening, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if contract.BuyerID == nil || *contract.BuyerID != buyerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "инициировать оплату может только покупатель")
	}
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "escrow открывается только для активного контракта")
	}

	escrow, err := s.escrows.Create(ctx, contract.ID, *contract.BuyerID, contract.FarmerID, contract.TotalAmount, s.commissionRate)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "escrow уже пополнен")
	}

	if method == "" {
		method = "bank_transfer"
	}
	transaction, err := s.escrows.CreateDeposit(ctx, escrow.ID, escrow.TotalAmount, method, nil)
	if err != nil {
		return nil, err
	}

	return &EscrowOpening{Escrow: escrow, Transaction: transaction}, nil
}

// Get возвращает escrow счёт. Доступен только сторонам контракта.
func (s *EscrowService) Get(ctx context.Context, escrowID, viewerID uuid.UUID) (*models.EscrowAccount, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	if escrow.BuyerID != viewerID && escrow.FarmerID != viewerID {
		return nil, apperror.ErrForbidden
	}
	return escrow, nil
}

// GetByContract возвращает escrow счёт контракта.
func (s *EscrowService) GetByContract(ctx context.Context, contractID, viewerID uuid.UUID) (*models.EscrowAccount, error) {
	escrow, err := s.escrows.GetByContractID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	if escrow.BuyerID != viewerID && escrow.FarmerID != viewerID {
		return nil, apperror.ErrForbidden
	}
	return escrow, nil
}

// ListMine возвращает escrow счета пользователя с транзакциями.
func (s *EscrowService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.EscrowAccount, error) {
	return s.escrows.ListByUser(ctx, userID)
}

// CreateIntent создаёт платёжное намерение в шлюзе и pending транзакцию
// пополнения с его ссылкой. Подтверждение придёт через webhook.
func (s *EscrowService) CreateIntent(ctx context.Context, contractID, buyerID uuid.UUID, amount decimal.Decimal) (*PaymentIntentResult, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if contract.BuyerID == nil || *contract.BuyerID != buyerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "пополнять escrow может только покупатель")
	}
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "пополнять можно только активный контракт")
	}

	escrow, err := s.escrows.GetByContractID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "escrow уже пополнен")
	}
	if !amount.Equal(escrow.TotalAmount) {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма пополнения должна совпадать с суммой escrow")
	}

	intent, err := s.gateway.CreateIntent(gateway.IntentParams{
		Amount:      escrow.TotalAmount,
		ContractID:  escrow.ContractID.String(),
		EscrowID:    escrow.ID.String(),
		BuyerID:     escrow.BuyerID.String(),
		FarmerID:    escrow.FarmerID.String(),
		Description: fmt.Sprintf("Пополнение escrow по контракту %s", escrow.ContractID),
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "платёжный шлюз недоступен")
	}

	transaction, err := s.escrows.CreateDeposit(ctx, escrow.ID, escrow.TotalAmount, "card", &intent.GatewayID)
	if err != nil {
		return nil, err
	}

	return &PaymentIntentResult{
		Transaction:     transaction,
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.GatewayID,
	}, nil
}

// ListVerifications возвращает подтверждения доставки по контракту.
// Доступны только сторонам контракта.
func (s *EscrowService) ListVerifications(ctx context.Context, contractID, viewerID uuid.UUID) ([]models.DeliveryVerification, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(viewerID) {
		return nil, apperror.ErrForbidden
	}
	return s.escrows.ListVerifications(ctx, contractID)
}

// ProcessPayment проводит транзакцию пополнения синхронно, без внешнего
// шлюза. Семантически эквивалентен немедленно доставленному webhook.
// Карта с номером на 0002 отклоняется, как в тестовых картах Stripe.
func (s *EscrowService) ProcessPayment(ctx context.Context, transactionID, buyerID uuid.UUID, cardNumber string) (*models.EscrowAccount, error) {
	transaction, err := s.escrows.GetTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}

	escrow, err := s.escrows.GetByID(ctx, transaction.EscrowID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	if escrow.BuyerID != buyerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "пополнять escrow может только покупатель")
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "escrow уже пополнен")
	}
	if transaction.Status != models.TransactionStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "транзакция уже обработана")
	}

	if strings.HasSuffix(cardNumber, "0002") {
		if failErr := s.escrows.FailDepositByTransactionID(ctx, transaction.ID, "платёж отклонён шлюзом"); failErr != nil {
			logger.Log.Errorf("Не удалось пометить депозит %s неуспешным: %v", transaction.ID, failErr)
		}
		return nil, apperror.New(apperror.ErrCodePaymentDeclined,
			"платёж отклонён, попробуйте ещё раз или выберите другой способ оплаты")
	}

	funded, already, err := s.escrows.ConfirmDepositByTransactionID(ctx, transaction.ID, "sim_"+uuid.NewString())
	if err != nil {
		if failErr := s.escrows.FailDepositByTransactionID(ctx, transaction.ID, err.Error()); failErr != nil {
			logger.Log.Errorf("Не удалось пометить депозит %s неуспешным: %v", transaction.ID, failErr)
		}
		return nil, err
	}
	if !already {
		s.notifyFunded(ctx, funded)
	}
	return funded, nil
}

// HandleGatewayEvent обрабатывает webhook платёжного шлюза. Повторная
// доставка события и события незнакомых типов — no-op.
func (s *EscrowService) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			return apperror.ErrSignatureInvalid
		}
		return apperror.Wrap(err, apperror.ErrCodeGateway, "не удалось разобрать событие шлюза")
	}

	switch event.Kind {
	case gateway.EventPaymentSucceeded:
		escrow, already, err := s.escrows.ConfirmDepositByGatewayID(ctx, event.GatewayID)
		if err != nil {
			if errors.Is(err, repository.ErrTransactionNotFound) {
				logger.Log.Warnf("Webhook о платеже %s без известной транзакции", event.GatewayID)
				return nil
			}
			return err
		}
		if !already {
			s.notifyFunded(ctx, escrow)
		}
		return nil
	case gateway.EventPaymentFailed:
		escrow, err := s.escrows.FailDepositByGatewayID(ctx, event.GatewayID, event.FailureReason)
		if err != nil {
			if errors.Is(err, repository.ErrTransactionNotFound) {
				logger.Log.Warnf("Webhook о неуспехе платежа %s без известной транзакции", event.GatewayID)
				return nil
			}
			return err
		}
		s.notifier.Notify(ctx, escrow.BuyerID, models.NotificationTypePayment,
			"Платёж не прошёл",
			fmt.Sprintf("Пополнение escrow отклонено: %s", event.FailureReason),
			&escrow.ID)
		return nil
	default:
		return nil
	}
}

// Release выплачивает средства после подтверждения поставки покупателем.
func (s *EscrowService) Release(ctx context.Context, escrowID, buyerID uuid.UUID, notes *string) (*models.EscrowAccount, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	if escrow.BuyerID != buyerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подтвердить поставку может только покупатель")
	}

	released, err := s.escrows.Release(ctx, escrowID, buyerID, notes)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFunded) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "средства можно выплатить только из пополненного escrow")
		}
		return nil, err
	}

	s.notifier.Notify(ctx, released.FarmerID, models.NotificationTypePayment,
		"Средства выплачены",
		fmt.Sprintf("По контракту выплачено %s, комиссия площадки %s",
			released.FarmerAmount.StringFixed(2), released.PlatformCommission.StringFixed(2)),
		&released.ID)
	s.notifier.Notify(ctx, released.BuyerID, models.NotificationTypeContract,
		"Контракт завершён",
		"Поставка подтверждена, контракт завершён",
		&released.ContractID)

	return released, nil
}

func (s *EscrowService) notifyFunded(ctx context.Context, escrow *models.EscrowAccount) {
	s.notifier.Notify(ctx, escrow.FarmerID, models.NotificationTypePayment,
		"Escrow пополнен",
		fmt.Sprintf("Покупатель внёс %s, средства заморожены до подтверждения поставки", escrow.TotalAmount.StringFixed(2)),
		&escrow.ID)
	s.notifier.Notify(ctx, escrow.BuyerID, models.NotificationTypePayment,
		"Платёж принят",
		"Средства заморожены на escrow счёте до подтверждения поставки",
		&escrow.ID)
}
