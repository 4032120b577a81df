package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrolink/agrolink-backend/internal/logger"
	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

// ContractStore — операции репозитория контрактов, нужные сервису.
type ContractStore interface {
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, filter repository.ContractFilter) ([]models.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Contract, error)
}

// EscrowOpener — чтение и идемпотентное создание escrow счёта контракта.
type EscrowOpener interface {
	GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.EscrowAccount, error)
	Create(ctx context.Context, contractID, buyerID, farmerID uuid.UUID, total, rate decimal.Decimal) (*models.EscrowAccount, error)
}

// ProfileLookup — чтение профилей для подстановки в ответы.
type ProfileLookup interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.Profile, error)
}

// CreateContractInput — данные нового контракта.
type CreateContractInput struct {
	CropType         string
	Quantity         decimal.Decimal
	PricePerUnit     decimal.Decimal
	DeliveryDate     time.Time
	QualityStandards *string
	PaymentTerms     *string
}

// ContractService управляет жизненным циклом контрактов.
type ContractService struct {
	contracts      ContractStore
	escrows        EscrowOpener
	profiles       ProfileLookup
	notifier       Notifier
	commissionRate decimal.Decimal
}

func NewContractService(contracts ContractStore, escrows EscrowOpener, profiles ProfileLookup, notifier Notifier, commissionRate decimal.Decimal) *ContractService {
	return &ContractService{
		contracts:      contracts,
		escrows:        escrows,
		profiles:       profiles,
		notifier:       notifier,
		commissionRate: commissionRate,
	}
}

// Create публикует контракт фермера. Итоговая сумма считается из количества
// и цены за единицу.
func (s *ContractService) Create(ctx context.Context, farmerID uuid.UUID, input CreateContractInput) (*models.Contract, error) {
	if input.CropType == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите культуру")
	}
	if !input.Quantity.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "количество должно быть больше нуля")
	}
	if !input.PricePerUnit.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена за единицу должна быть больше нуля")
	}
	if input.DeliveryDate.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата поставки должна быть в будущем")
	}

	contract := &models.Contract{
		FarmerID:         farmerID,
		CropType:         input.CropType,
		Quantity:         input.Quantity,
		PricePerUnit:     input.PricePerUnit,
		TotalAmount:      input.Quantity.Mul(input.PricePerUnit),
		DeliveryDate:     input.DeliveryDate,
		Status:           models.ContractStatusPending,
		QualityStandards: input.QualityStandards,
		PaymentTerms:     input.PaymentTerms,
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// Get возвращает контракт с профилями сторон.
func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	s.attachParties(ctx, []*models.Contract{contract})
	return contract, nil
}

// List возвращает контракты по фильтру с профилями сторон.
func (s *ContractService) List(ctx context.Context, filter repository.ContractFilter) ([]models.Contract, error) {
	if filter.Status != "" {
		if _, ok := models.ValidContractStatuses[filter.Status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус контракта")
		}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	contracts, err := s.contracts.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	refs := make([]*models.Contract, len(contracts))
	for i := range contracts {
		refs[i] = &contracts[i]
	}
	s.attachParties(ctx, refs)
	return contracts, nil
}

// SetStatus переводит контракт в новый статус с проверкой перехода.
// Контракт с незавершённым escrow нельзя пометить completed напрямую:
// завершение идёт только через выплату средств.
func (s *ContractService) SetStatus(ctx context.Context, contractID, actorID uuid.UUID, status string, notes *string) (*models.Contract, error) {
	if _, ok := models.ValidContractStatuses[status]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус контракта")
	}

	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	if !contract.IsParty(actorID) {
		return nil, apperror.ErrForbidden
	}

	if !models.CanTransitionContract(contract.Status, status) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			fmt.Sprintf("переход из статуса %s в %s недопустим", contract.Status, status))
	}

	if status == models.ContractStatusCompleted {
		escrow, err := s.escrows.GetByContractID(ctx, contractID)
		if err != nil && !errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, err
		}
		if escrow != nil && escrow.Status != models.EscrowStatusReleased {
			return nil, apperror.New(apperror.ErrCodeInvalidState,
				"контракт нельзя завершить до выплаты средств из escrow")
		}
	}

	updated, err := s.contracts.UpdateStatus(ctx, contractID, contract.Status, status)
	if err != nil {
		if errors.Is(err, repository.ErrContractStatusConflict) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "статус контракта изменился, повторите запрос")
		}
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	// Активация открывает escrow, если его ещё нет. Создание идемпотентно,
	// так что гонка с принятием ставки безопасна.
	if status == models.ContractStatusActive && updated.BuyerID != nil {
		if _, err := s.escrows.Create(ctx, updated.ID, *updated.BuyerID, updated.FarmerID, updated.TotalAmount, s.commissionRate); err != nil {
			logger.Log.Errorf("Не удалось открыть escrow по контракту %s: %v", updated.ID, err)
		}
	}

	s.notifyStatusChange(ctx, updated, actorID, notes)
	return updated, nil
}

func (s *ContractService) notifyStatusChange(ctx context.Context, contract *models.Contract, actorID uuid.UUID, notes *string) {
	title := "Статус контракта изменён"
	content := fmt.Sprintf("Контракт на %s теперь в статусе %s", contract.CropType, contract.Status)
	if notes != nil && *notes != "" {
		content = fmt.Sprintf("%s: %s", content, *notes)
	}

	if contract.FarmerID != actorID {
		s.notifier.Notify(ctx, contract.FarmerID, models.NotificationTypeContract, title, content, &contract.ID)
	}
	if contract.BuyerID != nil && *contract.BuyerID != actorID {
		s.notifier.Notify(ctx, *contract.BuyerID, models.NotificationTypeContract, title, content, &contract.ID)
	}
}

// attachParties подставляет профили фермера и покупателя. Отсутствие профиля
// не ошибка: контракт отдаётся без него.
func (s *ContractService) attachParties(ctx context.Context, contracts []*models.Contract) {
	ids := make([]uuid.UUID, 0, len(contracts)*2)
	seen := make(map[uuid.UUID]struct{})
	for _, c := range contracts {
		if _, ok := seen[c.FarmerID]; !ok {
			seen[c.FarmerID] = struct{}{}
			ids = append(ids, c.FarmerID)
		}
		if c.BuyerID != nil {
			if _, ok := seen[*c.BuyerID]; !ok {
				seen[*c.BuyerID] = struct{}{}
				ids = append(ids, *c.BuyerID)
			}
		}
	}

	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return
	}
	for _, c := range contracts {
		c.Farmer = profiles[c.FarmerID]
		if c.BuyerID != nil {
			c.Buyer = profiles[*c.BuyerID]
		}
	}
}
