package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrolink/agrolink-backend/internal/logger"
	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

// BidAction — решение фермера по ставке.
type BidAction int

const (
	BidActionAccept BidAction = iota + 1
	BidActionReject
)

// ParseBidAction разбирает действие из запроса. Любая строка, кроме
// accept и reject, отклоняется.
func ParseBidAction(raw string) (BidAction, error) {
	switch raw {
	case "accept":
		return BidActionAccept, nil
	case "reject":
		return BidActionReject, nil
	default:
		return 0, apperror.New(apperror.ErrCodeValidation, "действие должно быть accept или reject")
	}
}

// BidStore — операции репозитория, нужные сервису ставок.
type BidStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	CreateBid(ctx context.Context, bid *models.ContractBid) error
	GetBidByID(ctx context.Context, id uuid.UUID) (*models.ContractBid, error)
	ListBids(ctx context.Context, contractID uuid.UUID) ([]models.ContractBid, error)
	HasPendingBid(ctx context.Context, contractID, bidderID uuid.UUID) (bool, error)
	UpdateBidStatus(ctx context.Context, id uuid.UUID, status string) (*models.ContractBid, error)
	AcceptBid(ctx context.Context, bidID uuid.UUID, commissionRate decimal.Decimal) (*models.ContractBid, *models.Contract, error)
}

// ConversationEnsurer создаёт диалог сторон контракта, если его ещё нет.
type ConversationEnsurer interface {
	CreateIfAbsent(ctx context.Context, contractID, farmerID, buyerID uuid.UUID) (*models.Conversation, error)
}

// BidService управляет ставками покупателей по контрактам.
type BidService struct {
	bids           BidStore
	profiles       ProfileLookup
	conversations  ConversationEnsurer
	notifier       Notifier
	commissionRate decimal.Decimal
}

func NewBidService(bids BidStore, profiles ProfileLookup, conversations ConversationEnsurer, notifier Notifier, commissionRate decimal.Decimal) *BidService {
	return &BidService{
		bids:           bids,
		profiles:       profiles,
		conversations:  conversations,
		notifier:       notifier,
		commissionRate: commissionRate,
	}
}

// PlaceBid создаёт ставку покупателя. У одного покупателя может быть не
// больше одной активной ставки на контракт.
func (s *BidService) PlaceBid(ctx context.Context, bidderID uuid.UUID, userType string, contractID uuid.UUID, amount decimal.Decimal, message *string) (*models.ContractBid, error) {
	if userType != models.UserTypeBuyer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "ставки могут делать только покупатели")
	}
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма ставки должна быть больше нуля")
	}

	contract, err := s.bids.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if contract.FarmerID == bidderID {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "нельзя делать ставку на собственный контракт")
	}
	if contract.Status != models.ContractStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "ставки принимаются только по открытым контрактам")
	}

	exists, err := s.bids.HasPendingBid(ctx, contractID, bidderID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrDuplicateBid
	}

	bid := &models.ContractBid{
		ContractID: contractID,
		BidderID:   bidderID,
		BidAmount:  amount,
		Message:    message,
		Status:     models.BidStatusPending,
	}
	if err := s.bids.CreateBid(ctx, bid); err != nil {
		return nil, err
	}

	// Ставка отдаётся с профилем покупателя; отсутствие профиля не ошибка.
	if profile, err := s.profiles.GetByID(ctx, bidderID); err == nil {
		bid.Bidder = profile
	}

	s.notifier.Notify(ctx, contract.FarmerID, models.NotificationTypeContract,
		"Новая ставка",
		fmt.Sprintf("По контракту на %s поступила ставка на сумму %s", contract.CropType, amount.StringFixed(2)),
		&contract.ID)

	return bid, nil
}

// ListBids возвращает ставки контракта. Полный список видит только фермер,
// покупатель видит собственные ставки.
func (s *BidService) ListBids(ctx context.Context, contractID, viewerID uuid.UUID) ([]models.ContractBid, error) {
	contract, err := s.bids.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	bids, err := s.bids.ListBids(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if contract.FarmerID != viewerID {
		own := bids[:0]
		for _, b := range bids {
			if b.BidderID == viewerID {
				own = append(own, b)
			}
		}
		bids = own
	}

	s.attachBidders(ctx, bids)
	return bids, nil
}

// ResolveBid принимает или отклоняет ставку. Принятие атомарно: ставка,
// контракт, проигравшие ставки и escrow меняются одной транзакцией.
func (s *BidService) ResolveBid(ctx context.Context, farmerID, contractID, bidID uuid.UUID, action BidAction) (*models.ContractBid, error) {
	bid, err := s.bids.GetBidByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, err
	}
	if bid.ContractID != contractID {
		return nil, apperror.ErrBidNotFound
	}

	contract, err := s.bids.GetByID(ctx, bid.ContractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if contract.FarmerID != farmerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "ставкой распоряжается только владелец контракта")
	}
	if bid.Status != models.BidStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "ставка уже рассмотрена")
	}
	if contract.Status != models.ContractStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "контракт уже не принимает ставки")
	}

	switch action {
	case BidActionReject:
		updated, err := s.bids.UpdateBidStatus(ctx, bidID, models.BidStatusRejected)
		if err != nil {
			return nil, err
		}
		s.notifier.Notify(ctx, bid.BidderID, models.NotificationTypeContract,
			"Ставка отклонена",
			fmt.Sprintf("Ваша ставка по контракту на %s отклонена", contract.CropType),
			&contract.ID)
		return updated, nil
	case BidActionAccept:
		return s.acceptBid(ctx, contract, bid)
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестное действие по ставке")
	}
}

func (s *BidService) acceptBid(ctx context.Context, contract *models.Contract, bid *models.ContractBid) (*models.ContractBid, error) {
	// Проигравшие ставки собираем до транзакции, внутри неё они уже rejected.
	losers := make([]uuid.UUID, 0)
	pending, err := s.bids.ListBids(ctx, contract.ID)
	if err == nil {
		for _, b := range pending {
			if b.ID != bid.ID && b.Status == models.BidStatusPending {
				losers = append(losers, b.BidderID)
			}
		}
	}

	accepted, updatedContract, err := s.bids.AcceptBid(ctx, bid.ID, s.commissionRate)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotPending) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "ставка уже рассмотрена")
		}
		if errors.Is(err, repository.ErrContractNotPending) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "контракт уже не принимает ставки")
		}
		return nil, err
	}

	if _, err := s.conversations.CreateIfAbsent(ctx, updatedContract.ID, updatedContract.FarmerID, accepted.BidderID); err != nil {
		logger.Log.Errorf("Не удалось создать диалог по контракту %s: %v", updatedContract.ID, err)
	}

	s.notifier.Notify(ctx, accepted.BidderID, models.NotificationTypeContract,
		"Ставка принята",
		fmt.Sprintf("Ваша ставка по контракту на %s принята, контракт активен", updatedContract.CropType),
		&updatedContract.ID)
	for _, loser := range losers {
		s.notifier.Notify(ctx, loser, models.NotificationTypeContract,
			"Ставка отклонена",
			fmt.Sprintf("По контракту на %s принята другая ставка", updatedContract.CropType),
			&updatedContract.ID)
	}

	return accepted, nil
}

func (s *BidService) attachBidders(ctx context.Context, bids []models.ContractBid) {
	ids := make([]uuid.UUID, 0, len(bids))
	seen := make(map[uuid.UUID]struct{})
	for _, b := range bids {
		if _, ok := seen[b.BidderID]; !ok {
			seen[b.BidderID] = struct{}{}
			ids = append(ids, b.BidderID)
		}
	}
	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return
	}
	for i := range bids {
		bids[i].Bidder = profiles[bids[i].BidderID]
	}
}
