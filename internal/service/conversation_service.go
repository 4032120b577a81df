package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

// ConversationStore — операции репозитория диалогов.
type ConversationStore interface {
	CreateIfAbsent(ctx context.Context, contractID, farmerID, buyerID uuid.UUID) (*models.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, conversationID, authorID uuid.UUID, content string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
}

// ConversationService — переписка сторон активного контракта.
type ConversationService struct {
	conversations ConversationStore
	publisher     RealtimePublisher
	notifier      Notifier
}

func NewConversationService(conversations ConversationStore, publisher RealtimePublisher, notifier Notifier) *ConversationService {
	return &ConversationService{conversations: conversations, publisher: publisher, notifier: notifier}
}

// ListMine возвращает диалоги пользователя.
func (s *ConversationService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.conversations.ListByUser(ctx, userID)
}

// GetByContract возвращает диалог контракта. Доступен только сторонам.
func (s *ConversationService) GetByContract(ctx context.Context, contractID, viewerID uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.conversations.GetByContractID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "диалог не найден")
		}
		return nil, err
	}
	if conversation.FarmerID != viewerID && conversation.BuyerID != viewerID {
		return nil, apperror.ErrForbidden
	}
	return conversation, nil
}

// SendMessage отправляет сообщение в диалог и доставляет его собеседнику.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID, authorID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}

	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "диалог не найден")
		}
		return nil, err
	}
	if conversation.FarmerID != authorID && conversation.BuyerID != authorID {
		return nil, apperror.ErrForbidden
	}

	message, err := s.conversations.CreateMessage(ctx, conversationID, authorID, content)
	if err != nil {
		return nil, err
	}

	recipient := conversation.FarmerID
	if authorID == conversation.FarmerID {
		recipient = conversation.BuyerID
	}
	if s.publisher != nil {
		s.publisher.Publish(recipient, "message", message)
	}
	s.notifier.Notify(ctx, recipient, models.NotificationTypeMessage,
		"Новое сообщение", content, &conversation.ContractID)

	return message, nil
}

// ListMessages возвращает сообщения диалога.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, viewerID uuid.UUID, limit, offset int) ([]models.Message, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "диалог не найден")
		}
		return nil, err
	}
	if conversation.FarmerID != viewerID && conversation.BuyerID != viewerID {
		return nil, apperror.ErrForbidden
	}

	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.conversations.ListMessages(ctx, conversationID, limit, offset)
}
