package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrolink/agrolink-backend/internal/logger"
	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

// Notifier уведомляет пользователя о событии. Реализация не возвращает
// ошибку: доставка уведомлений не должна ломать бизнес-операцию.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notificationType, title, content string, relatedID *uuid.UUID)
}

// NotificationStore — операции хранения уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// RealtimePublisher доставляет событие подключённым клиентам пользователя.
type RealtimePublisher interface {
	Publish(userID uuid.UUID, event string, payload interface{})
}

// NotificationService сохраняет уведомления и рассылает их по websocket.
type NotificationService struct {
	store     NotificationStore
	publisher RealtimePublisher
}

func NewNotificationService(store NotificationStore, publisher RealtimePublisher) *NotificationService {
	return &NotificationService{store: store, publisher: publisher}
}

// Notify сохраняет уведомление и отправляет его в реальном времени.
// Ошибки только логируются.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, notificationType, title, content string, relatedID *uuid.UUID) {
	saved, err := s.store.Create(ctx, &models.Notification{
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Content:   content,
		RelatedID: relatedID,
	})
	if err != nil {
		logger.Log.Errorf("Не удалось сохранить уведомление для %s: %v", userID, err)
		return
	}

	if s.publisher != nil {
		s.publisher.Publish(userID, "notification", saved)
	}
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// UnreadCount возвращает число непрочитанных уведомлений.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead помечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	err := s.store.MarkRead(ctx, id, userID)
	if err == repository.ErrNotificationNotFound {
		return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
	}
	return err
}

// MarkAllRead помечает все уведомления прочитанными.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllRead(ctx, userID)
}
