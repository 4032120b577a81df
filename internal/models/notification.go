package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений
const (
	NotificationTypeContract = "contract"
	NotificationTypePayment  = "payment"
	NotificationTypeMessage  = "message"
)

// Notification — уведомление пользователя. Не авторитетно: ошибка записи
// никогда не откатывает породившую его бизнес-операцию.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Type      string     `db:"notification_type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content"`
	RelatedID *uuid.UUID `db:"related_id" json:"related_id,omitempty"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
