package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы пользователей платформы
const (
	UserTypeFarmer = "farmer"
	UserTypeBuyer  = "buyer"
)

// Profile описывает публичный профиль пользователя.
// Сами учётные записи живут во внешнем identity-сервисе, здесь только витрина.
type Profile struct {
	UserID      uuid.UUID `db:"user_id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	UserType    string    `db:"user_type" json:"user_type"`
	CompanyName *string   `db:"company_name" json:"company_name,omitempty"`
	Location    *string   `db:"location" json:"location,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
