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

// ProfileStore — операции репозитория профилей.
type ProfileStore interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

// UpdateProfileInput — сохраняемые поля профиля.
type UpdateProfileInput struct {
	FullName    string
	CompanyName *string
	Location    *string
	Phone       *string
}

// ProfileService управляет рыночными профилями пользователей.
type ProfileService struct {
	profiles ProfileStore
}

func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Get возвращает профиль пользователя.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "профиль не найден")
		}
		return nil, err
	}
	return profile, nil
}

// Upsert создаёт или обновляет профиль текущего пользователя. Тип приходит
// из токена доступа, клиент его не выбирает.
func (s *ProfileService) Upsert(ctx context.Context, userID uuid.UUID, userType string, input UpdateProfileInput) (*models.Profile, error) {
	if userType != models.UserTypeFarmer && userType != models.UserTypeBuyer {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип пользователя")
	}
	input.FullName = strings.TrimSpace(input.FullName)
	if input.FullName == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите имя")
	}

	return s.profiles.Upsert(ctx, &models.Profile{
		UserID:      userID,
		FullName:    input.FullName,
		UserType:    userType,
		CompanyName: input.CompanyName,
		Location:    input.Location,
		Phone:       input.Phone,
	})
}
