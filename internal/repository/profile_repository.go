package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agrolink/agrolink-backend/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository хранит профили участников площадки. Учётные записи живут
// во внешнем сервисе идентификации, здесь только рыночный профиль.
type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID возвращает профиль по идентификатору пользователя.
func (r *ProfileRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profile repository: get by id %w", err)
	}
	return &profile, nil
}

// GetByIDs возвращает профили пачкой для подстановки в списки.
func (r *ProfileRepository) GetByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	result := make(map[uuid.UUID]*models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM profiles WHERE user_id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("profile repository: get by ids %w", err)
	}
	query = r.db.Rebind(query)

	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("profile repository: get by ids %w", err)
	}

	for i := range profiles {
		result[profiles[i].UserID] = &profiles[i]
	}
	return result, nil
}

// Upsert создаёт или обновляет профиль. Тип пользователя фиксируется при
// первом сохранении и дальше не меняется.
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	var saved models.Profile
	query := `
		INSERT INTO profiles (user_id, full_name, user_type, company_name, location, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			company_name = EXCLUDED.company_name,
			location = EXCLUDED.location,
			phone = EXCLUDED.phone,
			updated_at = NOW()
		RETURNING *
	`
	err := r.db.GetContext(ctx, &saved, query, p.UserID, p.FullName, p.UserType, p.CompanyName, p.Location, p.Phone)
	if err != nil {
		return nil, fmt.Errorf("profile repository: upsert %w", err)
	}
	return &saved, nil
}
