package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agrolink/agrolink-backend/internal/models"
)

// RatingRepository хранит отзывы участников по завершённым контрактам.
type RatingRepository struct {
	db *sqlx.DB
}

func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert сохраняет оценки одной транзакцией. Повторная отправка по той же
// категории перезаписывает оценку, а не создаёт дубликат.
func (r *RatingRepository) Upsert(ctx context.Context, ratings []models.Rating) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO ratings (contract_id, reviewer_id, reviewee_id, rating, review_text, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contract_id, reviewer_id, reviewee_id, category)
		DO UPDATE SET rating = EXCLUDED.rating, review_text = EXCLUDED.review_text
	`
	for _, rating := range ratings {
		_, err := tx.ExecContext(ctx, query,
			rating.ContractID,
			rating.ReviewerID,
			rating.RevieweeID,
			rating.Rating,
			rating.ReviewText,
			rating.Category,
		)
		if err != nil {
			return fmt.Errorf("rating repository: upsert %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rating repository: upsert commit %w", err)
	}
	return nil
}

// ListByReviewee возвращает последние общие отзывы о пользователе.
func (r *RatingRepository) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit int) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.SelectContext(ctx, &ratings, `
		SELECT * FROM ratings
		WHERE reviewee_id = $1 AND category = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, revieweeID, models.RatingCategoryOverall, limit)
	if err != nil {
		return nil, fmt.Errorf("rating repository: list by reviewee %w", err)
	}
	return ratings, nil
}

// Summary считает средний балл и число общих отзывов о пользователе.
func (r *RatingRepository) Summary(ctx context.Context, revieweeID uuid.UUID) (*models.RatingSummary, error) {
	var summary models.RatingSummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT COALESCE(AVG(rating), 0) AS average_rating, COUNT(*) AS total_reviews
		FROM ratings
		WHERE reviewee_id = $1 AND category = $2
	`, revieweeID, models.RatingCategoryOverall)
	if err != nil {
		return nil, fmt.Errorf("rating repository: summary %w", err)
	}
	return &summary, nil
}
