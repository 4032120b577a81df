package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RatingCategoryOverall — итоговая оценка; только она носит текст отзыва.
const RatingCategoryOverall = "overall"

// Rating — оценка стороны контракта по одной категории.
type Rating struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ContractID uuid.UUID `db:"contract_id" json:"contract_id"`
	ReviewerID uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID uuid.UUID `db:"reviewee_id" json:"reviewee_id"`
	Rating     int       `db:"rating" json:"rating"`
	ReviewText *string   `db:"review_text" json:"review_text,omitempty"`
	Category   string    `db:"category" json:"category"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	Reviewer *Profile `json:"reviewer,omitempty"`
}

// RatingSummary — агрегат оценок пользователя.
type RatingSummary struct {
	AverageRating decimal.Decimal `db:"average_rating" json:"average_rating"`
	TotalReviews  int             `db:"total_reviews" json:"total_reviews"`
}
