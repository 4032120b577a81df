package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

const recentReviewsLimit = 10

// RatingStore — операции хранения отзывов.
type RatingStore interface {
	Upsert(ctx context.Context, ratings []models.Rating) error
	ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit int) ([]models.Rating, error)
	Summary(ctx context.Context, revieweeID uuid.UUID) (*models.RatingSummary, error)
}

// UserRating — агрегированный рейтинг пользователя с последними отзывами.
type UserRating struct {
	Summary *models.RatingSummary `json:"summary"`
	Reviews []models.Rating       `json:"reviews"`
}

// RatingService управляет взаимными оценками сторон завершённых контрактов.
type RatingService struct {
	ratings   RatingStore
	contracts ContractGetter
	profiles  ProfileLookup
}

func NewRatingService(ratings RatingStore, contracts ContractGetter, profiles ProfileLookup) *RatingService {
	return &RatingService{
		ratings:   ratings,
		contracts: contracts,
		profiles:  profiles,
	}
}

// Rate сохраняет оценки второй стороны завершённого контракта. Текст
// отзыва прикрепляется только к итоговой категории.
func (s *RatingService) Rate(ctx context.Context, reviewerID, contractID uuid.UUID, scores map[string]int, reviewText *string) ([]models.Rating, error) {
	if len(scores) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужна хотя бы одна оценка")
	}
	for category, score := range scores {
		if category == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "категория оценки не может быть пустой")
		}
		if score < 1 || score > 5 {
			return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
		}
	}

	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(reviewerID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отзыв может оставить только сторона контракта")
	}
	if contract.Status != models.ContractStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "отзывы доступны только по завершённым контрактам")
	}

	reviewee, ok := contractCounterparty(contract, reviewerID)
	if !ok {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "у контракта нет второй стороны")
	}

	ratings := make([]models.Rating, 0, len(scores))
	for category, score := range scores {
		rating := models.Rating{
			ContractID: contractID,
			ReviewerID: reviewerID,
			RevieweeID: reviewee,
			Rating:     score,
			Category:   category,
		}
		if category == models.RatingCategoryOverall {
			rating.ReviewText = reviewText
		}
		ratings = append(ratings, rating)
	}

	if err := s.ratings.Upsert(ctx, ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

// GetUserRating возвращает средний балл пользователя и его последние отзывы.
func (s *RatingService) GetUserRating(ctx context.Context, userID uuid.UUID) (*UserRating, error) {
	summary, err := s.ratings.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.ratings.ListByReviewee(ctx, userID, recentReviewsLimit)
	if err != nil {
		return nil, err
	}
	s.attachReviewers(ctx, reviews)

	return &UserRating{Summary: summary, Reviews: reviews}, nil
}

func (s *RatingService) attachReviewers(ctx context.Context, reviews []models.Rating) {
	ids := make([]uuid.UUID, 0, len(reviews))
	seen := make(map[uuid.UUID]struct{})
	for _, rv := range reviews {
		if _, ok := seen[rv.ReviewerID]; !ok {
			seen[rv.ReviewerID] = struct{}{}
			ids = append(ids, rv.ReviewerID)
		}
	}
	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return
	}
	for i := range reviews {
		reviews[i].Reviewer = profiles[reviews[i].ReviewerID]
	}
}
