package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
)

func TestRatingService_Rate_Success(t *testing.T) {
	ratings := new(mockRatingStore)
	contracts := new(mockContractStore)
	svc := NewRatingService(ratings, contracts, new(mockProfileLookup))
	ctx := context.Background()

	farmerID := uuid.New()
	buyerID := uuid.New()
	contract := &models.Contract{ID: uuid.New(), FarmerID: farmerID, BuyerID: &buyerID, Status: models.ContractStatusCompleted}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	text := "Поставка в срок, качество отличное"
	ratings.On("Upsert", ctx, mock.MatchedBy(func(rs []models.Rating) bool {
		if len(rs) != 2 {
			return false
		}
		// Текст прикрепляется только к итоговой оценке.
		for _, r := range rs {
			if r.RevieweeID != farmerID {
				return false
			}
			if r.Category == models.RatingCategoryOverall && r.ReviewText == nil {
				return false
			}
			if r.Category != models.RatingCategoryOverall && r.ReviewText != nil {
				return false
			}
		}
		return true
	})).Return(nil)

	saved, err := svc.Rate(ctx, buyerID, contract.ID, map[string]int{
		models.RatingCategoryOverall: 5,
		"communication":              4,
	}, &text)
	assert.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestRatingService_Rate_ContractNotCompleted(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewRatingService(new(mockRatingStore), contracts, new(mockProfileLookup))
	ctx := context.Background()

	farmerID := uuid.New()
	buyerID := uuid.New()
	contract := &models.Contract{ID: uuid.New(), FarmerID: farmerID, BuyerID: &buyerID, Status: models.ContractStatusActive}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Rate(ctx, buyerID, contract.ID, map[string]int{models.RatingCategoryOverall: 5}, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestRatingService_Rate_NotParty(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewRatingService(new(mockRatingStore), contracts, new(mockProfileLookup))
	ctx := context.Background()

	buyerID := uuid.New()
	contract := &models.Contract{ID: uuid.New(), FarmerID: uuid.New(), BuyerID: &buyerID, Status: models.ContractStatusCompleted}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Rate(ctx, uuid.New(), contract.ID, map[string]int{models.RatingCategoryOverall: 5}, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestRatingService_Rate_ScoreOutOfRange(t *testing.T) {
	svc := NewRatingService(new(mockRatingStore), new(mockContractStore), new(mockProfileLookup))
	ctx := context.Background()

	_, err := svc.Rate(ctx, uuid.New(), uuid.New(), map[string]int{models.RatingCategoryOverall: 6}, nil)
	assert.Error(t, err)

	_, err = svc.Rate(ctx, uuid.New(), uuid.New(), map[string]int{models.RatingCategoryOverall: 0}, nil)
	assert.Error(t, err)
}

func TestRatingService_GetUserRating(t *testing.T) {
	ratings := new(mockRatingStore)
	profiles := new(mockProfileLookup)
	svc := NewRatingService(ratings, new(mockContractStore), profiles)
	ctx := context.Background()

	userID := uuid.New()
	reviewerID := uuid.New()
	ratings.On("Summary", ctx, userID).Return(&models.RatingSummary{
		AverageRating: decimal.RequireFromString("4.5"),
		TotalReviews:  2,
	}, nil)
	ratings.On("ListByReviewee", ctx, userID, 10).Return([]models.Rating{
		{ID: uuid.New(), ReviewerID: reviewerID, RevieweeID: userID, Rating: 5, Category: models.RatingCategoryOverall},
	}, nil)
	reviewer := &models.Profile{UserID: reviewerID, FullName: "Покупатель"}
	profiles.On("GetByIDs", ctx, []uuid.UUID{reviewerID}).Return(map[uuid.UUID]*models.Profile{reviewerID: reviewer}, nil)

	rating, err := svc.GetUserRating(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 2, rating.Summary.TotalReviews)
	assert.Len(t, rating.Reviews, 1)
	assert.Equal(t, reviewer, rating.Reviews[0].Reviewer)
}
