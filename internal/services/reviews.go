package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// ReviewService stores users' opinions of dishes
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService creates a review service
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// ReviewInput is a user's review of a dish. Scores are optional, 1 to 3.
type ReviewInput struct {
	Notes    string `json:"notes"`
	Fastness *int   `json:"fastness"`
	Ease     *int   `json:"ease"`
	Results  *int   `json:"results"`
}

func (in ReviewInput) validate() error {
	checks := []struct {
		name    string
		value   *int
		choices map[int]string
	}{
		{"fastness", in.Fastness, models.FastnessChoices},
		{"ease", in.Ease, models.EaseChoices},
		{"results", in.Results, models.ResultsChoices},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if _, ok := c.choices[*c.value]; !ok {
			return invalidf("%s must be between 1 and 3", c.name)
		}
	}
	return nil
}

// List returns every review of a dish, newest first.
func (s *ReviewService) List(ctx context.Context, dishID uint) ([]models.DishReview, error) {
	var reviews []models.DishReview
	if err := s.db.WithContext(ctx).Where("dish_id = ?", dishID).Order("updated_at DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews of dish %d: %w", dishID, err)
	}
	return reviews, nil
}

// Upsert creates the user's review of a dish or replaces it.
func (s *ReviewService) Upsert(ctx context.Context, user *models.User, dishID uint, in ReviewInput) (*models.DishReview, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var review models.DishReview
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dish models.Dish
		if err := tx.Select("id").First(&dish, dishID).Error; err != nil {
			return translate(err, fmt.Sprintf("dish %d", dishID))
		}

		err := tx.Where("user_id = ? AND dish_id = ?", user.ID, dishID).First(&review).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load review: %w", err)
		}
		review.UserID = user.ID
		review.DishID = dishID
		review.Notes = in.Notes
		review.Fastness = in.Fastness
		review.Ease = in.Ease
		review.Results = in.Results
		return translate(tx.Save(&review).Error, "save review")
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Delete removes the user's review of a dish.
func (s *ReviewService) Delete(ctx context.Context, user *models.User, dishID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND dish_id = ?", user.ID, dishID).Delete(&models.DishReview{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review of dish %d: %w", dishID, ErrNotFound)
	}
	return nil
}
