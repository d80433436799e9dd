package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// teamOf returns the user's team or ErrNoTeam.
func teamOf(user *models.User) (uint, error) {
	if user == nil || user.TeamID == nil {
		return 0, ErrNoTeam
	}
	return *user.TeamID, nil
}

// ownMeal loads a meal and checks it belongs to the user's team.
func ownMeal(tx *gorm.DB, user *models.User, mealID uint) (*models.Meal, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}
	var meal models.Meal
	if err := tx.First(&meal, mealID).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("meal %d", mealID))
	}
	if meal.TeamID != teamID {
		return nil, fmt.Errorf("meal %d belongs to another team: %w", mealID, ErrForbidden)
	}
	return &meal, nil
}

// canEditDish reports whether the user created the dish or shares a team with its creator.
func canEditDish(user *models.User, dish *models.Dish) bool {
	if user == nil {
		return false
	}
	if dish.CreatedByID == user.ID || user.IsStaff {
		return true
	}
	return dish.CreatedBy != nil && user.SameTeam(dish.CreatedBy.TeamID)
}
