package services

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// GroceryReconciler keeps grocery list items in step with courses.
// Every method runs on the caller's transaction.
type GroceryReconciler struct {
	log *slog.Logger
}

// NewGroceryReconciler creates a reconciler
func NewGroceryReconciler(log *slog.Logger) *GroceryReconciler {
	return &GroceryReconciler{log: log}
}

// OnCourseCreated adds one grocery item per ingredient amount of the course's
// dish when the meal is cooked. Pairs that already have an item are skipped.
func (r *GroceryReconciler) OnCourseCreated(tx *gorm.DB, course *models.Course) error {
	meal, err := r.loadMeal(tx, course.MealID)
	if err != nil {
		return err
	}
	if !meal.IsCooked() {
		return nil
	}

	expected, err := r.dishAmountIDs(tx, course.DishID)
	if err != nil {
		return err
	}
	existing, err := r.courseItems(tx, course.ID)
	if err != nil {
		return err
	}

	have := make(map[uint]bool, len(existing))
	for _, item := range existing {
		have[item.IngredientAmountID] = true
	}

	created, err := r.createMissing(tx, meal.TeamID, course.ID, expected, have)
	if err != nil {
		return err
	}
	r.log.Debug("grocery items created for new course", "course_id", course.ID, "created", created)
	return nil
}

// OnCourseUpdated reconciles a course after a save. changed lists the
// fields the save touched. When only progress fields (eaten, prepared)
// changed, every item of the course is marked purchased and nothing else
// happens. Otherwise the expected set is recomputed: missing items are
// created and unpurchased items that are no longer expected are deleted.
func (r *GroceryReconciler) OnCourseUpdated(tx *gorm.DB, course *models.Course, changed []string) error {
	if onlyProgressFields(changed) {
		res := tx.Model(&models.GroceryListItem{}).
			Where("course_id = ? AND purchased = ?", course.ID, false).
			Update("purchased", true)
		if res.Error != nil {
			return fmt.Errorf("failed to mark course %d groceries purchased: %w", course.ID, res.Error)
		}
		r.log.Debug("course progress recorded, groceries purchased", "course_id", course.ID, "items", res.RowsAffected)
		return nil
	}

	meal, err := r.loadMeal(tx, course.MealID)
	if err != nil {
		return err
	}

	var expected []uint
	if meal.IsCooked() {
		if expected, err = r.dishAmountIDs(tx, course.DishID); err != nil {
			return err
		}
	}
	want := make(map[uint]bool, len(expected))
	for _, id := range expected {
		want[id] = true
	}

	existing, err := r.courseItems(tx, course.ID)
	if err != nil {
		return err
	}

	have := make(map[uint]bool, len(existing))
	var stale []uint
	for _, item := range existing {
		switch {
		case item.Purchased:
			// purchase history stays, and counts as the item for its pair
			have[item.IngredientAmountID] = true
		case !want[item.IngredientAmountID] || have[item.IngredientAmountID]:
			stale = append(stale, item.ID)
		default:
			have[item.IngredientAmountID] = true
		}
	}

	created, err := r.createMissing(tx, meal.TeamID, course.ID, expected, have)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		if err := tx.Delete(&models.GroceryListItem{}, stale).Error; err != nil {
			return fmt.Errorf("failed to delete stale groceries for course %d: %w", course.ID, err)
		}
	}

	r.log.Debug("course groceries reconciled", "course_id", course.ID, "created", created, "deleted", len(stale))
	return nil
}

// OnCourseDeleted removes the unpurchased items of a course that is about to
// be deleted. Purchased items are detached from the course and kept.
func (r *GroceryReconciler) OnCourseDeleted(tx *gorm.DB, course *models.Course) error {
	if err := tx.Where("course_id = ? AND purchased = ?", course.ID, false).
		Delete(&models.GroceryListItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete groceries for course %d: %w", course.ID, err)
	}
	if err := tx.Model(&models.GroceryListItem{}).
		Where("course_id = ?", course.ID).
		Update("course_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach purchased groceries for course %d: %w", course.ID, err)
	}
	return nil
}

// ReconcileMeal re-runs the full update path for every course of a meal.
func (r *GroceryReconciler) ReconcileMeal(tx *gorm.DB, mealID uint) error {
	var courses []models.Course
	if err := tx.Where("meal_id = ?", mealID).Find(&courses).Error; err != nil {
		return fmt.Errorf("failed to load courses of meal %d: %w", mealID, err)
	}
	for i := range courses {
		if err := r.OnCourseUpdated(tx, &courses[i], nil); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileDish re-runs the full update path for every course serving a dish.
// It returns the teams whose lists may have changed.
func (r *GroceryReconciler) ReconcileDish(tx *gorm.DB, dishID uint) ([]uint, error) {
	var courses []models.Course
	if err := tx.Preload("Meal").Where("dish_id = ?", dishID).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to load courses of dish %d: %w", dishID, err)
	}

	seen := make(map[uint]bool)
	var teams []uint
	for i := range courses {
		if err := r.OnCourseUpdated(tx, &courses[i], nil); err != nil {
			return nil, err
		}
		if m := courses[i].Meal; m != nil && !seen[m.TeamID] {
			seen[m.TeamID] = true
			teams = append(teams, m.TeamID)
		}
	}
	return teams, nil
}

func (r *GroceryReconciler) loadMeal(tx *gorm.DB, mealID uint) (*models.Meal, error) {
	var meal models.Meal
	if err := tx.First(&meal, mealID).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("meal %d", mealID))
	}
	return &meal, nil
}

func (r *GroceryReconciler) dishAmountIDs(tx *gorm.DB, dishID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.IngredientAmount{}).
		Where("dish_id = ?", dishID).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load ingredient amounts of dish %d: %w", dishID, err)
	}
	return ids, nil
}

func (r *GroceryReconciler) courseItems(tx *gorm.DB, courseID uint) ([]models.GroceryListItem, error) {
	var items []models.GroceryListItem
	if err := tx.Where("course_id = ?", courseID).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load groceries of course %d: %w", courseID, err)
	}
	return items, nil
}

func (r *GroceryReconciler) createMissing(tx *gorm.DB, teamID, courseID uint, expected []uint, have map[uint]bool) (int, error) {
	var missing []models.GroceryListItem
	for _, amountID := range expected {
		if have[amountID] {
			continue
		}
		cid := courseID
		missing = append(missing, models.GroceryListItem{
			TeamID:             teamID,
			CourseID:           &cid,
			IngredientAmountID: amountID,
		})
		have[amountID] = true
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := tx.Create(&missing).Error; err != nil {
		return 0, fmt.Errorf("failed to create groceries for course %d: %w", courseID, err)
	}
	return len(missing), nil
}

// onlyProgressFields reports whether changed is a non-empty subset of {eaten, prepared}.
func onlyProgressFields(changed []string) bool {
	if len(changed) == 0 {
		return false
	}
	for _, f := range changed {
		if f != models.FieldEaten && f != models.FieldPrepared {
			return false
		}
	}
	return true
}
