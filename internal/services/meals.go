package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// MealService manages a team's planned meals
type MealService struct {
	db         *gorm.DB
	reconciler *GroceryReconciler
	events     EventPublisher
	graph      graphSync
	log        *slog.Logger
}

// NewMealService creates a meal service. graph may be nil.
func NewMealService(db *gorm.DB, reconciler *GroceryReconciler, events EventPublisher, graph MealGraph, log *slog.Logger) *MealService {
	return &MealService{
		db:         db,
		reconciler: reconciler,
		events:     publishOr(events),
		graph:      graphSync{graph: graph, log: log},
		log:        log,
	}
}

// MealInput is the editable part of a meal
type MealInput struct {
	Date     string          `json:"date" binding:"required"`
	MealType models.MealType `json:"meal_type" binding:"required"`
	MealPrep models.MealPrep `json:"meal_prep"`
	DishIDs  []uint          `json:"dish_ids"`
	TagIDs   []uint          `json:"tag_ids"`
}

func (in *MealInput) normalize() (time.Time, error) {
	date, err := time.Parse(models.DateLayout, in.Date)
	if err != nil {
		return time.Time{}, invalidf("date must look like %s", models.DateLayout)
	}
	if !in.MealType.Valid() {
		return time.Time{}, invalidf("unknown meal type %q", in.MealType)
	}
	if in.MealPrep != "" && !in.MealPrep.Valid() {
		return time.Time{}, invalidf("unknown meal prep %q", in.MealPrep)
	}
	in.DishIDs = uniqueIDs(in.DishIDs)
	return models.DateOnly(date), nil
}

// List returns the team's meals between from and to inclusive, oldest first.
func (s *MealService) List(ctx context.Context, user *models.User, from, to time.Time) ([]models.Meal, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}
	var meals []models.Meal
	err = s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Courses.Dish").
		Where("team_id = ? AND date BETWEEN ? AND ?", teamID, models.DateOnly(from), models.DateOnly(to)).
		Order("date, meal_type").
		Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	return meals, nil
}

// Get returns one meal of the user's team with its dishes and tags.
func (s *MealService) Get(ctx context.Context, user *models.User, id uint) (*models.Meal, error) {
	if _, err := ownMeal(s.db.WithContext(ctx), user, id); err != nil {
		return nil, err
	}
	return loadMealDeep(s.db.WithContext(ctx), id)
}

// Create plans a new meal and derives its grocery items.
func (s *MealService) Create(ctx context.Context, user *models.User, in MealInput) (*models.Meal, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}
	if in.MealPrep == "" {
		in.MealPrep = models.PrepCook
	}
	date, err := in.normalize()
	if err != nil {
		return nil, err
	}

	meal := models.Meal{Date: date, MealType: in.MealType, MealPrep: in.MealPrep, TeamID: teamID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkSlotFree(tx, teamID, date, in.MealType, 0); err != nil {
			return err
		}
		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		meal.Tags = tags
		if err := tx.Create(&meal).Error; err != nil {
			return translate(err, "create meal")
		}
		for _, dishID := range in.DishIDs {
			if _, err := addCourse(tx, s.reconciler, meal.ID, dishID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.afterWrite(ctx, teamID, meal.ID)
}

// Update edits a meal. Dishes no longer listed lose their course (and
// unpurchased groceries), new dishes get one, and a prep-mode change
// reconciles every remaining course. An empty meal_prep keeps the current one.
func (s *MealService) Update(ctx context.Context, user *models.User, id uint, in MealInput) (*models.Meal, error) {
	date, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var teamID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := ownMeal(tx, user, id)
		if err != nil {
			return err
		}
		teamID = meal.TeamID
		if in.MealPrep == "" {
			in.MealPrep = meal.MealPrep
		}

		if !meal.Date.Equal(date) || meal.MealType != in.MealType {
			if err := checkSlotFree(tx, teamID, date, in.MealType, meal.ID); err != nil {
				return err
			}
		}
		prepChanged := meal.MealPrep != in.MealPrep

		if err := tx.Model(meal).Updates(map[string]interface{}{
			"date":      date,
			"meal_type": in.MealType,
			"meal_prep": in.MealPrep,
		}).Error; err != nil {
			return translate(err, fmt.Sprintf("update meal %d", id))
		}

		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(meal).Association("Tags").Replace(tags); err != nil {
			return fmt.Errorf("failed to set tags of meal %d: %w", id, err)
		}

		if err := s.syncCourses(tx, meal.ID, in.DishIDs); err != nil {
			return err
		}
		if prepChanged {
			return s.reconciler.ReconcileMeal(tx, meal.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.afterWrite(ctx, teamID, id)
}

// Delete removes a meal, its courses and their unpurchased groceries.
func (s *MealService) Delete(ctx context.Context, user *models.User, id uint) error {
	var teamID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := ownMeal(tx, user, id)
		if err != nil {
			return err
		}
		teamID = meal.TeamID

		var courses []models.Course
		if err := tx.Where("meal_id = ?", id).Find(&courses).Error; err != nil {
			return fmt.Errorf("failed to load courses of meal %d: %w", id, err)
		}
		for i := range courses {
			if err := removeCourse(tx, s.reconciler, &courses[i]); err != nil {
				return err
			}
		}
		if err := tx.Model(meal).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to clear tags of meal %d: %w", id, err)
		}
		if err := tx.Delete(meal).Error; err != nil {
			return fmt.Errorf("failed to delete meal %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	s.events.Publish(teamID, newEvent(EventMealChanged, teamID))
	s.graph.remove(ctx, teamID, id)
	return nil
}

func (s *MealService) syncCourses(tx *gorm.DB, mealID uint, dishIDs []uint) error {
	var courses []models.Course
	if err := tx.Where("meal_id = ?", mealID).Find(&courses).Error; err != nil {
		return fmt.Errorf("failed to load courses of meal %d: %w", mealID, err)
	}

	want := make(map[uint]bool, len(dishIDs))
	for _, id := range dishIDs {
		want[id] = true
	}
	have := make(map[uint]bool, len(courses))
	for i := range courses {
		have[courses[i].DishID] = true
		if !want[courses[i].DishID] {
			if err := removeCourse(tx, s.reconciler, &courses[i]); err != nil {
				return err
			}
		}
	}
	for _, dishID := range dishIDs {
		if have[dishID] {
			continue
		}
		if _, err := addCourse(tx, s.reconciler, mealID, dishID); err != nil {
			return err
		}
	}
	return nil
}

func (s *MealService) afterWrite(ctx context.Context, teamID, mealID uint) (*models.Meal, error) {
	meal, err := loadMealDeep(s.db.WithContext(ctx), mealID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	s.events.Publish(teamID, newEvent(EventMealChanged, teamID))
	s.graph.project(ctx, meal)
	return meal, nil
}

func checkSlotFree(tx *gorm.DB, teamID uint, date time.Time, mealType models.MealType, except uint) error {
	var other models.Meal
	err := tx.Where("team_id = ? AND date = ? AND meal_type = ? AND id <> ?", teamID, date, mealType, except).
		First(&other).Error
	switch {
	case err == nil:
		return fmt.Errorf("%s on %s is already planned: %w", mealType, date.Format(models.DateLayout), ErrConflict)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check meal slot: %w", err)
	}
}

func loadMealDeep(db *gorm.DB, id uint) (*models.Meal, error) {
	var meal models.Meal
	err := db.
		Preload("Tags").
		Preload("Courses.Dish.IngredientAmounts.Ingredient").
		First(&meal, id).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("meal %d", id))
	}
	return &meal, nil
}

func loadTags(tx *gorm.DB, ids []uint) ([]models.Tag, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	var tags []models.Tag
	if err := tx.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(ids) {
		return nil, invalidf("unknown tag in %v", ids)
	}
	return tags, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
