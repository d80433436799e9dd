package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// CourseService manages the dishes served at a meal
type CourseService struct {
	db         *gorm.DB
	reconciler *GroceryReconciler
	events     EventPublisher
	graph      graphSync
	log        *slog.Logger
}

// NewCourseService creates a course service. graph may be nil.
func NewCourseService(db *gorm.DB, reconciler *GroceryReconciler, events EventPublisher, graph MealGraph, log *slog.Logger) *CourseService {
	return &CourseService{
		db:         db,
		reconciler: reconciler,
		events:     publishOr(events),
		graph:      graphSync{graph: graph, log: log},
		log:        log,
	}
}

// CourseFlagUpdate toggles a progress flag on the course linking a dish and a meal
type CourseFlagUpdate struct {
	DishID    uint   `json:"dishId" binding:"required"`
	MealID    uint   `json:"mealId" binding:"required"`
	Attribute string `json:"attribute" binding:"required,oneof=eaten prepared"`
	Checked   bool   `json:"checked"`
}

// SetFlag records that a course was prepared or eaten (or not).
func (s *CourseService) SetFlag(ctx context.Context, user *models.User, in CourseFlagUpdate) (*models.Course, error) {
	if in.Attribute != models.FieldEaten && in.Attribute != models.FieldPrepared {
		return nil, invalidf("unknown course attribute %q", in.Attribute)
	}

	var course models.Course
	var teamID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := ownMeal(tx, user, in.MealID)
		if err != nil {
			return err
		}
		teamID = meal.TeamID

		if err := tx.Where("meal_id = ? AND dish_id = ?", in.MealID, in.DishID).First(&course).Error; err != nil {
			return translate(err, fmt.Sprintf("course for meal %d and dish %d", in.MealID, in.DishID))
		}
		if err := tx.Model(&course).Update(in.Attribute, in.Checked).Error; err != nil {
			return fmt.Errorf("failed to update course %d: %w", course.ID, err)
		}
		if in.Attribute == models.FieldEaten {
			course.Eaten = in.Checked
		} else {
			course.Prepared = in.Checked
		}
		return s.reconciler.OnCourseUpdated(tx, &course, []string{in.Attribute})
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, teamID, course.MealID)
	return &course, nil
}

// AddCourse serves a dish at a meal. Adding a dish twice is a conflict.
func (s *CourseService) AddCourse(ctx context.Context, user *models.User, mealID, dishID uint) (*models.Course, error) {
	var course models.Course
	var teamID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := ownMeal(tx, user, mealID)
		if err != nil {
			return err
		}
		teamID = meal.TeamID
		c, err := addCourse(tx, s.reconciler, mealID, dishID)
		if err != nil {
			return err
		}
		course = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, teamID, course.MealID)
	return &course, nil
}

// RemoveCourse takes a dish off a meal. Only unpurchased groceries go with it.
func (s *CourseService) RemoveCourse(ctx context.Context, user *models.User, mealID, dishID uint) error {
	var teamID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := ownMeal(tx, user, mealID)
		if err != nil {
			return err
		}
		teamID = meal.TeamID

		var course models.Course
		if err := tx.Where("meal_id = ? AND dish_id = ?", mealID, dishID).First(&course).Error; err != nil {
			return translate(err, fmt.Sprintf("course for meal %d and dish %d", mealID, dishID))
		}
		return removeCourse(tx, s.reconciler, &course)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, teamID, mealID)
	return nil
}

func (s *CourseService) afterWrite(ctx context.Context, teamID, mealID uint) {
	s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	if s.graph.graph == nil {
		return
	}
	meal, err := loadMealDeep(s.db.WithContext(ctx), mealID)
	if err != nil {
		s.log.Warn("failed to reload meal for graph", "meal_id", mealID, "error", err)
		return
	}
	s.graph.project(ctx, meal)
}

func addCourse(tx *gorm.DB, reconciler *GroceryReconciler, mealID, dishID uint) (*models.Course, error) {
	var dish models.Dish
	if err := tx.Select("id").First(&dish, dishID).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("dish %d", dishID))
	}

	var existing models.Course
	err := tx.Where("meal_id = ? AND dish_id = ?", mealID, dishID).First(&existing).Error
	switch {
	case err == nil:
		return nil, fmt.Errorf("dish %d is already served at meal %d: %w", dishID, mealID, ErrConflict)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up course: %w", err)
	}

	course := models.Course{MealID: mealID, DishID: dishID}
	if err := tx.Create(&course).Error; err != nil {
		return nil, translate(err, "create course")
	}
	if err := reconciler.OnCourseCreated(tx, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func removeCourse(tx *gorm.DB, reconciler *GroceryReconciler, course *models.Course) error {
	if err := reconciler.OnCourseDeleted(tx, course); err != nil {
		return err
	}
	if err := tx.Delete(course).Error; err != nil {
		return fmt.Errorf("failed to delete course %d: %w", course.ID, err)
	}
	return nil
}
