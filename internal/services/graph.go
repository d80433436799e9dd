package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// MealGraph mirrors meals into the insight graph. Implemented by database.GraphProjector.
type MealGraph interface {
	ProjectMeal(ctx context.Context, meal *models.Meal) error
	RemoveMeal(ctx context.Context, teamID, mealID uint) error
}

// graphSync pushes committed meal changes to the graph. Failures are logged,
// the relational store stays the source of truth.
type graphSync struct {
	graph MealGraph
	log   *slog.Logger
}

func (g graphSync) project(ctx context.Context, meal *models.Meal) {
	if g.graph == nil || meal == nil {
		return
	}
	if err := g.graph.ProjectMeal(ctx, meal); err != nil {
		g.log.Warn("failed to project meal into graph", "meal_id", meal.ID, "error", err)
	}
}

func (g graphSync) remove(ctx context.Context, teamID, mealID uint) {
	if g.graph == nil {
		return
	}
	if err := g.graph.RemoveMeal(ctx, teamID, mealID); err != nil {
		g.log.Warn("failed to remove meal from graph", "meal_id", mealID, "error", err)
	}
}

// GraphRebuilder reloads the full meal history into the graph
type GraphRebuilder interface {
	Rebuild(ctx context.Context, meals []models.Meal) error
	Status(ctx context.Context) (map[string]int, error)
}

// GraphAdmin rebuilds and inspects the meal graph
type GraphAdmin struct {
	db    *gorm.DB
	graph GraphRebuilder
}

// NewGraphAdmin creates a graph admin. graph may be nil.
func NewGraphAdmin(db *gorm.DB, graph GraphRebuilder) *GraphAdmin {
	return &GraphAdmin{db: db, graph: graph}
}

// Rebuild projects every meal of every team and returns how many were written.
func (a *GraphAdmin) Rebuild(ctx context.Context) (int, error) {
	if a.graph == nil {
		return 0, fmt.Errorf("meal graph: %w", ErrUnavailable)
	}
	var meals []models.Meal
	err := a.db.WithContext(ctx).
		Preload("Courses.Dish.IngredientAmounts.Ingredient").
		Order("id").
		Find(&meals).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load meals for graph: %w", err)
	}
	if err := a.graph.Rebuild(ctx, meals); err != nil {
		return 0, err
	}
	return len(meals), nil
}

// Status reports node and edge counts.
func (a *GraphAdmin) Status(ctx context.Context) (map[string]int, error) {
	if a.graph == nil {
		return nil, fmt.Errorf("meal graph: %w", ErrUnavailable)
	}
	return a.graph.Status(ctx)
}
