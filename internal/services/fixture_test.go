package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
	"github.com/yishak-cs/themenu/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ uint, e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeGraph struct {
	mu        sync.Mutex
	projected []uint
	removed   []uint
	rebuilt   int
}

func (g *fakeGraph) ProjectMeal(_ context.Context, meal *models.Meal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.projected = append(g.projected, meal.ID)
	return nil
}

func (g *fakeGraph) RemoveMeal(_ context.Context, _, mealID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removed = append(g.removed, mealID)
	return nil
}

func (g *fakeGraph) Rebuild(_ context.Context, meals []models.Meal) error {
	g.rebuilt = len(meals)
	return nil
}

func (g *fakeGraph) Status(context.Context) (map[string]int, error) {
	return map[string]int{"meals": g.rebuilt}, nil
}

type fixture struct {
	ctx     context.Context
	db      *gorm.DB
	team    *models.Team
	user    *models.User
	events  *recordingPublisher
	graph   *fakeGraph
	meals   *MealService
	courses *CourseService
	dishes  *DishService
	grocery *GroceryListService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := testutil.Logger()
	team := testutil.CreateTeam(t, db, "home")
	events := &recordingPublisher{}
	graph := &fakeGraph{}
	reconciler := NewGroceryReconciler(log)
	return &fixture{
		ctx:     context.Background(),
		db:      db,
		team:    team,
		user:    testutil.CreateUser(t, db, "cook@example.com", team),
		events:  events,
		graph:   graph,
		meals:   NewMealService(db, reconciler, events, graph, log),
		courses: NewCourseService(db, reconciler, events, graph, log),
		dishes:  NewDishService(db, reconciler, events, graph, log),
		grocery: NewGroceryListService(db, events),
	}
}

func (f *fixture) planMeal(t *testing.T, date string, prep models.MealPrep, dishes ...*models.Dish) *models.Meal {
	t.Helper()
	in := MealInput{Date: date, MealType: models.Dinner, MealPrep: prep}
	for _, d := range dishes {
		in.DishIDs = append(in.DishIDs, d.ID)
	}
	meal, err := f.meals.Create(f.ctx, f.user, in)
	require.NoError(t, err)
	return meal
}

func (f *fixture) itemsOfTeam(t *testing.T) []models.GroceryListItem {
	t.Helper()
	var items []models.GroceryListItem
	require.NoError(t, f.db.Where("team_id = ?", f.team.ID).Order("id").Find(&items).Error)
	return items
}

func (f *fixture) courseOf(t *testing.T, mealID, dishID uint) models.Course {
	t.Helper()
	var c models.Course
	require.NoError(t, f.db.Where("meal_id = ? AND dish_id = ?", mealID, dishID).First(&c).Error)
	return c
}

func amountIDs(dish *models.Dish) []uint {
	var ids []uint
	for _, ia := range dish.IngredientAmounts {
		ids = append(ids, ia.ID)
	}
	return ids
}

func itemAmountIDs(items []models.GroceryListItem) []uint {
	var ids []uint
	for _, it := range items {
		ids = append(ids, it.IngredientAmountID)
	}
	return ids
}
