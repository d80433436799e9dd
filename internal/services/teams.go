package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

const statsTopN = 10

// TeamService manages teams, membership and team statistics
type TeamService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTeamService creates a team service
func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db, now: time.Now}
}

// TeamInput creates a team
type TeamInput struct {
	Name string `json:"name" binding:"required,max=50"`
}

// List returns every team. Staff only.
func (s *TeamService) List(ctx context.Context, user *models.User) ([]models.Team, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	var teams []models.Team
	if err := s.db.WithContext(ctx).Order("name").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// Get returns a team the user belongs to (or any team for staff).
func (s *TeamService) Get(ctx context.Context, user *models.User, id uint) (*models.Team, error) {
	if err := canSeeTeam(user, id); err != nil {
		return nil, err
	}
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("team %d", id))
	}
	return &team, nil
}

// Create stores a new team. Staff only.
func (s *TeamService) Create(ctx context.Context, user *models.User, in TeamInput) (*models.Team, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	team := models.Team{Name: name}
	if err := s.db.WithContext(ctx).Create(&team).Error; err != nil {
		return nil, translate(err, "create team")
	}
	return &team, nil
}

// AssignUser moves a user into a team, or out of any team when teamID is nil. Staff only.
func (s *TeamService) AssignUser(ctx context.Context, user *models.User, userID uint, teamID *uint) (*models.User, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	var member models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&member, userID).Error; err != nil {
			return translate(err, fmt.Sprintf("user %d", userID))
		}
		if teamID != nil {
			var team models.Team
			if err := tx.First(&team, *teamID).Error; err != nil {
				return translate(err, fmt.Sprintf("team %d", *teamID))
			}
		}
		member.TeamID = teamID
		return tx.Model(&member).Update("team_id", teamID).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Stats summarises what the team plans, cooks and eats.
func (s *TeamService) Stats(ctx context.Context, user *models.User, id uint) (*models.TeamStats, error) {
	if _, err := s.Get(ctx, user, id); err != nil {
		return nil, err
	}

	var meals []models.Meal
	err := s.db.WithContext(ctx).
		Preload("Courses.Dish.IngredientAmounts.Ingredient").
		Where("team_id = ?", id).
		Order("date").
		Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load meals of team %d: %w", id, err)
	}
	return ComputeTeamStats(id, meals, s.now()), nil
}

// ComputeTeamStats derives team statistics from the team's meals with their
// courses, dishes and ingredient amounts loaded.
func ComputeTeamStats(teamID uint, meals []models.Meal, today time.Time) *models.TeamStats {
	ingredients := newCounter()
	dishes := newCounter()
	cooked := newCounter()
	eaten := newCounter()
	var cookCourses, prepared, ate int
	perType := make(map[models.MealType]int)

	for _, meal := range meals {
		perType[meal.MealType]++
		seenIngredient := make(map[uint]bool)
		for _, course := range meal.Courses {
			if course.Dish == nil {
				continue
			}
			dishes.add(course.Dish.ID, course.Dish.Name)
			for _, ia := range course.Dish.IngredientAmounts {
				if !seenIngredient[ia.IngredientID] {
					seenIngredient[ia.IngredientID] = true
					ingredients.add(ia.IngredientID, ia.Ingredient.Name)
				}
			}
			if course.Eaten {
				eaten.add(course.Dish.ID, course.Dish.Name)
			}
			if !meal.IsCooked() {
				continue
			}
			cookCourses++
			if course.Prepared {
				prepared++
				cooked.add(course.Dish.ID, course.Dish.Name)
			}
			if course.Eaten {
				ate++
			}
		}
	}

	stats := &models.TeamStats{
		TeamID:            teamID,
		CommonIngredients: ingredients.top(statsTopN),
		CommonDishes:      dishes.top(statsTopN),
		CookedDishes:      cooked.top(statsTopN),
		EatenDishes:       eaten.top(statsTopN),
		PrepRate:          percent(prepared, cookCourses),
		EatRate:           percent(ate, cookCourses),
	}

	days := 1
	if len(meals) > 0 {
		if d := int(models.DateOnly(today).Sub(meals[0].Date).Hours() / 24); d > 1 {
			days = d
		}
	}
	stats.PlanRate = models.PlanRate{
		Breakfasts: perType[models.Breakfast] * 100 / days,
		Lunches:    perType[models.Lunch] * 100 / days,
		Dinners:    perType[models.Dinner] * 100 / days,
		Snacks:     perType[models.Snack] * 100 / days,
	}
	planned := perType[models.Breakfast] + perType[models.Lunch] + perType[models.Dinner] + perType[models.Snack]
	stats.PlanRate.All = planned * 100 / (days * 4)
	return stats
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return part * 100 / whole
}

type counter struct {
	order  []uint
	counts map[uint]*models.NamedCount
}

func newCounter() *counter {
	return &counter{counts: make(map[uint]*models.NamedCount)}
}

func (c *counter) add(id uint, name string) {
	nc, ok := c.counts[id]
	if !ok {
		nc = &models.NamedCount{ID: id, Name: name}
		c.counts[id] = nc
		c.order = append(c.order, id)
	}
	nc.Count++
}

// top returns at most n entries, most frequent first, ties broken by name.
func (c *counter) top(n int) []models.NamedCount {
	out := make([]models.NamedCount, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.counts[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func requireStaff(user *models.User) error {
	if user == nil || !user.IsStaff {
		return fmt.Errorf("staff only: %w", ErrForbidden)
	}
	return nil
}

func canSeeTeam(user *models.User, teamID uint) error {
	if user == nil {
		return ErrForbidden
	}
	if user.IsStaff || user.SameTeam(&teamID) {
		return nil
	}
	return fmt.Errorf("team %d: %w", teamID, ErrForbidden)
}
