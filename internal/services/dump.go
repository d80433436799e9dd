package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// Dump is every record visible to a team
type Dump struct {
	Team         *models.Team               `json:"team"`
	Tags         []models.Tag               `json:"tags"`
	Ingredients  []models.Ingredient        `json:"ingredients"`
	Dishes       []models.Dish              `json:"dishes"`
	Meals        []models.Meal              `json:"meals"`
	GroceryItems []models.GroceryListItem   `json:"grocery_items"`
	RandomItems  []models.RandomGroceryItem `json:"random_items"`
	Reviews      []models.DishReview        `json:"reviews"`
}

// DumpService exports the data a team can see
type DumpService struct {
	db *gorm.DB
}

// NewDumpService creates a dump service
func NewDumpService(db *gorm.DB) *DumpService {
	return &DumpService{db: db}
}

// Export loads the shared catalog plus the user's team records.
func (s *DumpService) Export(ctx context.Context, user *models.User) (*Dump, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := &Dump{Team: &models.Team{}}

	queries := []struct {
		what string
		run  func() error
	}{
		{"team", func() error { return db.First(out.Team, teamID).Error }},
		{"tags", func() error { return db.Order("id").Find(&out.Tags).Error }},
		{"ingredients", func() error { return db.Preload("Tags").Order("id").Find(&out.Ingredients).Error }},
		{"dishes", func() error {
			return db.Preload("IngredientAmounts").Preload("Tags").Order("id").Find(&out.Dishes).Error
		}},
		{"meals", func() error {
			return db.Preload("Tags").Preload("Courses").Where("team_id = ?", teamID).Order("date").Find(&out.Meals).Error
		}},
		{"grocery items", func() error { return db.Where("team_id = ?", teamID).Order("id").Find(&out.GroceryItems).Error }},
		{"random items", func() error { return db.Where("team_id = ?", teamID).Order("id").Find(&out.RandomItems).Error }},
		{"reviews", func() error { return db.Order("id").Find(&out.Reviews).Error }},
	}
	for _, q := range queries {
		if err := q.run(); err != nil {
			return nil, translate(err, "dump "+q.what)
		}
	}
	return out, nil
}
