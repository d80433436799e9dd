package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// DishService manages dishes and the ingredient amounts they need
type DishService struct {
	db         *gorm.DB
	reconciler *GroceryReconciler
	events     EventPublisher
	graph      graphSync
	log        *slog.Logger
}

// NewDishService creates a dish service. graph may be nil.
func NewDishService(db *gorm.DB, reconciler *GroceryReconciler, events EventPublisher, graph MealGraph, log *slog.Logger) *DishService {
	return &DishService{
		db:         db,
		reconciler: reconciler,
		events:     publishOr(events),
		graph:      graphSync{graph: graph, log: log},
		log:        log,
	}
}

// IngredientAmountInput is one line of a dish's ingredient list. Either
// IngredientID or IngredientName must be set; an unknown name creates the ingredient.
type IngredientAmountInput struct {
	ID             uint   `json:"id"`
	IngredientID   uint   `json:"ingredient_id"`
	IngredientName string `json:"ingredient_name"`
	Amount         string `json:"amount"`
	Unit           string `json:"unit"`
	Descriptor     string `json:"descriptor"`
}

// DishInput is the editable part of a dish
type DishInput struct {
	Name        string                  `json:"name" binding:"required"`
	Notes       string                  `json:"notes"`
	Source      string                  `json:"source"`
	Recipe      string                  `json:"recipe"`
	Ingredients []IngredientAmountInput `json:"ingredients"`
	TagIDs      []uint                  `json:"tag_ids"`
}

func (in *DishInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalidf("name is required")
	}
	for i, line := range in.Ingredients {
		if line.IngredientID == 0 && strings.TrimSpace(line.IngredientName) == "" {
			return invalidf("ingredient %d needs an ingredient_id or ingredient_name", i+1)
		}
		if line.Unit != "" {
			if _, ok := models.Units[line.Unit]; !ok {
				return invalidf("unknown unit %q", line.Unit)
			}
		}
	}
	return nil
}

// List returns dishes ordered by name, optionally filtered by a name fragment and a tag.
func (s *DishService) List(ctx context.Context, query string, tagID uint) ([]models.Dish, error) {
	q := s.db.WithContext(ctx).Preload("Tags").Order("name")
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	if tagID != 0 {
		q = q.Where("id IN (?)", s.db.Table("dish_tags").Select("dish_id").Where("tag_id = ?", tagID))
	}
	var dishes []models.Dish
	if err := q.Find(&dishes).Error; err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	return dishes, nil
}

// Get returns a dish with its ingredient amounts, tags and creator.
func (s *DishService) Get(ctx context.Context, id uint) (*models.Dish, error) {
	return loadDish(s.db.WithContext(ctx), id)
}

// Create stores a new dish owned by user.
func (s *DishService) Create(ctx context.Context, user *models.User, in DishInput) (*models.Dish, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	dish := models.Dish{
		Name:        in.Name,
		Notes:       in.Notes,
		Source:      in.Source,
		Recipe:      in.Recipe,
		CreatedByID: user.ID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		dish.Tags = tags
		if err := tx.Create(&dish).Error; err != nil {
			return translate(err, "create dish")
		}
		for _, line := range in.Ingredients {
			if _, err := s.createAmount(tx, dish.ID, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("dish created", "dish_id", dish.ID, "user_id", user.ID)
	return loadDish(s.db.WithContext(ctx), dish.ID)
}

// Update edits a dish. Ingredient lines with an ID are edited in place,
// lines without one are added and missing lines are removed along with
// every grocery item they produced. Courses serving the dish are reconciled.
func (s *DishService) Update(ctx context.Context, user *models.User, id uint, in DishInput) (*models.Dish, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var teams []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dish, err := loadDish(tx, id)
		if err != nil {
			return err
		}
		if !canEditDish(user, dish) {
			return fmt.Errorf("dish %d belongs to another team: %w", id, ErrForbidden)
		}

		if err := tx.Model(dish).Updates(map[string]interface{}{
			"name":   in.Name,
			"notes":  in.Notes,
			"source": in.Source,
			"recipe": in.Recipe,
		}).Error; err != nil {
			return translate(err, fmt.Sprintf("update dish %d", id))
		}

		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(dish).Association("Tags").Replace(tags); err != nil {
			return fmt.Errorf("failed to set tags of dish %d: %w", id, err)
		}

		if err := s.syncAmounts(tx, dish, in.Ingredients); err != nil {
			return err
		}
		teams, err = s.reconciler.ReconcileDish(tx, dish.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, teamID := range teams {
		s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	}
	s.reprojectMealsOf(ctx, id)
	return loadDish(s.db.WithContext(ctx), id)
}

// Delete removes a dish everywhere it is served, including purchased grocery history.
func (s *DishService) Delete(ctx context.Context, user *models.User, id uint) error {
	var teams []uint
	var mealIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dish, err := loadDish(tx, id)
		if err != nil {
			return err
		}
		if !canEditDish(user, dish) {
			return fmt.Errorf("dish %d belongs to another team: %w", id, ErrForbidden)
		}

		if err := tx.Model(&models.Course{}).Where("dish_id = ?", id).Pluck("meal_id", &mealIDs).Error; err != nil {
			return fmt.Errorf("failed to load meals serving dish %d: %w", id, err)
		}
		amountIDs := tx.Model(&models.IngredientAmount{}).Select("id").Where("dish_id = ?", id)
		if err := tx.Model(&models.GroceryListItem{}).Distinct().
			Where("ingredient_amount_id IN (?)", amountIDs).
			Pluck("team_id", &teams).Error; err != nil {
			return fmt.Errorf("failed to load teams of dish %d: %w", id, err)
		}
		if err := tx.Where("ingredient_amount_id IN (?)", amountIDs).Delete(&models.GroceryListItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete groceries of dish %d: %w", id, err)
		}
		if err := tx.Where("dish_id = ?", id).Delete(&models.Course{}).Error; err != nil {
			return fmt.Errorf("failed to delete courses of dish %d: %w", id, err)
		}
		if err := tx.Where("dish_id = ?", id).Delete(&models.IngredientAmount{}).Error; err != nil {
			return fmt.Errorf("failed to delete ingredient amounts of dish %d: %w", id, err)
		}
		if err := tx.Where("dish_id = ?", id).Delete(&models.DishReview{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews of dish %d: %w", id, err)
		}
		if err := tx.Model(dish).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to clear tags of dish %d: %w", id, err)
		}
		return tx.Delete(dish).Error
	})
	if err != nil {
		return err
	}

	for _, teamID := range teams {
		s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	}
	for _, mealID := range uniqueIDs(mealIDs) {
		if meal, err := loadMealDeep(s.db.WithContext(ctx), mealID); err == nil {
			s.graph.project(ctx, meal)
		}
	}
	s.log.Info("dish deleted", "dish_id", id, "user_id", user.ID)
	return nil
}

// SetPhoto stores the public URL of the dish's photo.
func (s *DishService) SetPhoto(ctx context.Context, user *models.User, id uint, url string) (*models.Dish, error) {
	dish, err := loadDish(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !canEditDish(user, dish) {
		return nil, fmt.Errorf("dish %d belongs to another team: %w", id, ErrForbidden)
	}
	if err := s.db.WithContext(ctx).Model(dish).Update("photo_url", url).Error; err != nil {
		return nil, fmt.Errorf("failed to save photo of dish %d: %w", id, err)
	}
	dish.PhotoURL = url
	return dish, nil
}

func (s *DishService) syncAmounts(tx *gorm.DB, dish *models.Dish, lines []IngredientAmountInput) error {
	existing := make(map[uint]bool, len(dish.IngredientAmounts))
	for _, a := range dish.IngredientAmounts {
		existing[a.ID] = true
	}

	kept := make(map[uint]bool)
	for _, line := range lines {
		if line.ID != 0 && existing[line.ID] {
			ingredientID, err := resolveIngredient(tx, line)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.IngredientAmount{ID: line.ID}).Updates(map[string]interface{}{
				"ingredient_id": ingredientID,
				"amount":        line.Amount,
				"unit":          line.Unit,
				"descriptor":    line.Descriptor,
			}).Error; err != nil {
				return fmt.Errorf("failed to update ingredient amount %d: %w", line.ID, err)
			}
			kept[line.ID] = true
			continue
		}
		if _, err := s.createAmount(tx, dish.ID, line); err != nil {
			return err
		}
	}

	var removed []uint
	for id := range existing {
		if !kept[id] {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := tx.Where("ingredient_amount_id IN ?", removed).Delete(&models.GroceryListItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete groceries of removed ingredients: %w", err)
	}
	if err := tx.Delete(&models.IngredientAmount{}, removed).Error; err != nil {
		return fmt.Errorf("failed to delete removed ingredient amounts: %w", err)
	}
	return nil
}

func (s *DishService) createAmount(tx *gorm.DB, dishID uint, line IngredientAmountInput) (*models.IngredientAmount, error) {
	ingredientID, err := resolveIngredient(tx, line)
	if err != nil {
		return nil, err
	}
	amount := models.IngredientAmount{
		DishID:       dishID,
		IngredientID: ingredientID,
		Amount:       strings.TrimSpace(line.Amount),
		Unit:         line.Unit,
		Descriptor:   strings.TrimSpace(line.Descriptor),
	}
	if err := tx.Create(&amount).Error; err != nil {
		return nil, translate(err, "create ingredient amount")
	}
	return &amount, nil
}

func (s *DishService) reprojectMealsOf(ctx context.Context, dishID uint) {
	if s.graph.graph == nil {
		return
	}
	var mealIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Course{}).Where("dish_id = ?", dishID).Pluck("meal_id", &mealIDs).Error; err != nil {
		s.log.Warn("failed to load meals for graph", "dish_id", dishID, "error", err)
		return
	}
	for _, mealID := range mealIDs {
		if meal, err := loadMealDeep(s.db.WithContext(ctx), mealID); err == nil {
			s.graph.project(ctx, meal)
		}
	}
}

func resolveIngredient(tx *gorm.DB, line IngredientAmountInput) (uint, error) {
	if line.IngredientID != 0 {
		var ing models.Ingredient
		if err := tx.Select("id").First(&ing, line.IngredientID).Error; err != nil {
			return 0, translate(err, fmt.Sprintf("ingredient %d", line.IngredientID))
		}
		return ing.ID, nil
	}

	name := strings.TrimSpace(line.IngredientName)
	ing := models.Ingredient{Name: name}
	if err := tx.Where(models.Ingredient{Name: name}).FirstOrCreate(&ing).Error; err != nil {
		return 0, translate(err, fmt.Sprintf("ingredient %q", name))
	}
	return ing.ID, nil
}

func loadDish(db *gorm.DB, id uint) (*models.Dish, error) {
	var dish models.Dish
	err := db.
		Preload("IngredientAmounts", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("IngredientAmounts.Ingredient").
		Preload("Tags").
		Preload("CreatedBy").
		First(&dish, id).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("dish %d", id))
	}
	return &dish, nil
}
