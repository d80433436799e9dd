package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// GroceryListService serves the team's shopping list
type GroceryListService struct {
	db     *gorm.DB
	events EventPublisher
}

// NewGroceryListService creates a grocery list service
func NewGroceryListService(db *gorm.DB, events EventPublisher) *GroceryListService {
	return &GroceryListService{db: db, events: publishOr(events)}
}

// RandomItemInput creates or edits a random grocery item
type RandomItemInput struct {
	Name      string `json:"name"`
	Purchased *bool  `json:"purchased"`
}

// List groups the team's grocery items by ingredient name. Groups that
// still need buying come first, fully purchased groups last.
func (s *GroceryListService) List(ctx context.Context, user *models.User) (*models.GroceryList, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}

	var items []models.GroceryListItem
	err = s.db.WithContext(ctx).
		Preload("IngredientAmount.Ingredient").
		Where("team_id = ?", teamID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load grocery items: %w", err)
	}

	dishNames, err := s.dishNamesByCourse(ctx, items)
	if err != nil {
		return nil, err
	}

	var random []models.RandomGroceryItem
	err = s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("purchased, id").
		Find(&random).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load random grocery items: %w", err)
	}

	return &models.GroceryList{
		Groups:      GroupGroceries(items, dishNames),
		RandomItems: random,
	}, nil
}

// GroupGroceries folds items into one group per ingredient name, joining the
// amount strings and sorting fully purchased groups last.
func GroupGroceries(items []models.GroceryListItem, dishByCourse map[uint]string) []models.GroceryGroup {
	index := make(map[string]int)
	var groups []models.GroceryGroup
	amounts := make(map[string][]string)
	dishesSeen := make(map[string]map[string]bool)

	for _, item := range items {
		name := item.IngredientAmount.Ingredient.Name
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, models.GroceryGroup{
				Ingredient:   name,
				IngredientID: item.IngredientAmount.IngredientID,
				Dishes:       []string{},
			})
			dishesSeen[name] = make(map[string]bool)
		}

		g := &groups[i]
		g.ItemIDs = append(g.ItemIDs, item.ID)
		g.TotalCount++
		if item.Purchased {
			g.PurchasedCount++
		}
		if amount := item.IngredientAmount.Display(); amount != "" {
			amounts[name] = append(amounts[name], amount)
		}
		if item.CourseID != nil {
			if dish := dishByCourse[*item.CourseID]; dish != "" && !dishesSeen[name][dish] {
				dishesSeen[name][dish] = true
				g.Dishes = append(g.Dishes, dish)
			}
		}
	}

	for i := range groups {
		g := &groups[i]
		g.Amounts = strings.Join(amounts[g.Ingredient], ", ")
		g.Purchased = g.PurchasedCount == g.TotalCount
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Purchased != groups[j].Purchased {
			return !groups[i].Purchased
		}
		return strings.ToLower(groups[i].Ingredient) < strings.ToLower(groups[j].Ingredient)
	})
	return groups
}

// SetItemPurchased checks or unchecks one grocery item.
func (s *GroceryListService) SetItemPurchased(ctx context.Context, user *models.User, id uint, purchased bool) error {
	teamID, err := teamOf(user)
	if err != nil {
		return err
	}
	var item models.GroceryListItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return translate(err, fmt.Sprintf("grocery item %d", id))
	}
	if item.TeamID != teamID {
		return fmt.Errorf("grocery item %d belongs to another team: %w", id, ErrForbidden)
	}
	if err := s.db.WithContext(ctx).Model(&item).Update("purchased", purchased).Error; err != nil {
		return fmt.Errorf("failed to update grocery item %d: %w", id, err)
	}
	s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	return nil
}

// SetGroupPurchased checks or unchecks every team item for one ingredient.
func (s *GroceryListService) SetGroupPurchased(ctx context.Context, user *models.User, ingredientID uint, purchased bool) (int64, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return 0, err
	}
	amountIDs := s.db.Model(&models.IngredientAmount{}).Select("id").Where("ingredient_id = ?", ingredientID)
	res := s.db.WithContext(ctx).Model(&models.GroceryListItem{}).
		Where("team_id = ? AND ingredient_amount_id IN (?)", teamID, amountIDs).
		Update("purchased", purchased)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update groceries for ingredient %d: %w", ingredientID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("no groceries for ingredient %d: %w", ingredientID, ErrNotFound)
	}
	s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	return res.RowsAffected, nil
}

// CreateRandomItem adds an ad-hoc item to the team's list.
func (s *GroceryListService) CreateRandomItem(ctx context.Context, user *models.User, in RandomItemInput) (*models.RandomGroceryItem, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	item := models.RandomGroceryItem{TeamID: teamID, Name: name}
	if in.Purchased != nil {
		item.Purchased = *in.Purchased
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, translate(err, "create random grocery item")
	}
	s.events.Publish(teamID, newEvent(EventGroceryChanged, teamID))
	return &item, nil
}

// UpdateRandomItem renames or checks an ad-hoc item. Zero fields are left alone.
func (s *GroceryListService) UpdateRandomItem(ctx context.Context, user *models.User, id uint, in RandomItemInput) (*models.RandomGroceryItem, error) {
	item, err := s.ownRandomItem(ctx, user, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
		item.Name = name
	}
	if in.Purchased != nil {
		updates["purchased"] = *in.Purchased
		item.Purchased = *in.Purchased
	}
	if len(updates) == 0 {
		return item, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.RandomGroceryItem{ID: id}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update random grocery item %d: %w", id, err)
	}
	s.events.Publish(item.TeamID, newEvent(EventGroceryChanged, item.TeamID))
	return item, nil
}

// DeleteRandomItem removes an ad-hoc item.
func (s *GroceryListService) DeleteRandomItem(ctx context.Context, user *models.User, id uint) error {
	item, err := s.ownRandomItem(ctx, user, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return fmt.Errorf("failed to delete random grocery item %d: %w", id, err)
	}
	s.events.Publish(item.TeamID, newEvent(EventGroceryChanged, item.TeamID))
	return nil
}

// ExportCSV writes the grouped list as CSV: kind, name, amounts, dishes, purchased.
// kind is "ingredient" for derived groups and "random" for ad-hoc items.
func (s *GroceryListService) ExportCSV(ctx context.Context, user *models.User, w io.Writer) error {
	list, err := s.List(ctx, user)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"kind", "name", "amounts", "dishes", "purchased"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, g := range list.Groups {
		record := []string{"ingredient", g.Ingredient, g.Amounts, strings.Join(g.Dishes, "; "), strconv.FormatBool(g.Purchased)}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	for _, item := range list.RandomItems {
		if err := writer.Write([]string{"random", item.Name, "", "", strconv.FormatBool(item.Purchased)}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *GroceryListService) ownRandomItem(ctx context.Context, user *models.User, id uint) (*models.RandomGroceryItem, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}
	var item models.RandomGroceryItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("random grocery item %d", id))
	}
	if item.TeamID != teamID {
		return nil, fmt.Errorf("random grocery item %d belongs to another team: %w", id, ErrForbidden)
	}
	return &item, nil
}

func (s *GroceryListService) dishNamesByCourse(ctx context.Context, items []models.GroceryListItem) (map[uint]string, error) {
	var courseIDs []uint
	for _, item := range items {
		if item.CourseID != nil {
			courseIDs = append(courseIDs, *item.CourseID)
		}
	}
	names := make(map[uint]string)
	courseIDs = uniqueIDs(courseIDs)
	if len(courseIDs) == 0 {
		return names, nil
	}

	var rows []struct {
		CourseID uint
		Name     string
	}
	err := s.db.WithContext(ctx).
		Table("courses").
		Select("courses.id AS course_id, dishes.name AS name").
		Joins("JOIN dishes ON dishes.id = courses.dish_id").
		Where("courses.id IN ?", courseIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load dish names: %w", err)
	}
	for _, r := range rows {
		names[r.CourseID] = r.Name
	}
	return names, nil
}
