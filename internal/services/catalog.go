package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// TagService manages tags
type TagService struct {
	db *gorm.DB
}

// NewTagService creates a tag service
func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// TagInput is the editable part of a tag
type TagInput struct {
	Name  string `json:"name" binding:"required,max=48"`
	Color string `json:"color"`
}

// List returns every tag ordered by name.
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// Get returns one tag.
func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("tag %d", id))
	}
	return &tag, nil
}

// Create stores a tag, painting it a random colour when none is given.
func (s *TagService) Create(ctx context.Context, in TagInput) (*models.Tag, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	tag := models.Tag{Name: name, Color: in.Color}
	if tag.Color == "" {
		tag.Color = models.RandomTagColor()
	}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, translate(err, "create tag")
	}
	return &tag, nil
}

// Update renames or recolours a tag. An empty colour keeps the current one.
func (s *TagService) Update(ctx context.Context, id uint, in TagInput) (*models.Tag, error) {
	tag, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tag.Name = strings.TrimSpace(in.Name)
	if tag.Name == "" {
		return nil, invalidf("name is required")
	}
	if in.Color != "" {
		tag.Color = in.Color
	}
	if err := s.db.WithContext(ctx).Save(tag).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("update tag %d", id))
	}
	return tag, nil
}

// Delete removes a tag and detaches it from dishes, ingredients and meals.
func (s *TagService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.First(&tag, id).Error; err != nil {
			return translate(err, fmt.Sprintf("tag %d", id))
		}
		for _, table := range []string{"dish_tags", "ingredient_tags", "meal_tags"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE tag_id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to detach tag %d from %s: %w", id, table, err)
			}
		}
		return tx.Delete(&tag).Error
	})
}

// IngredientService manages ingredients
type IngredientService struct {
	db *gorm.DB
}

// NewIngredientService creates an ingredient service
func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// IngredientInput is the editable part of an ingredient
type IngredientInput struct {
	Name   string `json:"name" binding:"required,max=96"`
	TagIDs []uint `json:"tag_ids"`
}

// List returns ingredients ordered by name, optionally filtered by a name fragment.
func (s *IngredientService) List(ctx context.Context, query string) ([]models.Ingredient, error) {
	q := s.db.WithContext(ctx).Preload("Tags").Order("name")
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

// Get returns one ingredient with its tags.
func (s *IngredientService) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).Preload("Tags").First(&ing, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("ingredient %d", id))
	}
	return &ing, nil
}

// Create stores an ingredient. Names are unique.
func (s *IngredientService) Create(ctx context.Context, in IngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}

	var ing models.Ingredient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkIngredientNameFree(tx, name, 0); err != nil {
			return err
		}
		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		ing = models.Ingredient{Name: name, Tags: tags}
		return translate(tx.Create(&ing).Error, "create ingredient")
	})
	if err != nil {
		return nil, err
	}
	return &ing, nil
}

// Update renames an ingredient and replaces its tags.
func (s *IngredientService) Update(ctx context.Context, id uint, in IngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ing models.Ingredient
		if err := tx.First(&ing, id).Error; err != nil {
			return translate(err, fmt.Sprintf("ingredient %d", id))
		}
		if err := checkIngredientNameFree(tx, name, id); err != nil {
			return err
		}
		if err := tx.Model(&ing).Update("name", name).Error; err != nil {
			return translate(err, fmt.Sprintf("update ingredient %d", id))
		}
		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		return tx.Model(&ing).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes an ingredient that no dish uses.
func (s *IngredientService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ing models.Ingredient
		if err := tx.First(&ing, id).Error; err != nil {
			return translate(err, fmt.Sprintf("ingredient %d", id))
		}
		var used int64
		if err := tx.Model(&models.IngredientAmount{}).Where("ingredient_id = ?", id).Count(&used).Error; err != nil {
			return fmt.Errorf("failed to check ingredient %d usage: %w", id, err)
		}
		if used > 0 {
			return fmt.Errorf("ingredient %d is used by %d dishes: %w", id, used, ErrConflict)
		}
		if err := tx.Model(&ing).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to clear tags of ingredient %d: %w", id, err)
		}
		return tx.Delete(&ing).Error
	})
}

func checkIngredientNameFree(tx *gorm.DB, name string, except uint) error {
	var other models.Ingredient
	err := tx.Where("name = ? AND id <> ?", name, except).First(&other).Error
	switch {
	case err == nil:
		return fmt.Errorf("ingredient %q: %w", name, ErrConflict)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check ingredient name: %w", err)
	}
}
