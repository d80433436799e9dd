package models

import (
	"math/rand"
	"strings"
	"time"
)

// TagColors are the CSS colour names a new tag can be painted with.
var TagColors = []string{
	"Wheat", "PeachPuff", "YellowGreen", "RosyBrown", "Peru",
	"Khaki", "Salmon", "LemonChiffon", "Orange", "Lavender", "Tomato",
	"LightBlue", "DarkSeaGreen", "Pink",
}

// RandomTagColor picks one of TagColors.
func RandomTagColor() string {
	return TagColors[rand.Intn(len(TagColors))]
}

// Units maps the accepted unit abbreviations to their names.
var Units = map[string]string{
	"oz": "ounce", "lb": "pound", "mg": "milligram", "g": "gram", "kg": "kilogram",
	"c": "cup", "gill": "gill", "ml": "milliliter", "L": "liter", "pt": "pint",
	"qt": "quart", "gal": "gallon", "tsp": "teaspoon", "tbsp": "tablespoon",
	"fl oz": "fluid ounces", "dash": "dash", "pinch": "pinch",
	"mm": "millimeter", "cm": "centimeter", "m": "meter", "in": "inch", "ft": "foot",
}

// Tag is a label attached to dishes, ingredients and meals
type Tag struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Name  string `json:"name" gorm:"size:48;not null"`
	Color string `json:"color" gorm:"size:48"`
}

// Ingredient is a food item used by dishes
type Ingredient struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:96;uniqueIndex;not null"`
	Tags []Tag  `json:"tags" gorm:"many2many:ingredient_tags"`
}

// IngredientAmount pairs an ingredient with a free-text quantity inside one dish.
// Amount is free text since it can be "3", "1 2/3" or "two".
type IngredientAmount struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	DishID       uint       `json:"dish_id" gorm:"index;not null"`
	IngredientID uint       `json:"ingredient_id" gorm:"index;not null"`
	Ingredient   Ingredient `json:"ingredient"`
	Amount       string     `json:"amount" gorm:"size:40"`
	Unit         string     `json:"unit" gorm:"size:40"`
	Descriptor   string     `json:"descriptor" gorm:"size:256"`
}

// Display renders the quantity as shown on the grocery list, e.g. "2 c chopped".
func (a IngredientAmount) Display() string {
	var parts []string
	for _, p := range []string{a.Amount, a.Unit, a.Descriptor} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Dish is a single thing eaten as part of a meal
type Dish struct {
	ID                uint               `json:"id" gorm:"primaryKey"`
	Name              string             `json:"name" gorm:"not null"`
	Notes             string             `json:"notes"`
	Source            string             `json:"source"`
	Recipe            string             `json:"recipe"`
	PhotoURL          string             `json:"photo_url"`
	CreatedByID       uint               `json:"created_by_id" gorm:"index;not null"`
	CreatedBy         *User              `json:"created_by,omitempty"`
	IngredientAmounts []IngredientAmount `json:"ingredient_amounts"`
	Tags              []Tag              `json:"tags" gorm:"many2many:dish_tags"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Review scores run from 1 (worst) to 3 (best).
var (
	FastnessChoices = map[int]string{1: "over 1 hour", 2: "30 min - 1 hour", 3: "less than 30 min"}
	EaseChoices     = map[int]string{1: "complicated", 2: "moderate", 3: "simple"}
	ResultsChoices  = map[int]string{1: "not so good", 2: "okay", 3: "tasty"}
)

// DishReview is one user's opinion of a dish. A user has at most one review per dish.
type DishReview struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_review_user_dish;not null"`
	DishID    uint      `json:"dish_id" gorm:"uniqueIndex:idx_review_user_dish;not null"`
	Notes     string    `json:"notes"`
	Fastness  *int      `json:"fastness"`
	Ease      *int      `json:"ease"`
	Results   *int      `json:"results"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
