package models

import (
	"fmt"
	"time"
)

// MealType is the slot of the day a meal fills
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Dessert   MealType = "dessert"
	Snack     MealType = "snack"
	Tapas     MealType = "tapas"
)

// MealTypes lists the slots in calendar order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Dessert, Snack, Tapas}

// Valid reports whether t is one of MealTypes.
func (t MealType) Valid() bool {
	for _, mt := range MealTypes {
		if t == mt {
			return true
		}
	}
	return false
}

// MealPrep says how the food for a meal is obtained
type MealPrep string

const (
	PrepCook     MealPrep = "cook"
	PrepBuy      MealPrep = "buy"
	PrepLeftover MealPrep = "leftover"
)

// Valid reports whether p is a known prep mode.
func (p MealPrep) Valid() bool {
	return p == PrepCook || p == PrepBuy || p == PrepLeftover
}

// Meal is a collection of dishes eaten at one time. A team has at most one
// meal per (date, type).
type Meal struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Date     time.Time `json:"date" gorm:"uniqueIndex:idx_meal_slot;not null"`
	MealType MealType  `json:"meal_type" gorm:"size:40;uniqueIndex:idx_meal_slot;not null"`
	MealPrep MealPrep  `json:"meal_prep" gorm:"size:40;not null;default:cook"`
	TeamID   uint      `json:"team_id" gorm:"uniqueIndex:idx_meal_slot;not null"`
	Tags     []Tag     `json:"tags" gorm:"many2many:meal_tags"`
	Courses  []Course  `json:"courses"`
}

// IsCooked reports whether the team cooks this meal, the only case that generates groceries.
func (m *Meal) IsCooked() bool {
	return m.MealPrep == PrepCook
}

func (m *Meal) String() string {
	return fmt.Sprintf("%s on %s", m.MealType, m.Date.Format(DateLayout))
}

// Course joins a dish to a meal
type Course struct {
	ID       uint  `json:"id" gorm:"primaryKey"`
	MealID   uint  `json:"meal_id" gorm:"uniqueIndex:idx_course_pair;not null"`
	DishID   uint  `json:"dish_id" gorm:"uniqueIndex:idx_course_pair;not null"`
	Meal     *Meal `json:"-"`
	Dish     *Dish `json:"dish,omitempty"`
	Prepared bool  `json:"prepared"`
	Eaten    bool  `json:"eaten"`
}

// Course fields whose change only records progress and never reshapes the grocery list.
const (
	FieldPrepared = "prepared"
	FieldEaten    = "eaten"
)

// DateLayout is the wire format for meal dates.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC so meals compare by calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
