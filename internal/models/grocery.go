package models

import "time"

// GroceryListItem is one ingredient amount to buy for one course.
// CourseID is nil once the course is gone and the item survives as purchase history.
type GroceryListItem struct {
	ID                 uint             `json:"id" gorm:"primaryKey"`
	TeamID             uint             `json:"team_id" gorm:"index;not null"`
	CourseID           *uint            `json:"course_id" gorm:"index"`
	IngredientAmountID uint             `json:"ingredient_amount_id" gorm:"index;not null"`
	IngredientAmount   IngredientAmount `json:"ingredient_amount"`
	Purchased          bool             `json:"purchased"`
	CreatedAt          time.Time        `json:"created_at"`
}

// RandomGroceryItem is something to buy that no meal asked for, like paper towels.
type RandomGroceryItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TeamID    uint      `json:"team_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Purchased bool      `json:"purchased"`
	CreatedAt time.Time `json:"created_at"`
}

// GroceryGroup is every grocery item for one ingredient name.
type GroceryGroup struct {
	Ingredient     string   `json:"ingredient"`
	IngredientID   uint     `json:"ingredient_id"`
	ItemIDs        []uint   `json:"item_ids"`
	Amounts        string   `json:"amounts"`
	PurchasedCount int      `json:"purchased_count"`
	TotalCount     int      `json:"total_count"`
	Purchased      bool     `json:"purchased"`
	Dishes         []string `json:"dishes"`
}

// GroceryList is the team's shopping list view.
type GroceryList struct {
	Groups      []GroceryGroup      `json:"groups"`
	RandomItems []RandomGroceryItem `json:"random_items"`
}
