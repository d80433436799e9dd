package models

// NamedCount is a dish or ingredient with how many meals used it
type NamedCount struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PlanRate is the share of days (as a percentage) a team planned each meal type.
type PlanRate struct {
	Breakfasts int `json:"breakfasts"`
	Lunches    int `json:"lunches"`
	Dinners    int `json:"dinners"`
	Snacks     int `json:"snacks"`
	All        int `json:"all"`
}

// TeamStats summarises how a team plans, cooks and eats.
type TeamStats struct {
	TeamID            uint         `json:"team_id"`
	CommonIngredients []NamedCount `json:"common_ingredients"`
	CommonDishes      []NamedCount `json:"common_dishes"`
	CookedDishes      []NamedCount `json:"cooked_dishes"`
	EatenDishes       []NamedCount `json:"eaten_dishes"`
	PrepRate          int          `json:"prep_rate"`
	EatRate           int          `json:"eat_rate"`
	PlanRate          PlanRate     `json:"plan_rate"`
}

// Recommendation is a dish suggested from the meal graph, with its score and explanation
type Recommendation struct {
	Dish        NamedCount `json:"dish"`
	Score       float64    `json:"score"`
	Explanation string     `json:"explanation"`
	Strategy    string     `json:"strategy"`
}

// SuggestWeights weighs the insight strategies combined into a suggestion
type SuggestWeights struct {
	Favourites        float64 `json:"favourites"`
	ServedWith        float64 `json:"served_with"`
	SharedIngredients float64 `json:"shared_ingredients"`
	Forgotten         float64 `json:"forgotten"`
}
