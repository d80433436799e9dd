package models

import "time"

// WeekDay is one column of the calendar.
type WeekDay struct {
	Date    time.Time `json:"date"`
	Weekday string    `json:"weekday"`
}

// MealSlot holds the meal planned for one (day, type) cell, if any.
type MealSlot struct {
	Date time.Time `json:"date"`
	Meal *Meal     `json:"meal"`
}

// MealTypeRow is one row of the calendar: a meal type across the seven days.
type MealTypeRow struct {
	MealType MealType   `json:"meal_type"`
	Slots    []MealSlot `json:"slots"`
}

// Week is a Monday-to-Sunday view of a team's meals.
type Week struct {
	Monday       time.Time     `json:"monday"`
	Sunday       time.Time     `json:"sunday"`
	PrevMonday   time.Time     `json:"prev_monday"`
	NextMonday   time.Time     `json:"next_monday"`
	Offset       *int          `json:"offset,omitempty"`
	PrevOffset   *int          `json:"prev_offset,omitempty"`
	NextOffset   *int          `json:"next_offset,omitempty"`
	Days         []WeekDay     `json:"days"`
	Rows         []MealTypeRow `json:"rows"`
	ISOWeek      int           `json:"iso_week"`
	DisplayTitle string        `json:"display_title"`
}
