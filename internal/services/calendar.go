package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yishak-cs/themenu/internal/models"
)

// CalendarService builds the weekly meal plan view
type CalendarService struct {
	db *gorm.DB
}

// NewCalendarService creates a calendar service
func NewCalendarService(db *gorm.DB) *CalendarService {
	return &CalendarService{db: db}
}

// WeekBounds returns the Monday and Sunday of the week containing ref.
func WeekBounds(ref time.Time) (time.Time, time.Time) {
	day := models.DateOnly(ref)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -sinceMonday)
	return monday, monday.AddDate(0, 0, 6)
}

// Week returns the team's plan for the Monday-to-Sunday week containing ref.
func (s *CalendarService) Week(ctx context.Context, user *models.User, ref time.Time) (*models.Week, error) {
	teamID, err := teamOf(user)
	if err != nil {
		return nil, err
	}
	monday, sunday := WeekBounds(ref)

	var meals []models.Meal
	err = s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Courses.Dish").
		Where("team_id = ? AND date BETWEEN ? AND ?", teamID, monday, sunday).
		Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load week of %s: %w", monday.Format(models.DateLayout), err)
	}

	bySlot := make(map[string]*models.Meal, len(meals))
	for i := range meals {
		bySlot[slotKey(meals[i].Date, meals[i].MealType)] = &meals[i]
	}

	_, isoWeek := monday.ISOWeek()
	week := &models.Week{
		Monday:       monday,
		Sunday:       sunday,
		PrevMonday:   monday.AddDate(0, 0, -7),
		NextMonday:   monday.AddDate(0, 0, 7),
		ISOWeek:      isoWeek,
		DisplayTitle: monday.Format("02 January, 2006"),
	}
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		week.Days = append(week.Days, models.WeekDay{Date: day, Weekday: day.Weekday().String()})
	}
	for _, mt := range models.MealTypes {
		row := models.MealTypeRow{MealType: mt}
		for _, day := range week.Days {
			row.Slots = append(row.Slots, models.MealSlot{Date: day.Date, Meal: bySlot[slotKey(day.Date, mt)]})
		}
		week.Rows = append(week.Rows, row)
	}
	return week, nil
}

// WeekByOffset returns the week offset whole weeks away from today's week.
func (s *CalendarService) WeekByOffset(ctx context.Context, user *models.User, today time.Time, offset int) (*models.Week, error) {
	week, err := s.Week(ctx, user, models.DateOnly(today).AddDate(0, 0, 7*offset))
	if err != nil {
		return nil, err
	}
	prev, next := offset-1, offset+1
	week.Offset, week.PrevOffset, week.NextOffset = &offset, &prev, &next
	return week, nil
}

func slotKey(date time.Time, mt models.MealType) string {
	return date.Format(models.DateLayout) + "/" + string(mt)
}
