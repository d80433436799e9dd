package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/themenu/internal/models"
	"github.com/yishak-cs/themenu/internal/testutil"
)

func TestMealSlotIsUniquePerTeam(t *testing.T) {
	f := newFixture(t)
	f.planMeal(t, "2024-03-04", models.PrepCook)

	_, err := f.meals.Create(f.ctx, f.user, MealInput{Date: "2024-03-04", MealType: models.Dinner})
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)

	// another team may plan the same slot
	otherTeam := testutil.CreateTeam(t, f.db, "neighbours")
	neighbour := testutil.CreateUser(t, f.db, "n@example.com", otherTeam)
	_, err = f.meals.Create(f.ctx, neighbour, MealInput{Date: "2024-03-04", MealType: models.Dinner})
	assert.NoError(t, err)
}

func TestMealInputValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		in   MealInput
	}{
		{"bad date", MealInput{Date: "04/03/2024", MealType: models.Dinner}},
		{"bad type", MealInput{Date: "2024-03-04", MealType: "brunch"}},
		{"bad prep", MealInput{Date: "2024-03-04", MealType: models.Lunch, MealPrep: "steal"}},
		{"unknown tag", MealInput{Date: "2024-03-04", MealType: models.Lunch, TagIDs: []uint{99}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.meals.Create(f.ctx, f.user, tc.in)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestMealOfAnotherTeamIsForbidden(t *testing.T) {
	f := newFixture(t)
	dish := testutil.CreateDish(t, f.db, f.user, "chili", "beans")
	meal := f.planMeal(t, "2024-03-04", models.PrepCook, dish)

	otherTeam := testutil.CreateTeam(t, f.db, "neighbours")
	neighbour := testutil.CreateUser(t, f.db, "n@example.com", otherTeam)
	loner := testutil.CreateUser(t, f.db, "loner@example.com", nil)

	_, err := f.meals.Get(f.ctx, neighbour, meal.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
	_, err = f.courses.SetFlag(f.ctx, neighbour, CourseFlagUpdate{DishID: dish.ID, MealID: meal.ID, Attribute: models.FieldEaten, Checked: true})
	assert.True(t, errors.Is(err, ErrForbidden))
	err = f.meals.Delete(f.ctx, loner, meal.ID)
	assert.True(t, errors.Is(err, ErrNoTeam))
}

func TestAddingTheSameDishTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	dish := testutil.CreateDish(t, f.db, f.user, "waffles", "flour")
	meal := f.planMeal(t, "2024-03-04", models.PrepCook, dish)

	_, err := f.courses.AddCourse(f.ctx, f.user, meal.ID, dish.ID)
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = f.courses.AddCourse(f.ctx, f.user, meal.ID, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMealUpdateSyncsCourses(t *testing.T) {
	f := newFixture(t)
	soup := testutil.CreateDish(t, f.db, f.user, "soup", "leek")
	bread := testutil.CreateDish(t, f.db, f.user, "bread", "flour", "yeast")
	meal := f.planMeal(t, "2024-03-04", models.PrepCook, soup)
	tag := models.Tag{Name: "cosy", Color: "#ff0000"}
	require.NoError(t, f.db.Create(&tag).Error)

	updated, err := f.meals.Update(f.ctx, f.user, meal.ID, MealInput{
		Date: "2024-03-05", MealType: models.Lunch, DishIDs: []uint{bread.ID}, TagIDs: []uint{tag.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, models.Lunch, updated.MealType)
	assert.Equal(t, "2024-03-05", updated.Date.Format(models.DateLayout))
	require.Len(t, updated.Courses, 1)
	assert.Equal(t, bread.ID, updated.Courses[0].DishID)
	require.Len(t, updated.Tags, 1)
	assert.ElementsMatch(t, amountIDs(bread), itemAmountIDs(f.itemsOfTeam(t)))
}

func TestMealUpdateWithoutPrepKeepsIt(t *testing.T) {
	f := newFixture(t)
	cake := testutil.CreateDish(t, f.db, f.user, "cake", "flour", "sugar")
	meal := f.planMeal(t, "2024-03-04", models.PrepBuy, cake)
	require.Empty(t, f.itemsOfTeam(t))

	updated, err := f.meals.Update(f.ctx, f.user, meal.ID, MealInput{
		Date: "2024-03-04", MealType: models.Dinner, DishIDs: []uint{cake.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, models.PrepBuy, updated.MealPrep)
	assert.Empty(t, f.itemsOfTeam(t), "bought meals need no groceries")
}

func TestMealCreateDefaultsToCook(t *testing.T) {
	f := newFixture(t)
	pie := testutil.CreateDish(t, f.db, f.user, "pie", "apples")

	meal, err := f.meals.Create(f.ctx, f.user, MealInput{Date: "2024-03-04", MealType: models.Dinner, DishIDs: []uint{pie.ID}})
	require.NoError(t, err)

	assert.Equal(t, models.PrepCook, meal.MealPrep)
	assert.ElementsMatch(t, amountIDs(pie), itemAmountIDs(f.itemsOfTeam(t)))
}

func TestDeletingMealRemovesCoursesAndGraphNode(t *testing.T) {
	f := newFixture(t)
	dish := testutil.CreateDish(t, f.db, f.user, "risotto", "rice", "stock")
	meal := f.planMeal(t, "2024-03-04", models.PrepCook, dish)
	items := f.itemsOfTeam(t)
	require.NoError(t, f.grocery.SetItemPurchased(f.ctx, f.user, items[0].ID, true))

	require.NoError(t, f.meals.Delete(f.ctx, f.user, meal.ID))

	left := f.itemsOfTeam(t)
	require.Len(t, left, 1)
	assert.True(t, left[0].Purchased)
	assert.Equal(t, []uint{meal.ID}, f.graph.removed)

	_, err := f.meals.Get(f.ctx, f.user, meal.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListMealsBetweenDates(t *testing.T) {
	f := newFixture(t)
	f.planMeal(t, "2024-03-03", models.PrepCook)
	f.planMeal(t, "2024-03-04", models.PrepCook)
	f.planMeal(t, "2024-03-11", models.PrepCook)

	meals, err := f.meals.List(f.ctx, f.user, testutil.Date(t, "2024-03-04"), testutil.Date(t, "2024-03-10"))
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "2024-03-04", meals[0].Date.Format(models.DateLayout))
}
