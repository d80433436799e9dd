package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/themenu/internal/models"
	"github.com/yishak-cs/themenu/internal/testutil"
)

func groceryItem(id uint, course uint, ingID uint, name, amount, unit string, purchased bool) models.GroceryListItem {
	c := course
	return models.GroceryListItem{
		ID:                 id,
		CourseID:           &c,
		IngredientAmountID: id * 10,
		IngredientAmount: models.IngredientAmount{
			ID:           id * 10,
			IngredientID: ingID,
			Ingredient:   models.Ingredient{ID: ingID, Name: name},
			Amount:       amount,
			Unit:         unit,
		},
		Purchased: purchased,
	}
}

func TestGroupGroceries(t *testing.T) {
	items := []models.GroceryListItem{
		groceryItem(1, 100, 1, "eggs", "2", "", false),
		groceryItem(2, 101, 2, "butter", "", "", true),
		groceryItem(3, 101, 1, "eggs", "3", "", true),
		groceryItem(4, 100, 3, "Apples", "1", "lb", false),
		groceryItem(5, 102, 1, "eggs", "", "", false),
	}
	dishes := map[uint]string{100: "omelette", 101: "cake", 102: "omelette"}

	got := GroupGroceries(items, dishes)

	want := []models.GroceryGroup{
		{Ingredient: "Apples", IngredientID: 3, ItemIDs: []uint{4}, Amounts: "1 lb", TotalCount: 1, Dishes: []string{"omelette"}},
		{Ingredient: "eggs", IngredientID: 1, ItemIDs: []uint{1, 3, 5}, Amounts: "2, 3", PurchasedCount: 1, TotalCount: 3, Dishes: []string{"omelette", "cake"}},
		{Ingredient: "butter", IngredientID: 2, ItemIDs: []uint{2}, PurchasedCount: 1, TotalCount: 1, Purchased: true, Dishes: []string{"cake"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GroupGroceries mismatch (-want +got):\n%s", diff)
	}
}

func TestGroceryListServiceGroupsTeamItems(t *testing.T) {
	f := newFixture(t)
	omelette := testutil.CreateDish(t, f.db, f.user, "omelette", "eggs", "cheese")
	cake := testutil.CreateDish(t, f.db, f.user, "cake", "eggs", "flour")
	f.planMeal(t, "2024-03-04", models.PrepCook, omelette, cake)

	list, err := f.grocery.List(f.ctx, f.user)
	require.NoError(t, err)
	require.Len(t, list.Groups, 3)
	assert.Equal(t, "cheese", list.Groups[0].Ingredient)
	eggs := list.Groups[1]
	assert.Equal(t, "eggs", eggs.Ingredient)
	assert.Equal(t, 2, eggs.TotalCount)
	assert.Equal(t, "1, 1", eggs.Amounts)
	assert.ElementsMatch(t, []string{"omelette", "cake"}, eggs.Dishes)

	updated, err := f.grocery.SetGroupPurchased(f.ctx, f.user, eggs.IngredientID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	list, err = f.grocery.List(f.ctx, f.user)
	require.NoError(t, err)
	last := list.Groups[len(list.Groups)-1]
	assert.Equal(t, "eggs", last.Ingredient, "fully purchased groups sort last")
	assert.True(t, last.Purchased)

	_, err = f.grocery.SetGroupPurchased(f.ctx, f.user, 999, true)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRandomGroceryItems(t *testing.T) {
	f := newFixture(t)

	towels, err := f.grocery.CreateRandomItem(f.ctx, f.user, RandomItemInput{Name: " paper towels "})
	require.NoError(t, err)
	assert.Equal(t, "paper towels", towels.Name)
	soap, err := f.grocery.CreateRandomItem(f.ctx, f.user, RandomItemInput{Name: "soap"})
	require.NoError(t, err)

	_, err = f.grocery.CreateRandomItem(f.ctx, f.user, RandomItemInput{Name: "  "})
	assert.True(t, errors.Is(err, ErrInvalid))

	bought := true
	updated, err := f.grocery.UpdateRandomItem(f.ctx, f.user, towels.ID, RandomItemInput{Purchased: &bought})
	require.NoError(t, err)
	assert.True(t, updated.Purchased)
	assert.Equal(t, "paper towels", updated.Name)

	list, err := f.grocery.List(f.ctx, f.user)
	require.NoError(t, err)
	require.Len(t, list.RandomItems, 2)
	assert.Equal(t, soap.ID, list.RandomItems[0].ID, "unpurchased first")

	otherTeam := testutil.CreateTeam(t, f.db, "neighbours")
	neighbour := testutil.CreateUser(t, f.db, "n@example.com", otherTeam)
	err = f.grocery.DeleteRandomItem(f.ctx, neighbour, soap.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	require.NoError(t, f.grocery.DeleteRandomItem(f.ctx, f.user, soap.ID))
	err = f.grocery.DeleteRandomItem(f.ctx, f.user, soap.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGroceryItemOfAnotherTeamIsForbidden(t *testing.T) {
	f := newFixture(t)
	dish := testutil.CreateDish(t, f.db, f.user, "tea", "tea leaves")
	f.planMeal(t, "2024-03-04", models.PrepCook, dish)
	items := f.itemsOfTeam(t)
	require.Len(t, items, 1)

	otherTeam := testutil.CreateTeam(t, f.db, "neighbours")
	neighbour := testutil.CreateUser(t, f.db, "n@example.com", otherTeam)
	err := f.grocery.SetItemPurchased(f.ctx, neighbour, items[0].ID, true)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	dish := testutil.CreateDish(t, f.db, f.user, "toast", "bread", "butter")
	f.planMeal(t, "2024-03-04", models.PrepCook, dish)
	_, err := f.grocery.CreateRandomItem(f.ctx, f.user, RandomItemInput{Name: "candles"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.grocery.ExportCSV(f.ctx, f.user, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		{"kind", "name", "amounts", "dishes", "purchased"},
		{"ingredient", "bread", "1", "toast", "false"},
		{"ingredient", "butter", "1", "toast", "false"},
		{"random", "candles", "", "", "false"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}
