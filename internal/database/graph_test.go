package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/themenu/internal/models"
)

type call struct {
	query  string
	params map[string]interface{}
}

type recordingRunner struct {
	writes  []call
	reads   []call
	rows    []map[string]interface{}
	failOn  string
	failErr error
}

func (r *recordingRunner) ExecuteRead(_ context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	r.reads = append(r.reads, call{query, params})
	return r.rows, nil
}

func (r *recordingRunner) ExecuteWrite(_ context.Context, query string, params map[string]interface{}) error {
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return r.failErr
	}
	r.writes = append(r.writes, call{query, params})
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleMeal() *models.Meal {
	flour := models.Ingredient{ID: 30, Name: "flour"}
	return &models.Meal{
		ID:       5,
		TeamID:   2,
		Date:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		MealType: models.Breakfast,
		MealPrep: models.PrepCook,
		Courses: []models.Course{
			{DishID: 11, Prepared: true, Dish: &models.Dish{ID: 11, Name: "pancakes", IngredientAmounts: []models.IngredientAmount{
				{IngredientID: 30, Ingredient: flour},
			}}},
			{DishID: 12, Eaten: true, Dish: &models.Dish{ID: 12, Name: "coffee"}},
			{DishID: 13},
		},
	}
}

func TestProjectMealWritesMealThenServedWith(t *testing.T) {
	runner := &recordingRunner{}
	projector := NewGraphProjector(runner, quietLogger())

	require.NoError(t, projector.ProjectMeal(context.Background(), sampleMeal()))

	require.Len(t, runner.writes, 3)
	project := runner.writes[0]
	assert.Contains(t, project.query, "MERGE (m)-[s:SERVES]->(d)")
	assert.Equal(t, int64(2), project.params["teamId"])
	assert.Equal(t, int64(5), project.params["mealId"])
	assert.Equal(t, "2024-03-04", project.params["date"])
	assert.Equal(t, "breakfast", project.params["mealType"])
	assert.Equal(t, "cook", project.params["mealPrep"])

	dishes, ok := project.params["dishes"].([]interface{})
	require.True(t, ok)
	require.Len(t, dishes, 2, "courses without a loaded dish are skipped")
	pancakes := dishes[0].(map[string]interface{})
	assert.Equal(t, int64(11), pancakes["id"])
	assert.Equal(t, true, pancakes["prepared"])
	assert.Equal(t, false, pancakes["eaten"])
	assert.Equal(t, []interface{}{map[string]interface{}{"id": int64(30), "name": "flour"}}, pancakes["ingredients"])

	assert.Contains(t, runner.writes[1].query, "DELETE w")
	assert.Contains(t, runner.writes[2].query, "SET w.times = times")
	assert.Equal(t, int64(2), runner.writes[2].params["teamId"])
}

func TestRemoveMeal(t *testing.T) {
	runner := &recordingRunner{}
	projector := NewGraphProjector(runner, quietLogger())

	require.NoError(t, projector.RemoveMeal(context.Background(), 2, 5))
	require.Len(t, runner.writes, 3)
	assert.Contains(t, runner.writes[0].query, "DETACH DELETE m")
	assert.Equal(t, int64(5), runner.writes[0].params["mealId"])
}

func TestRebuildRefreshesEachTeamOnce(t *testing.T) {
	runner := &recordingRunner{}
	projector := NewGraphProjector(runner, quietLogger())
	meals := []models.Meal{{ID: 1, TeamID: 1}, {ID: 2, TeamID: 2}, {ID: 3, TeamID: 1}}

	require.NoError(t, projector.Rebuild(context.Background(), meals))

	// clear + 3 meals + (clear, build) per team
	require.Len(t, runner.writes, 1+3+2*2)
	assert.Equal(t, "MATCH (n) DETACH DELETE n", runner.writes[0].query)
	assert.Equal(t, int64(1), runner.writes[5].params["teamId"])
	assert.Equal(t, int64(2), runner.writes[7].params["teamId"])
}

func TestProjectMealReportsWriteFailures(t *testing.T) {
	runner := &recordingRunner{failOn: "SERVED_WITH", failErr: errors.New("leader unavailable")}
	projector := NewGraphProjector(runner, quietLogger())

	err := projector.ProjectMeal(context.Background(), sampleMeal())
	assert.ErrorContains(t, err, "leader unavailable")
	assert.ErrorContains(t, err, "team 2")
}

func TestStatus(t *testing.T) {
	runner := &recordingRunner{rows: []map[string]interface{}{{
		"teams": int64(1), "meals": int64(4), "dishes": int64(6), "ingredients": int64(9), "served_with": int64(3),
	}}}
	projector := NewGraphProjector(runner, quietLogger())

	status, err := projector.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"teams": 1, "meals": 4, "dishes": 6, "ingredients": 9, "served_with": 3}, status)

	empty, err := NewGraphProjector(&recordingRunner{}, quietLogger()).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, empty["meals"])
}

func TestOpenSQL(t *testing.T) {
	db, err := OpenSQL(SQLConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1}, quietLogger())
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.GroceryListItem{}))
	assert.True(t, db.Migrator().HasTable("meal_tags"))

	_, err = OpenSQL(SQLConfig{Driver: "oracle"}, quietLogger())
	assert.ErrorContains(t, err, "unsupported database driver")
}
