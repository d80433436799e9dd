package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yishak-cs/themenu/internal/models"
)

// GraphProjector mirrors the relational meal plan into Neo4j:
// (Team)-[:PLANNED]->(Meal)-[:SERVES]->(Dish)-[:USES]->(Ingredient), plus
// (Dish)-[:SERVED_WITH {team_id, times}]->(Dish) derived per team.
type GraphProjector struct {
	runner CypherRunner
	log    *slog.Logger
}

// NewGraphProjector creates a projector writing through runner
func NewGraphProjector(runner CypherRunner, log *slog.Logger) *GraphProjector {
	return &GraphProjector{runner: runner, log: log}
}

const projectMealQuery = `
	MERGE (t:Team {db_id: $teamId})
	MERGE (m:Meal {db_id: $mealId})
	SET m.date = $date, m.meal_type = $mealType, m.meal_prep = $mealPrep
	MERGE (t)-[:PLANNED]->(m)
	WITH m
	OPTIONAL MATCH (m)-[old:SERVES]->(:Dish)
	DELETE old
	WITH DISTINCT m
	UNWIND $dishes AS dish
	MERGE (d:Dish {db_id: dish.id})
	SET d.name = dish.name
	MERGE (m)-[s:SERVES]->(d)
	SET s.prepared = dish.prepared, s.eaten = dish.eaten
	WITH d, dish
	OPTIONAL MATCH (d)-[used:USES]->(:Ingredient)
	DELETE used
	WITH DISTINCT d, dish
	UNWIND dish.ingredients AS ing
	MERGE (i:Ingredient {db_id: ing.id})
	SET i.name = ing.name
	MERGE (d)-[:USES]->(i)
`

// ProjectMeal writes one meal with its courses, dishes and ingredients,
// then refreshes the team's SERVED_WITH edges. Courses need Dish and
// Dish.IngredientAmounts.Ingredient loaded.
func (p *GraphProjector) ProjectMeal(ctx context.Context, meal *models.Meal) error {
	if err := p.runner.ExecuteWrite(ctx, projectMealQuery, mealParams(meal)); err != nil {
		return fmt.Errorf("failed to project meal %d: %w", meal.ID, err)
	}
	return p.refreshServedWith(ctx, meal.TeamID)
}

// RemoveMeal deletes a meal node and refreshes its team's SERVED_WITH edges.
func (p *GraphProjector) RemoveMeal(ctx context.Context, teamID, mealID uint) error {
	query := `
		MATCH (m:Meal {db_id: $mealId})
		DETACH DELETE m
	`
	if err := p.runner.ExecuteWrite(ctx, query, map[string]interface{}{"mealId": int64(mealID)}); err != nil {
		return fmt.Errorf("failed to remove meal %d: %w", mealID, err)
	}
	return p.refreshServedWith(ctx, teamID)
}

// Rebuild clears the graph and projects every meal again.
func (p *GraphProjector) Rebuild(ctx context.Context, meals []models.Meal) error {
	p.log.Info("rebuilding meal graph", "meals", len(meals))
	if err := p.runner.ExecuteWrite(ctx, `MATCH (n) DETACH DELETE n`, nil); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}

	teams := make(map[uint]bool)
	var order []uint
	for i := range meals {
		if err := p.runner.ExecuteWrite(ctx, projectMealQuery, mealParams(&meals[i])); err != nil {
			return fmt.Errorf("failed to project meal %d: %w", meals[i].ID, err)
		}
		if !teams[meals[i].TeamID] {
			teams[meals[i].TeamID] = true
			order = append(order, meals[i].TeamID)
		}
	}
	for _, teamID := range order {
		if err := p.refreshServedWith(ctx, teamID); err != nil {
			return err
		}
	}
	p.log.Info("meal graph rebuilt", "meals", len(meals), "teams", len(order))
	return nil
}

// Status counts the nodes and derived edges in the graph.
func (p *GraphProjector) Status(ctx context.Context) (map[string]int, error) {
	query := `
		CALL { MATCH (t:Team) RETURN count(t) AS teams }
		CALL { MATCH (m:Meal) RETURN count(m) AS meals }
		CALL { MATCH (d:Dish) RETURN count(d) AS dishes }
		CALL { MATCH (i:Ingredient) RETURN count(i) AS ingredients }
		CALL { MATCH ()-[w:SERVED_WITH]->() RETURN count(w) AS served_with }
		RETURN teams, meals, dishes, ingredients, served_with
	`
	keys := []string{"teams", "meals", "dishes", "ingredients", "served_with"}
	status := make(map[string]int, len(keys))
	for _, k := range keys {
		status[k] = 0
	}

	results, err := p.runner.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph status: %w", err)
	}
	if len(results) == 0 {
		return status, nil
	}
	for _, k := range keys {
		if n, ok := results[0][k].(int64); ok {
			status[k] = int(n)
		}
	}
	return status, nil
}

func (p *GraphProjector) refreshServedWith(ctx context.Context, teamID uint) error {
	params := map[string]interface{}{"teamId": int64(teamID)}

	clear := `
		MATCH ()-[w:SERVED_WITH {team_id: $teamId}]->()
		DELETE w
	`
	if err := p.runner.ExecuteWrite(ctx, clear, params); err != nil {
		return fmt.Errorf("failed to clear SERVED_WITH for team %d: %w", teamID, err)
	}

	build := `
		MATCH (:Team {db_id: $teamId})-[:PLANNED]->(m:Meal)-[:SERVES]->(d1:Dish)
		MATCH (m)-[:SERVES]->(d2:Dish)
		WHERE d1.db_id < d2.db_id
		WITH d1, d2, count(m) AS times
		MERGE (d1)-[w:SERVED_WITH {team_id: $teamId}]->(d2)
		SET w.times = times
	`
	if err := p.runner.ExecuteWrite(ctx, build, params); err != nil {
		return fmt.Errorf("failed to build SERVED_WITH for team %d: %w", teamID, err)
	}
	return nil
}

func mealParams(meal *models.Meal) map[string]interface{} {
	dishes := make([]interface{}, 0, len(meal.Courses))
	for _, course := range meal.Courses {
		if course.Dish == nil {
			continue
		}
		ingredients := make([]interface{}, 0, len(course.Dish.IngredientAmounts))
		for _, ia := range course.Dish.IngredientAmounts {
			ingredients = append(ingredients, map[string]interface{}{
				"id":   int64(ia.IngredientID),
				"name": ia.Ingredient.Name,
			})
		}
		dishes = append(dishes, map[string]interface{}{
			"id":          int64(course.Dish.ID),
			"name":        course.Dish.Name,
			"prepared":    course.Prepared,
			"eaten":       course.Eaten,
			"ingredients": ingredients,
		})
	}
	return map[string]interface{}{
		"teamId":   int64(meal.TeamID),
		"mealId":   int64(meal.ID),
		"date":     meal.Date.Format(models.DateLayout),
		"mealType": string(meal.MealType),
		"mealPrep": string(meal.MealPrep),
		"dishes":   dishes,
	}
}
