package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yishak-cs/themenu/internal/database"
	"github.com/yishak-cs/themenu/internal/models"
)

// Strategy names reported on recommendations.
const (
	StrategyFavourites        = "Favourites"
	StrategyServedWith        = "ServedWith"
	StrategySharedIngredients = "SharedIngredients"
	StrategyForgotten         = "Forgotten"
)

const (
	insightLimit   = 10
	forgottenAfter = 30 // days
	newTeamMeals   = 3
)

// InsightService answers questions about a team's meal history from the meal graph
type InsightService struct {
	graph database.CypherRunner
	log   *slog.Logger
	now   func() time.Time
}

// NewInsightService creates an insight service. A nil runner makes every query ErrUnavailable.
func NewInsightService(graph database.CypherRunner, log *slog.Logger) *InsightService {
	return &InsightService{graph: graph, log: log, now: time.Now}
}

// Enabled reports whether a graph is configured.
func (s *InsightService) Enabled() bool {
	return s.graph != nil
}

// FavouriteDishes answers: "What does this team serve most often?"
func (s *InsightService) FavouriteDishes(ctx context.Context, user *models.User) ([]models.Recommendation, error) {
	teamID, err := s.begin(user)
	if err != nil {
		return nil, err
	}
	query := `
		MATCH (:Team {db_id: $teamId})-[:PLANNED]->(m:Meal)-[:SERVES]->(d:Dish)
		WITH d, count(m) AS times
		RETURN d.db_id AS dish_id, d.name AS name, times
		ORDER BY times DESC, name
		LIMIT $limit
	`
	params := map[string]interface{}{"teamId": int64(teamID), "limit": int64(insightLimit)}
	results, err := s.graph.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get favourite dishes: %w", err)
	}

	var recs []models.Recommendation
	for _, r := range results {
		times := asInt(r["times"])
		recs = append(recs, models.Recommendation{
			Dish:        namedCount(r, times),
			Score:       float64(times),
			Explanation: fmt.Sprintf("Your team has served this %d times", times),
			Strategy:    StrategyFavourites,
		})
	}
	return recs, nil
}

// ServedWith answers: "With dish X on the menu, what did this team serve alongside it?"
func (s *InsightService) ServedWith(ctx context.Context, user *models.User, dishID uint) ([]models.Recommendation, error) {
	teamID, err := s.begin(user)
	if err != nil {
		return nil, err
	}
	query := `
		MATCH (:Dish {db_id: $dishId})-[w:SERVED_WITH {team_id: $teamId}]-(other:Dish)
		RETURN other.db_id AS dish_id, other.name AS name, w.times AS times
		ORDER BY times DESC, name
		LIMIT $limit
	`
	params := map[string]interface{}{"teamId": int64(teamID), "dishId": int64(dishID), "limit": int64(insightLimit)}
	results, err := s.graph.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get dishes served with %d: %w", dishID, err)
	}

	var recs []models.Recommendation
	for _, r := range results {
		times := asInt(r["times"])
		recs = append(recs, models.Recommendation{
			Dish:        namedCount(r, times),
			Score:       float64(times),
			Explanation: fmt.Sprintf("Served %d times with dish %d", times, dishID),
			Strategy:    StrategyServedWith,
		})
	}
	return recs, nil
}

// SharedIngredients answers: "Which dishes use the most ingredients of dish X?"
func (s *InsightService) SharedIngredients(ctx context.Context, user *models.User, dishID uint) ([]models.Recommendation, error) {
	if _, err := s.begin(user); err != nil {
		return nil, err
	}
	query := `
		MATCH (d:Dish {db_id: $dishId})-[:USES]->(i:Ingredient)<-[:USES]-(other:Dish)
		WHERE other.db_id <> $dishId
		WITH other, count(DISTINCT i) AS shared
		RETURN other.db_id AS dish_id, other.name AS name, shared
		ORDER BY shared DESC, name
		LIMIT $limit
	`
	params := map[string]interface{}{"dishId": int64(dishID), "limit": int64(insightLimit)}
	results, err := s.graph.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get dishes sharing ingredients with %d: %w", dishID, err)
	}

	var recs []models.Recommendation
	for _, r := range results {
		shared := asInt(r["shared"])
		recs = append(recs, models.Recommendation{
			Dish:        namedCount(r, shared),
			Score:       float64(shared),
			Explanation: fmt.Sprintf("Shares %d ingredients with dish %d", shared, dishID),
			Strategy:    StrategySharedIngredients,
		})
	}
	return recs, nil
}

// Forgotten answers: "What did this team use to eat but hasn't had lately?"
func (s *InsightService) Forgotten(ctx context.Context, user *models.User) ([]models.Recommendation, error) {
	teamID, err := s.begin(user)
	if err != nil {
		return nil, err
	}
	since := models.DateOnly(s.now()).AddDate(0, 0, -forgottenAfter).Format(models.DateLayout)
	query := `
		MATCH (:Team {db_id: $teamId})-[:PLANNED]->(m:Meal)-[s:SERVES]->(d:Dish)
		WHERE s.eaten = true
		WITH d, count(m) AS times, max(m.date) AS last
		WHERE last < $since
		RETURN d.db_id AS dish_id, d.name AS name, times, last
		ORDER BY times DESC, name
		LIMIT $limit
	`
	params := map[string]interface{}{"teamId": int64(teamID), "since": since, "limit": int64(insightLimit)}
	results, err := s.graph.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get forgotten dishes: %w", err)
	}

	var recs []models.Recommendation
	for _, r := range results {
		times := asInt(r["times"])
		last, _ := r["last"].(string)
		recs = append(recs, models.Recommendation{
			Dish:        namedCount(r, times),
			Score:       float64(times),
			Explanation: fmt.Sprintf("Eaten %d times, last on %s", times, last),
			Strategy:    StrategyForgotten,
		})
	}
	return recs, nil
}

// Suggest blends every strategy into one ranked list. With dishID set the
// dish itself is left out and dish-specific strategies contribute.
func (s *InsightService) Suggest(ctx context.Context, user *models.User, dishID *uint, weights *models.SuggestWeights) ([]models.Recommendation, error) {
	teamID, err := s.begin(user)
	if err != nil {
		return nil, err
	}
	if weights == nil {
		w, err := s.weightsFor(ctx, teamID)
		if err != nil {
			s.log.Warn("failed to check team history, using default weights", "team_id", teamID, "error", err)
			w = DefaultWeights()
		}
		weights = &w
	}
	s.log.Debug("generating suggestions", "team_id", teamID, "dish_id", dishID)

	scores := make(map[uint]float64)
	dishes := make(map[uint]models.NamedCount)
	contributions := make(map[uint]map[string]float64)
	add := func(recs []models.Recommendation, weight float64) {
		for _, rec := range recs {
			id := rec.Dish.ID
			score := rec.Score * weight
			scores[id] += score
			dishes[id] = rec.Dish
			if contributions[id] == nil {
				contributions[id] = make(map[string]float64)
			}
			contributions[id][rec.Strategy] = score
		}
	}

	type source struct {
		name   string
		weight float64
		run    func() ([]models.Recommendation, error)
	}
	sources := []source{
		{StrategyFavourites, weights.Favourites, func() ([]models.Recommendation, error) { return s.FavouriteDishes(ctx, user) }},
		{StrategyForgotten, weights.Forgotten, func() ([]models.Recommendation, error) { return s.Forgotten(ctx, user) }},
	}
	if dishID != nil {
		id := *dishID
		sources = append(sources,
			source{StrategyServedWith, weights.ServedWith, func() ([]models.Recommendation, error) { return s.ServedWith(ctx, user, id) }},
			source{StrategySharedIngredients, weights.SharedIngredients, func() ([]models.Recommendation, error) { return s.SharedIngredients(ctx, user, id) }},
		)
	}
	for _, src := range sources {
		recs, err := src.run()
		if err != nil {
			s.log.Warn("insight strategy failed", "strategy", src.name, "error", err)
			continue
		}
		add(recs, src.weight)
	}

	if dishID != nil {
		delete(scores, *dishID)
	}

	recs := make([]models.Recommendation, 0, len(scores))
	for id, total := range scores {
		var top string
		var topScore float64
		for strategy, c := range contributions[id] {
			if c > topScore || (c == topScore && strategy < top) {
				top, topScore = strategy, c
			}
		}
		recs = append(recs, models.Recommendation{
			Dish:        dishes[id],
			Score:       total,
			Explanation: explain(top, dishID),
			Strategy:    top,
		})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Dish.Name < recs[j].Dish.Name
	})
	return recs, nil
}

// DefaultWeights is used once a team has some history.
func DefaultWeights() models.SuggestWeights {
	return models.SuggestWeights{Favourites: 0.4, ServedWith: 0.3, SharedIngredients: 0.2, Forgotten: 0.1}
}

// NewTeamWeights leans on ingredient overlap while a team has little history.
func NewTeamWeights() models.SuggestWeights {
	return models.SuggestWeights{Favourites: 0.1, ServedWith: 0.1, SharedIngredients: 0.6, Forgotten: 0.2}
}

func (s *InsightService) weightsFor(ctx context.Context, teamID uint) (models.SuggestWeights, error) {
	query := `
		MATCH (:Team {db_id: $teamId})-[:PLANNED]->(m:Meal)
		RETURN count(m) AS meal_count
	`
	results, err := s.graph.ExecuteRead(ctx, query, map[string]interface{}{"teamId": int64(teamID)})
	if err != nil {
		return models.SuggestWeights{}, err
	}
	if len(results) == 0 || asInt(results[0]["meal_count"]) < newTeamMeals {
		return NewTeamWeights(), nil
	}
	return DefaultWeights(), nil
}

func (s *InsightService) begin(user *models.User) (uint, error) {
	if s.graph == nil {
		return 0, fmt.Errorf("meal graph: %w", ErrUnavailable)
	}
	return teamOf(user)
}

func explain(strategy string, dishID *uint) string {
	switch strategy {
	case StrategyFavourites:
		return "Your team serves this often"
	case StrategyServedWith:
		return fmt.Sprintf("Your team often serves this with dish %d", *dishID)
	case StrategySharedIngredients:
		return fmt.Sprintf("Uses many of the same ingredients as dish %d", *dishID)
	case StrategyForgotten:
		return "You haven't had this in a while"
	default:
		return "Recommended from your meal history"
	}
}

func namedCount(r map[string]interface{}, count int) models.NamedCount {
	name, _ := r["name"].(string)
	return models.NamedCount{ID: uint(asInt(r["dish_id"])), Name: name, Count: count}
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
