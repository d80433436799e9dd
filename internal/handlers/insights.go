package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/themenu/internal/models"
	"github.com/yishak-cs/themenu/internal/services"
)

// GetFavouriteDishes returns the dishes the team serves most
func (h *APIHandler) GetFavouriteDishes(c *gin.Context) {
	recs, err := h.svc.Insights.FavouriteDishes(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"strategy":        services.StrategyFavourites,
		"description":     "Dishes your team serves most often",
	})
}

// GetForgottenDishes returns dishes the team liked but hasn't had lately
func (h *APIHandler) GetForgottenDishes(c *gin.Context) {
	recs, err := h.svc.Insights.Forgotten(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"strategy":        services.StrategyForgotten,
		"description":     "Dishes you used to eat but haven't had lately",
	})
}

// GetServedWith returns dishes the team served alongside a dish
func (h *APIHandler) GetServedWith(c *gin.Context) {
	dishID, ok := paramID(c, "dishId")
	if !ok {
		return
	}
	recs, err := h.svc.Insights.ServedWith(c.Request.Context(), currentUser(c), dishID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dish_id":         dishID,
		"recommendations": recs,
		"strategy":        services.StrategyServedWith,
		"description":     "Dishes your team serves with this dish",
	})
}

// GetSharedIngredients returns dishes that use the same ingredients as a dish
func (h *APIHandler) GetSharedIngredients(c *gin.Context) {
	dishID, ok := paramID(c, "dishId")
	if !ok {
		return
	}
	recs, err := h.svc.Insights.SharedIngredients(c.Request.Context(), currentUser(c), dishID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dish_id":         dishID,
		"recommendations": recs,
		"strategy":        services.StrategySharedIngredients,
		"description":     "Dishes that share ingredients with this dish",
	})
}

// GetSuggestions blends every strategy. ?dish= focuses on one dish and the
// weights can be overridden with ?favourites= ?servedWith= ?shared= ?forgotten=.
func (h *APIHandler) GetSuggestions(c *gin.Context) {
	var dishID *uint
	if raw := c.Query("dish"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dish"})
			return
		}
		id := uint(parsed)
		dishID = &id
	}

	var weights *models.SuggestWeights
	overrides := []struct {
		param string
		set   func(w *models.SuggestWeights, v float64)
	}{
		{"favourites", func(w *models.SuggestWeights, v float64) { w.Favourites = v }},
		{"servedWith", func(w *models.SuggestWeights, v float64) { w.ServedWith = v }},
		{"shared", func(w *models.SuggestWeights, v float64) { w.SharedIngredients = v }},
		{"forgotten", func(w *models.SuggestWeights, v float64) { w.Forgotten = v }},
	}
	for _, o := range overrides {
		raw := c.Query(o.param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid weight " + o.param})
			return
		}
		if weights == nil {
			w := services.DefaultWeights()
			weights = &w
		}
		o.set(weights, v)
	}

	recs, err := h.svc.Insights.Suggest(c.Request.Context(), currentUser(c), dishID, weights)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if len(recs) > 10 {
		recs = recs[:10]
	}
	c.JSON(http.StatusOK, gin.H{
		"dish_id":         dishID,
		"weights":         weights,
		"recommendations": recs,
		"strategy":        "Hybrid",
		"description":     "Suggestions from your team's meal history",
	})
}

// RebuildGraph reprojects every meal into the graph
func (h *APIHandler) RebuildGraph(c *gin.Context) {
	meals, err := h.svc.Graph.Rebuild(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

// GetGraphStatus returns node and edge counts of the graph
func (h *APIHandler) GetGraphStatus(c *gin.Context) {
	status, err := h.svc.Graph.Status(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
