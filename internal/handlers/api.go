package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/themenu/internal/models"
	"github.com/yishak-cs/themenu/internal/realtime"
	"github.com/yishak-cs/themenu/internal/services"
)

// Services bundles everything the API talks to
type Services struct {
	Auth        *services.AuthService
	Calendar    *services.CalendarService
	Meals       *services.MealService
	Courses     *services.CourseService
	Dishes      *services.DishService
	Tags        *services.TagService
	Ingredients *services.IngredientService
	Grocery     *services.GroceryListService
	Reviews     *services.ReviewService
	Teams       *services.TeamService
	Dump        *services.DumpService
	Importer    *services.RecipeImporter
	Photos      *services.PhotoService
	Insights    *services.InsightService
	Graph       *services.GraphAdmin
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// APIHandler handles all API requests
type APIHandler struct {
	svc    Services
	hub    *realtime.Hub
	checks map[string]HealthCheck
	log    *slog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(svc Services, hub *realtime.Hub, log *slog.Logger) *APIHandler {
	return &APIHandler{
		svc:    svc,
		hub:    hub,
		checks: make(map[string]HealthCheck),
		log:    log,
	}
}

// AddHealthCheck registers a dependency probed by GET /api/health.
func (h *APIHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	authed := api.Group("", Authenticate(h.svc.Auth))
	{
		authed.GET("/me", h.Me)
		authed.GET("/dump", h.Dump)

		authed.GET("/calendar", h.GetCalendar)
		authed.GET("/calendar/:offset", h.GetCalendarByOffset)

		authed.GET("/meals", h.ListMeals)
		authed.POST("/meals", h.CreateMeal)
		authed.GET("/meals/:id", h.GetMeal)
		authed.PUT("/meals/:id", h.UpdateMeal)
		authed.DELETE("/meals/:id", h.DeleteMeal)
		authed.POST("/meals/:id/dishes/:dishId", h.AddCourse)
		authed.DELETE("/meals/:id/dishes/:dishId", h.RemoveCourse)
		authed.POST("/courses/update", h.UpdateCourse)

		authed.GET("/dishes", h.ListDishes)
		authed.POST("/dishes", h.CreateDish)
		authed.POST("/dishes/import", h.ImportDish)
		authed.GET("/dishes/:id", h.GetDish)
		authed.PUT("/dishes/:id", h.UpdateDish)
		authed.DELETE("/dishes/:id", h.DeleteDish)
		authed.POST("/dishes/:id/photo", h.UploadDishPhoto)
		authed.GET("/dishes/:id/reviews", h.ListReviews)
		authed.PUT("/dishes/:id/reviews", h.SaveReview)
		authed.DELETE("/dishes/:id/reviews", h.DeleteReview)

		authed.GET("/tags", h.ListTags)
		authed.POST("/tags", h.CreateTag)
		authed.GET("/tags/:id", h.GetTag)
		authed.PUT("/tags/:id", h.UpdateTag)
		authed.DELETE("/tags/:id", h.DeleteTag)

		authed.GET("/ingredients", h.ListIngredients)
		authed.POST("/ingredients", h.CreateIngredient)
		authed.GET("/ingredients/:id", h.GetIngredient)
		authed.PUT("/ingredients/:id", h.UpdateIngredient)
		authed.DELETE("/ingredients/:id", h.DeleteIngredient)

		authed.GET("/grocery-list", h.GetGroceryList)
		authed.GET("/grocery-list/export", h.ExportGroceryList)
		authed.PUT("/grocery-list/items/:id", h.SetGroceryItemPurchased)
		authed.PUT("/grocery-list/ingredients/:id", h.SetGroceryGroupPurchased)
		authed.POST("/grocery-list/random", h.CreateRandomItem)
		authed.PUT("/grocery-list/random/:id", h.UpdateRandomItem)
		authed.DELETE("/grocery-list/random/:id", h.DeleteRandomItem)
		authed.GET("/ws/grocery", h.GroceryFeed)

		authed.GET("/teams/:id", h.GetTeam)
		authed.GET("/teams/:id/stats", h.GetTeamStats)

		insights := authed.Group("/insights")
		insights.GET("/favourites", h.GetFavouriteDishes)
		insights.GET("/forgotten", h.GetForgottenDishes)
		insights.GET("/served-with/:dishId", h.GetServedWith)
		insights.GET("/shared-ingredients/:dishId", h.GetSharedIngredients)
		insights.GET("/suggest", h.GetSuggestions)

		admin := authed.Group("/admin", RequireStaff())
		admin.GET("/teams", h.ListTeams)
		admin.POST("/teams", h.CreateTeam)
		admin.PUT("/users/:id/team", h.AssignUserTeam)
		admin.POST("/graph/rebuild", h.RebuildGraph)
		admin.GET("/graph/status", h.GetGraphStatus)
	}
}

// Health reports the status of every registered dependency
func (h *APIHandler) Health(c *gin.Context) {
	status := http.StatusOK
	report := gin.H{}
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": report})
}

// Dump returns every record visible to the caller's team
func (h *APIHandler) Dump(c *gin.Context) {
	dump, err := h.svc.Dump.Export(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dump)
}

// respondError maps service errors to HTTP statuses
func (h *APIHandler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// bindJSON decodes the body, answering 400 with the validator message on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
