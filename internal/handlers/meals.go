package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/themenu/internal/models"
	"github.com/yishak-cs/themenu/internal/services"
)

// calendarDateLayout is the compact form used by ?date=
const calendarDateLayout = "20060102"

// GetCalendar returns the week containing ?date=YYYYMMDD, or the current week
func (h *APIHandler) GetCalendar(c *gin.Context) {
	ref := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(calendarDateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must look like YYYYMMDD"})
			return
		}
		ref = parsed
	}

	week, err := h.svc.Calendar.Week(c.Request.Context(), currentUser(c), ref)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

// GetCalendarByOffset returns the week offset whole weeks from the current one
func (h *APIHandler) GetCalendarByOffset(c *gin.Context) {
	offset, err := strconv.Atoi(c.Param("offset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	week, err := h.svc.Calendar.WeekByOffset(c.Request.Context(), currentUser(c), time.Now(), offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

// ListMeals returns meals between ?from= and ?to= (YYYY-MM-DD), defaulting to this week
func (h *APIHandler) ListMeals(c *gin.Context) {
	from, to := services.WeekBounds(time.Now())
	for _, q := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": q.name + " must look like YYYY-MM-DD"})
			return
		}
		*q.dst = parsed
	}

	meals, err := h.svc.Meals.List(c.Request.Context(), currentUser(c), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals, "from": from.Format(models.DateLayout), "to": to.Format(models.DateLayout)})
}

// GetMeal returns one meal
func (h *APIHandler) GetMeal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meal, err := h.svc.Meals.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

// CreateMeal plans a meal
func (h *APIHandler) CreateMeal(c *gin.Context) {
	var in services.MealInput
	if !bindJSON(c, &in) {
		return
	}
	meal, err := h.svc.Meals.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

// UpdateMeal edits a meal
func (h *APIHandler) UpdateMeal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.MealInput
	if !bindJSON(c, &in) {
		return
	}
	meal, err := h.svc.Meals.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

// DeleteMeal removes a meal and its courses
func (h *APIHandler) DeleteMeal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Meals.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddCourse serves a dish at a meal
func (h *APIHandler) AddCourse(c *gin.Context) {
	mealID, ok := paramID(c, "id")
	if !ok {
		return
	}
	dishID, ok := paramID(c, "dishId")
	if !ok {
		return
	}
	course, err := h.svc.Courses.AddCourse(c.Request.Context(), currentUser(c), mealID, dishID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// RemoveCourse takes a dish off a meal
func (h *APIHandler) RemoveCourse(c *gin.Context) {
	mealID, ok := paramID(c, "id")
	if !ok {
		return
	}
	dishID, ok := paramID(c, "dishId")
	if !ok {
		return
	}
	if err := h.svc.Courses.RemoveCourse(c.Request.Context(), currentUser(c), mealID, dishID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateCourse checks or unchecks the eaten or prepared flag of a course
func (h *APIHandler) UpdateCourse(c *gin.Context) {
	var in services.CourseFlagUpdate
	if !bindJSON(c, &in) {
		return
	}
	course, err := h.svc.Courses.SetFlag(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": course})
}
