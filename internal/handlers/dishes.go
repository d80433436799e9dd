package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/themenu/internal/services"
)

// ListDishes returns dishes filtered by ?q= and ?tag=
func (h *APIHandler) ListDishes(c *gin.Context) {
	var tagID uint
	if raw := c.Query("tag"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag"})
			return
		}
		tagID = uint(parsed)
	}
	dishes, err := h.svc.Dishes.List(c.Request.Context(), c.Query("q"), tagID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dishes)
}

// GetDish returns one dish with its ingredients
func (h *APIHandler) GetDish(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	dish, err := h.svc.Dishes.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

// CreateDish stores a dish
func (h *APIHandler) CreateDish(c *gin.Context) {
	var in services.DishInput
	if !bindJSON(c, &in) {
		return
	}
	dish, err := h.svc.Dishes.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dish)
}

// UpdateDish edits a dish
func (h *APIHandler) UpdateDish(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.DishInput
	if !bindJSON(c, &in) {
		return
	}
	dish, err := h.svc.Dishes.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

// DeleteDish removes a dish everywhere
func (h *APIHandler) DeleteDish(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Dishes.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportDish scrapes a recipe page into a draft, creating the dish when save is set
func (h *APIHandler) ImportDish(c *gin.Context) {
	var in services.ImportInput
	if !bindJSON(c, &in) {
		return
	}
	draft, err := h.svc.Importer.Import(c.Request.Context(), in.URL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !in.Save {
		c.JSON(http.StatusOK, gin.H{"draft": draft})
		return
	}

	dish, err := h.svc.Dishes.Create(c.Request.Context(), currentUser(c), *draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": draft, "dish": dish})
}

// UploadDishPhoto stores a base64 image for the dish
func (h *APIHandler) UploadDishPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.PhotoInput
	if !bindJSON(c, &in) {
		return
	}
	dish, err := h.svc.Photos.Upload(c.Request.Context(), currentUser(c), id, in.Image)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

// ListReviews returns every review of a dish
func (h *APIHandler) ListReviews(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.svc.Reviews.List(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// SaveReview creates or replaces the caller's review of a dish
func (h *APIHandler) SaveReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.ReviewInput
	if !bindJSON(c, &in) {
		return
	}
	review, err := h.svc.Reviews.Upsert(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// DeleteReview removes the caller's review of a dish
func (h *APIHandler) DeleteReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Reviews.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
