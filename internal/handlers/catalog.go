package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/themenu/internal/services"
)

// ListTags returns every tag
func (h *APIHandler) ListTags(c *gin.Context) {
	tags, err := h.svc.Tags.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// GetTag returns one tag
func (h *APIHandler) GetTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tag, err := h.svc.Tags.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// CreateTag stores a tag
func (h *APIHandler) CreateTag(c *gin.Context) {
	var in services.TagInput
	if !bindJSON(c, &in) {
		return
	}
	tag, err := h.svc.Tags.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// UpdateTag renames or recolours a tag
func (h *APIHandler) UpdateTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.TagInput
	if !bindJSON(c, &in) {
		return
	}
	tag, err := h.svc.Tags.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// DeleteTag removes a tag
func (h *APIHandler) DeleteTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Tags.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListIngredients returns ingredients filtered by ?q=
func (h *APIHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.svc.Ingredients.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

// GetIngredient returns one ingredient
func (h *APIHandler) GetIngredient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ing, err := h.svc.Ingredients.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// CreateIngredient stores an ingredient
func (h *APIHandler) CreateIngredient(c *gin.Context) {
	var in services.IngredientInput
	if !bindJSON(c, &in) {
		return
	}
	ing, err := h.svc.Ingredients.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ing)
}

// UpdateIngredient renames an ingredient and replaces its tags
func (h *APIHandler) UpdateIngredient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.IngredientInput
	if !bindJSON(c, &in) {
		return
	}
	ing, err := h.svc.Ingredients.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// DeleteIngredient removes an unused ingredient
func (h *APIHandler) DeleteIngredient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Ingredients.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
