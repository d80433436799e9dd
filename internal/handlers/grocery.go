package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yishak-cs/themenu/internal/realtime"
	"github.com/yishak-cs/themenu/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// purchasedInput checks or unchecks grocery items
type purchasedInput struct {
	Purchased *bool `json:"purchased" binding:"required"`
}

// GetGroceryList returns the caller's team grocery list
func (h *APIHandler) GetGroceryList(c *gin.Context) {
	list, err := h.svc.Grocery.List(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ExportGroceryList downloads the grocery list as CSV
func (h *APIHandler) ExportGroceryList(c *gin.Context) {
	filename := "grocery-list-" + time.Now().Format("20060102") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := h.svc.Grocery.ExportCSV(c.Request.Context(), currentUser(c), c.Writer); err != nil {
		c.Header("Content-Disposition", "")
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// SetGroceryItemPurchased checks or unchecks one item
func (h *APIHandler) SetGroceryItemPurchased(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in purchasedInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.svc.Grocery.SetItemPurchased(c.Request.Context(), currentUser(c), id, *in.Purchased); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetGroceryGroupPurchased checks or unchecks every item of an ingredient
func (h *APIHandler) SetGroceryGroupPurchased(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in purchasedInput
	if !bindJSON(c, &in) {
		return
	}
	updated, err := h.svc.Grocery.SetGroupPurchased(c.Request.Context(), currentUser(c), id, *in.Purchased)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

// CreateRandomItem adds an ad-hoc grocery item
func (h *APIHandler) CreateRandomItem(c *gin.Context) {
	var in services.RandomItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.svc.Grocery.CreateRandomItem(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateRandomItem renames or checks an ad-hoc grocery item
func (h *APIHandler) UpdateRandomItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.RandomItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.svc.Grocery.UpdateRandomItem(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteRandomItem removes an ad-hoc grocery item
func (h *APIHandler) DeleteRandomItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Grocery.DeleteRandomItem(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GroceryFeed upgrades to a websocket receiving the team's grocery events
func (h *APIHandler) GroceryFeed(c *gin.Context) {
	user := currentUser(c)
	if user == nil || user.TeamID == nil {
		h.respondError(c, services.ErrNoTeam)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	h.hub.Serve(realtime.NewClient(*user.TeamID, user.ID, conn))
}
