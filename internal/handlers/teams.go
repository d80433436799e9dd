package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/themenu/internal/services"
)

// assignInput moves a user into a team; a null team_id removes them from any team
type assignInput struct {
	TeamID *uint `json:"team_id"`
}

// GetTeam returns one team
func (h *APIHandler) GetTeam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	team, err := h.svc.Teams.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// GetTeamStats returns how a team plans, cooks and eats
func (h *APIHandler) GetTeamStats(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := h.svc.Teams.Stats(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListTeams returns every team
func (h *APIHandler) ListTeams(c *gin.Context) {
	teams, err := h.svc.Teams.List(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

// CreateTeam stores a team
func (h *APIHandler) CreateTeam(c *gin.Context) {
	var in services.TeamInput
	if !bindJSON(c, &in) {
		return
	}
	team, err := h.svc.Teams.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// AssignUserTeam moves a user between teams
func (h *APIHandler) AssignUserTeam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in assignInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.svc.Teams.AssignUser(c.Request.Context(), currentUser(c), id, in.TeamID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
