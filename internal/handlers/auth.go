package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/themenu/internal/services"
)

// Register creates an account and returns a session token
func (h *APIHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	session, err := h.svc.Auth.Register(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Login exchanges credentials for a session token
func (h *APIHandler) Login(c *gin.Context) {
	var in services.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Me returns the authenticated user
func (h *APIHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
