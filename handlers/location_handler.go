package handlers

import (
	"net/http"

	"civicreport-backend/location"
	"civicreport-backend/service"

	"github.com/gin-gonic/gin"
)

// LocationHandler serves the district table and location assignment
type LocationHandler struct {
	identityService *service.IdentityService
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(identityService *service.IdentityService) *LocationHandler {
	return &LocationHandler{identityService: identityService}
}

// Districts handles GET /api/location/districts
func (h *LocationHandler) Districts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"districts": location.Districts(),
	})
}

// Municipalities handles GET /api/location/municipalities/:district
func (h *LocationHandler) Municipalities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"municipalities": location.Municipalities(c.Param("district")),
	})
}

// SetLocationRequest represents the request body for choosing a location
type SetLocationRequest struct {
	District     string `json:"district" binding:"required"`
	Municipality string `json:"municipality" binding:"required"`
}

// SetLocation handles POST /api/location/set
func (h *LocationHandler) SetLocation(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req SetLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	user, err := h.identityService.SetLocation(c.Request.Context(), service.SetLocationRequest{
		UserID:       userID,
		District:     req.District,
		Municipality: req.Municipality,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}
