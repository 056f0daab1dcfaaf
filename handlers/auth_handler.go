package handlers

import (
	"net/http"

	"civicreport-backend/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles HTTP requests for accounts and sessions
type AuthHandler struct {
	identityService *service.IdentityService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identityService *service.IdentityService) *AuthHandler {
	return &AuthHandler{identityService: identityService}
}

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=4"`
	MobileNumber string `json:"mobileNumber" binding:"required,min=8"`
	Password     string `json:"password" binding:"required,min=6"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	result, err := h.identityService.Register(c.Request.Context(), service.RegisterRequest{
		Username:     req.Username,
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    result.User,
	})
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	result, err := h.identityService.Login(c.Request.Context(), service.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
		"user":    result.User,
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	user, err := h.identityService.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

// ChangePasswordRequest represents the request body for changing a password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	err := h.identityService.ChangePassword(c.Request.Context(), service.ChangePasswordRequest{
		UserID:          userID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password updated",
	})
}
