package handlers

import (
	"context"
	"net/http"

	"civicreport-backend/service"

	"github.com/gin-gonic/gin"
)

// EngagementHandler handles upvotes and comments
type EngagementHandler struct {
	engagementService *service.EngagementService
}

// NewEngagementHandler creates a new engagement handler
func NewEngagementHandler(engagementService *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagementService: engagementService}
}

// Upvote handles POST /api/reports/:id/upvote
func (h *EngagementHandler) Upvote(c *gin.Context) {
	h.toggle(c, h.engagementService.Upvote)
}

// Unupvote handles POST /api/reports/:id/unupvote
func (h *EngagementHandler) Unupvote(c *gin.Context) {
	h.toggle(c, h.engagementService.Unupvote)
}

type toggleFunc func(ctx context.Context, req service.UpvoteRequest) (*service.UpvoteResult, error)

func (h *EngagementHandler) toggle(c *gin.Context, fn toggleFunc) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), service.UpvoteRequest{
		ReportID: reportID,
		UserID:   userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"upvoteCount": result.UpvoteCount,
		"upvoted":     result.Upvoted,
	})
}

// ListComments handles GET /api/reports/:id/comments
func (h *EngagementHandler) ListComments(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	result, err := h.engagementService.ListComments(c.Request.Context(), service.ListCommentsRequest{
		ReportID: reportID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"comments": result.Comments,
	})
}

// AddCommentRequest represents the request body for commenting on a report
type AddCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddComment handles POST /api/reports/:id/comments
func (h *EngagementHandler) AddComment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	result, err := h.engagementService.AddComment(c.Request.Context(), service.AddCommentRequest{
		ReportID: reportID,
		UserID:   userID,
		Text:     req.Text,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"comment": result.Comment,
	})
}
