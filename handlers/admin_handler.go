package handlers

import (
	"net/http"

	"civicreport-backend/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles the department triage endpoints
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListByLocationQuery holds the query parameters of the admin listing
type ListByLocationQuery struct {
	Department   string `form:"department" binding:"required,department"`
	District     string `form:"district" binding:"required"`
	Municipality string `form:"municipality" binding:"required"`
}

// ListByLocation handles GET /api/reports/admin/list
func (h *AdminHandler) ListByLocation(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var q ListByLocationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	result, err := h.adminService.ListByLocation(c.Request.Context(), service.ListByLocationRequest{
		ActorID:      actorID,
		Department:   q.Department,
		District:     q.District,
		Municipality: q.Municipality,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reports": result.Reports,
	})
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,reportstatus"`
}

// UpdateStatus handles PATCH /api/reports/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	result, err := h.adminService.UpdateStatus(c.Request.Context(), service.UpdateStatusRequest{
		ActorID:  actorID,
		ReportID: reportID,
		Status:   req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  result.Report,
	})
}
