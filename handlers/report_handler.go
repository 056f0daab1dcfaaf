package handlers

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"

	"civicreport-backend/models"
	"civicreport-backend/service"
	"civicreport-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// UploadLimits bounds the media accepted with a new report
type UploadLimits struct {
	MaxFiles     int
	MaxFileBytes int64
}

// ReportHandler handles HTTP requests for submitting and reading reports
type ReportHandler struct {
	reportService *service.ReportService
	feedService   *service.FeedService
	storage       storage.Storage
	mediaBaseURL  string
	limits        UploadLimits
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService, feedService *service.FeedService, store storage.Storage, mediaBaseURL string, limits UploadLimits) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		feedService:   feedService,
		storage:       store,
		mediaBaseURL:  mediaBaseURL,
		limits:        limits,
	}
}

// CreateReportRequest is the multipart form or JSON body of a new report.
// Multipart uploads carry files in `media`; JSON bodies may carry descriptors of
// media that is already stored.
type CreateReportRequest struct {
	Text         string              `json:"text" form:"text"`
	Address      string              `json:"address" form:"address"`
	District     string              `json:"district" form:"district" binding:"required"`
	Municipality string              `json:"municipality" form:"municipality" binding:"required"`
	Department   string              `json:"department" form:"department" binding:"required,department"`
	Media        []models.MediaAsset `json:"media" form:"-"`
}

// CreateReport handles POST /api/reports
func (h *ReportHandler) CreateReport(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", bindingMessage(err))
		return
	}

	media := make(models.MediaAssets, 0, len(req.Media))
	for _, asset := range req.Media {
		if asset.Type == "" {
			asset.Type = models.MediaTypeFor(asset.MimeType)
		}
		media = append(media, asset)
	}

	var uploaded []string
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		form, err := c.MultipartForm()
		if err != nil {
			badRequest(c, "INVALID_FORM", "Invalid multipart form")
			return
		}
		files := form.File["media"]
		if len(files) > h.limits.MaxFiles {
			badRequest(c, "TOO_MANY_FILES", fmt.Sprintf("At most %d media files are allowed", h.limits.MaxFiles))
			return
		}
		for _, fh := range files {
			if fh.Size > h.limits.MaxFileBytes {
				h.discard(c.Request.Context(), uploaded)
				badRequest(c, "FILE_TOO_LARGE", fmt.Sprintf("%s exceeds the maximum size of %d bytes", fh.Filename, h.limits.MaxFileBytes))
				return
			}
			asset, err := h.upload(c.Request.Context(), fh)
			if err != nil {
				h.discard(c.Request.Context(), uploaded)
				log.Printf("report: upload %q: %v", fh.Filename, err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "STORAGE_ERROR",
						"message": "Failed to store media",
					},
				})
				return
			}
			uploaded = append(uploaded, asset.Filename)
			media = append(media, *asset)
		}
	}

	result, err := h.reportService.CreateReport(c.Request.Context(), service.CreateReportRequest{
		UserID:       userID,
		Text:         req.Text,
		Address:      req.Address,
		District:     req.District,
		Municipality: req.Municipality,
		Department:   req.Department,
		Media:        media,
	})
	if err != nil {
		h.discard(c.Request.Context(), uploaded)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"report":  result.Report,
	})
}

func (h *ReportHandler) upload(ctx context.Context, fh *multipart.FileHeader) (*models.MediaAsset, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(fh.Filename)
	}

	storagePath, err := h.storage.Upload(ctx, uuid.New(), fh.Filename, contentType, file)
	if err != nil {
		return nil, err
	}

	return &models.MediaAsset{
		Type:         models.MediaTypeFor(contentType),
		Filename:     storagePath,
		OriginalName: fh.Filename,
		MimeType:     contentType,
		SizeBytes:    fh.Size,
		URL:          storage.MediaURL(h.mediaBaseURL, storagePath),
	}, nil
}

// discard removes blobs stored for a report that was never created
func (h *ReportHandler) discard(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := h.storage.Delete(ctx, p); err != nil {
			log.Printf("report: cleanup %s: %v", p, err)
		}
	}
}

// Feed handles GET /api/reports/feed
func (h *ReportHandler) Feed(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.feedService.GetFeed(c.Request.Context(), service.FeedRequest{
		UserID: userID,
		Scope:  c.Query("scope"),
		Search: c.Query("search"),
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

// Mine handles GET /api/reports/mine
func (h *ReportHandler) Mine(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.reportService.MyReports(c.Request.Context(), service.MyReportsRequest{
		UserID: userID,
		Status: c.Query("status"),
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

// Stats handles GET /api/reports/stats
func (h *ReportHandler) Stats(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.reportService.Stats(c.Request.Context(), service.StatsRequest{UserID: userID})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"totalReported": result.TotalReported,
		"totalResolved": result.TotalResolved,
	})
}

// GetReport handles GET /api/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	result, err := h.reportService.GetReport(c.Request.Context(), service.GetReportRequest{
		ID:       reportID,
		ViewerID: userID,
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
