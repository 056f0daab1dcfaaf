package handlers

import (
	"net/http"

	"civicreport-backend/auth"

	"github.com/gin-gonic/gin"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Auth       *AuthHandler
	Location   *LocationHandler
	Reports    *ReportHandler
	Engagement *EngagementHandler
	Admin      *AdminHandler
	Media      *MediaHandler
	Verifier   auth.Verifier
}

// NewRouter builds the gin engine with /health and every /api route
func NewRouter(rt Router) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/register", rt.Auth.Register)
		api.POST("/auth/login", rt.Auth.Login)

		api.GET("/location/districts", rt.Location.Districts)
		api.GET("/location/municipalities/:district", rt.Location.Municipalities)

		api.GET("/media/*path", rt.Media.GetMedia)
	}

	secured := api.Group("", auth.RequireUser(rt.Verifier))
	{
		secured.GET("/auth/me", rt.Auth.Me)
		secured.POST("/auth/change-password", rt.Auth.ChangePassword)

		secured.POST("/location/set", rt.Location.SetLocation)

		// Report endpoints
		secured.POST("/reports", rt.Reports.CreateReport)
		secured.GET("/reports/feed", rt.Reports.Feed)
		secured.GET("/reports/mine", rt.Reports.Mine)
		secured.GET("/reports/stats", rt.Reports.Stats)
		secured.GET("/reports/admin/list", rt.Admin.ListByLocation)
		secured.GET("/reports/:id", rt.Reports.GetReport)
		secured.PATCH("/reports/:id/status", rt.Admin.UpdateStatus)

		// Engagement endpoints
		secured.POST("/reports/:id/upvote", rt.Engagement.Upvote)
		secured.POST("/reports/:id/unupvote", rt.Engagement.Unupvote)
		secured.GET("/reports/:id/comments", rt.Engagement.ListComments)
		secured.POST("/reports/:id/comments", rt.Engagement.AddComment)
	}

	return r
}
