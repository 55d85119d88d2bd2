package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/services"
)

type Handlers struct {
	Server        config.ServerConfig
	UserService   *services.UserService
	Users         *UserHandler
	Opportunities *OpportunityHandler
	Applications  *ApplicationHandler
	Chat          *ChatHub
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")
	{
		api.GET("/health", HealthCheck(h.Server))
		api.POST("/users", h.Users.CreateUser)
		api.GET("/ws/chat/:client_id", h.Chat.Serve)
	}

	authed := api.Group("", RequireUser(h.UserService))
	{
		authed.GET("/users/me", h.Users.GetMe)
		authed.PUT("/users/me/preferences", h.Users.UpdatePreferences)
		authed.DELETE("/users/me", h.Users.DeleteMe)

		authed.POST("/resumes", h.Users.CreateResume)
		authed.GET("/resumes/current", h.Users.GetCurrentResume)
		authed.PUT("/resumes/:id/current", h.Users.SetCurrentResume)

		// Opportunity Routes
		authed.POST("/opportunities/extract", h.Opportunities.ExtractJob)
		authed.POST("/opportunities", h.Opportunities.CreateOpportunity)
		authed.GET("/opportunities", h.Opportunities.ListOpportunities)
		authed.GET("/opportunities/:id", h.Opportunities.GetOpportunity)

		// Application Routes
		authed.POST("/applications/auto-search", h.Applications.AutoSearch)
		authed.POST("/applications/apply", h.Applications.Apply)
		authed.GET("/applications", h.Applications.ListApplications)
		authed.GET("/applications/export", h.Applications.ExportApplications)
		authed.GET("/applications/stats", h.Applications.Stats)
		authed.GET("/applications/:id", h.Applications.GetApplication)
		authed.POST("/applications/:id/approve", h.Applications.Approve)
		authed.GET("/applications/:id/status", h.Applications.GetStatus)
	}
}
