package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/teamseats/internal/handlers"
)

func registerDashboardRoutes(api *gin.RouterGroup, h *handlers.DashboardHandler) {
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("", h.Get)
		dashboard.POST("/usage", h.SimulateUsage)
		dashboard.POST("/usage/reset", h.ResetUsage)
	}

	api.PUT("/account/plan", h.SelectPlan)

	members := api.Group("/team/members")
	{
		members.PATCH("/:id", h.UpdateMember)
		members.DELETE("/:id", h.RemoveMember)
	}
}
