package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/teamseats/internal/handlers"
)

// registerInvitationLinkRoutes mounts the public endpoints reached from invitation emails.
func registerInvitationLinkRoutes(r *gin.Engine, h *handlers.InvitationHandler) {
	r.GET("/api/invitation/:action", h.Resolve)
	r.GET("/invitation/thank-you", h.ThankYou)
}

func registerInvitationRoutes(api *gin.RouterGroup, h *handlers.InvitationHandler) {
	api.POST("/send-invitation", h.SendEmail)

	invitations := api.Group("/invitations")
	{
		invitations.GET("", h.List)
		invitations.POST("", h.Create)
		invitations.GET("/:id", h.Get)
		invitations.PATCH("/:id", h.Rename)
		invitations.DELETE("/:id", h.Cancel)
		invitations.POST("/:id/resend", h.Resend)
	}
}
