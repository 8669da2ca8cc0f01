package tickets

import (
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupTicketRoutes wires the gate-scan surface, operator only.
func SetupTicketRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	tickets := rg.Group("/tickets")
	tickets.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireOperator())
	{
		tickets.POST("/scan", controller.Scan) // POST /api/v1/tickets/scan
	}
}
