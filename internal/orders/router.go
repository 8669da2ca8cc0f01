package orders

import (
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/middleware"
	"ticketly/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// SetupOrderRoutes wires the reservation surface. The placement endpoint
// carries the order rate limiter; the gateway callback is unauthenticated
// because its authenticity is the HMAC signature, not a session.
func SetupOrderRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config, limiter *ratelimit.RateLimiter) {
	orders := rg.Group("/orders")
	orders.Use(middleware.JWTAuthWithConfig(cfg))
	{
		placement := orders.Group("")
		if limiter != nil {
			placement.Use(ratelimit.Middleware(limiter))
		}
		placement.POST("", controller.PlaceOrder)                                     // POST /api/v1/orders
		placement.POST("/grant", middleware.RequireOperator(), controller.GrantOrder) // POST /api/v1/orders/grant

		orders.GET("/:id", controller.GetOrder) // GET /api/v1/orders/:id
	}

	users := rg.Group("/users")
	users.Use(middleware.JWTAuthWithConfig(cfg))
	{
		users.GET("/orders", controller.ListMyOrders) // GET /api/v1/users/orders
	}

	payments := rg.Group("/payments")
	{
		payments.GET("/callback", controller.PaymentCallback) // GET /api/v1/payments/callback
	}
}
