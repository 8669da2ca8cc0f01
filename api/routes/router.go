package routes

import (
	"net/http"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/orders"
	"ticketly/internal/payments"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/tickets"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"
	"ticketly/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	sink   notifications.Sink
	log    *logger.Logger

	// Sweeper is built here alongside the order service and started by main.
	Sweeper *orders.Sweeper
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, sink notifications.Sink, log *logger.Logger) *Router {
	return &Router{
		config: cfg,
		db:     db,
		sink:   sink,
		log:    log,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupReservationRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketly",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketly",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// setupReservationRoutes builds the whole dependency graph: inventory, seat
// directory, issuer, gateway and the reservation engine on top of them.
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	pg := r.db.GetPostgreSQL()
	cacheService := cache.NewService(r.db.GetRedisClient())

	eventsRepo := events.NewRepository(pg)

	ticketRepo := tickets.NewRepository(pg)
	issuer := tickets.NewIssuer(ticketRepo, r.config.JWT.Secret)

	seatRepo := seats.NewRepository(pg)
	seatService := seats.NewService(seatRepo, ticketRepo, cacheService, r.config.Redis.SeatMapTTL)
	seats.SetupSeatRoutes(rg, seats.NewController(seatService))

	tickets.SetupTicketRoutes(rg, tickets.NewController(ticketRepo, issuer), r.config)

	gateway := payments.NewHMACGateway(payments.Config{
		GatewayURL:   r.config.Payment.GatewayURL,
		MerchantCode: r.config.Payment.MerchantCode,
		SecretKey:    r.config.Payment.SecretKey,
		Currency:     r.config.Payment.Currency,
	})

	orderRepo := orders.NewRepository(pg)
	orderService := orders.NewService(
		orderRepo,
		eventsRepo,
		ticketRepo,
		issuer,
		seatService,
		gateway,
		r.sink,
		orders.ServiceConfig{
			ReturnURL:      r.config.Payment.ReturnURL,
			PaymentTimeout: r.config.Orders.PaymentTimeout,
			SweepBatchSize: r.config.Orders.SweepBatchSize,
		},
		r.log,
	)
	r.Sweeper = orders.NewSweeper(orderService, r.config.Orders.SweepInterval, r.log)

	var limiter *ratelimit.RateLimiter
	if r.config.RateLimit.Enabled {
		limiter = ratelimit.NewRateLimiter(r.db.GetRedisClient(), &ratelimit.Config{
			Enabled:        r.config.RateLimit.Enabled,
			WindowDuration: r.config.RateLimit.WindowDuration,
			OrderRequests:  r.config.RateLimit.OrderRequests,
			WhitelistedIPs: r.config.RateLimit.WhitelistedIPs,
		})
	}

	orderController := orders.NewController(orderService, r.log)
	orders.SetupOrderRoutes(rg, orderController, r.config, limiter)
}
