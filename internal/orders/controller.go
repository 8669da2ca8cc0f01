package orders

import (
	"errors"
	"net/http"

	"ticketly/internal/shared/middleware"
	"ticketly/internal/shared/utils/response"
	"ticketly/pkg/apperrors"
	"ticketly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service, log *logger.Logger) *Controller {
	return &Controller{service: service, log: log}
}

// PlaceOrder handles POST /api/v1/orders (self-serve, authenticated buyer)
func (c *Controller) PlaceOrder(ctx *gin.Context) {
	var req PlaceOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	// Buyer identity comes from the JWT, never the body, on this path
	userID, ok := ctx.Get("user_id")
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	req.UserID, _ = userID.(string)
	req.PaymentMethod = ""
	if email, ok := ctx.Get("user_email"); ok {
		name := ""
		if req.BuyerInfo != nil {
			name = req.BuyerInfo.Name
		}
		req.BuyerInfo = &BuyerInfoRequest{Name: name, Email: email.(string)}
	}

	c.respondToPlacement(ctx, req)
}

// GrantOrder handles POST /api/v1/orders/grant (operator role). The operator
// supplies the purchaser and may force a FREE grant.
func (c *Controller) GrantOrder(ctx *gin.Context) {
	var req PlaceOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	c.respondToPlacement(ctx, req)
}

func (c *Controller) respondToPlacement(ctx *gin.Context, req PlaceOrderRequest) {
	result, err := c.service.PlaceOrder(ctx.Request.Context(), req, ctx.ClientIP())
	if err != nil {
		// A gateway failure after order creation is the one partial success:
		// the order exists and stays payable, so say exactly that.
		if result != nil && errors.Is(err, apperrors.ErrPaymentGateway) {
			response.RespondJSON(ctx, "error", http.StatusBadGateway,
				"Order created, payment pending. Please retry payment.", gin.H{"order": result.Order}, err.Error())
			return
		}
		c.respondWithOrderError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Order placed successfully", result, nil)
}

// GetOrder handles GET /api/v1/orders/:id
func (c *Controller) GetOrder(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid order ID", nil, nil)
		return
	}

	detail, err := c.service.GetOrder(ctx.Request.Context(), orderID)
	if err != nil {
		c.respondWithOrderError(ctx, err)
		return
	}

	// Buyers may only read their own orders; operators may read any
	if role, _ := ctx.Get("user_role"); role != middleware.RoleOperator {
		userID, _ := ctx.Get("user_id")
		if detail.Order.UserID == nil || detail.Order.UserID.String() != userID {
			response.RespondJSON(ctx, "error", http.StatusForbidden, "Not your order", nil, nil)
			return
		}
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Order retrieved successfully", detail, nil)
}

// ListMyOrders handles GET /api/v1/users/orders
func (c *Controller) ListMyOrders(ctx *gin.Context) {
	userIDStr, _ := ctx.Get("user_id")
	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	list, err := c.service.ListUserOrders(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list orders", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Orders retrieved successfully", gin.H{"orders": list}, nil)
}

// PaymentCallback handles GET /api/v1/payments/callback. The gateway retries
// non-200 responses, so stale and replayed callbacks still answer 200.
func (c *Controller) PaymentCallback(ctx *gin.Context) {
	outcome, err := c.service.HandlePaymentCallback(ctx.Request.Context(), ctx.Request.URL.Query())
	if err != nil {
		if errors.Is(err, apperrors.ErrStaleOrderState) {
			response.RespondJSON(ctx, "success", http.StatusOK, "Callback ignored: order already settled", nil, nil)
			return
		}
		if errors.Is(err, apperrors.ErrSeatConflict) {
			// Paid but could not seat; the order was cancelled and stock
			// released. Needs follow-up, so do not pretend success.
			response.RespondJSON(ctx, "error", http.StatusConflict,
				"Payment received but seats were no longer available; order cancelled", nil, err.Error())
			return
		}
		c.respondWithOrderError(ctx, err)
		return
	}

	message := "Payment failed, order cancelled"
	if outcome.Paid {
		message = "Payment confirmed, tickets issued"
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, outcome, nil)
}

// respondWithOrderError maps the reservation error taxonomy onto HTTP. The
// detail messages already name the offending seat or ticket type.
func (c *Controller) respondWithOrderError(ctx *gin.Context, err error) {
	var (
		soldOut  *apperrors.SoldOutError
		conflict *apperrors.SeatConflictError
		limit    *apperrors.LimitExceededError
		seatErr  *apperrors.SeatNotAvailableError
	)

	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest):
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid order request", nil, err.Error())
	case errors.Is(err, apperrors.ErrEventNotFound),
		errors.Is(err, apperrors.ErrTicketTypeNotFound),
		errors.Is(err, apperrors.ErrOrderNotFound):
		response.RespondJSON(ctx, "error", http.StatusNotFound, "Not found", nil, err.Error())
	case errors.As(err, &limit):
		response.RespondJSON(ctx, "error", http.StatusConflict, "Purchase limit exceeded", gin.H{
			"ticket_type": limit.TicketType,
			"limit":       limit.Cap,
			"owned":       limit.Owned,
		}, err.Error())
	case errors.As(err, &soldOut):
		response.RespondJSON(ctx, "error", http.StatusConflict, "Ticket type sold out", gin.H{
			"ticket_type": soldOut.TicketType,
			"available":   soldOut.Available,
		}, err.Error())
	case errors.As(err, &conflict):
		response.RespondJSON(ctx, "error", http.StatusConflict, "Seat already taken", gin.H{
			"row":    conflict.Row,
			"number": conflict.Number,
		}, err.Error())
	case errors.As(err, &seatErr):
		response.RespondJSON(ctx, "error", http.StatusConflict, "Seat not available", gin.H{
			"row":    seatErr.Row,
			"number": seatErr.Number,
			"reason": seatErr.Reason,
		}, err.Error())
	case errors.Is(err, apperrors.ErrLimitExceeded), errors.Is(err, apperrors.ErrSoldOut), errors.Is(err, apperrors.ErrSeatConflict):
		response.RespondJSON(ctx, "error", http.StatusConflict, "Order conflicts with current availability", nil, err.Error())
	case errors.Is(err, apperrors.ErrStockReservationFailed):
		response.RespondJSON(ctx, "error", http.StatusServiceUnavailable, "Could not reserve stock, please retry", nil, err.Error())
	case errors.Is(err, apperrors.ErrPaymentGateway):
		response.RespondJSON(ctx, "error", http.StatusBadGateway, "Payment gateway error", nil, err.Error())
	default:
		c.log.WithError(err).Error("unhandled order error")
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}
