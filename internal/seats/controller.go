package seats

import (
	"net/http"

	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetSeatMap handles GET /api/v1/rooms/:roomId/seatmap?event_id=...
func (c *Controller) GetSeatMap(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid room ID", nil, nil)
		return
	}

	eventID, err := uuid.Parse(ctx.Query("event_id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "event_id query parameter is required", nil, nil)
		return
	}

	seatMap, err := c.service.GetSeatMap(ctx.Request.Context(), roomID, eventID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "Failed to load seat map", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}
