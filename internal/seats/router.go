package seats

import (
	"github.com/gin-gonic/gin"
)

// SetupSeatRoutes configures the seat directory read surface
func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller) {
	rooms := rg.Group("/rooms")
	{
		rooms.GET("/:roomId/seatmap", controller.GetSeatMap) // GET /api/v1/rooms/:roomId/seatmap?event_id=...
	}
}
