package tickets

import (
	"errors"
	"net/http"

	"ticketly/internal/shared/utils/response"
	"ticketly/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	repo   Repository
	issuer Issuer
}

func NewController(repo Repository, issuer Issuer) *Controller {
	return &Controller{repo: repo, issuer: issuer}
}

// Scan handles POST /api/v1/tickets/scan. Gate staff post the scanned token;
// the response carries the full ticket so the gate can display seat and
// status. Marking the ticket USED is a separate concern for the gate service.
func (c *Controller) Scan(ctx *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	claims, err := c.issuer.DecodeScanToken(req.Token)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Invalid scan token", nil, err.Error())
		return
	}

	ticket, err := c.repo.GetByCode(ctx.Request.Context(), claims.Code)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Ticket not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to load ticket", nil, err.Error())
		return
	}

	// The token binds id and code together; a mismatch means a forged or
	// reissued token.
	if ticket.ID != claims.TicketID {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Scan token does not match ticket", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Ticket retrieved successfully", ticket, nil)
}
