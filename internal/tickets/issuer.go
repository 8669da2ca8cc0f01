package tickets

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"ticketly/pkg/apperrors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// codeAlphabet drops the lookalikes I, O, 0 and 1
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 10
	codePrefix   = "TKT-"

	// maxIssueAttempts bounds code re-rolls on a uniqueness violation
	maxIssueAttempts = 3
)

// Issuer mints tickets for a paid order: one per purchased unit, each with a
// globally unique human-readable code and a scannable token embedding it.
// The issuer never touches stock counters; those were reserved before the
// order was created.
type Issuer interface {
	IssueTickets(ctx context.Context, req IssueRequest) ([]Ticket, error)
	DecodeScanToken(token string) (*ScanClaims, error)
}

// ScanClaims is what a scanner recovers from a ticket's token.
type ScanClaims struct {
	TicketID uuid.UUID
	Code     string
}

type issuer struct {
	repo        Repository
	tokenSecret []byte
}

func NewIssuer(repo Repository, tokenSecret string) Issuer {
	return &issuer{
		repo:        repo,
		tokenSecret: []byte(tokenSecret),
	}
}

// IssueTickets builds and persists all tickets of an order in one batch.
// When the batch insert hits a uniqueness violation it asks storage whether
// any requested seat is taken; if so the conflict is authoritative and
// surfaces as SeatConflict, otherwise the collision was a ticket code and
// the codes are re-rolled.
func (i *issuer) IssueTickets(ctx context.Context, req IssueRequest) ([]Ticket, error) {
	pool := newAssignmentPool(req.Seats)

	batch := make([]Ticket, 0, totalUnits(req.Items))
	for _, item := range req.Items {
		for unit := 0; unit < item.Quantity; unit++ {
			ticket := Ticket{
				ID:           uuid.New(),
				OrderID:      req.OrderID,
				EventID:      req.EventID,
				TicketTypeID: item.TicketTypeID,
				TypeName:     item.TypeName,
				EventTitle:   req.EventTitle,
				Status:       StatusValid,
				BuyerUserID:  req.Buyer.UserID,
				BuyerName:    req.Buyer.Name,
				BuyerEmail:   req.Buyer.Email,
				PricePaid:    item.UnitPrice,
			}

			if seat, ok := pool.take(item.TicketTypeID); ok {
				ticket.SeatRow = seat.Row
				ticket.SeatNumber = seat.Number
				ticket.RoomName = req.RoomName
			}

			batch = append(batch, ticket)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		if err := i.stampCodes(batch); err != nil {
			return nil, err
		}

		err := i.repo.CreateBatch(ctx, batch)
		if err == nil {
			return batch, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to persist tickets: %w", err)
		}

		// A duplicate key is either a lost seat race or a code collision.
		taken, takenErr := i.repo.SeatsTaken(ctx, req.EventID, req.Seats)
		if takenErr != nil {
			return nil, takenErr
		}
		if len(taken) > 0 {
			return nil, &apperrors.SeatConflictError{Row: taken[0].Row, Number: taken[0].Number}
		}

		// Code collision: re-roll and retry
		lastErr = err
	}

	return nil, fmt.Errorf("%w: ticket code collisions persisted after %d attempts: %v",
		apperrors.ErrStockReservationFailed, maxIssueAttempts, lastErr)
}

// stampCodes assigns a fresh code and scan token to every ticket in the batch.
func (i *issuer) stampCodes(batch []Ticket) error {
	for idx := range batch {
		code, err := generateCode()
		if err != nil {
			return fmt.Errorf("failed to generate ticket code: %w", err)
		}
		token, err := i.signScanToken(batch[idx].ID, code)
		if err != nil {
			return fmt.Errorf("failed to sign scan token: %w", err)
		}
		batch[idx].Code = code
		batch[idx].ScanToken = token
	}
	return nil
}

// signScanToken embeds the ticket id and code in a compact JWT so a scan
// recovers the ticket without any server-side token state.
func (i *issuer) signScanToken(ticketID uuid.UUID, code string) (string, error) {
	claims := jwt.MapClaims{
		"type":      "scan",
		"ticket_id": ticketID.String(),
		"code":      code,
		"iat":       time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.tokenSecret)
}

// DecodeScanToken verifies a scanned token and returns the embedded lookup keys.
func (i *issuer) DecodeScanToken(tokenString string) (*ScanClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.tokenSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid scan token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "scan" {
		return nil, fmt.Errorf("invalid scan token claims")
	}

	idStr, _ := claims["ticket_id"].(string)
	code, _ := claims["code"].(string)
	ticketID, err := uuid.Parse(idStr)
	if err != nil || code == "" {
		return nil, fmt.Errorf("malformed scan token claims")
	}

	return &ScanClaims{TicketID: ticketID, Code: code}, nil
}

// generateCode draws a fixed-length code from the restricted alphabet
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}

func totalUnits(items []IssueItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// assignmentPool hands out each seat assignment exactly once: exact
// ticket-type match first, then first-available. Callers must not rely on
// any ordering beyond that.
type assignmentPool struct {
	remaining []SeatAssignment
	used      []bool
}

func newAssignmentPool(seats []SeatAssignment) *assignmentPool {
	return &assignmentPool{
		remaining: seats,
		used:      make([]bool, len(seats)),
	}
}

func (p *assignmentPool) take(typeID uuid.UUID) (SeatAssignment, bool) {
	firstFree := -1
	for idx, seat := range p.remaining {
		if p.used[idx] {
			continue
		}
		if seat.TicketTypeID == typeID {
			p.used[idx] = true
			return seat, true
		}
		if firstFree == -1 {
			firstFree = idx
		}
	}
	if firstFree >= 0 {
		p.used[firstFree] = true
		return p.remaining[firstFree], true
	}
	return SeatAssignment{}, false
}
