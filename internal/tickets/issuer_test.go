package tickets_test

import (
	"context"
	"strings"
	"testing"

	"ticketly/internal/tickets"
	"ticketly/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingRepo lets a test script the outcome of each CreateBatch attempt
// and observe the batches the issuer produced.
type recordingRepo struct {
	tickets.Repository

	batches    [][]tickets.Ticket
	createErrs []error
	taken      []tickets.SeatAssignment
}

func (r *recordingRepo) CreateBatch(_ context.Context, batch []tickets.Ticket) error {
	copied := make([]tickets.Ticket, len(batch))
	copy(copied, batch)
	r.batches = append(r.batches, copied)

	attempt := len(r.batches) - 1
	if attempt < len(r.createErrs) {
		return r.createErrs[attempt]
	}
	return nil
}

func (r *recordingRepo) SeatsTaken(_ context.Context, _ uuid.UUID, _ []tickets.SeatAssignment) ([]tickets.SeatAssignment, error) {
	return r.taken, nil
}

func issueRequest(units int, seats ...tickets.SeatAssignment) tickets.IssueRequest {
	typeID := uuid.New()
	for i := range seats {
		if seats[i].TicketTypeID == uuid.Nil {
			seats[i].TicketTypeID = typeID
		}
	}
	return tickets.IssueRequest{
		OrderID:    uuid.New(),
		EventID:    uuid.New(),
		EventTitle: "Jazz Night",
		RoomName:   "Main Hall",
		Buyer:      tickets.BuyerSnapshot{Name: "Ada Buyer", Email: "ada@example.com"},
		Items: []tickets.IssueItem{
			{TicketTypeID: typeID, TypeName: "Standard", Quantity: units, UnitPrice: 45},
		},
		Seats: seats,
	}
}

func TestIssueTickets_CodesAndTokens(t *testing.T) {
	repo := &recordingRepo{}
	issuer := tickets.NewIssuer(repo, "test-secret")

	issued, err := issuer.IssueTickets(context.Background(), issueRequest(3))
	require.NoError(t, err)
	require.Len(t, issued, 3)

	seen := make(map[string]bool)
	for _, ticket := range issued {
		assert.Regexp(t, `^TKT-[A-HJ-NP-Z2-9]{10}$`, ticket.Code)
		assert.False(t, seen[ticket.Code], "codes must be unique within a batch")
		seen[ticket.Code] = true

		assert.Equal(t, tickets.StatusValid, ticket.Status)
		assert.Equal(t, "Jazz Night", ticket.EventTitle)
		assert.Equal(t, 45.0, ticket.PricePaid)

		claims, err := issuer.DecodeScanToken(ticket.ScanToken)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, claims.TicketID)
		assert.Equal(t, ticket.Code, claims.Code)
	}
}

func TestIssueTickets_CodeCollisionReRolls(t *testing.T) {
	repo := &recordingRepo{
		// First insert collides on a code; no seats are taken, so the issuer
		// must re-roll and retry
		createErrs: []error{gorm.ErrDuplicatedKey},
	}
	issuer := tickets.NewIssuer(repo, "test-secret")

	issued, err := issuer.IssueTickets(context.Background(), issueRequest(2))
	require.NoError(t, err)
	require.Len(t, repo.batches, 2)

	for i := range issued {
		assert.NotEqual(t, repo.batches[0][i].Code, repo.batches[1][i].Code,
			"retry must carry fresh codes")
	}
}

func TestIssueTickets_SeatConflictIsAuthoritative(t *testing.T) {
	seat := tickets.SeatAssignment{Row: "B", Number: 7}
	repo := &recordingRepo{
		createErrs: []error{gorm.ErrDuplicatedKey},
		taken:      []tickets.SeatAssignment{seat},
	}
	issuer := tickets.NewIssuer(repo, "test-secret")

	_, err := issuer.IssueTickets(context.Background(), issueRequest(1, seat))
	require.Error(t, err)

	var conflict *apperrors.SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "B", conflict.Row)
	assert.Equal(t, 7, conflict.Number)
	assert.Len(t, repo.batches, 1, "a lost seat race must not be retried")
}

func TestIssueTickets_GivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := &recordingRepo{
		createErrs: []error{gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey},
	}
	issuer := tickets.NewIssuer(repo, "test-secret")

	_, err := issuer.IssueTickets(context.Background(), issueRequest(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStockReservationFailed)
	assert.Len(t, repo.batches, 3)
}

func TestIssueTickets_SeatPoolMatchesTypeFirst(t *testing.T) {
	vipType := uuid.New()
	standardType := uuid.New()

	req := tickets.IssueRequest{
		OrderID:    uuid.New(),
		EventID:    uuid.New(),
		EventTitle: "Jazz Night",
		RoomName:   "Main Hall",
		Buyer:      tickets.BuyerSnapshot{Name: "Ada Buyer", Email: "ada@example.com"},
		Items: []tickets.IssueItem{
			{TicketTypeID: standardType, TypeName: "Standard", Quantity: 1, UnitPrice: 45},
			{TicketTypeID: vipType, TypeName: "VIP", Quantity: 1, UnitPrice: 120},
		},
		Seats: []tickets.SeatAssignment{
			{Row: "A", Number: 1, TicketTypeID: vipType},
			{Row: "C", Number: 3, TicketTypeID: standardType},
		},
	}

	repo := &recordingRepo{}
	issuer := tickets.NewIssuer(repo, "test-secret")

	issued, err := issuer.IssueTickets(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, issued, 2)

	byType := make(map[uuid.UUID]tickets.Ticket)
	for _, ticket := range issued {
		byType[ticket.TicketTypeID] = ticket
	}
	// Despite item ordering, each seat lands on its matching type
	assert.Equal(t, "A", byType[vipType].SeatRow)
	assert.Equal(t, 1, byType[vipType].SeatNumber)
	assert.Equal(t, "C", byType[standardType].SeatRow)
	assert.Equal(t, 3, byType[standardType].SeatNumber)
}

func TestIssueTickets_ExtraUnitsGoSeatless(t *testing.T) {
	repo := &recordingRepo{}
	issuer := tickets.NewIssuer(repo, "test-secret")

	issued, err := issuer.IssueTickets(context.Background(),
		issueRequest(3, tickets.SeatAssignment{Row: "A", Number: 1}))
	require.NoError(t, err)
	require.Len(t, issued, 3)

	seated := 0
	for _, ticket := range issued {
		if ticket.HasSeat() {
			seated++
			assert.Equal(t, "A", ticket.SeatRow)
		}
	}
	assert.Equal(t, 1, seated, "one assignment seats exactly one unit")
}

func TestDecodeScanToken_RejectsTampering(t *testing.T) {
	repo := &recordingRepo{}
	issuer := tickets.NewIssuer(repo, "test-secret")

	issued, err := issuer.IssueTickets(context.Background(), issueRequest(1))
	require.NoError(t, err)
	token := issued[0].ScanToken

	// Flip the last character of the signature segment
	last := token[len(token)-1]
	flipped := byte('A')
	if last == 'A' {
		flipped = 'B'
	}
	tampered := token[:len(token)-1] + string(flipped)
	_, err = issuer.DecodeScanToken(tampered)
	assert.Error(t, err)

	// A token signed with a different secret must be rejected
	otherIssuer := tickets.NewIssuer(repo, "other-secret")
	foreign, err := otherIssuer.IssueTickets(context.Background(), issueRequest(1))
	require.NoError(t, err)
	_, err = issuer.DecodeScanToken(foreign[0].ScanToken)
	assert.Error(t, err)

	_, err = issuer.DecodeScanToken("not.a.token")
	assert.Error(t, err)

	// Garbage that still has three segments
	_, err = issuer.DecodeScanToken(strings.Repeat("a", 10) + "." + strings.Repeat("b", 10) + "." + strings.Repeat("c", 10))
	assert.Error(t, err)
}
