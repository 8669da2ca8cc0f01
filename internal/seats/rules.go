package seats

import "github.com/google/uuid"

// RuleKind classifies how a seat is restricted for a given event.
type RuleKind int

const (
	// Unrestricted: no lock mentions the event, anyone buying it may sit here.
	Unrestricted RuleKind = iota
	// RestrictedToEvent: a lock names the event with no ticket type; any
	// buyer of that event qualifies, buyers of other events never reach this
	// rule (locks are evaluated per event).
	RestrictedToEvent
	// RestrictedToEventAndType: the lock also pins a ticket type; only a
	// buyer purchasing that exact type may select the seat.
	RestrictedToEventAndType
)

// LockRule is the evaluated restriction for one seat and one event. Build it
// once per seat per request with RuleFor, then test assignments with Allows.
type LockRule struct {
	Kind         RuleKind
	TicketTypeID uuid.UUID
}

// RuleFor resolves the seat's lock set against an event. A lock with no
// ticket type is a blanket restriction to the event; a typed lock for the
// same event narrows it further. When both exist, the typed lock wins
// because it is the stricter rule.
func RuleFor(seat *Seat, eventID uuid.UUID) LockRule {
	rule := LockRule{Kind: Unrestricted}
	for _, lock := range seat.Locks {
		if lock.EventID != eventID {
			continue
		}
		if lock.TicketTypeID != nil {
			return LockRule{Kind: RestrictedToEventAndType, TicketTypeID: *lock.TicketTypeID}
		}
		rule = LockRule{Kind: RestrictedToEvent}
	}
	return rule
}

// Allows reports whether a buyer purchasing the given ticket type may select
// the seat under this rule.
func (r LockRule) Allows(ticketTypeID uuid.UUID) bool {
	switch r.Kind {
	case RestrictedToEventAndType:
		return r.TicketTypeID == ticketTypeID
	default:
		return true
	}
}
