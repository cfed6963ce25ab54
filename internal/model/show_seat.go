package model

import (
	"strconv"
	"time"
)

// Seat status values.  AVAILABLE is the initial state for every seat
// created when a show is scheduled.  BOOKED is terminal except for the
// RESERVED→AVAILABLE reversal on reservation reject, which by its guard
// can never touch a BOOKED seat.
const (
	SeatAvailable = "AVAILABLE"
	SeatSelected  = "SELECTED"
	SeatReserved  = "RESERVED"
	SeatBooked    = "BOOKED"
)

// ShowSeat is the contended resource of the whole system: one bookable
// position for one specific show.  The row is created when the show is
// scheduled (mirroring the screen's seat layout) and is only ever mutated
// through guarded conditional writes keyed on the expected prior status
// and holder.
//
// Invariants:
//  - exactly one row per (ShowID, RowLabel, SeatColumn);
//  - HeldBy is non-nil iff Status != AVAILABLE;
//  - TicketID is set only once Status reaches BOOKED.
type ShowSeat struct {
	ID         uint64     `json:"id"`                    // show_seats.id
	ShowID     uint64     `json:"show_id"`               // show_seats.show_id
	ScreenID   uint64     `json:"screen_id"`             // show_seats.screen_id
	RowLabel   string     `json:"row"`                   // show_seats.row_label
	SeatColumn int        `json:"column"`                // show_seats.seat_column
	Status     string     `json:"status"`                // show_seats.status
	HeldBy     *uint64    `json:"held_by,omitempty"`     // show_seats.held_by (nullable)
	HeldAt     *time.Time `json:"held_at,omitempty"`     // show_seats.held_at (nullable)
	BookingRef string     `json:"booking_ref,omitempty"` // show_seats.booking_ref
	TicketID   *uint64    `json:"ticket_id,omitempty"`   // show_seats.ticket_id (nullable)
}

// Label renders the human seat label, e.g. "A1".
func (s ShowSeat) Label() string {
	return s.RowLabel + strconv.Itoa(s.SeatColumn)
}
