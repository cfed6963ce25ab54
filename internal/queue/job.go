// Package queue contains the booking coordinator: the job envelope and
// payloads exchanged over the message broker, the publisher that enqueues
// them, and the background consumer that executes every seat state
// transition.  The broker delivers at least once, so every job body
// re-applies its guard on every attempt and re-running a job that already
// succeeded is a safe no-op.
package queue

import (
	"encoding/json"
	"time"
)

// Queue names.  All three are durable and all messages are persistent.
// JobsDelayQueue has no consumer: it is declared with a message TTL equal
// to the hold lifetime and dead-letters into JobsQueue, which makes a
// publish to it a durable delayed task that survives process restarts.
const (
	JobsQueue      = "booking.jobs"
	JobsDelayQueue = "booking.jobs.delay"
	NotifyQueue    = "ticket.issued"
)

// Job types consumed by the coordinator.
const (
	JobHold        = "seat.hold"
	JobRelease     = "seat.release"
	JobBook        = "seat.book"
	JobReserve     = "seat.reserve"
	JobApprove     = "seat.approve"
	JobReject      = "seat.reject"
	JobExpireCheck = "seat.expire_check"
	JobMaterialize = "show.materialize"
)

// Job is the envelope published to booking.jobs: a named job type plus an
// opaque payload.  The gateway enqueues exactly one Job per accepted
// command.
type Job struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewJob wraps a payload value into an envelope.
func NewJob(jobType string, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	return Job{Type: jobType, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// HoldPayload applies AVAILABLE→SELECTED for one seat and, on success,
// schedules the delayed expiry check for it.
type HoldPayload struct {
	SeatID uint64 `json:"seat_id"`
	Holder uint64 `json:"holder"`
}

// ExpireCheckPayload re-evaluates a hold after the hold TTL has elapsed.
// HeldAt pins the exact hold being checked: if the seat was released and
// re-held in the meantime, the check is a harmless no-op.
type ExpireCheckPayload struct {
	SeatID uint64    `json:"seat_id"`
	Holder uint64    `json:"holder"`
	HeldAt time.Time `json:"held_at"`
}

// ReleasePayload reverts all of a holder's SELECTED seats on a show.
type ReleasePayload struct {
	ShowID uint64 `json:"show_id"`
	Holder uint64 `json:"holder"`
}

// BookPayload converts all of a holder's SELECTED seats on a show into a
// paid ticket.  Payment identifiers are opaque strings from the external
// gateway.
type BookPayload struct {
	ShowID        uint64 `json:"show_id"`
	Holder        uint64 `json:"holder"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
	Mobile        string `json:"mobile"`
	PaymentRef    string `json:"payment_ref"`
}

// ReservePayload converts a holder's SELECTED seats into RESERVED, gated
// by the per-show cap.
type ReservePayload struct {
	ShowID uint64 `json:"show_id"`
	Holder uint64 `json:"holder"`
}

// SeatPayload addresses a single seat for approve/reject.
type SeatPayload struct {
	SeatID uint64 `json:"seat_id"`
}

// MaterializePayload bulk-creates the seat rows for a new show from its
// screen's layout.
type MaterializePayload struct {
	ShowID   uint64 `json:"show_id"`
	ScreenID uint64 `json:"screen_id"`
}

// TicketIssuedEvent is published to ticket.issued whenever a booking or a
// reservation approval creates a ticket.  It carries enough for downstream
// consumers to notify the customer without querying the primary database.
type TicketIssuedEvent struct {
	TicketID   uint64   `json:"ticket_id"`
	ShowID     uint64   `json:"show_id"`
	CustomerID uint64   `json:"customer_id"`
	SeatLabels []string `json:"seats"`
	BookingRef string   `json:"booking_ref"`
	IssuedAt   string   `json:"issued_at"`
}
