package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/repository"
)

// SeatStore is the slice of the inventory repository the coordinator
// needs.  Every method is a guarded transition: when the guard no longer
// holds it reports zero effect instead of an error, which is what makes
// at-least-once delivery safe.  *repository.ShowSeatRepo satisfies it.
type SeatStore interface {
	GetByID(ctx context.Context, id uint64) (*model.ShowSeat, error)
	Hold(ctx context.Context, seatID, holder uint64, at time.Time) (bool, error)
	ReleaseExpired(ctx context.Context, seatID, holder uint64, heldAt time.Time) (bool, error)
	ReleaseHeld(ctx context.Context, showID, holder uint64) (int64, error)
	BookHeld(ctx context.Context, t *model.Ticket) (int64, error)
	ReserveHeld(ctx context.Context, showID, holder uint64, capacity int) (int64, error)
	ApproveReserved(ctx context.Context, seatID uint64, bookingRef string, at time.Time) (uint64, error)
	RejectReserved(ctx context.Context, seatID uint64) (bool, error)
	CreateForShow(ctx context.Context, showID, screenID uint64) (int64, error)
}

// TicketReader resolves an issued ticket and its seat labels for the
// notification event.  *repository.TicketRepo satisfies it.
type TicketReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	SeatLabels(ctx context.Context, ticketID uint64) ([]string, error)
}

// Emitter is the publisher surface the coordinator uses to schedule
// expiry checks and emit notification events.  *Publisher satisfies it.
type Emitter interface {
	PublishDelayed(ctx context.Context, job Job) error
	PublishTicketIssued(ctx context.Context, ev TicketIssuedEvent) error
}

// errBadJob marks payloads that can never succeed (malformed JSON,
// unknown type).  Such messages are rejected without requeue; everything
// else is treated as transient and redelivered.
var errBadJob = errors.New("bad job")

// Coordinator consumes booking.jobs and executes every seat state
// transition.  It is the only component that writes to the inventory; the
// HTTP gateway merely validates and enqueues.
type Coordinator struct {
	store       SeatStore
	tickets     TicketReader
	emitter     Emitter
	holdTTL     time.Duration
	reservedCap int
}

// NewCoordinator wires the coordinator's dependencies.
func NewCoordinator(store SeatStore, tickets TicketReader, emitter Emitter, holdTTL time.Duration, reservedCap int) *Coordinator {
	return &Coordinator{store: store, tickets: tickets, emitter: emitter, holdTTL: holdTTL, reservedCap: reservedCap}
}

// Run connects to the broker and consumes jobs until ctx is cancelled.
// It runs a reconnect loop with exponential backoff so a broker restart
// never takes the coordinator down; unacked messages are redelivered by
// the broker, and every handler tolerates that.
func (c *Coordinator) Run(ctx context.Context, url string) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("coordinator: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(ctx, conn); err != nil {
			log.Printf("coordinator: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (c *Coordinator) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("coordinator: set QoS failed: %v", err)
	}
	if err := DeclareTopology(ch, c.holdTTL); err != nil {
		return err
	}

	msgs, err := ch.Consume(JobsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				if errors.Is(err, errBadJob) {
					log.Printf("coordinator: dropping unprocessable job: %v", err)
					_ = d.Nack(false, false)
					continue
				}
				// transient (store unavailable etc.): requeue after a
				// short pause so we do not spin on a dead database
				log.Printf("coordinator: job failed: %v; requeueing", err)
				time.Sleep(time.Second)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one envelope and dispatches it.  Exported so tests can
// drive the coordinator without a broker.
func (c *Coordinator) Handle(ctx context.Context, body []byte) error {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: unmarshal envelope: %v", errBadJob, err)
	}
	switch job.Type {
	case JobHold:
		return c.handleHold(ctx, job.Payload)
	case JobExpireCheck:
		return c.handleExpireCheck(ctx, job.Payload)
	case JobRelease:
		return c.handleRelease(ctx, job.Payload)
	case JobBook:
		return c.handleBook(ctx, job.Payload)
	case JobReserve:
		return c.handleReserve(ctx, job.Payload)
	case JobApprove:
		return c.handleApprove(ctx, job.Payload)
	case JobReject:
		return c.handleReject(ctx, job.Payload)
	case JobMaterialize:
		return c.handleMaterialize(ctx, job.Payload)
	default:
		return fmt.Errorf("%w: unknown type %q", errBadJob, job.Type)
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: unmarshal payload: %v", errBadJob, err)
	}
	return p, nil
}

// handleHold applies AVAILABLE→SELECTED and schedules the durable expiry
// check.  The hold timestamp is truncated to seconds so the value carried
// by the expiry job compares equal to what the store persisted.
//
// A hold whose expiry check could not be scheduled fails the job, so the
// broker redelivers it.  On redelivery the conditional write no-ops (the
// seat is already SELECTED), and scheduleExpiry re-reads the seat: if it
// is still held by the same user, the check is published against the
// stored timestamp.  That keeps every hold bounded even when the broker
// drops out between the write and the schedule.
func (c *Coordinator) handleHold(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[HoldPayload](raw)
	if err != nil {
		return err
	}
	heldAt := time.Now().UTC().Truncate(time.Second)
	ok, err := c.store.Hold(ctx, p.SeatID, p.Holder, heldAt)
	if err != nil {
		return fmt.Errorf("hold seat %d: %w", p.SeatID, err)
	}
	if !ok {
		return c.rescheduleExpiry(ctx, p)
	}
	if err := c.scheduleExpiry(ctx, p.SeatID, p.Holder, heldAt); err != nil {
		return err
	}
	log.Printf("coordinator: held seat=%d holder=%d expires_in=%s", p.SeatID, p.Holder, c.holdTTL)
	return nil
}

// rescheduleExpiry handles the redelivery of a hold whose conditional
// write no-ops.  A seat still SELECTED by the same holder may be left
// over from an earlier delivery that failed before its expiry check was
// published, so the check is (re)scheduled from the stored hold
// timestamp.  Scheduling twice is harmless: the later check carries the
// same timestamp and the first one to fire wins.
func (c *Coordinator) rescheduleExpiry(ctx context.Context, p HoldPayload) error {
	seat, err := c.store.GetByID(ctx, p.SeatID)
	if errors.Is(err, repository.ErrSeatNotFound) {
		log.Printf("coordinator: hold no-op seat=%d holder=%d (seat gone)", p.SeatID, p.Holder)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload seat %d: %w", p.SeatID, err)
	}
	if seat.Status != model.SeatSelected || seat.HeldBy == nil || *seat.HeldBy != p.Holder || seat.HeldAt == nil {
		log.Printf("coordinator: hold no-op seat=%d holder=%d (seat no longer available)", p.SeatID, p.Holder)
		return nil
	}
	if err := c.scheduleExpiry(ctx, p.SeatID, p.Holder, seat.HeldAt.UTC()); err != nil {
		return err
	}
	log.Printf("coordinator: rescheduled expiry seat=%d holder=%d", p.SeatID, p.Holder)
	return nil
}

func (c *Coordinator) scheduleExpiry(ctx context.Context, seatID, holder uint64, heldAt time.Time) error {
	check, err := NewJob(JobExpireCheck, ExpireCheckPayload{SeatID: seatID, Holder: holder, HeldAt: heldAt})
	if err != nil {
		return err
	}
	if err := c.emitter.PublishDelayed(ctx, check); err != nil {
		// the hold stands but would never expire; fail the job so the
		// broker redelivers it and the retry schedules the check
		return fmt.Errorf("schedule expiry for seat %d: %w", seatID, err)
	}
	return nil
}

// handleExpireCheck fires after the hold TTL.  If the seat is still
// SELECTED by the same holder from the same hold, it goes back to the
// pool; a seat that was booked, released or re-held in the meantime makes
// this a no-op.
func (c *Coordinator) handleExpireCheck(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[ExpireCheckPayload](raw)
	if err != nil {
		return err
	}
	ok, err := c.store.ReleaseExpired(ctx, p.SeatID, p.Holder, p.HeldAt)
	if err != nil {
		return fmt.Errorf("expire seat %d: %w", p.SeatID, err)
	}
	if ok {
		log.Printf("coordinator: hold expired seat=%d holder=%d", p.SeatID, p.Holder)
	}
	return nil
}

func (c *Coordinator) handleRelease(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[ReleasePayload](raw)
	if err != nil {
		return err
	}
	n, err := c.store.ReleaseHeld(ctx, p.ShowID, p.Holder)
	if err != nil {
		return fmt.Errorf("release show %d holder %d: %w", p.ShowID, p.Holder, err)
	}
	log.Printf("coordinator: released %d seat(s) show=%d holder=%d", n, p.ShowID, p.Holder)
	return nil
}

// handleBook converts the holder's SELECTED seats into a ticket.  The
// booking reference is generated up front and stamped on every seat in
// the same conditional write as the BOOKED transition, so redelivery of a
// booking that already succeeded finds no SELECTED seats and creates
// nothing.  The notification is fire-and-forget: its failure is logged
// and never fails the booking.
func (c *Coordinator) handleBook(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[BookPayload](raw)
	if err != nil {
		return err
	}
	method := p.PaymentMethod
	if method == "" {
		method = model.PaymentMethodGateway
	}
	ticket := &model.Ticket{
		CustomerID:    p.Holder,
		ShowID:        p.ShowID,
		PaymentMethod: method,
		TransactionID: p.TransactionID,
		Mobile:        p.Mobile,
		PaymentRef:    p.PaymentRef,
		BookingRef:    uuid.NewString(),
		BookedAt:      time.Now().UTC().Truncate(time.Second),
	}
	seats, err := c.store.BookHeld(ctx, ticket)
	if err != nil {
		return fmt.Errorf("book show %d holder %d: %w", p.ShowID, p.Holder, err)
	}
	if seats == 0 {
		log.Printf("coordinator: book no-op show=%d holder=%d (no selected seats)", p.ShowID, p.Holder)
		return nil
	}
	log.Printf("coordinator: booked %d seat(s) show=%d holder=%d ticket=%d", seats, p.ShowID, p.Holder, ticket.ID)
	c.emitTicketIssued(ctx, ticket)
	return nil
}

// handleReserve moves the holder's SELECTED seats to RESERVED under the
// per-show cap.  A cap refusal is not silent: it is logged as a warning
// and the seats stay SELECTED, bounded by their pending expiry checks.
func (c *Coordinator) handleReserve(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[ReservePayload](raw)
	if err != nil {
		return err
	}
	n, err := c.store.ReserveHeld(ctx, p.ShowID, p.Holder, c.reservedCap)
	if errors.Is(err, repository.ErrConflict) {
		log.Printf("coordinator: WARN reserve refused show=%d holder=%d: cap %d reached", p.ShowID, p.Holder, c.reservedCap)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reserve show %d holder %d: %w", p.ShowID, p.Holder, err)
	}
	log.Printf("coordinator: reserved %d seat(s) show=%d holder=%d", n, p.ShowID, p.Holder)
	return nil
}

// handleApprove finalizes one RESERVED seat as BOOKED with a counter
// ticket.  The ticket is created in the same store transaction as the
// transition, so approval can never leave a BOOKED seat without a ticket.
func (c *Coordinator) handleApprove(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[SeatPayload](raw)
	if err != nil {
		return err
	}
	ref := uuid.NewString()
	ticketID, err := c.store.ApproveReserved(ctx, p.SeatID, ref, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return fmt.Errorf("approve seat %d: %w", p.SeatID, err)
	}
	if ticketID == 0 {
		log.Printf("coordinator: approve no-op seat=%d (not reserved)", p.SeatID)
		return nil
	}
	log.Printf("coordinator: approved seat=%d ticket=%d", p.SeatID, ticketID)
	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		log.Printf("coordinator: load ticket %d for notification: %v", ticketID, err)
		ticket = &model.Ticket{ID: ticketID, BookingRef: ref, BookedAt: time.Now().UTC()}
	}
	c.emitTicketIssued(ctx, ticket)
	return nil
}

func (c *Coordinator) handleReject(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[SeatPayload](raw)
	if err != nil {
		return err
	}
	ok, err := c.store.RejectReserved(ctx, p.SeatID)
	if err != nil {
		return fmt.Errorf("reject seat %d: %w", p.SeatID, err)
	}
	if ok {
		log.Printf("coordinator: rejected reservation seat=%d", p.SeatID)
	}
	return nil
}

func (c *Coordinator) handleMaterialize(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[MaterializePayload](raw)
	if err != nil {
		return err
	}
	n, err := c.store.CreateForShow(ctx, p.ShowID, p.ScreenID)
	if err != nil {
		return fmt.Errorf("materialize show %d: %w", p.ShowID, err)
	}
	log.Printf("coordinator: created %d seat(s) show=%d screen=%d", n, p.ShowID, p.ScreenID)
	return nil
}

func (c *Coordinator) emitTicketIssued(ctx context.Context, t *model.Ticket) {
	labels, err := c.tickets.SeatLabels(ctx, t.ID)
	if err != nil {
		log.Printf("coordinator: load seat labels for ticket %d: %v", t.ID, err)
	}
	ev := TicketIssuedEvent{
		TicketID:   t.ID,
		ShowID:     t.ShowID,
		CustomerID: t.CustomerID,
		SeatLabels: labels,
		BookingRef: t.BookingRef,
		IssuedAt:   t.BookedAt.Format(time.RFC3339),
	}
	if err := c.emitter.PublishTicketIssued(ctx, ev); err != nil {
		log.Printf("coordinator: publish ticket.issued for ticket %d: %v", t.ID, err)
	}
}
