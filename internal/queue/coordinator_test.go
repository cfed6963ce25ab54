package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/repository"
)

// fakeSeat mirrors one show_seats row.
type fakeSeat struct {
	showID     uint64
	status     string
	heldBy     uint64
	heldAt     time.Time
	ticketID   uint64
	bookingRef string
	label      string
}

// fakeStore is an in-memory SeatStore applying the same conditional
// guards as the SQL repository, so coordinator behavior can be tested
// without a database.
type fakeStore struct {
	mu            sync.Mutex
	seats         map[uint64]*fakeSeat
	reservedCount map[uint64]int
	tickets       map[uint64]*model.Ticket
	nextTicketID  uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seats:         make(map[uint64]*fakeSeat),
		reservedCount: make(map[uint64]int),
		tickets:       make(map[uint64]*model.Ticket),
	}
}

func (f *fakeStore) addSeat(id, showID uint64, label string) {
	f.seats[id] = &fakeSeat{showID: showID, status: model.SeatAvailable, label: label}
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (*model.ShowSeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	seat := &model.ShowSeat{ID: id, ShowID: s.showID, Status: s.status}
	if s.heldBy != 0 {
		hb := s.heldBy
		seat.HeldBy = &hb
	}
	if !s.heldAt.IsZero() {
		ha := s.heldAt
		seat.HeldAt = &ha
	}
	return seat, nil
}

func (f *fakeStore) Hold(_ context.Context, seatID, holder uint64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.status != model.SeatAvailable {
		return false, nil
	}
	s.status, s.heldBy, s.heldAt = model.SeatSelected, holder, at
	return true, nil
}

func (f *fakeStore) ReleaseExpired(_ context.Context, seatID, holder uint64, heldAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.status != model.SeatSelected || s.heldBy != holder || !s.heldAt.Equal(heldAt) {
		return false, nil
	}
	s.status, s.heldBy, s.heldAt = model.SeatAvailable, 0, time.Time{}
	return true, nil
}

func (f *fakeStore) ReleaseHeld(_ context.Context, showID, holder uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.seats {
		if s.showID == showID && s.heldBy == holder && s.status == model.SeatSelected {
			s.status, s.heldBy, s.heldAt = model.SeatAvailable, 0, time.Time{}
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) BookHeld(_ context.Context, t *model.Ticket) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.seats {
		if s.showID == t.ShowID && s.heldBy == t.CustomerID && s.status == model.SeatSelected {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	f.nextTicketID++
	t.ID = f.nextTicketID
	cp := *t
	f.tickets[t.ID] = &cp
	for _, s := range f.seats {
		if s.showID == t.ShowID && s.heldBy == t.CustomerID && s.status == model.SeatSelected {
			s.status, s.ticketID, s.bookingRef, s.heldAt = model.SeatBooked, t.ID, t.BookingRef, time.Time{}
		}
	}
	return n, nil
}

func (f *fakeStore) ReserveHeld(_ context.Context, showID, holder uint64, capacity int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, s := range f.seats {
		if s.showID == showID && s.heldBy == holder && s.status == model.SeatSelected {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if f.reservedCount[showID]+n > capacity {
		return 0, repository.ErrConflict
	}
	for _, s := range f.seats {
		if s.showID == showID && s.heldBy == holder && s.status == model.SeatSelected {
			s.status = model.SeatReserved
		}
	}
	f.reservedCount[showID] += n
	return int64(n), nil
}

func (f *fakeStore) ApproveReserved(_ context.Context, seatID uint64, bookingRef string, at time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.status != model.SeatReserved {
		return 0, nil
	}
	f.nextTicketID++
	f.tickets[f.nextTicketID] = &model.Ticket{
		ID: f.nextTicketID, CustomerID: s.heldBy, ShowID: s.showID,
		PaymentMethod: model.PaymentMethodCounter, BookingRef: bookingRef, BookedAt: at,
	}
	s.status, s.ticketID, s.bookingRef, s.heldAt = model.SeatBooked, f.nextTicketID, bookingRef, time.Time{}
	if f.reservedCount[s.showID] > 0 {
		f.reservedCount[s.showID]--
	}
	return f.nextTicketID, nil
}

func (f *fakeStore) RejectReserved(_ context.Context, seatID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.status != model.SeatReserved {
		return false, nil
	}
	s.status, s.heldBy, s.heldAt = model.SeatAvailable, 0, time.Time{}
	if f.reservedCount[s.showID] > 0 {
		f.reservedCount[s.showID]--
	}
	return true, nil
}

func (f *fakeStore) CreateForShow(_ context.Context, showID, screenID uint64) (int64, error) {
	return 0, nil
}

// fakeTickets resolves tickets and seat labels straight from the fake
// store.
type fakeTickets struct{ store *fakeStore }

func (f *fakeTickets) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	t, ok := f.store.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) SeatLabels(_ context.Context, ticketID uint64) ([]string, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var labels []string
	for _, s := range f.store.seats {
		if s.ticketID == ticketID {
			labels = append(labels, s.label)
		}
	}
	return labels, nil
}

// fakeEmitter records published messages instead of talking to a broker.
type fakeEmitter struct {
	mu      sync.Mutex
	delayed []Job
	events  []TicketIssuedEvent
}

func (f *fakeEmitter) PublishDelayed(_ context.Context, job Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delayed = append(f.delayed, job)
	return nil
}

func (f *fakeEmitter) PublishTicketIssued(_ context.Context, ev TicketIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

// failingEmitter rejects the first n delayed publishes, then delegates.
type failingEmitter struct {
	fakeEmitter
	fail int
}

func (f *failingEmitter) PublishDelayed(ctx context.Context, job Job) error {
	f.mu.Lock()
	if f.fail > 0 {
		f.fail--
		f.mu.Unlock()
		return errors.New("broker unavailable")
	}
	f.mu.Unlock()
	return f.fakeEmitter.PublishDelayed(ctx, job)
}

func newTestCoordinator(store *fakeStore) (*Coordinator, *fakeEmitter) {
	em := &fakeEmitter{}
	return NewCoordinator(store, &fakeTickets{store: store}, em, 2*time.Minute, 5), em
}

func mustBody(t *testing.T, jobType string, payload any) []byte {
	t.Helper()
	job, err := NewJob(jobType, payload)
	require.NoError(t, err)
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestHoldSchedulesExpiryCheck(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, em := newTestCoordinator(store)

	err := coord.Handle(context.Background(), mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 7}))
	require.NoError(t, err)

	assert.Equal(t, model.SeatSelected, store.seats[1].status)
	assert.Equal(t, uint64(7), store.seats[1].heldBy)

	require.Len(t, em.delayed, 1)
	assert.Equal(t, JobExpireCheck, em.delayed[0].Type)
	var p ExpireCheckPayload
	require.NoError(t, json.Unmarshal(em.delayed[0].Payload, &p))
	assert.Equal(t, uint64(1), p.SeatID)
	assert.Equal(t, uint64(7), p.Holder)
	// the carried timestamp must match the stored one exactly, down to
	// second precision, or the later expiry check would never fire
	assert.True(t, p.HeldAt.Equal(store.seats[1].heldAt))
	assert.Zero(t, p.HeldAt.Nanosecond())
}

func TestConcurrentHoldsSingleWinner(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, em := newTestCoordinator(store)

	const contenders = 32
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(holder uint64) {
			defer wg.Done()
			err := coord.Handle(context.Background(), mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: holder}))
			assert.NoError(t, err)
		}(uint64(i + 1))
	}
	wg.Wait()

	// exactly one contender won; everyone else was a silent no-op
	assert.Equal(t, model.SeatSelected, store.seats[1].status)
	assert.NotZero(t, store.seats[1].heldBy)
	assert.Len(t, em.delayed, 1)
}

func TestExpireCheckReleasesOnlyMatchingHold(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, _ := newTestCoordinator(store)
	ctx := context.Background()

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 7})))
	heldAt := store.seats[1].heldAt

	// a check carrying a stale timestamp (from a previous hold) is a no-op
	stale := heldAt.Add(-time.Minute)
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 7, HeldAt: stale})))
	assert.Equal(t, model.SeatSelected, store.seats[1].status)

	// a check for a different holder is a no-op
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 8, HeldAt: heldAt})))
	assert.Equal(t, model.SeatSelected, store.seats[1].status)

	// the matching check releases the seat
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 7, HeldAt: heldAt})))
	assert.Equal(t, model.SeatAvailable, store.seats[1].status)

	// re-running the same check after release stays a no-op
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 7, HeldAt: heldAt})))
	assert.Equal(t, model.SeatAvailable, store.seats[1].status)
}

func TestExpireCheckNeverTouchesBookedSeat(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, _ := newTestCoordinator(store)
	ctx := context.Background()

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 7})))
	heldAt := store.seats[1].heldAt
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobBook, BookPayload{ShowID: 10, Holder: 7, TransactionID: "tx-1"})))
	require.Equal(t, model.SeatBooked, store.seats[1].status)

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 7, HeldAt: heldAt})))
	assert.Equal(t, model.SeatBooked, store.seats[1].status)
}

func TestBookIssuesOneTicketForAllHeldSeats(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	store.addSeat(2, 10, "A2")
	store.addSeat(3, 10, "B1")
	coord, em := newTestCoordinator(store)
	ctx := context.Background()

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 7})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 2, Holder: 7})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 3, Holder: 9})))

	body := mustBody(t, JobBook, BookPayload{ShowID: 10, Holder: 7, TransactionID: "tx-1", Mobile: "555-0100"})
	require.NoError(t, coord.Handle(ctx, body))

	require.Len(t, store.tickets, 1)
	var ticket *model.Ticket
	for _, tk := range store.tickets {
		ticket = tk
	}
	assert.Equal(t, uint64(7), ticket.CustomerID)
	assert.Equal(t, model.PaymentMethodGateway, ticket.PaymentMethod)
	assert.NotEmpty(t, ticket.BookingRef)

	// both of the holder's seats link to the same ticket and reference
	assert.Equal(t, model.SeatBooked, store.seats[1].status)
	assert.Equal(t, model.SeatBooked, store.seats[2].status)
	assert.Equal(t, ticket.ID, store.seats[1].ticketID)
	assert.Equal(t, ticket.ID, store.seats[2].ticketID)
	assert.Equal(t, ticket.BookingRef, store.seats[1].bookingRef)
	assert.Equal(t, ticket.BookingRef, store.seats[2].bookingRef)

	// the other holder's seat is untouched
	assert.Equal(t, model.SeatSelected, store.seats[3].status)

	require.Len(t, em.events, 1)
	assert.Equal(t, ticket.ID, em.events[0].TicketID)
	assert.ElementsMatch(t, []string{"A1", "A2"}, em.events[0].SeatLabels)

	// redelivery of the same booking finds no SELECTED seats and issues
	// nothing new
	require.NoError(t, coord.Handle(ctx, body))
	assert.Len(t, store.tickets, 1)
	assert.Len(t, em.events, 1)
}

func TestBookWithNothingHeldIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, em := newTestCoordinator(store)

	err := coord.Handle(context.Background(), mustBody(t, JobBook, BookPayload{ShowID: 10, Holder: 7}))
	require.NoError(t, err)
	assert.Empty(t, store.tickets)
	assert.Empty(t, em.events)
}

func TestReleaseSkipsBookedSeats(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	store.addSeat(2, 10, "A2")
	coord, _ := newTestCoordinator(store)
	ctx := context.Background()

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 7})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobBook, BookPayload{ShowID: 10, Holder: 7})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 2, Holder: 7})))

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobRelease, ReleasePayload{ShowID: 10, Holder: 7})))
	assert.Equal(t, model.SeatBooked, store.seats[1].status)
	assert.Equal(t, model.SeatAvailable, store.seats[2].status)
}

func TestReserveRefusedAtCapacity(t *testing.T) {
	store := newFakeStore()
	for i := uint64(1); i <= 7; i++ {
		store.addSeat(i, 10, "A1")
	}
	coord, _ := newTestCoordinator(store) // capacity 5
	ctx := context.Background()

	// first staff member reserves four seats
	for i := uint64(1); i <= 4; i++ {
		require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: i, Holder: 100})))
	}
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobReserve, ReservePayload{ShowID: 10, Holder: 100})))
	assert.Equal(t, 4, store.reservedCount[10])

	// a second batch of two would exceed the cap of five: refused whole,
	// seats stay SELECTED, and the job is consumed without error
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 5, Holder: 101})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 6, Holder: 101})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobReserve, ReservePayload{ShowID: 10, Holder: 101})))
	assert.Equal(t, 4, store.reservedCount[10])
	assert.Equal(t, model.SeatSelected, store.seats[5].status)
	assert.Equal(t, model.SeatSelected, store.seats[6].status)

	// a single seat still fits
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 7, Holder: 102})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobReserve, ReservePayload{ShowID: 10, Holder: 102})))
	assert.Equal(t, 5, store.reservedCount[10])
	assert.Equal(t, model.SeatReserved, store.seats[7].status)
}

func TestApproveCreatesCounterTicket(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, em := newTestCoordinator(store)
	ctx := context.Background()

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 100})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobReserve, ReservePayload{ShowID: 10, Holder: 100})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobApprove, SeatPayload{SeatID: 1})))

	assert.Equal(t, model.SeatBooked, store.seats[1].status)
	require.Len(t, store.tickets, 1)
	for _, tk := range store.tickets {
		assert.Equal(t, model.PaymentMethodCounter, tk.PaymentMethod)
		assert.Equal(t, tk.ID, store.seats[1].ticketID)
	}
	assert.Equal(t, 0, store.reservedCount[10], "approval frees the reservation slot")
	require.Len(t, em.events, 1)

	// approving again is a no-op: the seat is no longer RESERVED
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobApprove, SeatPayload{SeatID: 1})))
	assert.Len(t, store.tickets, 1)
	assert.Len(t, em.events, 1)
}

func TestRejectReturnsSeatToPool(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, _ := newTestCoordinator(store)
	ctx := context.Background()

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 100})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobReserve, ReservePayload{ShowID: 10, Holder: 100})))
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobReject, SeatPayload{SeatID: 1})))

	assert.Equal(t, model.SeatAvailable, store.seats[1].status)
	assert.Equal(t, 0, store.reservedCount[10])
	assert.Empty(t, store.tickets)

	// rejecting an AVAILABLE seat is a no-op
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobReject, SeatPayload{SeatID: 1})))
	assert.Equal(t, model.SeatAvailable, store.seats[1].status)
}

func TestHoldAfterExpiryGetsFreshDeadline(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	coord, em := newTestCoordinator(store)
	ctx := context.Background()

	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 7})))
	first := store.seats[1].heldAt
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 7, HeldAt: first})))
	require.Equal(t, model.SeatAvailable, store.seats[1].status)

	// simulate the second hold landing in a later second
	store.mu.Lock()
	store.seats[1].status = model.SeatSelected
	store.seats[1].heldBy = 7
	store.seats[1].heldAt = first.Add(5 * time.Second)
	second := store.seats[1].heldAt
	store.mu.Unlock()

	// the first hold's expiry check must not cancel the second hold
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 7, HeldAt: first})))
	assert.Equal(t, model.SeatSelected, store.seats[1].status)
	assert.True(t, store.seats[1].heldAt.Equal(second))
	assert.Len(t, em.delayed, 1)
}

func TestHoldRedeliveryReschedulesExpiryAfterPublishFailure(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, 10, "A1")
	em := &failingEmitter{fail: 1}
	coord := NewCoordinator(store, &fakeTickets{store: store}, em, 2*time.Minute, 5)
	ctx := context.Background()

	body := mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 7})

	// first delivery places the hold but cannot schedule the expiry
	// check; the job must fail as transient so the broker redelivers it
	err := coord.Handle(ctx, body)
	require.Error(t, err)
	require.NotErrorIs(t, err, errBadJob)
	require.Equal(t, model.SeatSelected, store.seats[1].status)
	require.Empty(t, em.delayed)

	// the redelivered hold finds the seat already SELECTED by the same
	// user and schedules the check against the stored timestamp
	require.NoError(t, coord.Handle(ctx, body))
	require.Len(t, em.delayed, 1)
	var p ExpireCheckPayload
	require.NoError(t, json.Unmarshal(em.delayed[0].Payload, &p))
	assert.Equal(t, uint64(1), p.SeatID)
	assert.Equal(t, uint64(7), p.Holder)
	assert.True(t, p.HeldAt.Equal(store.seats[1].heldAt))

	// the rescheduled check still releases the seat when it fires
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobExpireCheck, ExpireCheckPayload{SeatID: 1, Holder: 7, HeldAt: p.HeldAt})))
	assert.Equal(t, model.SeatAvailable, store.seats[1].status)

	// a redelivery racing a different user's fresh hold schedules nothing
	require.NoError(t, coord.Handle(ctx, mustBody(t, JobHold, HoldPayload{SeatID: 1, Holder: 8})))
	require.Len(t, em.delayed, 2)
	require.NoError(t, coord.Handle(ctx, body))
	assert.Len(t, em.delayed, 2)
}

func TestMalformedJobsAreRejectedNotRequeued(t *testing.T) {
	coord, _ := newTestCoordinator(newFakeStore())
	ctx := context.Background()

	err := coord.Handle(ctx, []byte("{not json"))
	assert.ErrorIs(t, err, errBadJob)

	err = coord.Handle(ctx, mustBody(t, "seat.frobnicate", SeatPayload{SeatID: 1}))
	assert.ErrorIs(t, err, errBadJob)

	body, merr := json.Marshal(Job{Type: JobHold, Payload: json.RawMessage(`"nope"`)})
	require.NoError(t, merr)
	err = coord.Handle(ctx, body)
	assert.ErrorIs(t, err, errBadJob)
}
