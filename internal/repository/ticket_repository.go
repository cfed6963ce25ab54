package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinetix/ticketing/internal/model"
)

// TicketRepo provides read access and the redemption flip for tickets.
// Ticket creation happens inside ShowSeatRepo.BookHeld/ApproveReserved so
// that issuing a ticket and flipping its seats to BOOKED stay one logical
// operation; everything else about a ticket is immutable.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the provided database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, customer_id, show_id, payment_method, transaction_id, mobile, payment_ref, booking_ref, booked_at, is_used`

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	if err := row.Scan(&t.ID, &t.CustomerID, &t.ShowID, &t.PaymentMethod, &t.TransactionID,
		&t.Mobile, &t.PaymentRef, &t.BookingRef, &t.BookedAt, &t.IsUsed); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID returns one ticket or ErrTicketNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// ListByCustomer returns all tickets bought by one customer, newest first.
func (r *TicketRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE customer_id = ? ORDER BY booked_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// SeatLabels returns the human labels ("A1") of the seats linked to a
// ticket, ordered by row and column.
func (r *TicketRepo) SeatLabels(ctx context.Context, ticketID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT row_label, seat_column FROM show_seats WHERE ticket_id = ? ORDER BY row_label, seat_column`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var s model.ShowSeat
		if err := rows.Scan(&s.RowLabel, &s.SeatColumn); err != nil {
			return nil, err
		}
		labels = append(labels, s.Label())
	}
	return labels, rows.Err()
}

// ShowStart returns the scheduled start of the show a ticket belongs to.
// Used to enforce the redemption deadline.
func (r *TicketRepo) ShowStart(ctx context.Context, ticketID uint64) (time.Time, error) {
	var date, clock string
	err := r.db.QueryRowContext(ctx,
		`SELECT DATE_FORMAT(s.show_date, '%Y-%m-%d'), TIME_FORMAT(s.show_time, '%H:%i:%s')
		 FROM tickets t JOIN shows s ON s.id = t.show_id WHERE t.id = ?`,
		ticketID).Scan(&date, &clock)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrTicketNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, time.UTC)
}

// MarkUsed flips the redemption flag.  The guard on is_used makes the
// flip single-shot: a ticket already redeemed reports false.
func (r *TicketRepo) MarkUsed(ctx context.Context, ticketID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET is_used = TRUE WHERE id = ? AND is_used = FALSE`, ticketID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
