package repository // repository for show seat persistence and transitions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cinetix/ticketing/internal/model"
)

// ShowSeatRepo encapsulates every read and every state transition over the
// show_seats table.  The table is the single arbitration point of the whole
// booking system: there is no in-process locking of seats anywhere, and
// mutual exclusion is achieved entirely through conditional writes keyed on
// the expected prior status and holder.  A transition whose guard no longer
// holds affects zero rows; that is not an error but "someone else already
// moved this seat", and every caller treats it as a silent no-op.
type ShowSeatRepo struct {
	db *sql.DB
}

// NewShowSeatRepo constructs a ShowSeatRepo given a DB handle.
func NewShowSeatRepo(db *sql.DB) *ShowSeatRepo { return &ShowSeatRepo{db: db} }

// DB exposes the underlying handle so callers can compose transactions.
func (r *ShowSeatRepo) DB() *sql.DB { return r.db }

const showSeatColumns = `id, show_id, screen_id, row_label, seat_column, status, held_by, held_at, booking_ref, ticket_id`

func scanShowSeat(row interface{ Scan(...any) error }) (*model.ShowSeat, error) {
	var s model.ShowSeat
	var heldBy, ticketID sql.NullInt64
	var heldAt sql.NullTime
	var ref sql.NullString
	if err := row.Scan(&s.ID, &s.ShowID, &s.ScreenID, &s.RowLabel, &s.SeatColumn,
		&s.Status, &heldBy, &heldAt, &ref, &ticketID); err != nil {
		return nil, err
	}
	if heldBy.Valid {
		v := uint64(heldBy.Int64)
		s.HeldBy = &v
	}
	if heldAt.Valid {
		t := heldAt.Time
		s.HeldAt = &t
	}
	if ticketID.Valid {
		v := uint64(ticketID.Int64)
		s.TicketID = &v
	}
	s.BookingRef = ref.String
	return &s, nil
}

// GetByID loads a single seat.  Returns ErrSeatNotFound when no row matches.
func (r *ShowSeatRepo) GetByID(ctx context.Context, id uint64) (*model.ShowSeat, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+showSeatColumns+` FROM show_seats WHERE id = ?`, id)
	s, err := scanShowSeat(row)
	if err == sql.ErrNoRows {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// GetByPosition resolves a seat by its show and physical position.  The
// (show_id, row_label, seat_column) triple is unique by schema, so at most
// one row can match.
func (r *ShowSeatRepo) GetByPosition(ctx context.Context, showID uint64, rowLabel string, column int) (*model.ShowSeat, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+showSeatColumns+` FROM show_seats WHERE show_id = ? AND row_label = ? AND seat_column = ?`,
		showID, rowLabel, column)
	s, err := scanShowSeat(row)
	if err == sql.ErrNoRows {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// ListByShow returns the full seat map of a show ordered by row and column.
// Reads go straight to the store on every call; pollers rely on this
// endpoint never being cached.
func (r *ShowSeatRepo) ListByShow(ctx context.Context, showID uint64) ([]model.ShowSeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showSeatColumns+` FROM show_seats WHERE show_id = ? ORDER BY row_label, seat_column`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.ShowSeat
	for rows.Next() {
		s, err := scanShowSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *s)
	}
	return seats, rows.Err()
}

// ListReserved returns every seat currently in RESERVED state across all
// shows, newest hold first.  Used by the staff approval screen.
func (r *ShowSeatRepo) ListReserved(ctx context.Context) ([]model.ShowSeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showSeatColumns+` FROM show_seats WHERE status = ? ORDER BY held_at DESC`, model.SeatReserved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.ShowSeat
	for rows.Next() {
		s, err := scanShowSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *s)
	}
	return seats, rows.Err()
}

// CreateForShow bulk-creates the seat rows for a freshly scheduled show by
// expanding the screen's seat layout (one row per layout row per column).
// INSERT IGNORE makes the operation idempotent under job redelivery: rows
// that already exist for the (show, row, column) key are skipped.
func (r *ShowSeatRepo) CreateForShow(ctx context.Context, showID, screenID uint64) (int64, error) {
	layoutRows, err := r.db.QueryContext(ctx,
		`SELECT row_label, total_columns FROM seat_layouts WHERE screen_id = ? ORDER BY row_label`, screenID)
	if err != nil {
		return 0, err
	}
	type layout struct {
		row   string
		total int
	}
	var layouts []layout
	for layoutRows.Next() {
		var l layout
		if err := layoutRows.Scan(&l.row, &l.total); err != nil {
			layoutRows.Close()
			return 0, err
		}
		layouts = append(layouts, l)
	}
	if err := layoutRows.Close(); err != nil {
		return 0, err
	}
	if len(layouts) == 0 {
		return 0, fmt.Errorf("no seat layout found for screen %d", screenID)
	}
	query := `INSERT IGNORE INTO show_seats (show_id, screen_id, row_label, seat_column, status) VALUES `
	var args []interface{}
	first := true
	for _, l := range layouts {
		for col := 1; col <= l.total; col++ {
			if !first {
				query += ","
			}
			first = false
			query += "(?, ?, ?, ?, ?)"
			args = append(args, showID, screenID, l.row, col, model.SeatAvailable)
		}
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Hold applies AVAILABLE→SELECTED for one seat.  The guard is the status
// itself; a seat selected by anyone (including the same holder) or booked
// is left untouched and the method reports false.
func (r *ShowSeatRepo) Hold(ctx context.Context, seatID, holder uint64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, held_by = ?, held_at = ? WHERE id = ? AND status = ?`,
		model.SeatSelected, holder, at.UTC(), seatID, model.SeatAvailable)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseExpired reverts a hold that was never converted.  The guard pins
// status, holder and the exact hold timestamp, so a seat that was released
// and re-held by the same user in the meantime keeps its newer hold.
func (r *ShowSeatRepo) ReleaseExpired(ctx context.Context, seatID, holder uint64, heldAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, held_by = NULL, held_at = NULL
		 WHERE id = ? AND status = ? AND held_by = ? AND held_at = ?`,
		model.SeatAvailable, seatID, model.SeatSelected, holder, heldAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseHeld bulk-reverts SELECTED→AVAILABLE for all seats of a show held
// by one holder.  BOOKED and RESERVED seats are excluded by the guard, so a
// release can never undo a booking.
func (r *ShowSeatRepo) ReleaseHeld(ctx context.Context, showID, holder uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, held_by = NULL, held_at = NULL
		 WHERE show_id = ? AND held_by = ? AND status = ?`,
		model.SeatAvailable, showID, holder, model.SeatSelected)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BookHeld converts all of the holder's SELECTED seats on a show into
// BOOKED and issues the ticket, in one transaction.  The ticket row is
// inserted first, then its id and the booking reference are stamped onto
// the seats in the same conditional write as the status change; there is
// no after-the-fact correlation pass.  When the
// holder has no SELECTED seats left (lost race, or the job was redelivered
// after success) the transaction is rolled back and no ticket exists.
func (r *ShowSeatRepo) BookHeld(ctx context.Context, t *model.Ticket) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (customer_id, show_id, payment_method, transaction_id, mobile, payment_ref, booking_ref, booked_at, is_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE)`,
		t.CustomerID, t.ShowID, t.PaymentMethod, t.TransactionID, t.Mobile, t.PaymentRef, t.BookingRef, t.BookedAt.UTC())
	if err != nil {
		return 0, err
	}
	ticketID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	res, err = tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, ticket_id = ?, booking_ref = ?, held_at = NULL
		 WHERE show_id = ? AND held_by = ? AND status = ?`,
		model.SeatBooked, ticketID, t.BookingRef, t.ShowID, t.CustomerID, model.SeatSelected)
	if err != nil {
		return 0, err
	}
	seats, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if seats == 0 {
		// nothing to book; roll back so the ticket insert vanishes too
		return 0, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	t.ID = uint64(ticketID)
	return seats, nil
}

// ReserveHeld converts the holder's SELECTED seats into RESERVED, gated by
// the per-show cap.  The seats are moved first, then the show counter is
// claimed with a conditional increment in the same transaction; if the
// post-increment total would exceed the cap the whole transaction rolls
// back and the seats stay SELECTED.  ErrConflict reports the cap refusal.
func (r *ShowSeatRepo) ReserveHeld(ctx context.Context, showID, holder uint64, capacity int) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ? WHERE show_id = ? AND held_by = ? AND status = ?`,
		model.SeatReserved, showID, holder, model.SeatSelected)
	if err != nil {
		return 0, err
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if moved == 0 {
		return 0, nil
	}
	res, err = tx.ExecContext(ctx,
		`UPDATE shows SET reserved_seats_count = reserved_seats_count + ?
		 WHERE id = ? AND reserved_seats_count + ? <= ?`,
		moved, showID, moved, capacity)
	if err != nil {
		return 0, err
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if claimed == 0 {
		// cap would be exceeded; rollback reverts the seat transition
		return 0, ErrConflict
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return moved, nil
}

// ApproveReserved finalizes one RESERVED seat as BOOKED, issuing a counter
// ticket for the reserving user in the same transaction and releasing the
// seat's slot in the show's reservation counter.  A seat that is no longer
// RESERVED (already approved, or rejected) makes the whole call a no-op.
func (r *ShowSeatRepo) ApproveReserved(ctx context.Context, seatID uint64, bookingRef string, at time.Time) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var showID uint64
	var holder sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT show_id, held_by FROM show_seats WHERE id = ? AND status = ? FOR UPDATE`,
		seatID, model.SeatReserved).Scan(&showID, &holder)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (customer_id, show_id, payment_method, transaction_id, mobile, payment_ref, booking_ref, booked_at, is_used)
		 VALUES (?, ?, ?, '', '', '', ?, ?, FALSE)`,
		holder.Int64, showID, model.PaymentMethodCounter, bookingRef, at.UTC())
	if err != nil {
		return 0, err
	}
	ticketID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, ticket_id = ?, booking_ref = ?, held_at = NULL
		 WHERE id = ? AND status = ?`,
		model.SeatBooked, ticketID, bookingRef, seatID, model.SeatReserved); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE shows SET reserved_seats_count = reserved_seats_count - 1
		 WHERE id = ? AND reserved_seats_count > 0`, showID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(ticketID), nil
}

// RejectReserved reverts RESERVED→AVAILABLE for one seat, clearing holder
// and hold timestamp, and decrements the show's reservation counter.  The
// guard excludes BOOKED seats by construction, so a reject can never undo
// an approval.
func (r *ShowSeatRepo) RejectReserved(ctx context.Context, seatID uint64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var showID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT show_id FROM show_seats WHERE id = ? AND status = ? FOR UPDATE`,
		seatID, model.SeatReserved).Scan(&showID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, held_by = NULL, held_at = NULL
		 WHERE id = ? AND status = ?`,
		model.SeatAvailable, seatID, model.SeatReserved); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE shows SET reserved_seats_count = reserved_seats_count - 1
		 WHERE id = ? AND reserved_seats_count > 0`, showID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}
