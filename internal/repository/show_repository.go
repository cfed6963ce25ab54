package repository

import (
	"context"
	"database/sql"

	"github.com/cinetix/ticketing/internal/model"
)

// ShowRepo provides data access to the shows table.  The
// reserved_seats_count column on shows is only ever mutated through the
// conditional writes in ShowSeatRepo; this repo reads it but never
// changes it.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo returns a new ShowRepo bound to the provided database.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// DB exposes the underlying handle for transaction composition.
func (r *ShowRepo) DB() *sql.DB { return r.db }

// DATE/TIME columns are formatted in SQL so they scan as plain strings
// regardless of the driver's parseTime setting.
const showColumns = `id, movie_id, screen_id, DATE_FORMAT(show_date, '%Y-%m-%d'), TIME_FORMAT(show_time, '%H:%i:%s'), reserved_seats_count, created_at`

// Create inserts a show.  Scheduling the same movie on the same screen at
// the same date and time twice returns ErrConflict.  The pre-select gives
// the common case a clean answer; the unique key on (movie_id, screen_id,
// show_date, show_time) catches the concurrent loser, whose key violation
// maps to ErrConflict as well.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	var existing uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM shows WHERE movie_id = ? AND screen_id = ? AND show_date = ? AND show_time = ?`,
		s.MovieID, s.ScreenID, s.ShowDate, s.ShowTime).Scan(&existing)
	if err == nil {
		return ErrConflict
	}
	if err != sql.ErrNoRows {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shows (movie_id, screen_id, show_date, show_time, reserved_seats_count) VALUES (?, ?, ?, ?, 0)`,
		s.MovieID, s.ScreenID, s.ShowDate, s.ShowTime)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID returns one show or ErrShowNotFound.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	var s model.Show
	err := r.db.QueryRowContext(ctx,
		`SELECT `+showColumns+` FROM shows WHERE id = ?`, id).
		Scan(&s.ID, &s.MovieID, &s.ScreenID, &s.ShowDate, &s.ShowTime, &s.ReservedSeatsCount, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all shows ordered by date and time.
func (r *ShowRepo) List(ctx context.Context) ([]model.Show, error) {
	return r.queryShows(ctx, `SELECT `+showColumns+` FROM shows ORDER BY show_date, show_time`)
}

// ListBetween returns shows whose date falls in [from, to] inclusive,
// ordered by date and time.  Used by the upcoming-shows browse endpoint.
func (r *ShowRepo) ListBetween(ctx context.Context, from, to string) ([]model.Show, error) {
	return r.queryShows(ctx,
		`SELECT `+showColumns+` FROM shows WHERE show_date >= ? AND show_date <= ? ORDER BY show_date, show_time`,
		from, to)
}

func (r *ShowRepo) queryShows(ctx context.Context, query string, args ...interface{}) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shows []model.Show
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.MovieID, &s.ScreenID, &s.ShowDate, &s.ShowTime, &s.ReservedSeatsCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		shows = append(shows, s)
	}
	return shows, rows.Err()
}

// Update reschedules a show.  Returns ErrShowNotFound when the id does
// not exist.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shows SET movie_id = ?, screen_id = ?, show_date = ?, show_time = ? WHERE id = ?`,
		s.MovieID, s.ScreenID, s.ShowDate, s.ShowTime, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowNotFound
	}
	return nil
}

// Delete removes a show; its show_seats cascade-delete by schema.
func (r *ShowRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowNotFound
	}
	return nil
}
