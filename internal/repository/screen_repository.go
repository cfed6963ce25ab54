package repository

import (
	"context"
	"database/sql"

	"github.com/cinetix/ticketing/internal/model"
)

// ScreenRepo provides data access to screens and their static seat
// layouts.  Layout rows define the seat shape that CreateForShow expands
// into show_seats; they are written when a screen is configured and never
// mutated afterwards.
type ScreenRepo struct {
	db *sql.DB
}

// NewScreenRepo returns a new ScreenRepo bound to the provided database.
func NewScreenRepo(db *sql.DB) *ScreenRepo { return &ScreenRepo{db: db} }

// Create inserts a screen and populates its ID.
func (r *ScreenRepo) Create(ctx context.Context, s *model.Screen) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO screens (name, price_cents) VALUES (?, ?)`, s.Name, s.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID returns one screen or ErrScreenNotFound.
func (r *ScreenRepo) GetByID(ctx context.Context, id uint64) (*model.Screen, error) {
	var s model.Screen
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price_cents FROM screens WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.PriceCents)
	if err == sql.ErrNoRows {
		return nil, ErrScreenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all screens.
func (r *ScreenRepo) List(ctx context.Context) ([]model.Screen, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, price_cents FROM screens ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var screens []model.Screen
	for rows.Next() {
		var s model.Screen
		if err := rows.Scan(&s.ID, &s.Name, &s.PriceCents); err != nil {
			return nil, err
		}
		screens = append(screens, s)
	}
	return screens, rows.Err()
}

// Delete removes a screen.  Layout rows and shows cascade by schema.
func (r *ScreenRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM screens WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrScreenNotFound
	}
	return nil
}

// ReplaceLayout rewrites the full seat layout of a screen in one
// transaction.  Replacing rather than patching keeps the unique
// (screen_id, row_label) key trivially consistent.
func (r *ScreenRepo) ReplaceLayout(ctx context.Context, screenID uint64, layout []model.SeatLayout) error {
	if len(layout) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_layouts WHERE screen_id = ?`, screenID); err != nil {
		return err
	}
	query := `INSERT INTO seat_layouts (screen_id, row_label, total_columns) VALUES `
	args := make([]interface{}, 0, len(layout)*3)
	for i, l := range layout {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, screenID, l.RowLabel, l.TotalColumns)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetLayout returns the layout rows of a screen ordered by row label.
func (r *ScreenRepo) GetLayout(ctx context.Context, screenID uint64) ([]model.SeatLayout, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, screen_id, row_label, total_columns FROM seat_layouts WHERE screen_id = ? ORDER BY row_label`, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var layout []model.SeatLayout
	for rows.Next() {
		var l model.SeatLayout
		if err := rows.Scan(&l.ID, &l.ScreenID, &l.RowLabel, &l.TotalColumns); err != nil {
			return nil, err
		}
		layout = append(layout, l)
	}
	return layout, rows.Err()
}
