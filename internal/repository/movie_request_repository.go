package repository

import (
	"context"
	"database/sql"

	"github.com/cinetix/ticketing/internal/model"
)

// MovieRequestRepo provides data access to the movie_requests table.
// The only mutation after insert is the status decision, guarded on the
// PENDING state so a request is decided at most once.
type MovieRequestRepo struct {
	db *sql.DB
}

// NewMovieRequestRepo returns a new MovieRequestRepo bound to the
// provided database.
func NewMovieRequestRepo(db *sql.DB) *MovieRequestRepo { return &MovieRequestRepo{db: db} }

const movieRequestColumns = `id, user_id, movie_title, description, status, created_at`

// Create inserts a request in PENDING state and populates its ID.
func (r *MovieRequestRepo) Create(ctx context.Context, m *model.MovieRequest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movie_requests (user_id, movie_title, description, status) VALUES (?, ?, ?, ?)`,
		m.UserID, m.MovieTitle, m.Description, model.RequestPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.Status = model.RequestPending
	return nil
}

// GetByID returns one request or ErrRequestNotFound.
func (r *MovieRequestRepo) GetByID(ctx context.Context, id uint64) (*model.MovieRequest, error) {
	var m model.MovieRequest
	err := r.db.QueryRowContext(ctx,
		`SELECT `+movieRequestColumns+` FROM movie_requests WHERE id = ?`, id).
		Scan(&m.ID, &m.UserID, &m.MovieTitle, &m.Description, &m.Status, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns every request, newest first.  Used by the staff review
// screen.
func (r *MovieRequestRepo) List(ctx context.Context) ([]model.MovieRequest, error) {
	return r.queryRequests(ctx,
		`SELECT `+movieRequestColumns+` FROM movie_requests ORDER BY created_at DESC`)
}

// ListByUser returns one user's requests, newest first.
func (r *MovieRequestRepo) ListByUser(ctx context.Context, userID uint64) ([]model.MovieRequest, error) {
	return r.queryRequests(ctx,
		`SELECT `+movieRequestColumns+` FROM movie_requests WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
}

func (r *MovieRequestRepo) queryRequests(ctx context.Context, query string, args ...interface{}) ([]model.MovieRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reqs []model.MovieRequest
	for rows.Next() {
		var m model.MovieRequest
		if err := rows.Scan(&m.ID, &m.UserID, &m.MovieTitle, &m.Description, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, m)
	}
	return reqs, rows.Err()
}

// Decide applies PENDING→status for one request.  A request that was
// already decided is left untouched and the method reports false.
func (r *MovieRequestRepo) Decide(ctx context.Context, id uint64, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movie_requests SET status = ? WHERE id = ? AND status = ?`,
		status, id, model.RequestPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
