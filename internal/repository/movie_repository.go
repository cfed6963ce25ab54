package repository

import (
	"context"
	"database/sql"

	"github.com/cinetix/ticketing/internal/model"
)

// MovieRepo provides data access to the movies table.  Movies are plain
// catalog rows; all booking logic references them by id only.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a new MovieRepo bound to the provided database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// Create inserts a movie and populates its ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, description, genre, casts, release_date, image_link) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Title, m.Description, m.Genre, m.Casts, m.ReleaseDate, m.ImageLink)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID returns one movie or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, genre, casts, release_date, image_link FROM movies WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &m.Description, &m.Genre, &m.Casts, &m.ReleaseDate, &m.ImageLink)
	if err == sql.ErrNoRows {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all movies ordered by release date, newest first.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, genre, casts, release_date, image_link FROM movies ORDER BY release_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movies []model.Movie
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Genre, &m.Casts, &m.ReleaseDate, &m.ImageLink); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// Update overwrites all mutable fields of a movie.  Returns
// ErrMovieNotFound when the id does not exist.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title = ?, description = ?, genre = ?, casts = ?, release_date = ?, image_link = ? WHERE id = ?`,
		m.Title, m.Description, m.Genre, m.Casts, m.ReleaseDate, m.ImageLink, m.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// Delete removes a movie.  Shows referencing it cascade-delete by schema,
// which in turn cascades their show seats.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}
