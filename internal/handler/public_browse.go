package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/repository"
)

// BrowseHandler covers the public read-only catalog: movies, shows and
// the live seat map.  Everything here except the seat map sits behind the
// response cache; the seat map is excluded so customers always pick from
// current state.
type BrowseHandler struct {
	Movies  *repository.MovieRepo
	Shows   *repository.ShowRepo
	Screens *repository.ScreenRepo
	Seats   *repository.ShowSeatRepo
}

func NewBrowseHandler(movies *repository.MovieRepo, shows *repository.ShowRepo, screens *repository.ScreenRepo, seats *repository.ShowSeatRepo) *BrowseHandler {
	return &BrowseHandler{Movies: movies, Shows: shows, Screens: screens, Seats: seats}
}

// ListMovies handles GET /v1/movies.
func (h *BrowseHandler) ListMovies(c echo.Context) error {
	movies, err := h.Movies.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": movies})
}

// GetMovie handles GET /v1/movies/:id.
func (h *BrowseHandler) GetMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	m, err := h.Movies.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, m)
}

// ListShows handles GET /v1/shows.
func (h *BrowseHandler) ListShows(c echo.Context) error {
	shows, err := h.Shows.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if shows == nil {
		shows = []model.Show{}
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": shows})
}

// GetShow handles GET /v1/shows/:id.
func (h *BrowseHandler) GetShow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	s, err := h.Shows.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, s)
}

// UpcomingShows handles GET /v1/shows/upcoming: shows for today and the
// next two days, grouped by date.
func (h *BrowseHandler) UpcomingShows(c echo.Context) error {
	today := time.Now().UTC()
	from := today.Format("2006-01-02")
	to := today.AddDate(0, 0, 2).Format("2006-01-02")

	shows, err := h.Shows.ListBetween(c.Request().Context(), from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	grouped := make(map[string][]model.Show)
	for _, s := range shows {
		grouped[s.ShowDate] = append(grouped[s.ShowDate], s)
	}
	return c.JSON(http.StatusOK, echo.Map{"from": from, "to": to, "shows": grouped})
}

// GetShowSeats handles GET /v1/shows/:id/seats.  The seat map is read
// straight from the database on every request; it is never served from
// the response cache.
func (h *BrowseHandler) GetShowSeats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	ctx := c.Request().Context()
	show, err := h.Shows.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats, err := h.Seats.ListByShow(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if seats == nil {
		seats = []model.ShowSeat{}
	}
	screen, err := h.Screens.GetByID(ctx, show.ScreenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show":        show,
		"price_cents": screen.PriceCents,
		"seats":       seats,
	})
}
