package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/queue"
	"github.com/cinetix/ticketing/internal/repository"
)

// ShowHandler covers admin show scheduling.  Creating a show enqueues a
// materialize job that copies the screen's seat layout into show_seats;
// the seat map may therefore be briefly empty right after creation.
type ShowHandler struct {
	Shows   *repository.ShowRepo
	Movies  *repository.MovieRepo
	Screens *repository.ScreenRepo
	Jobs    JobPublisher
}

func NewShowHandler(shows *repository.ShowRepo, movies *repository.MovieRepo, screens *repository.ScreenRepo, jobs JobPublisher) *ShowHandler {
	if shows == nil || movies == nil || screens == nil || jobs == nil {
		panic("nil dependency passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows, Movies: movies, Screens: screens, Jobs: jobs}
}

type showReq struct {
	MovieID  uint64 `json:"movie_id" validate:"required"`
	ScreenID uint64 `json:"screen_id" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string `json:"time" validate:"required,datetime=15:04:05"`
}

// Create handles POST /v1/shows.  Scheduling the same movie on the same
// screen at the same date and time twice returns 409.
func (h *ShowHandler) Create(c echo.Context) error {
	var req showReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	if _, err := h.Movies.GetByID(ctx, req.MovieID); err != nil {
		if err == repository.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if _, err := h.Screens.GetByID(ctx, req.ScreenID); err != nil {
		if err == repository.ErrScreenNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	s := &model.Show{MovieID: req.MovieID, ScreenID: req.ScreenID, ShowDate: req.Date, ShowTime: req.Time}
	if err := h.Shows.Create(ctx, s); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "show already scheduled for this slot"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create show failed"})
	}

	if err := enqueue(c, h.Jobs, queue.JobMaterialize, queue.MaterializePayload{ShowID: s.ID, ScreenID: s.ScreenID}); err != nil {
		// the show exists; seats will be created when the job is retried
		// or the show is re-saved
		return c.JSON(http.StatusCreated, echo.Map{"show": s, "warning": "seat creation queued with errors"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"show": s})
}

// Update handles PUT /v1/shows/:id (reschedule only; the screen cannot
// change once seats exist).
func (h *ShowHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var req showReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	existing, err := h.Shows.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if req.ScreenID != existing.ScreenID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "screen cannot change after scheduling"})
	}

	s := &model.Show{ID: id, MovieID: req.MovieID, ScreenID: req.ScreenID, ShowDate: req.Date, ShowTime: req.Time}
	if err := h.Shows.Update(ctx, s); err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update show failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"show": s})
}

// Delete handles DELETE /v1/shows/:id.
func (h *ShowHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if err := h.Shows.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete show failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
