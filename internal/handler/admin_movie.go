package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/repository"
)

// MovieHandler covers the admin movie catalog CRUD.
type MovieHandler struct {
	Movies *repository.MovieRepo
}

func NewMovieHandler(m *repository.MovieRepo) *MovieHandler {
	return &MovieHandler{Movies: m}
}

type movieReq struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Casts       string `json:"casts"`
	ReleaseDate string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	ImageLink   string `json:"image_link" validate:"omitempty,url"`
}

// Create handles POST /v1/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	m := &model.Movie{
		Title:       req.Title,
		Description: req.Description,
		Genre:       req.Genre,
		Casts:       req.Casts,
		ReleaseDate: req.ReleaseDate,
		ImageLink:   req.ImageLink,
	}
	if err := h.Movies.Create(c.Request().Context(), m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create movie failed"})
	}
	return c.JSON(http.StatusCreated, m)
}

// Update handles PUT /v1/movies/:id.
func (h *MovieHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	m := &model.Movie{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Genre:       req.Genre,
		Casts:       req.Casts,
		ReleaseDate: req.ReleaseDate,
		ImageLink:   req.ImageLink,
	}
	if err := h.Movies.Update(c.Request().Context(), m); err != nil {
		if err == repository.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update movie failed"})
	}
	return c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /v1/movies/:id.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	if err := h.Movies.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete movie failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
