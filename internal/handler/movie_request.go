package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/repository"
)

// MovieRequestHandler covers the title-request workflow: customers ask
// for movies the catalog does not carry, staff approve or reject.
type MovieRequestHandler struct {
	Requests *repository.MovieRequestRepo
}

func NewMovieRequestHandler(r *repository.MovieRequestRepo) *MovieRequestHandler {
	return &MovieRequestHandler{Requests: r}
}

type movieRequestReq struct {
	MovieTitle  string `json:"movie_title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

type requestDecisionReq struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// Create handles POST /v1/requests.  The requester comes from the token,
// never from the body.
func (h *MovieRequestHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req movieRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	m := &model.MovieRequest{
		UserID:      userID,
		MovieTitle:  req.MovieTitle,
		Description: req.Description,
	}
	if err := h.Requests.Create(c.Request().Context(), m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create request failed"})
	}
	return c.JSON(http.StatusCreated, m)
}

// MyRequests handles GET /v1/me/requests.
func (h *MovieRequestHandler) MyRequests(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reqs, err := h.Requests.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if reqs == nil {
		reqs = []model.MovieRequest{}
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": reqs})
}

// List handles GET /v1/requests (staff only): every request, newest
// first.
func (h *MovieRequestHandler) List(c echo.Context) error {
	reqs, err := h.Requests.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if reqs == nil {
		reqs = []model.MovieRequest{}
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": reqs})
}

// Decide handles PUT /v1/requests/:id/status (staff only).  A request is
// decided at most once; re-deciding answers 409.
func (h *MovieRequestHandler) Decide(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	var req requestDecisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	ok, err := h.Requests.Decide(ctx, id, req.Status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		if _, err := h.Requests.GetByID(ctx, id); err == repository.ErrRequestNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already decided"})
	}
	m, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
	}
	return c.JSON(http.StatusOK, m)
}
