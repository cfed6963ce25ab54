package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/repository"
)

// ScreenHandler covers admin screen management.  A screen is created
// together with its seat layout; the layout can be given either as an
// explicit per-row list or as a rows x columns rectangle that is expanded
// into generated row labels (A, B, ... AA).
type ScreenHandler struct {
	Screens *repository.ScreenRepo
}

func NewScreenHandler(s *repository.ScreenRepo) *ScreenHandler {
	return &ScreenHandler{Screens: s}
}

type layoutRowReq struct {
	Row     string `json:"row" validate:"required"`
	Columns int    `json:"columns" validate:"required,min=1,max=100"`
}

type screenReq struct {
	Name       string         `json:"name" validate:"required"`
	PriceCents uint32         `json:"price_cents" validate:"required,min=1"`
	Rows       int            `json:"rows" validate:"omitempty,min=1,max=100"`
	Columns    int            `json:"columns" validate:"omitempty,min=1,max=100"`
	Layout     []layoutRowReq `json:"layout" validate:"omitempty,dive"`
}

func (req *screenReq) layoutRows(screenID uint64) []model.SeatLayout {
	if len(req.Layout) > 0 {
		rows := make([]model.SeatLayout, 0, len(req.Layout))
		for _, l := range req.Layout {
			rows = append(rows, model.SeatLayout{ScreenID: screenID, RowLabel: l.Row, TotalColumns: l.Columns})
		}
		return rows
	}
	rows := make([]model.SeatLayout, 0, req.Rows)
	for i := 0; i < req.Rows; i++ {
		rows = append(rows, model.SeatLayout{ScreenID: screenID, RowLabel: indexToRowLabel(i), TotalColumns: req.Columns})
	}
	return rows
}

// Create handles POST /v1/screens.
func (h *ScreenHandler) Create(c echo.Context) error {
	var req screenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(req.Layout) == 0 && (req.Rows == 0 || req.Columns == 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "layout or rows/columns required"})
	}

	ctx := c.Request().Context()
	s := &model.Screen{Name: req.Name, PriceCents: req.PriceCents}
	if err := h.Screens.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create screen failed"})
	}
	layout := req.layoutRows(s.ID)
	if err := h.Screens.ReplaceLayout(ctx, s.ID, layout); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save layout failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"screen": s, "layout": layout})
}

// List handles GET /v1/screens.
func (h *ScreenHandler) List(c echo.Context) error {
	screens, err := h.Screens.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if screens == nil {
		screens = []model.Screen{}
	}
	return c.JSON(http.StatusOK, echo.Map{"screens": screens})
}

// Get handles GET /v1/screens/:id including the layout.
func (h *ScreenHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen id"})
	}
	ctx := c.Request().Context()
	s, err := h.Screens.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrScreenNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	layout, err := h.Screens.GetLayout(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"screen": s, "layout": layout})
}

// Delete handles DELETE /v1/screens/:id.
func (h *ScreenHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen id"})
	}
	if err := h.Screens.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrScreenNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete screen failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
