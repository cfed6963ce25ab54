package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/repository"
)

// Tickets stay redeemable until one hour after the show starts; a ticket
// presented later than that is refused even if unused.
const redemptionGrace = time.Hour

// TicketHandler covers ticket listing for customers and single-shot
// redemption for staff at the entrance.
type TicketHandler struct {
	Tickets *repository.TicketRepo
}

func NewTicketHandler(t *repository.TicketRepo) *TicketHandler {
	return &TicketHandler{Tickets: t}
}

type ticketResp struct {
	ID            uint64    `json:"id"`
	ShowID        uint64    `json:"show_id"`
	PaymentMethod string    `json:"payment_method"`
	BookingRef    string    `json:"booking_ref"`
	BookedAt      time.Time `json:"booked_at"`
	IsUsed        bool      `json:"is_used"`
	Seats         []string  `json:"seats"`
}

// MyTickets handles GET /v1/me/tickets: the caller's tickets, newest
// first, each with its seat labels.
func (h *TicketHandler) MyTickets(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	tickets, err := h.Tickets.ListByCustomer(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]ticketResp, 0, len(tickets))
	for _, t := range tickets {
		labels, err := h.Tickets.SeatLabels(ctx, t.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out = append(out, ticketResp{
			ID:            t.ID,
			ShowID:        t.ShowID,
			PaymentMethod: t.PaymentMethod,
			BookingRef:    t.BookingRef,
			BookedAt:      t.BookedAt,
			IsUsed:        t.IsUsed,
			Seats:         labels,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": out})
}

type validateReq struct {
	TicketID uint64 `json:"ticket_id" validate:"required"`
}

// Validate handles POST /v1/tickets/validate (staff only).  Redemption is
// synchronous and single-shot: the conditional flip on is_used means two
// concurrent scans of the same ticket admit exactly one.
func (h *TicketHandler) Validate(c echo.Context) error {
	var req validateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	t, err := h.Tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if t.IsUsed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already used"})
	}

	start, err := h.Tickets.ShowStart(ctx, t.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if time.Now().UTC().After(start.Add(redemptionGrace)) {
		return c.JSON(http.StatusGone, echo.Map{"error": "ticket expired", "show_start": start})
	}

	ok, err := h.Tickets.MarkUsed(ctx, t.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		// lost the race against another scan of the same ticket
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already used"})
	}

	labels, err := h.Tickets.SeatLabels(ctx, t.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ticket_id":   t.ID,
		"booking_ref": t.BookingRef,
		"seats":       labels,
		"validated":   true,
	})
}
