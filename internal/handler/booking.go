package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/queue"
	"github.com/cinetix/ticketing/internal/repository"
)

// BookingHandler is the HTTP gateway in front of the booking coordinator.
// It validates commands, runs advisory pre-checks against current seat
// state, enqueues a job and answers 202 Accepted.  The pre-checks give
// callers an early 404/409 for requests that would obviously no-op, but
// the authoritative decision is always the coordinator's conditional
// write: a request that passes the pre-check can still lose the race and
// end as a silent no-op.
type BookingHandler struct {
	Shows       *repository.ShowRepo
	Seats       *repository.ShowSeatRepo
	Jobs        JobPublisher
	ReservedCap int
}

func NewBookingHandler(shows *repository.ShowRepo, seats *repository.ShowSeatRepo, jobs JobPublisher, reservedCap int) *BookingHandler {
	if shows == nil || seats == nil || jobs == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Shows: shows, Seats: seats, Jobs: jobs, ReservedCap: reservedCap}
}

// ----- DTOs -----

type holdReq struct {
	SeatID uint64 `json:"seat_id"`
	Row    string `json:"row"`
	Column int    `json:"column" validate:"omitempty,min=1"`
}

type bookReq struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=GATEWAY COUNTER"`
	TransactionID string `json:"transaction_id" validate:"required"`
	Mobile        string `json:"mobile"`
	PaymentRef    string `json:"payment_ref"`
}

// HoldSeat handles POST /v1/shows/:id/seats/hold.  The seat is addressed
// by its row and column; the response carries the resolved seat ID so the
// client can poll the seat map for the outcome.
func (h *BookingHandler) HoldSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var req holdReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.SeatID == 0 && (req.Row == "" || req.Column == 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id or row/column required"})
	}

	ctx := c.Request().Context()
	var seat *model.ShowSeat
	if req.SeatID != 0 {
		seat, err = h.Seats.GetByID(ctx, req.SeatID)
	} else {
		seat, err = h.Seats.GetByPosition(ctx, showID, req.Row, req.Column)
	}
	if err != nil {
		if err == repository.ErrSeatNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if seat.ShowID != showID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	}
	// advisory only: the coordinator re-checks under the conditional
	// write.  A seat the caller already holds is not a conflict; the job
	// goes through and lands as a harmless no-op.
	if holdRefused(seat, userID) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat not available", "status": seat.Status})
	}

	if err := enqueue(c, h.Jobs, queue.JobHold, queue.HoldPayload{SeatID: seat.ID, Holder: userID}); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"seat_id": seat.ID, "status": "pending"})
}

// holdRefused reports whether a hold request should be turned away at
// the gateway: the seat is booked, reserved, or selected by somebody
// else.
func holdRefused(seat *model.ShowSeat, userID uint64) bool {
	switch seat.Status {
	case model.SeatAvailable:
		return false
	case model.SeatSelected:
		return seat.HeldBy == nil || *seat.HeldBy != userID
	default:
		return true
	}
}

// ReleaseSeats handles DELETE /v1/shows/:id/seats/hold.  It releases every
// seat the caller currently has SELECTED on the show.
func (h *BookingHandler) ReleaseSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if err := enqueue(c, h.Jobs, queue.JobRelease, queue.ReleasePayload{ShowID: showID, Holder: userID}); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "pending"})
}

// BookSeats handles POST /v1/shows/:id/book.  The payment was already
// captured by the external gateway; the identifiers are recorded verbatim
// on the ticket.
func (h *BookingHandler) BookSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := h.Shows.GetByID(c.Request().Context(), showID); err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	method := req.PaymentMethod
	if method == "" {
		method = model.PaymentMethodGateway
	}
	payload := queue.BookPayload{
		ShowID:        showID,
		Holder:        userID,
		PaymentMethod: method,
		TransactionID: req.TransactionID,
		Mobile:        req.Mobile,
		PaymentRef:    req.PaymentRef,
	}
	if err := enqueue(c, h.Jobs, queue.JobBook, payload); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "pending"})
}

// ReserveSeats handles POST /v1/shows/:id/reserve (staff only).  The
// pre-check against the show's reserved counter surfaces an early 409
// when the cap is already exhausted; the binding check happens inside the
// coordinator's transaction.
func (h *BookingHandler) ReserveSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	show, err := h.Shows.GetByID(c.Request().Context(), showID)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if show.ReservedSeatsCount >= h.ReservedCap {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "reservation cap reached",
			"reserved": show.ReservedSeatsCount,
			"cap":      h.ReservedCap,
		})
	}
	if err := enqueue(c, h.Jobs, queue.JobReserve, queue.ReservePayload{ShowID: showID, Holder: userID}); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "pending"})
}

// ListReserved handles GET /v1/seats/reserved (staff only): every seat
// currently awaiting an approve/reject decision.
func (h *BookingHandler) ListReserved(c echo.Context) error {
	seats, err := h.Seats.ListReserved(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if seats == nil {
		seats = []model.ShowSeat{}
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}

// ApproveSeat handles POST /v1/seats/:id/approve (staff only).
func (h *BookingHandler) ApproveSeat(c echo.Context) error {
	return h.decideSeat(c, queue.JobApprove)
}

// RejectSeat handles POST /v1/seats/:id/reject (staff only).
func (h *BookingHandler) RejectSeat(c echo.Context) error {
	return h.decideSeat(c, queue.JobReject)
}

func (h *BookingHandler) decideSeat(c echo.Context, jobType string) error {
	seatID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	seat, err := h.Seats.GetByID(c.Request().Context(), seatID)
	if err != nil {
		if err == repository.ErrSeatNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if seat.Status != model.SeatReserved {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat not reserved", "status": seat.Status})
	}
	if err := enqueue(c, h.Jobs, jobType, queue.SeatPayload{SeatID: seatID}); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "pending"})
}
