package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetix/ticketing/internal/model"
	"github.com/cinetix/ticketing/internal/queue"
)

// capturingPublisher records enqueued jobs instead of talking to a broker.
type capturingPublisher struct {
	jobs []queue.Job
	err  error
}

func (p *capturingPublisher) PublishJob(_ context.Context, job queue.Job) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReleaseSeatsEnqueuesJob(t *testing.T) {
	pub := &capturingPublisher{}
	h := &BookingHandler{Jobs: pub}

	c, rec := newTestContext(t, http.MethodDelete, "/v1/shows/10/seats/hold", "")
	c.SetParamNames("id")
	c.SetParamValues("10")
	c.Set("user_id", uint64(7))

	require.NoError(t, h.ReleaseSeats(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, pub.jobs, 1)
	assert.Equal(t, queue.JobRelease, pub.jobs[0].Type)
	var p queue.ReleasePayload
	require.NoError(t, json.Unmarshal(pub.jobs[0].Payload, &p))
	assert.Equal(t, uint64(10), p.ShowID)
	assert.Equal(t, uint64(7), p.Holder)
}

func TestReleaseSeatsRequiresAuth(t *testing.T) {
	pub := &capturingPublisher{}
	h := &BookingHandler{Jobs: pub}

	c, rec := newTestContext(t, http.MethodDelete, "/v1/shows/10/seats/hold", "")
	c.SetParamNames("id")
	c.SetParamValues("10")

	require.NoError(t, h.ReleaseSeats(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, pub.jobs)
}

func TestReleaseSeatsRejectsBadShowID(t *testing.T) {
	pub := &capturingPublisher{}
	h := &BookingHandler{Jobs: pub}

	c, rec := newTestContext(t, http.MethodDelete, "/v1/shows/abc/seats/hold", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")
	c.Set("user_id", uint64(7))

	require.NoError(t, h.ReleaseSeats(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, pub.jobs)
}

func TestHoldSeatValidatesBody(t *testing.T) {
	h := &BookingHandler{Jobs: &capturingPublisher{}}

	// missing column
	c, rec := newTestContext(t, http.MethodPost, "/v1/shows/10/seats/hold", `{"row":"A"}`)
	c.SetParamNames("id")
	c.SetParamValues("10")
	c.Set("user_id", uint64(7))

	require.NoError(t, h.HoldSeat(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHoldRefused(t *testing.T) {
	holder := uint64(7)
	other := uint64(8)

	cases := []struct {
		name    string
		seat    model.ShowSeat
		refused bool
	}{
		{"available", model.ShowSeat{Status: model.SeatAvailable}, false},
		{"selected by requester", model.ShowSeat{Status: model.SeatSelected, HeldBy: &holder}, false},
		{"selected by other", model.ShowSeat{Status: model.SeatSelected, HeldBy: &other}, true},
		{"selected without holder", model.ShowSeat{Status: model.SeatSelected}, true},
		{"reserved", model.ShowSeat{Status: model.SeatReserved, HeldBy: &holder}, true},
		{"booked", model.ShowSeat{Status: model.SeatBooked}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.refused, holdRefused(&tc.seat, holder))
		})
	}
}

func TestDecideSeatRejectsBadSeatID(t *testing.T) {
	pub := &capturingPublisher{}
	h := &BookingHandler{Jobs: pub}

	c, rec := newTestContext(t, http.MethodPost, "/v1/seats/zero/approve", "")
	c.SetParamNames("id")
	c.SetParamValues("0")

	require.NoError(t, h.ApproveSeat(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, pub.jobs)
}

func TestBookSeatsRequiresTransactionID(t *testing.T) {
	h := &BookingHandler{Jobs: &capturingPublisher{}}

	c, rec := newTestContext(t, http.MethodPost, "/v1/shows/10/book", `{"mobile":"555-0100"}`)
	c.SetParamNames("id")
	c.SetParamValues("10")
	c.Set("user_id", uint64(7))

	require.NoError(t, h.BookSeats(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
