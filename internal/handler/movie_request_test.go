package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMovieRequestRequiresAuth(t *testing.T) {
	h := &MovieRequestHandler{}

	c, rec := newTestContext(t, http.MethodPost, "/v1/requests", `{"movie_title":"Stalker"}`)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateMovieRequestValidatesTitle(t *testing.T) {
	h := &MovieRequestHandler{}

	c, rec := newTestContext(t, http.MethodPost, "/v1/requests", `{"description":"anything"}`)
	c.Set("user_id", uint64(7))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideMovieRequestValidatesStatus(t *testing.T) {
	h := &MovieRequestHandler{}

	// only APPROVED and REJECTED are decisions; PENDING is not
	c, rec := newTestContext(t, http.MethodPut, "/v1/requests/3/status", `{"status":"PENDING"}`)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.Decide(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideMovieRequestRejectsBadID(t *testing.T) {
	h := &MovieRequestHandler{}

	c, rec := newTestContext(t, http.MethodPut, "/v1/requests/zero/status", `{"status":"APPROVED"}`)
	c.SetParamNames("id")
	c.SetParamValues("0")

	require.NoError(t, h.Decide(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
