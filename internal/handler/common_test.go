package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexToRowLabel(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{-1, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, indexToRowLabel(tc.in), "index %d", tc.in)
	}
}

func TestGetUserIDAcceptsNumericTypes(t *testing.T) {
	e := echo.New()
	for _, v := range []interface{}{uint64(42), int(42), int64(42), float64(42), "42"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", v)
		got, err := getUserID(c)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got)
	}
}

func TestGetUserIDRejectsMissingOrGarbage(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := getUserID(c)
	assert.Error(t, err)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set("user_id", "not-a-number")
	_, err = getUserID(c)
	assert.Error(t, err)
}
