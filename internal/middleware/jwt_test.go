package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetix/ticketing/internal/utils"
)

const testSecret = "unit-test-secret"

func runProtected(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 42, "CUSTOMER", 15)
	require.NoError(t, err)

	rec, c := runProtected(t, "Bearer "+at.Token, JWTAuth(testSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), c.Get("user_id"))
	assert.Equal(t, "CUSTOMER", c.Get("role"))
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	rec, _ := runProtected(t, "", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = runProtected(t, "Bearer garbage", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	at, err := utils.NewAccessToken("other-secret", 42, "CUSTOMER", 15)
	require.NoError(t, err)
	rec, _ = runProtected(t, "Bearer "+at.Token, JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleEnforcesAllowedSet(t *testing.T) {
	admin, err := utils.NewAccessToken(testSecret, 1, "ADMIN", 15)
	require.NoError(t, err)
	customer, err := utils.NewAccessToken(testSecret, 2, "CUSTOMER", 15)
	require.NoError(t, err)

	rec, _ := runProtected(t, "Bearer "+admin.Token, JWTAuth(testSecret), RequireRole("ADMIN"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = runProtected(t, "Bearer "+customer.Token, JWTAuth(testSecret), RequireRole("ADMIN"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
