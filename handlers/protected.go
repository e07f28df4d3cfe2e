package handlers

import (
	"net/http"

	authmw "github.com/expensio/expensio/middleware/auth"
	"github.com/labstack/echo/v4"
)

type ProtectedHandler struct{}

func NewProtectedHandler() *ProtectedHandler {
	return &ProtectedHandler{}
}

// Profile returns the authenticated user's public profile.
func (h *ProtectedHandler) Profile(c echo.Context) error {
	account := authmw.CurrentUser(c)
	if account == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	return c.JSON(http.StatusOK, account)
}

// Optional serves both authenticated and anonymous callers; a stale token
// never fails this route.
func (h *ProtectedHandler) Optional(c echo.Context) error {
	if account := authmw.CurrentUser(c); account != nil {
		return c.JSON(http.StatusOK, map[string]any{
			"message":       "Welcome back",
			"authenticated": true,
			"user_id":       account.ID,
			"email":         account.Email,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":       "Welcome, anonymous user",
		"authenticated": false,
	})
}

// Health is the liveness probe.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
