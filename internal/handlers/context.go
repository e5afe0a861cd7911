package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/medstore/api/internal/apperr"
)

// UserID returns the authenticated buyer id placed into the request context
// by the token middleware.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, apperr.ErrUnauthenticated
	}
	return id, nil
}

func Role(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}
