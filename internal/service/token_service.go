package service

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/handlers"
	"github.com/medstore/api/internal/models"
)

type TokenService struct {
	DB            *gorm.DB
	RefreshSecret []byte
	JWTSecret     []byte
}

func (t *TokenService) RotateToken(rawToken string) (string, string, error) {
	claims, err := ValidateRefresh(rawToken, t.RefreshSecret, t.DB)
	if err != nil {
		return "", "", err
	}

	userID := uint(claims["sub"].(float64))
	role := claims["role"].(string)

	newAccess, err := SignAccessToken(userID, role, t.JWTSecret)
	if err != nil {
		return "", "", err
	}

	newRefresh, err := SignRefreshToken(userID, role, t.RefreshSecret)
	if err != nil {
		return "", "", err
	}

	if err := SaveRefreshToken(t.DB, newRefresh, userID, role); err != nil {
		return "", "", err
	}

	return newAccess, newRefresh, nil
}

func (t *TokenService) RevokeRefresh(token string) error {
	if err := t.DB.Model(&models.RefreshToken{}).Where("token=?", token).Update("revoked", true).Error; err != nil {
		return fmt.Errorf("DB error: %w", err)
	}

	return nil
}

// AutoRefreshMiddleware authenticates the request from the access cookie and
// transparently rotates an expired access token from the refresh cookie.
func (t *TokenService) AutoRefreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		asCookie, err := c.Cookie("accessToken")
		if err == nil {
			token, err := jwt.Parse(asCookie.Value, func(j *jwt.Token) (interface{}, error) {
				return t.JWTSecret, nil
			})
			if err == nil && token.Valid {
				setUserContext(c, token.Claims.(jwt.MapClaims))
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
		}

		rfCookie, err := c.Cookie("refreshToken")
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
		}
		newAccess, newRefresh, err := t.RotateToken(rfCookie.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token: "+err.Error())
		}

		c.SetCookie(handlers.CreateCookie("accessToken", newAccess, "/", time.Now().Add(15*time.Minute)))
		c.SetCookie(handlers.CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(7*24*time.Hour)))

		token, _ := jwt.Parse(newAccess, func(j *jwt.Token) (interface{}, error) { return t.JWTSecret, nil })
		setUserContext(c, token.Claims.(jwt.MapClaims))
		return next(c)
	}
}

// AutoRefreshMiddlewareStaff additionally requires the pharmacist or admin role.
func (t *TokenService) AutoRefreshMiddlewareStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return t.AutoRefreshMiddleware(requireRole(next, "pharmacist", "admin"))
}

func (t *TokenService) AutoRefreshMiddlewareAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return t.AutoRefreshMiddleware(requireRole(next, "admin"))
}

func requireRole(next echo.HandlerFunc, roles ...string) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get("role").(string)
		for _, r := range roles {
			if role == r {
				return next(c)
			}
		}
		return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
	}
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	c.Set("role", claims["role"].(string))
}
