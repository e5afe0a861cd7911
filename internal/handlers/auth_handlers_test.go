package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/hash"
	"github.com/medstore/api/internal/models"
	"github.com/medstore/api/internal/mykafka"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Product{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newAuthHandler(t *testing.T) *AuthHandler {
	return &AuthHandler{
		DB:            InitTestDB(t),
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Producer:      &mykafka.Producer{},
	}
}

func postJSON(t *testing.T, path string, payload interface{}) (echo.Context, *httptest.ResponseRecorder) {
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestRegister(t *testing.T) {
	h := newAuthHandler(t)

	c, rec := postJSON(t, "/api/v1/register", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "test_user", user.Username)
	require.Equal(t, "user", user.Role)
	require.NotEmpty(t, user.ID)

	var stored models.User
	require.NoError(t, h.DB.First(&stored, user.ID).Error)
	require.NotEqual(t, "password", stored.PasswordHash)

	// Same username again must conflict.
	c, _ = postJSON(t, "/api/v1/register", map[string]string{
		"username": "test_user",
		"password": "other",
	})
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestRegisterDBFailureIsNotConflict(t *testing.T) {
	h := newAuthHandler(t)

	sqlDB, err := h.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	c, _ := postJSON(t, "/api/v1/register", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	regErr := h.Register(c)
	he, ok := regErr.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusInternalServerError, he.Code)
}

func TestRegisterRequiresCredentials(t *testing.T) {
	h := newAuthHandler(t)

	c, _ := postJSON(t, "/api/v1/register", map[string]string{"username": "no_password"})
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestLogin(t *testing.T) {
	h := newAuthHandler(t)

	passwordHash, _ := hash.HashPassword("password")
	h.DB.Create(&models.User{Username: "test_user", PasswordHash: passwordHash, Role: "user"})

	c, rec := postJSON(t, "/api/v1/login", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.Equal(t, "user", resp["role"])

	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	var stored models.RefreshToken
	require.NoError(t, h.DB.Where("token = ?", resp["refresh_token"]).First(&stored).Error)
	require.False(t, stored.Revoked)

	c, _ = postJSON(t, "/api/v1/login", map[string]string{
		"username": "test_user",
		"password": "invalid_password",
	})
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLogOut(t *testing.T) {
	h := newAuthHandler(t)

	passwordHash, _ := hash.HashPassword("password")
	h.DB.Create(&models.User{Username: "test_user", PasswordHash: passwordHash, Role: "user"})

	c, rec := postJSON(t, "/api/v1/login", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	refreshToken := loginResp["refresh_token"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refreshToken})
	recLogout := httptest.NewRecorder()
	cLogout := echo.New().NewContext(req, recLogout)

	require.NoError(t, h.LogOut(cLogout))
	require.Equal(t, http.StatusOK, recLogout.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(recLogout.Body.Bytes(), &resp))
	require.Equal(t, "logged out", resp["message"])

	var stored models.RefreshToken
	require.NoError(t, h.DB.Where("token = ?", refreshToken).First(&stored).Error)
	require.True(t, stored.Revoked)
}
