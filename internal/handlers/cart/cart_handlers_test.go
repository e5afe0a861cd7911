package cart

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

	"github.com/medstore/api/internal/models"
	"github.com/medstore/api/internal/mykafka"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.Product{}, &models.CartItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newHandler(t *testing.T) (*CartHandler, *gorm.DB) {
	db := initTestDB(t)
	return &CartHandler{DB: db, Producer: &mykafka.Producer{}}, db
}

func newJSONContext(t *testing.T, method, path string, body interface{}, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if userID != 0 {
		c.Set("userID", userID)
		c.Set("role", "user")
	}
	return c, rec
}

func TestAddToCartCreatesRow(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.Product{Name: "Paracetamol", Description: "500mg", Price: 40})

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/cart", map[string]uint{"product_id": 1, "quantity": 2}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, uint(1), item.UserID)
	require.Equal(t, uint(1), item.ProductID)
	require.Equal(t, uint(2), item.Quantity)
}

func TestAddToCartIncrementsExisting(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.Product{Name: "Paracetamol", Description: "500mg", Price: 40})
	db.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2})

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/cart", map[string]uint{"product_id": 1, "quantity": 3}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count)
	require.Equal(t, int64(1), count)

	var item models.CartItem
	db.Where("user_id = ? AND product_id = ?", 1, 1).First(&item)
	require.Equal(t, uint(5), item.Quantity)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h, _ := newHandler(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/cart", map[string]uint{"product_id": 99}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddToCartUnauthenticated(t *testing.T) {
	h, _ := newHandler(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/cart", map[string]uint{"product_id": 1}, 0)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetQuantityRejectsZero(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.Product{Name: "Paracetamol", Description: "500mg", Price: 40})
	db.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2})

	c, rec := newJSONContext(t, http.MethodPatch, "/api/v1/cart/1", map[string]uint{"quantity": 0}, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.SetQuantity(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var item models.CartItem
	db.First(&item, 1)
	require.Equal(t, uint(2), item.Quantity)
}

func TestSetQuantityNotOwned(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.CartItem{UserID: 2, ProductID: 1, Quantity: 2})

	c, rec := newJSONContext(t, http.MethodPatch, "/api/v1/cart/1", map[string]uint{"quantity": 5}, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.SetQuantity(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetQuantityUpdates(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2})

	c, rec := newJSONContext(t, http.MethodPatch, "/api/v1/cart/1", map[string]uint{"quantity": 7}, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.SetQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	db.First(&item, 1)
	require.Equal(t, uint(7), item.Quantity)
}

func TestRemoveFromCart(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2})

	c, rec := newJSONContext(t, http.MethodDelete, "/api/v1/cart/1", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.RemoveFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.CartItem{}).Count(&count)
	require.Equal(t, int64(0), count)
}

func TestClearCartOnlyOwnRows(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2})
	db.Create(&models.CartItem{UserID: 1, ProductID: 2, Quantity: 1})
	db.Create(&models.CartItem{UserID: 2, ProductID: 1, Quantity: 4})

	c, rec := newJSONContext(t, http.MethodDelete, "/api/v1/cart", nil, 1)
	require.NoError(t, h.ClearCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var mine, theirs int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&mine)
	db.Model(&models.CartItem{}).Where("user_id = ?", 2).Count(&theirs)
	require.Equal(t, int64(0), mine)
	require.Equal(t, int64(1), theirs)
}

func TestGetCartSnapshotTotals(t *testing.T) {
	h, db := newHandler(t)
	db.Create(&models.Product{Name: "Paracetamol", Description: "500mg", Price: 100})
	db.Create(&models.Product{Name: "Amoxicillin", Description: "250mg", Price: 50, RequiresPrescription: true})
	db.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2})
	db.Create(&models.CartItem{UserID: 1, ProductID: 2, Quantity: 1})

	c, rec := newJSONContext(t, http.MethodGet, "/api/v1/cart", nil, 1)
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items                []SnapshotItem `json:"items"`
		Total                float64        `json:"total"`
		RequiresPrescription bool           `json:"requires_prescription"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	require.Equal(t, float64(250), resp.Total)
	require.True(t, resp.RequiresPrescription)
}
