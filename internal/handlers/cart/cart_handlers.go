package cart

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/apperr"
	"github.com/medstore/api/internal/handlers"
	"github.com/medstore/api/internal/models"
	"github.com/medstore/api/internal/mykafka"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// GetCart returns the buyer's cart joined with live product state. Prices
// here are informational; checkout takes its own snapshot.
func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	snapshot, err := Snapshot(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var total float64
	requiresPrescription := false
	for _, it := range snapshot {
		total += it.Price * float64(it.Quantity)
		if it.RequiresPrescription {
			requiresPrescription = true
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":                 snapshot,
		"total":                 total,
		"requires_prescription": requiresPrescription,
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.JSON(c, fmt.Errorf("%w: product %d", apperr.ErrNotFound, req.ProductID))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// One row per (buyer, product): adding again bumps the quantity.
	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID).First(&item)
	if tx.Error == nil {
		item.Quantity += req.Quantity
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.publish(c, map[string]any{
			"type":      "cart_item_added",
			"userID":    userID,
			"productID": req.ProductID,
			"quantity":  item.Quantity,
		})
		return c.JSON(http.StatusOK, item)
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	newItem := models.CartItem{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}
	if err := h.DB.Create(&newItem).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  newItem.Quantity,
	})
	return c.JSON(http.StatusOK, newItem)
}

func (h *CartHandler) SetQuantity(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return apperr.JSON(c, fmt.Errorf("%w: invalid item id", apperr.ErrInvalidInput))
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	if req.Quantity < 1 {
		return apperr.JSON(c, fmt.Errorf("%w: quantity must be at least 1, use remove instead", apperr.ErrInvalidInput))
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.JSON(c, fmt.Errorf("%w: cart item %d", apperr.ErrNotFound, id))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	item.Quantity = req.Quantity
	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":         "cart_quantity_set",
		"userID":       userID,
		"id":           item.ID,
		"new_quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return apperr.JSON(c, fmt.Errorf("%w: invalid item id", apperr.ErrInvalidInput))
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.JSON(c, fmt.Errorf("%w: cart item %d", apperr.ErrNotFound, id))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":         "cart_item_removed",
		"userID":       userID,
		"deleted_item": id,
	})
	return c.JSON(http.StatusOK, echo.Map{"deleted_item": id})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	if err := h.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return c.JSON(http.StatusOK, echo.Map{"cleared": true})
}
