package order

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
	"github.com/medstore/api/internal/util"
)

type orderDetail struct {
	Order models.Order       `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// ListOrders returns the buyer's orders, newest first. Reads are
// side-effect free so dashboards can poll them.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return apperr.JSON(c, fmt.Errorf("%w: invalid order id", apperr.ErrInvalidInput))
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.JSON(c, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orderDetail{Order: order, Items: items})
}

// StaffListOrders is the fulfillment dashboard view. With active=1 only
// orders still in flight are returned.
func (h *OrderHandler) StaffListOrders(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Order{})
	if c.QueryParam("active") == "1" {
		q = q.Where("status NOT IN ?", []string{models.OrderStatusDelivered, models.OrderStatusCancelled})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  orders,
		"total": total,
		"page":  page,
		"size":  limit,
	})
}

// UpdateStatus advances an order to the status the staff member selected.
// Terminal orders reject any further transition; the guard is a conditional
// update so concurrent staff actions cannot revive a finished order.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	reviewerID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return apperr.JSON(c, fmt.Errorf("%w: invalid order id", apperr.ErrInvalidInput))
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	if !models.ValidOrderStatus(req.Status) {
		return apperr.JSON(c, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, req.Status))
	}

	res := h.DB.Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, []string{models.OrderStatusDelivered, models.OrderStatusCancelled}).
		Update("status", req.Status)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		var order models.Order
		if err := h.DB.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.JSON(c, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return apperr.JSON(c, fmt.Errorf("%w: order is already %s", apperr.ErrStateConflict, order.Status))
	}

	h.publish(c, map[string]any{
		"type":       "order_status_changed",
		"orderID":    id,
		"status":     req.Status,
		"reviewerID": reviewerID,
	})

	return c.JSON(http.StatusOK, echo.Map{"order_id": id, "status": req.Status})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
