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
)

// InitiatePayment registers a pending gateway order and hands the client the
// reference it needs to run the payment flow. The order itself is untouched:
// a dismissed payment leaves it pending and recoverable from the order list.
func (h *OrderHandler) InitiatePayment(c echo.Context) error {
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

	if !models.GatewayMethod(order.PaymentMethod) {
		return apperr.JSON(c, fmt.Errorf("%w: order is not gateway settled", apperr.ErrInvalidInput))
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return apperr.JSON(c, fmt.Errorf("%w: order is already %s", apperr.ErrStateConflict, order.PaymentStatus))
	}

	gwOrder, err := h.Gateway.CreateOrder(
		c.Request().Context(),
		order.TotalAmount,
		"INR",
		fmt.Sprintf("order_%d", order.ID),
	)
	if err != nil {
		return apperr.JSON(c, fmt.Errorf("%w: %v", apperr.ErrUpstream, err))
	}

	if err := h.DB.Model(&order).Update("gateway_order_id", gwOrder.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":         order.ID,
		"gateway_order_id": gwOrder.ID,
		"payment_url":      gwOrder.PaymentURL,
		"amount":           order.TotalAmount,
	})
}

// PaymentCallback reconciles a payment-success callback. The signature is
// verified against the gateway secret before anything is written; the
// pending -> paid transition happens through a guarded update, so replaying
// a callback for an already-paid order is a no-op.
func (h *OrderHandler) PaymentCallback(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return apperr.JSON(c, fmt.Errorf("%w: invalid order id", apperr.ErrInvalidInput))
	}

	var req struct {
		PaymentID      string `json:"payment_id"`
		GatewayOrderID string `json:"gateway_order_id"`
		Signature      string `json:"signature"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	if req.PaymentID == "" || req.GatewayOrderID == "" {
		return apperr.JSON(c, fmt.Errorf("%w: payment_id and gateway_order_id are required", apperr.ErrInvalidInput))
	}

	if !h.Gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature) {
		return apperr.JSON(c, fmt.Errorf("%w: invalid payment signature", apperr.ErrUnauthenticated))
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.JSON(c, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// A signed callback settles only the order it was initiated for. Without
	// this check a signature obtained for one order could pay off another.
	if order.GatewayOrderID == "" || order.GatewayOrderID != req.GatewayOrderID {
		return apperr.JSON(c, fmt.Errorf("%w: callback does not match this order's gateway reference", apperr.ErrStateConflict))
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		// Replayed callback: report success, change nothing.
		return c.JSON(http.StatusOK, echo.Map{
			"order_id":       order.ID,
			"payment_status": order.PaymentStatus,
			"payment_id":     order.PaymentID,
		})
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, models.PaymentStatusPending).
			Updates(map[string]any{
				"payment_status": models.PaymentStatusPaid,
				"payment_id":     req.PaymentID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to another callback; the cart clear already ran.
			return nil
		}

		return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.publish(c, map[string]any{
		"type":      "payment_confirmed",
		"userID":    userID,
		"orderID":   order.ID,
		"paymentID": req.PaymentID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":       order.ID,
		"payment_status": models.PaymentStatusPaid,
		"payment_id":     req.PaymentID,
	})
}
