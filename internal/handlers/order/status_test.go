package order

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medstore/api/internal/models"
)

func TestUpdateStatusAdvancesOrder(t *testing.T) {
	h, db := newOrderHandler(t)
	require.NoError(t, db.Create(&models.Order{
		UserID:        1,
		Status:        models.OrderStatusApproved,
		PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: models.PaymentMethodCard,
		TotalAmount:   250,
	}).Error)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/staff/orders/1/status",
		map[string]string{"status": models.OrderStatusShipped}, 10)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Order
	require.NoError(t, db.First(&stored, 1).Error)
	require.Equal(t, models.OrderStatusShipped, stored.Status)
}

func TestUpdateStatusTerminalOrderConflicts(t *testing.T) {
	h, db := newOrderHandler(t)
	require.NoError(t, db.Create(&models.Order{
		UserID:        1,
		Status:        models.OrderStatusDelivered,
		PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: models.PaymentMethodCOD,
		TotalAmount:   250,
	}).Error)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/staff/orders/1/status",
		map[string]string{"status": models.OrderStatusProcessing}, 10)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	var stored models.Order
	require.NoError(t, db.First(&stored, 1).Error)
	require.Equal(t, models.OrderStatusDelivered, stored.Status)
}

func TestUpdateStatusCancelledOrderConflicts(t *testing.T) {
	h, db := newOrderHandler(t)
	require.NoError(t, db.Create(&models.Order{
		UserID:        1,
		Status:        models.OrderStatusCancelled,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodCOD,
		TotalAmount:   250,
	}).Error)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/staff/orders/1/status",
		map[string]string{"status": models.OrderStatusApproved}, 10)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	h, db := newOrderHandler(t)
	require.NoError(t, db.Create(&models.Order{
		UserID:        1,
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodCOD,
	}).Error)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/staff/orders/1/status",
		map[string]string{"status": "lost"}, 10)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	h, _ := newOrderHandler(t)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/staff/orders/9/status",
		map[string]string{"status": models.OrderStatusShipped}, 10)
	c.SetParamNames("id")
	c.SetParamValues("9")
	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersNewestFirst(t *testing.T) {
	h, db := newOrderHandler(t)
	require.NoError(t, db.Create(&models.Order{UserID: 1, Status: models.OrderStatusPending, PaymentMethod: models.PaymentMethodCOD, CreatedAt: 100}).Error)
	require.NoError(t, db.Create(&models.Order{UserID: 1, Status: models.OrderStatusShipped, PaymentMethod: models.PaymentMethodCOD, CreatedAt: 200}).Error)
	require.NoError(t, db.Create(&models.Order{UserID: 2, Status: models.OrderStatusPending, PaymentMethod: models.PaymentMethodCOD, CreatedAt: 300}).Error)

	c, rec := jsonContext(t, http.MethodGet, "/api/v1/orders", nil, 1)
	require.NoError(t, h.ListOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	require.Equal(t, int64(200), orders[0].CreatedAt)
	require.Equal(t, int64(100), orders[1].CreatedAt)
}

func TestStaffListOrdersActiveFilter(t *testing.T) {
	h, db := newOrderHandler(t)
	require.NoError(t, db.Create(&models.Order{UserID: 1, Status: models.OrderStatusProcessing, PaymentMethod: models.PaymentMethodCOD}).Error)
	require.NoError(t, db.Create(&models.Order{UserID: 1, Status: models.OrderStatusDelivered, PaymentMethod: models.PaymentMethodCOD}).Error)
	require.NoError(t, db.Create(&models.Order{UserID: 2, Status: models.OrderStatusCancelled, PaymentMethod: models.PaymentMethodCOD}).Error)

	c, rec := jsonContext(t, http.MethodGet, "/api/v1/staff/orders?active=1", nil, 10)
	require.NoError(t, h.StaffListOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data  []models.Order `json:"data"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Data, 1)
	require.Equal(t, models.OrderStatusProcessing, resp.Data[0].Status)
}

func TestGetOrderIncludesItems(t *testing.T) {
	h, db := newOrderHandler(t)
	require.NoError(t, db.Create(&models.Order{UserID: 1, Status: models.OrderStatusPending, PaymentMethod: models.PaymentMethodCOD, TotalAmount: 200}).Error)
	require.NoError(t, db.Create(&models.OrderItem{OrderID: 1, ProductID: 1, Quantity: 2, Price: 100}).Error)

	c, rec := jsonContext(t, http.MethodGet, "/api/v1/orders/1", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.GetOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, float64(100), resp.Items[0].Price)
}
