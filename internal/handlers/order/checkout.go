package order

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/apperr"
	"github.com/medstore/api/internal/handlers"
	"github.com/medstore/api/internal/handlers/cart"
	"github.com/medstore/api/internal/models"
	"github.com/medstore/api/internal/mykafka"
	"github.com/medstore/api/internal/paygate"
)

const maxPrescriptionSize = 5 << 20 // 5MB, same limit the clients enforce

// PrescriptionUploader stores a prescription document and returns its object key.
type PrescriptionUploader interface {
	UploadPrescription(ctx context.Context, r io.Reader, filename string) (string, error)
}

// Gateway is the payment gateway used for card/UPI/wallet settlement.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*paygate.GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Uploader PrescriptionUploader
	Gateway  Gateway
}

type checkoutResponse struct {
	Order models.Order       `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// Checkout turns the buyer's cart into an order. The prescription row, the
// order and its line items are written in one transaction; a failure anywhere
// leaves no partial order behind. Cash-on-delivery clears the cart in the
// same transaction, gateway methods keep it until the payment callback.
func (h *OrderHandler) Checkout(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	address := strings.TrimSpace(c.FormValue("address"))
	if address == "" {
		return apperr.JSON(c, fmt.Errorf("%w: delivery address is required", apperr.ErrInvalidInput))
	}

	method := c.FormValue("payment_method")
	if !models.ValidPaymentMethod(method) {
		return apperr.JSON(c, fmt.Errorf("%w: unsupported payment method %q", apperr.ErrInvalidInput, method))
	}

	snapshot, err := cart.Snapshot(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(snapshot) == 0 {
		return apperr.JSON(c, fmt.Errorf("%w: cart is empty", apperr.ErrInvalidInput))
	}

	requiresPrescription := false
	var total float64
	for _, it := range snapshot {
		total += it.Price * float64(it.Quantity)
		if it.RequiresPrescription {
			requiresPrescription = true
		}
	}

	document, err := c.FormFile("prescription")
	if err != nil {
		document = nil
	}
	if requiresPrescription && document == nil {
		// Checked before any write: the cart stays intact for retry.
		return apperr.JSON(c, fmt.Errorf("%w: order contains prescription medicines", apperr.ErrPrescriptionRequired))
	}

	// A document only becomes a prescription row when the cart holds a
	// controlled item; stray uploads on an over-the-counter order are ignored.
	fileRef := ""
	if requiresPrescription && document != nil {
		fileRef, err = h.storePrescription(c, document)
		if err != nil {
			return apperr.JSON(c, err)
		}
	}

	var (
		order      models.Order
		orderItems []models.OrderItem
	)
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var prescriptionID *uint
		if fileRef != "" {
			prescription := models.Prescription{
				UserID:        userID,
				FileReference: fileRef,
				Status:        models.PrescriptionPending,
				CreatedAt:     time.Now().Unix(),
			}
			if err := tx.Create(&prescription).Error; err != nil {
				return err
			}
			prescriptionID = &prescription.ID
		}

		order = models.Order{
			UserID:          userID,
			CreatedAt:       time.Now().Unix(),
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   method,
			TotalAmount:     total,
			DeliveryAddress: address,
			PrescriptionID:  prescriptionID,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		orderItems = make([]models.OrderItem, 0, len(snapshot))
		for _, it := range snapshot {
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			orderItems = append(orderItems, oi)
		}

		// Gateway-settled orders keep the cart until payment confirms, so an
		// abandoned payment flow can be retried from a full cart.
		if method == models.PaymentMethodCOD {
			if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.publish(c, map[string]any{
		"type":           "order_created",
		"userID":         userID,
		"orderID":        order.ID,
		"total":          order.TotalAmount,
		"payment_method": method,
	})

	return c.JSON(http.StatusOK, checkoutResponse{Order: order, Items: orderItems})
}

func (h *OrderHandler) storePrescription(c echo.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxPrescriptionSize {
		return "", fmt.Errorf("%w: prescription file exceeds 5MB", apperr.ErrInvalidInput)
	}

	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".pdf", ".jpg", ".jpeg", ".png":
	default:
		return "", fmt.Errorf("%w: prescription must be PDF, JPG or PNG", apperr.ErrInvalidInput)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	defer src.Close()

	ref, err := h.Uploader.UploadPrescription(c.Request().Context(), src, fh.Filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return ref, nil
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
