package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/models"
)

// SnapshotItem is one cart row joined with live product state. Checkout uses
// the Price field as the authoritative price snapshot for the order line.
type SnapshotItem struct {
	CartItemID           uint    `json:"id"`
	ProductID            uint    `json:"product_id"`
	Quantity             uint    `json:"quantity"`
	Name                 string  `json:"name"`
	Price                float64 `json:"price"`
	Stock                uint    `json:"stock"`
	RequiresPrescription bool    `json:"requires_prescription"`
}

// Snapshot reads the buyer's cart entries in insertion order together with
// current product price, stock and the prescription flag.
func Snapshot(db *gorm.DB, userID uint) ([]SnapshotItem, error) {
	var items []models.CartItem
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	snapshot := make([]SnapshotItem, 0, len(items))
	for _, it := range items {
		var p models.Product
		if err := db.First(&p, it.ProductID).Error; err != nil {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, err)
		}
		snapshot = append(snapshot, SnapshotItem{
			CartItemID:           it.ID,
			ProductID:            it.ProductID,
			Quantity:             it.Quantity,
			Name:                 p.Name,
			Price:                p.Price,
			Stock:                p.Stock,
			RequiresPrescription: p.RequiresPrescription,
		})
	}
	return snapshot, nil
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
