package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/models"
	"github.com/medstore/api/internal/mykafka"
	"github.com/medstore/api/internal/util"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ImageUploader stores a product image and returns its delivery URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, r io.Reader, filename string) (string, error)
}

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Uploader ImageUploader
}

func errorResponse(c echo.Context, code int, err error) error {
	return c.JSON(code, Response{
		Status:  "error",
		Message: err.Error(),
	})
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

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	product := models.Product{}
	if err := h.DB.First(&product, id).Error; err != nil {
		return errorResponse(c, http.StatusNotFound, err)
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	var items []models.Product
	if err := h.DB.Model(&models.Product{}).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req struct {
		Name                 string  `json:"name"`
		Description          string  `json:"description"`
		Price                float64 `json:"price"`
		Stock                uint    `json:"stock"`
		RequiresPrescription bool    `json:"requires_prescription"`
	}

	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.Name == "" || req.Price < 0 {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("name and non-negative price are required"))
	}

	prod := models.Product{
		Name:                 req.Name,
		Description:          req.Description,
		Price:                req.Price,
		Stock:                req.Stock,
		RequiresPrescription: req.RequiresPrescription,
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return errorResponse(c, http.StatusNotFound, err)
	}

	var req struct {
		Name                 *string  `json:"name"`
		Description          *string  `json:"description"`
		Price                *float64 `json:"price"`
		Stock                *uint    `json:"stock"`
		RequiresPrescription *bool    `json:"requires_prescription"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.RequiresPrescription != nil {
		updates["requires_prescription"] = *req.RequiresPrescription
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&prod).Updates(updates).Error; err != nil {
			return errorResponse(c, http.StatusInternalServerError, err)
		}
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.JSON(http.StatusOK, echo.Map{"deleted": id})
}

// UploadProductImage attaches a catalog photo uploaded through object storage.
func (h *ProductHandler) UploadProductImage(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return errorResponse(c, http.StatusNotFound, err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("image file is required"))
	}
	src, err := fh.Open()
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	defer src.Close()

	url, err := h.Uploader.UploadImage(c.Request().Context(), src, fh.Filename)
	if err != nil {
		return errorResponse(c, http.StatusBadGateway, err)
	}

	if err := h.DB.Model(&prod).Update("image_url", url).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, prod)
}

// UpdateStock is used by fulfillment staff to adjust inventory levels.
func (h *ProductHandler) UpdateStock(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req struct {
		Stock *uint `json:"stock"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.Stock == nil {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("stock is required"))
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return errorResponse(c, http.StatusNotFound, err)
	}

	if err := h.DB.Model(&prod).Update("stock", *req.Stock).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	h.publish(c, map[string]any{
		"type":      "stock_updated",
		"productID": prod.ID,
		"stock":     *req.Stock,
	})

	return c.JSON(http.StatusOK, prod)
}
