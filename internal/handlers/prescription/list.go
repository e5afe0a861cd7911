package prescription

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medstore/api/internal/apperr"
	"github.com/medstore/api/internal/handlers"
	"github.com/medstore/api/internal/models"
)

// ListPending is the reviewer queue. Filterable by status, pending by default.
func (h *ReviewHandler) ListPending(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = models.PrescriptionPending
	}

	var prescriptions []models.Prescription
	if err := h.DB.Where("status = ?", status).Order("created_at DESC").Find(&prescriptions).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, prescriptions)
}

// ListMine lets the buyer poll the state of their own prescriptions.
func (h *ReviewHandler) ListMine(c echo.Context) error {
	userID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	var prescriptions []models.Prescription
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&prescriptions).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, prescriptions)
}

// Metrics backs the reviewer dashboard counters.
func (h *ReviewHandler) Metrics(c echo.Context) error {
	weekAgo := time.Now().AddDate(0, 0, -7).Unix()

	var pending, approved, rejected int64
	if err := h.DB.Model(&models.Prescription{}).
		Where("status = ?", models.PrescriptionPending).Count(&pending).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.Model(&models.Prescription{}).
		Where("status = ? AND reviewed_at >= ?", models.PrescriptionApproved, weekAgo).Count(&approved).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.Model(&models.Prescription{}).
		Where("status = ? AND reviewed_at >= ?", models.PrescriptionRejected, weekAgo).Count(&rejected).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"pending_count":       pending,
		"approved_this_week":  approved,
		"rejected_this_week":  rejected,
		"processed_this_week": approved + rejected,
	})
}
