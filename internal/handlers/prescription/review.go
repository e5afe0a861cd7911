package prescription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/apperr"
	"github.com/medstore/api/internal/handlers"
	"github.com/medstore/api/internal/models"
	"github.com/medstore/api/internal/mykafka"
	"github.com/medstore/api/internal/notify"
)

// Notifier delivers the review outcome to the buyer. Failures are logged,
// never surfaced: a lost email must not roll back a completed review.
type Notifier interface {
	SendReviewNotification(ctx context.Context, n notify.ReviewNotification) error
}

// URLSigner issues a time-bounded link to a stored prescription document.
type URLSigner interface {
	SignedURL(publicID string, ttl time.Duration) (string, error)
}

type ReviewHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Notifier Notifier
	Signer   URLSigner
	Log      *slog.Logger
}

// FileURLTTL bounds reviewer access to the sensitive document.
const FileURLTTL = 120 * time.Second

// Review resolves a pending prescription exactly once. The pending ->
// approved|rejected transition is a guarded update; a second review attempt
// gets AlreadyReviewed and the first decision stands.
func (h *ReviewHandler) Review(c echo.Context) error {
	reviewerID, err := handlers.UserID(c)
	if err != nil {
		return apperr.JSON(c, err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return apperr.JSON(c, fmt.Errorf("%w: invalid prescription id", apperr.ErrInvalidInput))
	}

	var req struct {
		Decision        string `json:"decision"`
		Comments        string `json:"comments"`
		RejectionReason string `json:"rejection_reason"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	if req.Decision != models.PrescriptionApproved && req.Decision != models.PrescriptionRejected {
		return apperr.JSON(c, fmt.Errorf("%w: decision must be approved or rejected", apperr.ErrInvalidInput))
	}

	now := time.Now().Unix()
	updates := map[string]any{
		"status":      req.Decision,
		"reviewer_id": reviewerID,
		"reviewed_at": now,
	}
	if req.Decision == models.PrescriptionApproved {
		updates["approval_comments"] = req.Comments
	} else {
		updates["rejection_reason"] = req.RejectionReason
	}

	res := h.DB.Model(&models.Prescription{}).
		Where("id = ? AND status = ?", id, models.PrescriptionPending).
		Updates(updates)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		var p models.Prescription
		if err := h.DB.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.JSON(c, fmt.Errorf("%w: prescription %d", apperr.ErrNotFound, id))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return apperr.JSON(c, fmt.Errorf("%w: prescription is already %s", apperr.ErrAlreadyReviewed, p.Status))
	}

	var reviewer models.User
	reviewerName := "Pharmacist"
	if err := h.DB.First(&reviewer, reviewerID).Error; err == nil {
		reviewerName = reviewer.Username
	}

	h.notifyAsync(notify.ReviewNotification{
		PrescriptionID:  uint(id),
		Decision:        req.Decision,
		ReviewerName:    reviewerName,
		Comments:        req.Comments,
		RejectionReason: req.RejectionReason,
	})

	h.publish(c, map[string]any{
		"type":           "prescription_reviewed",
		"prescriptionID": id,
		"decision":       req.Decision,
		"reviewerID":     reviewerID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"prescription_id": id,
		"status":          req.Decision,
		"reviewed_at":     now,
	})
}

// FileURL hands the reviewer a short-lived signed link to the document
// instead of a permanent public one.
func (h *ReviewHandler) FileURL(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return apperr.JSON(c, fmt.Errorf("%w: invalid prescription id", apperr.ErrInvalidInput))
	}

	var p models.Prescription
	if err := h.DB.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.JSON(c, fmt.Errorf("%w: prescription %d", apperr.ErrNotFound, id))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	url, err := h.Signer.SignedURL(p.FileReference, FileURLTTL)
	if err != nil {
		return apperr.JSON(c, fmt.Errorf("%w: %v", apperr.ErrUpstream, err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"url":        url,
		"expires_in": int(FileURLTTL.Seconds()),
	})
}

func (h *ReviewHandler) notifyAsync(n notify.ReviewNotification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Notifier.SendReviewNotification(ctx, n); err != nil {
			h.logger().Warn("review notification failed",
				"prescriptionID", n.PrescriptionID,
				"error", err,
			)
		}
	}()
}

func (h *ReviewHandler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func (h *ReviewHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "prescription_events", fmt.Sprint(event["prescriptionID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
