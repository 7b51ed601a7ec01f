package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/pkg/otp"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type otpRequest struct {
	Email string `json:"email" validate:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// ForgotPassword issues a new OTP and emails it
func (h *Handler) ForgotPassword(c echo.Context) error {
	return h.requestOTP(c, "OTP sent successfully")
}

// ResendOTP replaces any pending OTP with a fresh one
func (h *Handler) ResendOTP(c echo.Context) error {
	return h.requestOTP(c, "OTP resent successfully")
}

func (h *Handler) requestOTP(c echo.Context, message string) error {
	log := logger.FromContext(c)

	var req otpRequest
	if err := bind(c, &req, "Email is required"); err != nil {
		return err
	}
	email := strings.TrimSpace(req.Email)

	db := h.dbFor(c)
	var admin model.Admin
	err := db.Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prometheus.RecordOTP("request", "not_found")
		return apperror.NotFound("Admin not found")
	}
	if err != nil {
		return apperror.Internal("Failed to send OTP", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return apperror.Internal("Failed to generate OTP", err)
	}
	hash := otp.Hash(code)
	expires := otp.ExpiresAt(h.now().UTC(), h.otpTTL)

	err = db.Model(&admin).Updates(map[string]interface{}{
		"otp":            hash,
		"otp_expires_at": expires,
	}).Error
	if err != nil {
		return apperror.Internal("Failed to send OTP", err)
	}

	if err := h.mailer.SendOTP(c.Request().Context(), email, code); err != nil {
		prometheus.RecordOTP("request", "mail_failed")
		return apperror.Internal("Failed to send OTP", err)
	}

	prometheus.RecordOTP("request", "sent")
	log.Info("OTP issued", zap.Uint("user_id", admin.ID), zap.Time("expires_at", expires))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": message})
}

// VerifyOTP consumes a pending OTP. A code verifies at most once.
func (h *Handler) VerifyOTP(c echo.Context) error {
	log := logger.FromContext(c)

	var req verifyOTPRequest
	if err := bind(c, &req, "Email and OTP are required"); err != nil {
		return err
	}

	db := h.dbFor(c)
	now := h.now().UTC()

	var admin model.Admin
	err := db.Where("email = ? AND otp IS NOT NULL", strings.TrimSpace(req.Email)).First(&admin).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Internal("Failed to verify OTP", err)
	}
	if err != nil || admin.OTP == nil || admin.OTPExpiresAt == nil || !admin.OTPExpiresAt.After(now) {
		prometheus.RecordOTP("verify", "expired")
		return apperror.Validation("Invalid or expired OTP")
	}

	if !otp.Matches(strings.TrimSpace(req.OTP), *admin.OTP) {
		prometheus.RecordOTP("verify", "mismatch")
		log.Warn("OTP mismatch", zap.Uint("user_id", admin.ID))
		return apperror.Validation("Invalid OTP")
	}

	// Conditional on the hash so two concurrent verifications cannot both succeed.
	result := db.Model(&model.Admin{}).
		Where("id = ? AND otp = ?", admin.ID, *admin.OTP).
		Updates(map[string]interface{}{"otp": nil, "otp_expires_at": nil})
	if result.Error != nil {
		return apperror.Internal("Failed to verify OTP", result.Error)
	}
	if result.RowsAffected == 0 {
		prometheus.RecordOTP("verify", "expired")
		return apperror.Validation("Invalid or expired OTP")
	}

	prometheus.RecordOTP("verify", "success")
	log.Info("OTP verified", zap.Uint("user_id", admin.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "OTP verified successfully"})
}
