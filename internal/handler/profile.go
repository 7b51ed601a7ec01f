package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type profileData struct {
	ID       model.FlexID `json:"id"`
	Name     string       `json:"name"`
	LastName string       `json:"last_name"`
	Contact  string       `json:"contact"`
	Company  string       `json:"company"`
	Address  string       `json:"address"`
}

// UpdateProfile updates the signed-in admin's profile from a multipart form and re-issues the token.
// The "data" field carries the JSON profile; "image" and "logo" are optional files.
func (h *Handler) UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)

	raw := c.FormValue("data")
	if raw == "" {
		return apperror.Validation("Missing profile data")
	}
	var data profileData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return apperror.Validation("Invalid profile data")
	}
	if data.ID == 0 {
		return apperror.Validation("User ID is required")
	}

	updates := map[string]interface{}{
		"name":      data.Name,
		"last_name": data.LastName,
		"contact":   data.Contact,
		"company":   data.Company,
		"address":   data.Address,
	}

	// files written by this request, removed again unless the update commits
	var stored []string
	committed := false
	defer func() {
		if committed {
			return
		}
		for _, f := range stored {
			if err := os.Remove(f); err != nil {
				log.Warn("Failed to remove upload", zap.String("file", f), zap.Error(err))
			}
		}
	}()

	var imagePath, logoPath string
	for _, field := range []string{"image", "logo"} {
		file, err := c.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return apperror.Validation("Invalid " + field + " upload")
		}
		url, onDisk, err := h.saveUpload(file, field+"s")
		if err != nil {
			return apperror.Internal("Failed to store "+field, err)
		}
		stored = append(stored, onDisk)
		updates[field] = url
		if field == "image" {
			imagePath = url
		} else {
			logoPath = url
		}
	}

	var admin model.Admin
	err := h.withLockedRow(c.Request().Context(), &admin, data.ID.Uint(), "User not found", func(tx *gorm.DB) error {
		if err := tx.Model(&admin).Updates(updates).Error; err != nil {
			return apperror.Internal("Failed to update user", err)
		}
		if err := tx.First(&admin, admin.ID).Error; err != nil {
			return apperror.Internal("Failed to update user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	committed = true

	token, err := h.jwt.GenerateToken(adminClaims(&admin))
	if err != nil {
		return apperror.Internal("Failed to update user", err)
	}

	log.Info("Profile updated",
		zap.Uint("user_id", admin.ID),
		zap.Bool("image_uploaded", imagePath != ""),
		zap.Bool("logo_uploaded", logoPath != ""))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User updated successfully",
		"token":   token,
		"admin":   admin,
		"image":   admin.Image,
		"logo":    admin.Logo,
	})
}
