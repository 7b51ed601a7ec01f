package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertTenantRow locks the tenant's settings row and either updates it with cols or creates row.
// It reports whether a row was created and how many rows were updated.
func upsertTenantRow(tx *gorm.DB, userID uint, existing interface{}, row interface{}, cols map[string]interface{}) (bool, int64, error) {
	if err := ensureTenant(tx, userID); err != nil {
		return false, 0, err
	}

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(row).Error; err != nil {
			return false, 0, apperror.Internal("Failed to save settings", err)
		}
		return true, 0, nil
	}
	if err != nil {
		return false, 0, apperror.Internal("Failed to save settings", err)
	}

	result := tx.Model(existing).Where("user_id = ?", userID).Updates(cols)
	if result.Error != nil {
		return false, 0, apperror.Internal("Failed to save settings", result.Error)
	}
	return false, result.RowsAffected, nil
}

// tenantRequired parses the mandatory user_id query parameter.
func tenantRequired(c echo.Context) (uint, error) {
	userID, scoped, err := tenantQuery(c)
	if err != nil {
		return 0, err
	}
	if !scoped {
		return 0, apperror.Validation("User ID is required")
	}
	return userID, nil
}

// GetCurrency returns the tenant's currency rows
func (h *Handler) GetCurrency(c echo.Context) error {
	rows, err := listByTenant[model.Currency](c, h.dbFor(c), "Currency not found")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

type currencyRequest struct {
	UserID   model.FlexID `json:"user_id" validate:"required"`
	Currency string       `json:"currency" validate:"required"`
}

// UpsertCurrency creates or replaces the tenant's currency
func (h *Handler) UpsertCurrency(c echo.Context) error {
	log := logger.FromContext(c)

	var req currencyRequest
	if err := bind(c, &req, "User ID and currency are required"); err != nil {
		return err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Currency))
	if code == "" {
		return apperror.Validation("User ID and currency are required")
	}

	defer prometheus.TrackDBOperation("upsert")(time.Now())
	row := model.Currency{UserID: req.UserID.Uint(), Currency: code}
	var created bool
	var affected int64
	err := h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		var err error
		created, affected, err = upsertTenantRow(tx, row.UserID, &model.Currency{}, &row,
			map[string]interface{}{"currency": code})
		return err
	})
	if err != nil {
		return err
	}

	log.Info("Currency saved", zap.Uint("user_id", row.UserID), zap.String("currency", code))
	if created {
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Currency created", "id": row.ID})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Currency updated", "affectedRows": affected})
}

// GetGeneral returns the tenant's option lists
func (h *Handler) GetGeneral(c echo.Context) error {
	rows, err := listByTenant[model.General](c, h.dbFor(c), "General settings not found")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

var (
	requiredGeneralLists = []string{"department", "role", "category"}
	optionalGeneralLists = []string{"size", "color", "material", "weight"}
)

// generalLists validates the option lists of a generals body and returns them keyed by column.
func generalLists(body map[string]json.RawMessage) (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	for _, key := range requiredGeneralLists {
		raw := bytes.TrimSpace(body[key])
		if len(raw) == 0 || raw[0] != '[' {
			return nil, apperror.Validation(key + " must be an array")
		}
		cols[key] = datatypes.JSON(raw)
	}
	for _, key := range optionalGeneralLists {
		raw := bytes.TrimSpace(body[key])
		switch {
		case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
			cols[key] = datatypes.JSON("[]")
		case raw[0] == '[':
			cols[key] = datatypes.JSON(raw)
		default:
			return nil, apperror.Validation(key + " must be an array")
		}
	}
	return cols, nil
}

// UpsertGeneral creates or replaces the tenant's option lists
func (h *Handler) UpsertGeneral(c echo.Context) error {
	log := logger.FromContext(c)

	raw, err := readBody(c)
	if err != nil {
		return err
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return apperror.Validation("Invalid request body")
	}

	var userID model.FlexID
	if err := json.Unmarshal(body["user_id"], &userID); err != nil || userID == 0 {
		return apperror.Validation("User ID is required")
	}
	cols, err := generalLists(body)
	if err != nil {
		return err
	}

	row := model.General{
		UserID:     userID.Uint(),
		Department: cols["department"].(datatypes.JSON),
		Role:       cols["role"].(datatypes.JSON),
		Category:   cols["category"].(datatypes.JSON),
		Size:       cols["size"].(datatypes.JSON),
		Color:      cols["color"].(datatypes.JSON),
		Material:   cols["material"].(datatypes.JSON),
		Weight:     cols["weight"].(datatypes.JSON),
	}

	defer prometheus.TrackDBOperation("upsert")(time.Now())
	var created bool
	var affected int64
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		var err error
		created, affected, err = upsertTenantRow(tx, row.UserID, &model.General{}, &row, cols)
		return err
	})
	if err != nil {
		return err
	}

	log.Info("General settings saved", zap.Uint("user_id", row.UserID), zap.Bool("created", created))
	if created {
		return c.JSON(http.StatusCreated, echo.Map{
			"success": true,
			"message": "General settings created",
			"data":    echo.Map{"id": row.ID},
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "General settings updated",
		"data":    echo.Map{"affectedRows": affected},
	})
}

// GetTerms returns the tenant's terms and conditions
func (h *Handler) GetTerms(c echo.Context) error {
	userID, err := tenantRequired(c)
	if err != nil {
		return err
	}

	var term model.Term
	err = h.dbFor(c).Where("user_id = ?", userID).First(&term).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("Terms not found").
			WithData("data", echo.Map{"terms": []interface{}{}})
	}
	if err != nil {
		return apperror.Internal("Failed to retrieve terms", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"terms": term.Terms}})
}

type termsRequest struct {
	Terms json.RawMessage `json:"terms"`
}

// UpsertTerms creates or replaces the terms of the tenant named by the user_id header
func (h *Handler) UpsertTerms(c echo.Context) error {
	log := logger.FromContext(c)

	userID, err := tenantHeader(c)
	if err != nil {
		return err
	}
	var req termsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	terms := bytes.TrimSpace(req.Terms)
	if len(terms) == 0 || bytes.Equal(terms, []byte("null")) {
		return apperror.Validation("Terms are required")
	}

	defer prometheus.TrackDBOperation("upsert")(time.Now())
	row := model.Term{UserID: userID, Terms: datatypes.JSON(terms)}
	var created bool
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		var err error
		created, _, err = upsertTenantRow(tx, userID, &model.Term{}, &row,
			map[string]interface{}{"terms": datatypes.JSON(terms)})
		return err
	})
	if err != nil {
		return err
	}

	log.Info("Terms saved", zap.Uint("user_id", userID), zap.Bool("created", created))
	if created {
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Terms created"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Terms updated"})
}

// GetPermissions returns the tenant's role permissions, or an empty list
func (h *Handler) GetPermissions(c echo.Context) error {
	userID, err := tenantRequired(c)
	if err != nil {
		return err
	}

	var perm model.Permission
	err = h.dbFor(c).Where("user_id = ?", userID).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": []model.RolePermission{}})
	}
	if err != nil {
		return apperror.Internal("Failed to retrieve permissions", err)
	}

	data := perm.Permissions.Data()
	if data == nil {
		data = []model.RolePermission{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

// UpsertPermissions replaces the role permissions of the tenant named by the user_id header
func (h *Handler) UpsertPermissions(c echo.Context) error {
	log := logger.FromContext(c)

	userID, err := tenantHeader(c)
	if err != nil {
		return err
	}
	raw, err := readBody(c)
	if err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	var perms []model.RolePermission
	if len(raw) == 0 || raw[0] != '[' || json.Unmarshal(raw, &perms) != nil {
		return apperror.Validation("Invalid data format")
	}
	for i := range perms {
		perms[i].Role = strings.TrimSpace(perms[i].Role)
		if perms[i].AllowedModules == nil {
			perms[i].AllowedModules = []string{}
		}
	}

	defer prometheus.TrackDBOperation("upsert")(time.Now())
	value := datatypes.NewJSONType(perms)
	row := model.Permission{UserID: userID, Permissions: value}
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		_, _, err := upsertTenantRow(tx, userID, &model.Permission{}, &row,
			map[string]interface{}{"permissions": value})
		return err
	})
	if err != nil {
		return err
	}

	log.Info("Permissions saved", zap.Uint("user_id", userID), zap.Int("roles", len(perms)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Permissions updated successfully"})
}
