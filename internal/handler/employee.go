package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/pkg/password"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createEmployeeRequest struct {
	UserID     model.FlexID `json:"user_id" validate:"required"`
	EmployeeID string       `json:"employee_id" validate:"required"`
	Name       string       `json:"name" validate:"required"`
	Email      string       `json:"email" validate:"required"`
	Contact    string       `json:"contact" validate:"required"`
	Department string       `json:"department" validate:"required"`
	Role       string       `json:"role" validate:"required"`
	Status     string       `json:"status" validate:"required"`
	Password   string       `json:"password" validate:"required"`
}

type updateEmployeeRequest struct {
	ID         model.FlexID `json:"id" validate:"required"`
	EmployeeID string       `json:"employee_id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Contact    string       `json:"contact"`
	Department string       `json:"department"`
	Role       string       `json:"role"`
	Status     string       `json:"status"`
}

// CreateEmployee adds an employee login to a tenant
func (h *Handler) CreateEmployee(c echo.Context) error {
	log := logger.FromContext(c)

	var req createEmployeeRequest
	if err := bind(c, &req, "Missing required fields"); err != nil {
		return err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return apperror.Internal("Failed to create employee", err)
	}

	employee := model.Employee{
		UserID:     req.UserID.Uint(),
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Email:      strings.TrimSpace(req.Email),
		Contact:    req.Contact,
		Department: req.Department,
		Role:       req.Role,
		Status:     req.Status,
		Password:   hashed,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := ensureTenant(tx, employee.UserID); err != nil {
			return err
		}

		var count int64
		err := tx.Model(&model.Employee{}).
			Where("user_id = ? AND email = ?", employee.UserID, employee.Email).
			Count(&count).Error
		if err != nil {
			return apperror.Internal("Failed to create employee", err)
		}
		if count > 0 {
			return apperror.Conflict("This email already exists")
		}

		if err := tx.Create(&employee).Error; err != nil {
			return apperror.Internal("Failed to create employee", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Employee created",
		zap.Uint("id", employee.ID),
		zap.Uint("user_id", employee.UserID),
		zap.String("role", employee.Role))
	return c.JSON(http.StatusCreated, echo.Map{
		"success":    true,
		"message":    "Employee created successfully",
		"employeeId": employee.ID,
	})
}

// ListEmployees returns a tenant's employees, or every employee without user_id
func (h *Handler) ListEmployees(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	employees, err := listByTenant[model.Employee](c, h.dbFor(c), "Employee not found")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": employees})
}

// UpdateEmployee replaces an employee's editable fields. The password is not editable here.
func (h *Handler) UpdateEmployee(c echo.Context) error {
	log := logger.FromContext(c)

	var req updateEmployeeRequest
	if err := bind(c, &req, "Employee ID is required"); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var employee model.Employee
	err := h.withLockedRow(c.Request().Context(), &employee, req.ID.Uint(), "Employee not found", func(tx *gorm.DB) error {
		err := tx.Model(&employee).Updates(map[string]interface{}{
			"employee_id": req.EmployeeID,
			"name":        req.Name,
			"email":       strings.TrimSpace(req.Email),
			"contact":     req.Contact,
			"department":  req.Department,
			"role":        req.Role,
			"status":      req.Status,
		}).Error
		if err != nil {
			return apperror.Internal("Failed to update employee", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Employee updated", zap.Uint("id", employee.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Employee updated successfully"})
}

// DeleteEmployee removes an employee by id
func (h *Handler) DeleteEmployee(c echo.Context) error {
	log := logger.FromContext(c)

	var req idRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return apperror.Validation("Employee ID is required")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var employee model.Employee
	err := h.withLockedRow(c.Request().Context(), &employee, req.ID.Uint(), "Employee not found", func(tx *gorm.DB) error {
		if err := tx.Delete(&employee).Error; err != nil {
			return apperror.Internal("Failed to delete employee", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Employee deleted", zap.Uint("id", employee.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Employee deleted successfully"})
}
