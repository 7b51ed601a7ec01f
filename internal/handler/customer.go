package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createCustomerRequest struct {
	UserID     model.FlexID `json:"user_id" validate:"required"`
	CustomerID string       `json:"customer_id" validate:"required"`
	Name       string       `json:"name" validate:"required"`
	Delivery   string       `json:"delivery" validate:"required"`
	Email      string       `json:"email" validate:"required"`
	Contact    string       `json:"contact" validate:"required"`
	Status     string       `json:"status"`
}

type updateCustomerRequest struct {
	ID         model.FlexID `json:"id" validate:"required"`
	CustomerID string       `json:"customer_id"`
	Name       string       `json:"name"`
	Delivery   string       `json:"delivery"`
	Email      string       `json:"email"`
	Contact    string       `json:"contact"`
	Status     string       `json:"status"`
}

// CreateCustomer adds a customer to a tenant
func (h *Handler) CreateCustomer(c echo.Context) error {
	log := logger.FromContext(c)

	var req createCustomerRequest
	if err := bind(c, &req, "Missing required fields"); err != nil {
		return err
	}

	customer := model.Customer{
		UserID:     req.UserID.Uint(),
		CustomerID: req.CustomerID,
		Name:       req.Name,
		Delivery:   req.Delivery,
		Email:      req.Email,
		Contact:    req.Contact,
		Status:     req.Status,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := ensureTenant(tx, customer.UserID); err != nil {
			return err
		}
		if err := tx.Create(&customer).Error; err != nil {
			return apperror.Internal("Failed to create customer", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Customer created",
		zap.Uint("id", customer.ID),
		zap.Uint("user_id", customer.UserID))
	return c.JSON(http.StatusCreated, echo.Map{
		"success":    true,
		"message":    "Customer created successfully",
		"customerId": customer.ID,
	})
}

// ListCustomers returns a tenant's customers, or every customer without user_id
func (h *Handler) ListCustomers(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	customers, err := listByTenant[model.Customer](c, h.dbFor(c), "Customer not found")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": customers})
}

// UpdateCustomer replaces a customer's editable fields
func (h *Handler) UpdateCustomer(c echo.Context) error {
	log := logger.FromContext(c)

	var req updateCustomerRequest
	if err := bind(c, &req, "Customer ID is required"); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var customer model.Customer
	err := h.withLockedRow(c.Request().Context(), &customer, req.ID.Uint(), "Customer not found", func(tx *gorm.DB) error {
		err := tx.Model(&customer).Updates(map[string]interface{}{
			"customer_id": req.CustomerID,
			"name":        req.Name,
			"delivery":    req.Delivery,
			"email":       req.Email,
			"contact":     req.Contact,
			"status":      req.Status,
		}).Error
		if err != nil {
			return apperror.Internal("Failed to update customer", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Customer updated", zap.Uint("id", customer.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Customer updated successfully"})
}

// DeleteCustomer removes a customer by id
func (h *Handler) DeleteCustomer(c echo.Context) error {
	log := logger.FromContext(c)

	var req idRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return apperror.Validation("Customer ID is required")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var customer model.Customer
	err := h.withLockedRow(c.Request().Context(), &customer, req.ID.Uint(), "Customer not found", func(tx *gorm.DB) error {
		if err := tx.Delete(&customer).Error; err != nil {
			return apperror.Internal("Failed to delete customer", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Customer deleted", zap.Uint("id", customer.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Customer deleted successfully"})
}
