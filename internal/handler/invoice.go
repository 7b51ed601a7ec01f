package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/database"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// invoiceFields are the editable invoice columns shared by create and update.
type invoiceFields struct {
	Customer    json.RawMessage `json:"customer" validate:"required"`
	Items       json.RawMessage `json:"items" validate:"required"`
	InvoiceDate string          `json:"invoice_date"`
	DueDate     string          `json:"due_date"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DueAmount   decimal.Decimal `json:"due_amount"`
	PayType     string          `json:"pay_type"`
	SubInvoice  json.RawMessage `json:"sub_invoice"`
	Notes       string          `json:"notes"`
}

type createInvoiceRequest struct {
	UserID    model.FlexID `json:"user_id" validate:"required"`
	InvoiceID string       `json:"invoice_id" validate:"required"`
	invoiceFields
}

type updateInvoiceRequest struct {
	ID        model.FlexID `json:"id" validate:"required"`
	InvoiceID string       `json:"invoice_id"`
	invoiceFields
}

// checkSnapshots requires a customer object and an items array. Both are stored as sent,
// so fields this service does not read survive the round trip.
func (f *invoiceFields) checkSnapshots() error {
	var customer map[string]interface{}
	if err := json.Unmarshal(f.Customer, &customer); err != nil || customer == nil {
		return apperror.Validation("Missing required fields")
	}
	var items []model.InvoiceItem
	if err := json.Unmarshal(f.Items, &items); err != nil {
		return apperror.Validation("Invalid invoice items")
	}
	if items == nil {
		return apperror.Validation("Missing required fields")
	}
	return nil
}

func (f *invoiceFields) columns() map[string]interface{} {
	return map[string]interface{}{
		"customer":     datatypes.JSON(f.Customer),
		"items":        datatypes.JSON(f.Items),
		"invoice_date": f.InvoiceDate,
		"due_date":     f.DueDate,
		"subtotal":     f.Subtotal,
		"tax":          f.Tax,
		"discount":     f.Discount,
		"total":        f.Total,
		"paid_amount":  f.PaidAmount,
		"due_amount":   f.DueAmount,
		"pay_type":     f.PayType,
		"sub_invoice":  subInvoiceJSON(f.SubInvoice),
		"notes":        f.Notes,
	}
}

func subInvoiceJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

// CreateInvoice stores an invoice with its customer snapshot and line items
func (h *Handler) CreateInvoice(c echo.Context) error {
	log := logger.FromContext(c)

	var req createInvoiceRequest
	if err := bind(c, &req, "Missing required fields"); err != nil {
		return err
	}
	if err := req.checkSnapshots(); err != nil {
		return err
	}

	invoice := model.Invoice{
		UserID:      req.UserID.Uint(),
		InvoiceID:   req.InvoiceID,
		Customer:    datatypes.JSON(req.Customer),
		Items:       datatypes.JSON(req.Items),
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Subtotal:    req.Subtotal,
		Tax:         req.Tax,
		Discount:    req.Discount,
		Total:       req.Total,
		PaidAmount:  req.PaidAmount,
		DueAmount:   req.DueAmount,
		PayType:     req.PayType,
		SubInvoice:  subInvoiceJSON(req.SubInvoice),
		Notes:       req.Notes,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := ensureTenant(tx, invoice.UserID); err != nil {
			return err
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return apperror.Internal("Failed to add invoice", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Invoice created",
		zap.Uint("id", invoice.ID),
		zap.Uint("user_id", invoice.UserID),
		zap.String("invoice_id", invoice.InvoiceID))
	return c.JSON(http.StatusCreated, echo.Map{
		"success":   true,
		"message":   "Invoice added successfully",
		"invoiceId": invoice.ID,
	})
}

// ListInvoices returns a tenant's invoices, or every invoice without user_id
func (h *Handler) ListInvoices(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	invoices, err := listByTenant[model.Invoice](c, h.dbFor(c), "Invoice not found")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": invoices})
}

// UpdateInvoice replaces the editable fields of an invoice
func (h *Handler) UpdateInvoice(c echo.Context) error {
	log := logger.FromContext(c)

	var req updateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	if req.ID == 0 {
		return apperror.Validation("Invoice ID is required")
	}
	if err := c.Validate(&req); err != nil {
		return apperror.Validation("Missing required fields")
	}
	if err := req.checkSnapshots(); err != nil {
		return err
	}

	cols := req.columns()
	if req.InvoiceID != "" {
		cols["invoice_id"] = req.InvoiceID
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var invoice model.Invoice
	err := h.withLockedRow(c.Request().Context(), &invoice, req.ID.Uint(), "Invoice not found", func(tx *gorm.DB) error {
		if err := tx.Model(&invoice).Updates(cols).Error; err != nil {
			return apperror.Internal("Failed to update invoice", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Invoice updated", zap.Uint("id", invoice.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Invoice updated successfully"})
}

// DeleteInvoice removes an invoice by id
func (h *Handler) DeleteInvoice(c echo.Context) error {
	log := logger.FromContext(c)

	var req idRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return apperror.Validation("Invoice ID is required")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var invoice model.Invoice
	err := h.withLockedRow(c.Request().Context(), &invoice, req.ID.Uint(), "Invoice not found", func(tx *gorm.DB) error {
		if err := tx.Delete(&invoice).Error; err != nil {
			return apperror.Internal("Failed to delete invoice", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Invoice deleted", zap.Uint("id", invoice.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Invoice deleted successfully"})
}

// SingleInvoice returns one invoice by row id
func (h *Handler) SingleInvoice(c echo.Context) error {
	id, err := model.ParseFlexID(c.QueryParam("id"))
	if err != nil || id == 0 {
		return apperror.Validation("Invoice ID is required")
	}

	var invoice model.Invoice
	err = h.dbFor(c).First(&invoice, id.Uint()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("Invoice not found")
	}
	if err != nil {
		return apperror.Internal("Failed to retrieve invoice", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": invoice})
}

// CustomerInvoices returns the invoices whose customer snapshot carries the given id.
// Without an id every invoice is returned.
func (h *Handler) CustomerInvoices(c echo.Context) error {
	raw := c.QueryParam("id")
	db := h.dbFor(c).Order("id")

	var invoices []model.Invoice
	if raw == "" {
		if err := db.Find(&invoices).Error; err != nil {
			return apperror.Internal("Failed to retrieve invoices", err)
		}
		if invoices == nil {
			invoices = []model.Invoice{}
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": invoices})
	}

	id, err := model.ParseFlexID(raw)
	if err != nil {
		return apperror.Validation("Invalid customer id")
	}

	// snapshot ids may have been sent as numbers or as strings
	var query *gorm.DB
	if database.IsSQLite(h.db) {
		query = db.Where("CAST(json_extract(CAST(customer AS TEXT), '$.id') AS INTEGER) = ?", int64(id))
	} else {
		query = db.Where("customer->>'id' = ?", strconv.FormatInt(int64(id), 10))
	}
	if err := query.Find(&invoices).Error; err != nil {
		return apperror.Internal("Failed to retrieve invoices", err)
	}
	if len(invoices) == 0 {
		return apperror.NotFound("No invoices found for this customer")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": invoices})
}
