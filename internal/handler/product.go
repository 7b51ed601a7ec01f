package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertBatchSize bounds the rows per INSERT statement so large stocks stay under driver parameter limits.
const insertBatchSize = 500

type productInput struct {
	UserID      model.FlexID             `json:"user_id" validate:"required"`
	ProductID   string                   `json:"product_id" validate:"required"`
	Name        string                   `json:"name" validate:"required"`
	Description string                   `json:"description"`
	Price       decimal.Decimal          `json:"price"`
	Category    string                   `json:"category" validate:"required"`
	Stock       *int                     `json:"stock" validate:"required"`
	Unit        string                   `json:"unit" validate:"required"`
	Attribute   []model.ProductAttribute `json:"attribute"`
}

type productUpdate struct {
	ProductID   string                   `json:"product_id" validate:"required"`
	Name        string                   `json:"name" validate:"required"`
	Description string                   `json:"description"`
	Price       decimal.Decimal          `json:"price"`
	Category    string                   `json:"category" validate:"required"`
	Unit        string                   `json:"unit" validate:"required"`
	Attribute   []model.ProductAttribute `json:"attribute"`
}

func trimAttributes(attrs []model.ProductAttribute) []model.ProductAttribute {
	out := make([]model.ProductAttribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, model.ProductAttribute{
			Name:  strings.TrimSpace(a.Name),
			Value: strings.TrimSpace(a.Value),
		})
	}
	return out
}

// unitRow is the single-unit row every stock unit of in is stored as.
func unitRow(in productInput) model.Product {
	return model.Product{
		UserID:      in.UserID.Uint(),
		ProductID:   strings.TrimSpace(in.ProductID),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		Stock:       1,
		Unit:        strings.TrimSpace(in.Unit),
		Attribute:   datatypes.NewJSONType(trimAttributes(in.Attribute)),
	}
}

// insertUnits writes stock rows of one unit each, at most insertBatchSize per statement.
func insertUnits(tx *gorm.DB, in productInput) error {
	row := unitRow(in)
	for left := *in.Stock; left > 0; left -= insertBatchSize {
		n := min(left, insertBatchSize)
		batch := make([]model.Product, n)
		for i := range batch {
			batch[i] = row
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateProducts bulk-creates products. Each input with stock N becomes N unit rows sharing product_id.
// Any invalid item rejects the whole request.
func (h *Handler) CreateProducts(c echo.Context) error {
	log := logger.FromContext(c)

	var body struct {
		Products json.RawMessage `json:"products"`
	}
	if err := c.Bind(&body); err != nil {
		return apperror.Validation("Expected an array of products")
	}
	raw := bytes.TrimSpace(body.Products)
	if len(raw) == 0 || raw[0] != '[' {
		return apperror.Validation("Expected an array of products")
	}

	var items []productInput
	if err := json.Unmarshal(raw, &items); err != nil {
		return apperror.Validation("Invalid product data")
	}
	if len(items) == 0 {
		return apperror.Validation("No products provided")
	}

	units := 0
	tenants := map[uint]struct{}{}
	for i, item := range items {
		if err := c.Validate(&item); err != nil || item.Price.IsZero() || *item.Stock < 1 {
			label := item.ProductID
			if label == "" {
				label = fmt.Sprintf("item %d", i)
			}
			return apperror.Validation("Missing required fields for " + label)
		}
		if *item.Stock > h.maxUnits-units {
			return apperror.Validation(fmt.Sprintf("Too many units in one request (max %d)", h.maxUnits))
		}
		units += *item.Stock
		tenants[item.UserID.Uint()] = struct{}{}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		for userID := range tenants {
			if err := ensureTenant(tx, userID); err != nil {
				return err
			}
		}
		for _, item := range items {
			if err := insertUnits(tx, item); err != nil {
				return apperror.Internal("Failed to create products", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	prometheus.RecordProductUnits("created", units)
	log.Info("Products created",
		zap.Int("items", len(items)),
		zap.Int("units", units))
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": fmt.Sprintf("%d product(s) created", units),
	})
}

// ListProducts returns a tenant's product units, or every unit without user_id
func (h *Handler) ListProducts(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	products, err := listByTenant[model.Product](c, h.dbFor(c), "Product not found")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": products})
}

// decodeProductUpdates accepts a single product object or an array of them.
func decodeProductUpdates(body []byte) ([]productUpdate, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, apperror.Validation("No products provided")
	}

	var items []productUpdate
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, apperror.Validation("Invalid product data")
		}
	case '{':
		var item productUpdate
		if err := json.Unmarshal(body, &item); err != nil {
			return nil, apperror.Validation("Invalid product data")
		}
		items = append(items, item)
	default:
		return nil, apperror.Validation("Invalid product data")
	}

	if len(items) == 0 {
		return nil, apperror.Validation("No products provided")
	}
	return items, nil
}

// UpdateProducts updates every unit of each product_id in one transaction.
// Each product's rows are locked before the update; any failure rolls back the whole batch.
func (h *Handler) UpdateProducts(c echo.Context) error {
	log := logger.FromContext(c)

	body, err := readBody(c)
	if err != nil {
		return err
	}
	items, err := decodeProductUpdates(body)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	tx := h.dbFor(c).Begin()
	if tx.Error != nil {
		return apperror.Internal("Failed to update products", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	updated := 0
	for _, item := range items {
		if err := c.Validate(&item); err != nil || item.Price.IsZero() {
			tx.Rollback()
			return apperror.Validation("Missing required fields for " + item.ProductID)
		}

		var units []model.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", item.ProductID).
			Find(&units).Error
		if err != nil {
			tx.Rollback()
			return apperror.Internal("Failed to update products", err)
		}
		if len(units) == 0 {
			tx.Rollback()
			log.Warn("Bulk update rolled back", zap.String("missing_product_id", item.ProductID))
			return apperror.NotFound("Product not found: " + item.ProductID)
		}

		result := tx.Model(&model.Product{}).
			Where("product_id = ?", item.ProductID).
			Updates(map[string]interface{}{
				"name":        strings.TrimSpace(item.Name),
				"description": strings.TrimSpace(item.Description),
				"price":       item.Price,
				"category":    strings.TrimSpace(item.Category),
				"unit":        strings.TrimSpace(item.Unit),
				"attribute":   datatypes.NewJSONType(trimAttributes(item.Attribute)),
			})
		if result.Error != nil {
			tx.Rollback()
			return apperror.Internal("Failed to update products", result.Error)
		}
		updated += int(result.RowsAffected)
	}

	if err := tx.Commit().Error; err != nil {
		return apperror.Internal("Failed to update products", err)
	}

	log.Info("Products updated",
		zap.Int("items", len(items)),
		zap.Int("units", updated))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product(s) updated successfully"})
}

// ExportProducts streams a tenant's products as an XLSX workbook, one row per product_id.
func (h *Handler) ExportProducts(c echo.Context) error {
	log := logger.FromContext(c)

	userID, scoped, err := tenantQuery(c)
	if err != nil {
		return err
	}
	if !scoped {
		return apperror.Validation("User ID is required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var units []model.Product
	if err := h.dbFor(c).Where("user_id = ?", userID).Order("product_id, id").Find(&units).Error; err != nil {
		return apperror.Internal("Failed to retrieve products", err)
	}
	if len(units) == 0 {
		return apperror.NotFound("Product not found")
	}

	buf, err := buildProductWorkbook(summarizeProducts(units))
	if err != nil {
		return apperror.Internal("Failed to build product report", err)
	}

	log.Info("Products exported", zap.Uint("user_id", userID), zap.Int("units", len(units)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.xlsx"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
