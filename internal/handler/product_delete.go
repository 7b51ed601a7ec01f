package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type deletionKind int

const (
	deleteByRowID deletionKind = iota
	deleteUnits
	deleteAllUnits
)

type unitCount struct {
	ProductID string
	Count     int
}

// productDeletion is a decoded DELETE /products body.
type productDeletion struct {
	Kind      deletionKind
	RowID     uint
	Units     []unitCount
	ProductID string
}

// parseProductDeletion decodes {id}, {product_id: [...]} or {product_id: "..."}.
// Repeated ids in a list are counted, in order of first occurrence.
func parseProductDeletion(body []byte) (*productDeletion, error) {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		ProductID json.RawMessage `json:"product_id"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperror.Validation("Invalid request body")
	}

	// a zero, empty or null id counts as absent
	if id := bytes.TrimSpace(raw.ID); len(id) > 0 {
		var rowID model.FlexID
		if err := json.Unmarshal(id, &rowID); err != nil {
			return nil, apperror.Validation("Invalid product id")
		}
		if rowID != 0 {
			return &productDeletion{Kind: deleteByRowID, RowID: rowID.Uint()}, nil
		}
	}

	pid := bytes.TrimSpace(raw.ProductID)
	if len(pid) == 0 || bytes.Equal(pid, []byte("null")) {
		return nil, apperror.Validation("id or product_id is required")
	}

	if pid[0] == '[' {
		var list []interface{}
		if err := json.Unmarshal(pid, &list); err != nil {
			return nil, apperror.Validation("Invalid product_id list")
		}
		counts := map[string]int{}
		var order []string
		for _, v := range list {
			s, err := cast.ToStringE(v)
			if err != nil || strings.TrimSpace(s) == "" {
				return nil, apperror.Validation("Invalid product_id list")
			}
			s = strings.TrimSpace(s)
			if counts[s] == 0 {
				order = append(order, s)
			}
			counts[s]++
		}
		if len(order) == 0 {
			return nil, apperror.Validation("id or product_id is required")
		}
		units := make([]unitCount, 0, len(order))
		for _, p := range order {
			units = append(units, unitCount{ProductID: p, Count: counts[p]})
		}
		return &productDeletion{Kind: deleteUnits, Units: units}, nil
	}

	var single interface{}
	if err := json.Unmarshal(pid, &single); err != nil {
		return nil, apperror.Validation("Invalid product_id")
	}
	s, err := cast.ToStringE(single)
	if err != nil || strings.TrimSpace(s) == "" {
		return nil, apperror.Validation("id or product_id is required")
	}
	return &productDeletion{Kind: deleteAllUnits, ProductID: strings.TrimSpace(s)}, nil
}

// DeleteProducts removes one row by id, n units per listed product_id, or every unit of a product_id.
func (h *Handler) DeleteProducts(c echo.Context) error {
	log := logger.FromContext(c)

	body, err := readBody(c)
	if err != nil {
		return err
	}
	del, err := parseProductDeletion(body)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var deleted int64
	switch del.Kind {
	case deleteByRowID:
		var product model.Product
		err = h.withLockedRow(c.Request().Context(), &product, del.RowID, "Product not found", func(tx *gorm.DB) error {
			result := tx.Delete(&product)
			if result.Error != nil {
				return apperror.Internal("Failed to delete product", result.Error)
			}
			deleted = result.RowsAffected
			return nil
		})

	case deleteUnits:
		err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
			for _, u := range del.Units {
				sub := tx.Model(&model.Product{}).
					Select("id").
					Where("product_id = ?", u.ProductID).
					Order("id").
					Limit(u.Count)
				result := tx.Where("id IN (?)", sub).Delete(&model.Product{})
				if result.Error != nil {
					return apperror.Internal("Failed to delete products", result.Error)
				}
				deleted += result.RowsAffected
			}
			if deleted == 0 {
				return apperror.NotFound("No products found to delete")
			}
			return nil
		})

	case deleteAllUnits:
		result := h.dbFor(c).Where("product_id = ?", del.ProductID).Delete(&model.Product{})
		if result.Error != nil {
			return apperror.Internal("Failed to delete products", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("No products found")
		}
		deleted = result.RowsAffected
	}
	if err != nil {
		return err
	}

	prometheus.RecordProductUnits("deleted", int(deleted))
	log.Info("Products deleted", zap.Int64("units", deleted))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("%d product(s) deleted", deleted),
	})
}
