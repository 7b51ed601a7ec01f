package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"gorm.io/datatypes"
)

// InvoiceItem is the part of an invoice line the dashboard aggregates.
// The stored line keeps every field the client sent.
type InvoiceItem struct {
	ProductID string `json:"product_id"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// UnmarshalJSON accepts product ids and quantities as JSON numbers or strings.
func (it *InvoiceItem) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	qty := 0
	if s, ok := raw["quantity"].(string); !ok || strings.TrimSpace(s) != "" {
		v, err := cast.ToIntE(raw["quantity"])
		if err != nil {
			return fmt.Errorf("invalid quantity %v: %w", raw["quantity"], err)
		}
		qty = v
	}

	*it = InvoiceItem{
		ProductID: cast.ToString(raw["product_id"]),
		Product:   cast.ToString(raw["product"]),
		Quantity:  qty,
	}
	return nil
}

type Invoice struct {
	ID          uint            `json:"id" gorm:"primarykey"`
	UserID      uint            `json:"user_id" gorm:"index;not null"`
	InvoiceID   string          `json:"invoice_id" gorm:"type:varchar(100);not null"`
	Customer    datatypes.JSON  `json:"customer"`
	Items       datatypes.JSON  `json:"items"`
	InvoiceDate string          `json:"invoice_date" gorm:"type:varchar(30)"`
	DueDate     string          `json:"due_date" gorm:"type:varchar(30)"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);default:0"`
	Tax         decimal.Decimal `json:"tax" gorm:"type:decimal(12,2);default:0"`
	Discount    decimal.Decimal `json:"discount" gorm:"type:decimal(12,2);default:0"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(12,2);default:0"`
	PaidAmount  decimal.Decimal `json:"paid_amount" gorm:"type:decimal(12,2);default:0"`
	DueAmount   decimal.Decimal `json:"due_amount" gorm:"type:decimal(12,2);default:0"`
	PayType     string          `json:"pay_type" gorm:"type:varchar(50)"`
	SubInvoice  datatypes.JSON  `json:"sub_invoice"`
	Notes       string          `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LineItems decodes the stored items into their typed view.
func (inv *Invoice) LineItems() ([]InvoiceItem, error) {
	if len(inv.Items) == 0 {
		return nil, nil
	}
	var items []InvoiceItem
	if err := json.Unmarshal([]byte(inv.Items), &items); err != nil {
		return nil, err
	}
	return items, nil
}
