package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func init() {
	// Money is rendered as JSON numbers, as clients expect.
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductAttribute is one free-form name/value pair shown on a product.
type ProductAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product is a single stock unit. Units of the same product share ProductID.
type Product struct {
	ID          uint                                   `json:"id" gorm:"primarykey"`
	UserID      uint                                   `json:"user_id" gorm:"index;not null"`
	ProductID   string                                 `json:"product_id" gorm:"type:varchar(100);index;not null"`
	Name        string                                 `json:"name" gorm:"type:varchar(255);not null"`
	Description string                                 `json:"description" gorm:"type:text"`
	Price       decimal.Decimal                        `json:"price" gorm:"type:decimal(12,2);not null"`
	Category    string                                 `json:"category" gorm:"type:varchar(100)"`
	Stock       int                                    `json:"stock" gorm:"not null;default:1"`
	Unit        string                                 `json:"unit" gorm:"type:varchar(50)"`
	Attribute   datatypes.JSONType[[]ProductAttribute] `json:"attribute"`
	CreatedAt   time.Time                              `json:"created_at"`
	UpdatedAt   time.Time                              `json:"updated_at"`
}
