package handler

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	productSheet    = "Products"
)

var productColumns = []string{"Product ID", "Name", "Category", "Unit", "Price", "Units", "Stock Value"}

// productSummary is one business product with its unit count.
type productSummary struct {
	ProductID string
	Name      string
	Category  string
	Unit      string
	Price     decimal.Decimal
	Units     int
}

// summarizeProducts groups units by product_id keeping first-seen order.
func summarizeProducts(units []model.Product) []productSummary {
	index := map[string]int{}
	var out []productSummary
	for _, u := range units {
		if i, ok := index[u.ProductID]; ok {
			out[i].Units++
			continue
		}
		index[u.ProductID] = len(out)
		out = append(out, productSummary{
			ProductID: u.ProductID,
			Name:      u.Name,
			Category:  u.Category,
			Unit:      u.Unit,
			Price:     u.Price,
			Units:     1,
		})
	}
	return out
}

func buildProductWorkbook(rows []productSummary) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(productColumns))
	for i, col := range productColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(productSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		price, _ := r.Price.Float64()
		value, _ := r.Price.Mul(decimal.NewFromInt(int64(r.Units))).Round(2).Float64()
		line := []interface{}{r.ProductID, r.Name, r.Category, r.Unit, price, r.Units, value}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(productSheet, cell, &line); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(productSheet, "A", "G", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
