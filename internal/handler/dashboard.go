package handler

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/prometheus"
	"gorm.io/gorm"
)

const (
	defaultCurrency = "USD"
	overviewMonths  = 12
)

type dashboardMetrics struct {
	Currency         string          `json:"currency"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalDue         decimal.Decimal `json:"total_due"`
	TotalProducts    int64           `json:"total_products"`
	TotalCustomers   int64           `json:"total_customers"`
	TotalInvoices    int64           `json:"total_invoices"`
	RevenueDisplay   string          `json:"revenue_display"`
	DueDisplay       string          `json:"due_display"`
	ProductsDisplay  string          `json:"products_display"`
	CustomersDisplay string          `json:"customers_display"`
	InvoicesDisplay  string          `json:"invoices_display"`
}

type productSales struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type monthlyRevenue struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type dashboardOverview struct {
	ProductSales []productSales   `json:"product_sales"`
	Revenue      []monthlyRevenue `json:"revenue"`
}

func formatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f)
}

func sumColumn(db *gorm.DB, column string, userID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.Model(&model.Invoice{}).
		Select("COALESCE(SUM("+column+"), 0)").
		Where("user_id = ?", userID).
		Row().Scan(&total)
	return total.Round(2), err
}

// tenantCurrency returns the tenant's configured currency, or USD.
func tenantCurrency(db *gorm.DB, userID uint) (string, error) {
	var cur model.Currency
	err := db.Where("user_id = ?", userID).First(&cur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && cur.Currency == "") {
		return defaultCurrency, nil
	}
	return cur.Currency, err
}

// DashboardMetrics returns the tenant's headline totals
func (h *Handler) DashboardMetrics(c echo.Context) error {
	userID, err := tenantRequired(c)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := h.dbFor(c)
	var m dashboardMetrics

	if m.TotalRevenue, err = sumColumn(db, "paid_amount", userID); err != nil {
		return apperror.Internal("Failed to compute dashboard metrics", err)
	}
	if m.TotalDue, err = sumColumn(db, "due_amount", userID); err != nil {
		return apperror.Internal("Failed to compute dashboard metrics", err)
	}
	err = db.Model(&model.Product{}).Where("user_id = ?", userID).
		Distinct("product_id").Count(&m.TotalProducts).Error
	if err != nil {
		return apperror.Internal("Failed to compute dashboard metrics", err)
	}
	if err = db.Model(&model.Customer{}).Where("user_id = ?", userID).Count(&m.TotalCustomers).Error; err != nil {
		return apperror.Internal("Failed to compute dashboard metrics", err)
	}
	if err = db.Model(&model.Invoice{}).Where("user_id = ?", userID).Count(&m.TotalInvoices).Error; err != nil {
		return apperror.Internal("Failed to compute dashboard metrics", err)
	}
	if m.Currency, err = tenantCurrency(db, userID); err != nil {
		return apperror.Internal("Failed to compute dashboard metrics", err)
	}

	m.RevenueDisplay = formatMoney(m.TotalRevenue)
	m.DueDisplay = formatMoney(m.TotalDue)
	m.ProductsDisplay = humanize.Comma(m.TotalProducts)
	m.CustomersDisplay = humanize.Comma(m.TotalCustomers)
	m.InvoicesDisplay = humanize.Comma(m.TotalInvoices)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": m})
}

// aggregateSales totals line-item quantities per product across invoices, highest first.
func aggregateSales(invoices []model.Invoice) ([]productSales, error) {
	index := map[string]int{}
	out := []productSales{}
	for _, inv := range invoices {
		items, err := inv.LineItems()
		if err != nil {
			return nil, fmt.Errorf("invoice %d items: %w", inv.ID, err)
		}
		for _, item := range items {
			key := item.ProductID
			if key == "" {
				key = item.Product
			}
			if i, ok := index[key]; ok {
				out[i].Quantity += item.Quantity
				continue
			}
			index[key] = len(out)
			out = append(out, productSales{ProductID: item.ProductID, Name: item.Product, Quantity: item.Quantity})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out, nil
}

// parseInvoiceDate accepts the date layouts the invoice form produces.
func parseInvoiceDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// monthlyPaid buckets paid amounts into the trailing months ending at now's month, oldest first.
// Invoices without a parseable invoice_date fall back to created_at.
func monthlyPaid(invoices []model.Invoice, now time.Time, months int) []monthlyRevenue {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	out := make([]monthlyRevenue, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		out[i] = monthlyRevenue{Month: key, Amount: decimal.Zero}
		index[key] = i
	}

	for _, inv := range invoices {
		at, ok := parseInvoiceDate(inv.InvoiceDate)
		if !ok {
			at = inv.CreatedAt
		}
		if i, ok := index[at.UTC().Format("2006-01")]; ok {
			out[i].Amount = out[i].Amount.Add(inv.PaidAmount)
		}
	}
	for i := range out {
		out[i].Amount = out[i].Amount.Round(2)
	}
	return out
}

// DashboardOverview returns units sold per product and paid revenue per month
func (h *Handler) DashboardOverview(c echo.Context) error {
	userID, err := tenantRequired(c)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invoices []model.Invoice
	if err := h.dbFor(c).Where("user_id = ?", userID).Order("id").Find(&invoices).Error; err != nil {
		return apperror.Internal("Failed to compute dashboard overview", err)
	}
	sales, err := aggregateSales(invoices)
	if err != nil {
		return apperror.Internal("Failed to compute dashboard overview", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": dashboardOverview{
			ProductSales: sales,
			Revenue:      monthlyPaid(invoices, h.now().UTC(), overviewMonths),
		},
	})
}
