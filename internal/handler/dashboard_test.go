package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cloudbook/internal/model"
	"gorm.io/datatypes"
)

func TestDashboardMetrics(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")
	ts.createProduct(adminID, "P1", "Shirt", 10, 2)
	ts.createProduct(adminID, "P2", "Hat", 5, 1)
	requireStatus(t, ts.do(http.MethodPost, "/customers", customerBody(adminID)), http.StatusCreated)
	ts.createInvoice(invoiceBody(adminID, "INV-1", 1, 1000.5, 50, "2026-03-01"))
	ts.createInvoice(invoiceBody(adminID, "INV-2", 1, 200, 0, "2026-02-10"))

	body := requireStatus(t, ts.do(http.MethodGet, fmt.Sprintf("/dashboard/metrics?user_id=%d", adminID), nil), http.StatusOK)
	data := body["data"].(map[string]interface{})
	require.Equal(t, "USD", data["currency"])
	require.Equal(t, 1200.5, data["total_revenue"])
	require.Equal(t, float64(50), data["total_due"])
	require.Equal(t, float64(2), data["total_products"])
	require.Equal(t, float64(1), data["total_customers"])
	require.Equal(t, float64(2), data["total_invoices"])
	require.Equal(t, "1,200.50", data["revenue_display"])

	requireStatus(t, ts.do(http.MethodPut, "/currencies", map[string]interface{}{"user_id": adminID, "currency": "THB"}), http.StatusCreated)
	body = requireStatus(t, ts.do(http.MethodGet, fmt.Sprintf("/dashboard/metrics?user_id=%d", adminID), nil), http.StatusOK)
	require.Equal(t, "THB", body["data"].(map[string]interface{})["currency"])

	requireStatus(t, ts.do(http.MethodGet, "/dashboard/metrics", nil), http.StatusBadRequest)
}

func TestDashboardOverview(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")
	ts.createInvoice(invoiceBody(adminID, "INV-1", 1, 100.5, 0, "2026-03-01",
		map[string]interface{}{"product_id": "P1", "product": "Shirt", "quantity": 2}))
	ts.createInvoice(invoiceBody(adminID, "INV-2", 1, 200, 0, "2026-02-10",
		map[string]interface{}{"product_id": "P1", "product": "Shirt", "quantity": 1},
		map[string]interface{}{"product_id": "P2", "product": "Hat", "quantity": 5}))

	body := requireStatus(t, ts.do(http.MethodGet, fmt.Sprintf("/dashboard/overview?user_id=%d", adminID), nil), http.StatusOK)
	data := body["data"].(map[string]interface{})

	sales := data["product_sales"].([]interface{})
	require.Len(t, sales, 2)
	require.Equal(t, "P2", sales[0].(map[string]interface{})["product_id"])
	require.Equal(t, float64(5), sales[0].(map[string]interface{})["quantity"])
	require.Equal(t, float64(3), sales[1].(map[string]interface{})["quantity"])

	revenue := data["revenue"].([]interface{})
	require.Len(t, revenue, 12)
	last := revenue[11].(map[string]interface{})
	require.Equal(t, "2026-03", last["month"])
	require.Equal(t, 100.5, last["amount"])
	require.Equal(t, "2026-02", revenue[10].(map[string]interface{})["month"])
	require.Equal(t, float64(200), revenue[10].(map[string]interface{})["amount"])
	require.Equal(t, "2025-04", revenue[0].(map[string]interface{})["month"])
}

func TestMonthlyPaidFallsBackToCreatedAt(t *testing.T) {
	now := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	invoices := []model.Invoice{
		{InvoiceDate: "01/05/2026", PaidAmount: decimal.RequireFromString("10.25")},
		{InvoiceDate: "", CreatedAt: time.Date(2025, time.December, 3, 0, 0, 0, 0, time.UTC), PaidAmount: decimal.NewFromInt(4)},
		{InvoiceDate: "2024-01-01", PaidAmount: decimal.NewFromInt(99)},
	}

	out := monthlyPaid(invoices, now, 3)
	require.Equal(t, []string{"2025-11", "2025-12", "2026-01"}, []string{out[0].Month, out[1].Month, out[2].Month})
	require.True(t, out[0].Amount.IsZero())
	require.Equal(t, "4", out[1].Amount.String())
	require.Equal(t, "10.25", out[2].Amount.String())
}

func TestAggregateSalesFallsBackToName(t *testing.T) {
	invoices := []model.Invoice{
		{Items: datatypes.JSON(`[{"product":"Custom job","quantity":1},{"product":"Custom job","quantity":"2"}]`)},
	}
	sales, err := aggregateSales(invoices)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, 3, sales[0].Quantity)
	require.Equal(t, "Custom job", sales[0].Name)
}
