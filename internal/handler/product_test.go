package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/xuri/excelize/v2"
)

func (ts *testServer) unitCount(productID string) int64 {
	ts.t.Helper()
	var n int64
	require.NoError(ts.t, ts.db.Model(&model.Product{}).Where("product_id = ?", productID).Count(&n).Error)
	return n
}

func TestCreateProductsExpandsStock(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")

	rec := ts.do(http.MethodPost, "/products", map[string]interface{}{
		"products": []map[string]interface{}{
			{
				"user_id": adminID, "product_id": "P1", "name": " Shirt ", "price": 19.99,
				"category": "Apparel", "stock": 3, "unit": "pcs",
				"attribute": []map[string]string{{"name": " size ", "value": " M "}},
			},
			{
				"user_id": adminID, "product_id": "P2", "name": "Hat", "price": "5.50",
				"category": "Apparel", "stock": 1, "unit": "pcs",
			},
		},
	})
	body := requireStatus(t, rec, http.StatusCreated)
	require.Equal(t, "4 product(s) created", body["message"])

	require.EqualValues(t, 3, ts.unitCount("P1"))
	require.EqualValues(t, 1, ts.unitCount("P2"))

	var units []model.Product
	require.NoError(t, ts.db.Where("product_id = ?", "P1").Find(&units).Error)
	for _, u := range units {
		require.Equal(t, 1, u.Stock)
		require.Equal(t, "Shirt", u.Name)
		require.Equal(t, "19.99", u.Price.String())
		require.Equal(t, []model.ProductAttribute{{Name: "size", Value: "M"}}, u.Attribute.Data())
	}

	body = requireStatus(t, ts.do(http.MethodGet, fmt.Sprintf("/products?user_id=%d", adminID), nil), http.StatusOK)
	require.Len(t, body["data"].([]interface{}), 4)
}

func TestCreateProductsValidation(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")

	valid := map[string]interface{}{
		"user_id": adminID, "product_id": "P1", "name": "Shirt", "price": 10,
		"category": "Apparel", "stock": 2, "unit": "pcs",
	}
	noStock := map[string]interface{}{
		"user_id": adminID, "product_id": "P2", "name": "Hat", "price": 10,
		"category": "Apparel", "unit": "pcs",
	}

	tests := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{"not an array", map[string]interface{}{"products": valid}, http.StatusBadRequest, "Expected an array of products"},
		{"missing products", map[string]interface{}{}, http.StatusBadRequest, "Expected an array of products"},
		{"empty array", map[string]interface{}{"products": []interface{}{}}, http.StatusBadRequest, "No products provided"},
		{"missing stock", map[string]interface{}{"products": []interface{}{valid, noStock}}, http.StatusBadRequest, "Missing required fields for P2"},
		{"unknown tenant", map[string]interface{}{"products": []interface{}{
			map[string]interface{}{
				"user_id": adminID + 50, "product_id": "P3", "name": "Cap", "price": 1,
				"category": "Apparel", "stock": 1, "unit": "pcs",
			},
		}}, http.StatusNotFound, "Admin not found"},
		{"stock beyond the unit cap", map[string]interface{}{"products": []interface{}{
			map[string]interface{}{
				"user_id": adminID, "product_id": "P4", "name": "Sock", "price": 1,
				"category": "Apparel", "stock": int64(1) << 40, "unit": "pcs",
			},
		}}, http.StatusBadRequest, "Too many units in one request (max 10000)"},
		{"units summed across items", map[string]interface{}{"products": []interface{}{
			map[string]interface{}{
				"user_id": adminID, "product_id": "P5", "name": "Sock", "price": 1,
				"category": "Apparel", "stock": 6000, "unit": "pcs",
			},
			map[string]interface{}{
				"user_id": adminID, "product_id": "P6", "name": "Tie", "price": 1,
				"category": "Apparel", "stock": 4001, "unit": "pcs",
			},
		}}, http.StatusBadRequest, "Too many units in one request (max 10000)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := requireStatus(t, ts.do(http.MethodPost, "/products", tt.body), tt.status)
			require.Equal(t, tt.message, body["message"])
		})
	}

	var n int64
	require.NoError(t, ts.db.Model(&model.Product{}).Count(&n).Error)
	require.Zero(t, n, "a rejected batch must not insert anything")
}

func TestCreateProductsInsertsInBatches(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")

	ts.createProduct(adminID, "P1", "Shirt", 10, insertBatchSize*2+1)
	require.EqualValues(t, insertBatchSize*2+1, ts.unitCount("P1"))

	ts.h.maxUnits = 3
	body := requireStatus(t, ts.do(http.MethodPost, "/products", map[string]interface{}{
		"products": []map[string]interface{}{{
			"user_id": adminID, "product_id": "P2", "name": "Hat", "price": 5,
			"category": "Apparel", "stock": 4, "unit": "pcs",
		}},
	}), http.StatusBadRequest)
	require.Equal(t, "Too many units in one request (max 3)", body["message"])
	require.Zero(t, ts.unitCount("P2"))
}

func TestUpdateProductsIsAllOrNothing(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")
	ts.createProduct(adminID, "P1", "Shirt", 10, 2)

	rec := ts.do(http.MethodPut, "/products", []map[string]interface{}{
		{"product_id": "P1", "name": "Polo", "price": 12, "category": "Apparel", "unit": "pcs"},
		{"product_id": "P9", "name": "Ghost", "price": 1, "category": "None", "unit": "pcs"},
	})
	body := requireStatus(t, rec, http.StatusNotFound)
	require.Equal(t, "Product not found: P9", body["message"])

	var units []model.Product
	require.NoError(t, ts.db.Where("product_id = ?", "P1").Find(&units).Error)
	require.Len(t, units, 2)
	for _, u := range units {
		require.Equal(t, "Shirt", u.Name)
	}

	// a single object is accepted too
	rec = ts.do(http.MethodPut, "/products", map[string]interface{}{
		"product_id": "P1", "name": "Polo", "description": "pique", "price": 12,
		"category": "Apparel", "unit": "pcs", "attribute": []map[string]string{{"name": "color", "value": "navy"}},
	})
	body = requireStatus(t, rec, http.StatusOK)
	require.Equal(t, "Product(s) updated successfully", body["message"])

	require.NoError(t, ts.db.Where("product_id = ?", "P1").Find(&units).Error)
	for _, u := range units {
		require.Equal(t, "Polo", u.Name)
		require.Equal(t, "12", u.Price.String())
		require.Equal(t, "navy", u.Attribute.Data()[0].Value)
	}

	body = requireStatus(t, ts.do(http.MethodPut, "/products", "[]"), http.StatusBadRequest)
	require.Equal(t, "No products provided", body["message"])

	body = requireStatus(t, ts.do(http.MethodPut, "/products", map[string]interface{}{"product_id": "P1"}), http.StatusBadRequest)
	require.Equal(t, "Missing required fields for P1", body["message"])
}

func TestDeleteProductsByOccurrence(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")
	ts.createProduct(adminID, "P1", "Shirt", 10, 3)
	ts.createProduct(adminID, "P2", "Hat", 5, 1)

	body := requireStatus(t, ts.do(http.MethodDelete, "/products",
		map[string]interface{}{"product_id": []string{"P1", "P1", "P2"}}), http.StatusOK)
	require.Equal(t, "3 product(s) deleted", body["message"])
	require.EqualValues(t, 1, ts.unitCount("P1"))
	require.EqualValues(t, 0, ts.unitCount("P2"))

	body = requireStatus(t, ts.do(http.MethodDelete, "/products",
		map[string]interface{}{"product_id": []string{"P2"}}), http.StatusNotFound)
	require.Equal(t, "No products found to delete", body["message"])
}

func TestDeleteProductsByIDAndProductID(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")
	ts.createProduct(adminID, "P1", "Shirt", 10, 2)
	ts.createProduct(adminID, "P2", "Hat", 5, 2)

	var unit model.Product
	require.NoError(t, ts.db.Where("product_id = ?", "P1").First(&unit).Error)

	body := requireStatus(t, ts.do(http.MethodDelete, "/products", map[string]interface{}{"id": unit.ID}), http.StatusOK)
	require.Equal(t, "1 product(s) deleted", body["message"])
	require.EqualValues(t, 1, ts.unitCount("P1"))

	body = requireStatus(t, ts.do(http.MethodDelete, "/products", map[string]interface{}{"id": unit.ID}), http.StatusNotFound)
	require.Equal(t, "Product not found", body["message"])

	body = requireStatus(t, ts.do(http.MethodDelete, "/products", map[string]interface{}{"id": 0, "product_id": "P2"}), http.StatusOK)
	require.Equal(t, "2 product(s) deleted", body["message"])
	require.EqualValues(t, 0, ts.unitCount("P2"))

	body = requireStatus(t, ts.do(http.MethodDelete, "/products", map[string]interface{}{"product_id": "P2"}), http.StatusNotFound)
	require.Equal(t, "No products found", body["message"])

	body = requireStatus(t, ts.do(http.MethodDelete, "/products", map[string]interface{}{}), http.StatusBadRequest)
	require.Equal(t, "id or product_id is required", body["message"])
}

func TestParseProductDeletion(t *testing.T) {
	del, err := parseProductDeletion([]byte(`{"product_id":["P1","P2","P1",7]}`))
	require.NoError(t, err)
	require.Equal(t, deleteUnits, del.Kind)
	require.Equal(t, []unitCount{{"P1", 2}, {"P2", 1}, {"7", 1}}, del.Units)

	del, err = parseProductDeletion([]byte(`{"id":"12"}`))
	require.NoError(t, err)
	require.Equal(t, deleteByRowID, del.Kind)
	require.Equal(t, uint(12), del.RowID)

	del, err = parseProductDeletion([]byte(`{"id":null,"product_id":" P3 "}`))
	require.NoError(t, err)
	require.Equal(t, deleteAllUnits, del.Kind)
	require.Equal(t, "P3", del.ProductID)

	for _, body := range []string{`{"id":0,"product_id":"P4"}`, `{"id":"","product_id":"P4"}`, `{"id":"0","product_id":"P4"}`} {
		del, err = parseProductDeletion([]byte(body))
		require.NoError(t, err, body)
		require.Equal(t, deleteAllUnits, del.Kind, body)
		require.Equal(t, "P4", del.ProductID, body)
	}

	_, err = parseProductDeletion([]byte(`{"id":0}`))
	require.Error(t, err)

	_, err = parseProductDeletion([]byte(`{"id":"x1"}`))
	require.Error(t, err)

	_, err = parseProductDeletion([]byte(`{"product_id":[]}`))
	require.Error(t, err)

	_, err = parseProductDeletion([]byte(`not json`))
	require.Error(t, err)
}

func TestExportProducts(t *testing.T) {
	ts := newTestServer(t)
	adminID := ts.signUp("ada@example.com", "admin")
	ts.createProduct(adminID, "P1", "Shirt", 19.99, 3)
	ts.createProduct(adminID, "P2", "Hat", 5, 1)

	rec := ts.do(http.MethodGet, fmt.Sprintf("/products/export?user_id=%d", adminID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "products.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(productSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, productColumns, rows[0])
	require.Equal(t, "P1", rows[1][0])
	require.Equal(t, "3", rows[1][5])
	require.Equal(t, "P2", rows[2][0])
	require.Equal(t, "1", rows[2][5])

	body := requireStatus(t, ts.do(http.MethodGet, "/products/export", nil), http.StatusBadRequest)
	require.Equal(t, "User ID is required", body["message"])

	other := ts.signUp("grace@example.com", "admin")
	requireStatus(t, ts.do(http.MethodGet, fmt.Sprintf("/products/export?user_id=%d", other), nil), http.StatusNotFound)
}
